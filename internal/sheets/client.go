package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// DefaultBaseURL is the Google Sheets v4 REST endpoint.
const DefaultBaseURL = "https://sheets.googleapis.com/v4"

const (
	valueInputUserEntered = "USER_ENTERED"
	majorDimensionRows    = "ROWS"
	errorBodyLimit        = 4096
)

var (
	errMissingTokenSource   = errors.New("sheets: token source is required")
	errMissingSpreadsheetID = errors.New("sheets: spreadsheet id is required")
)

// APIError is a non-2xx response from the Sheets API.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("sheets api returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("sheets api returned status %d: %s", e.StatusCode, e.Message)
}

// ValueRange is a block of cell values addressed in A1 notation.
type ValueRange struct {
	Range  string          `json:"range"`
	Values [][]interface{} `json:"values"`
}

// ClientConfig configures a Client.
type ClientConfig struct {
	BaseURL     string
	TokenSource oauth2.TokenSource
	HTTPClient  *http.Client
	Logger      *zap.Logger
}

// Client reads and writes spreadsheet values.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient constructs a Client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.TokenSource == nil {
		return nil, errMissingTokenSource
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	base := cfg.HTTPClient
	if base == nil {
		base = http.DefaultClient
	}
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Source: cfg.TokenSource,
			Base:   base.Transport,
		},
		Timeout: base.Timeout,
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

type valuesResponse struct {
	Range  string          `json:"range"`
	Values [][]interface{} `json:"values"`
}

// GetValues returns the formatted cell values of a1Range, one slice per row.
// Trailing empty cells are omitted by the API, so rows may be ragged.
func (c *Client) GetValues(ctx context.Context, spreadsheetID, a1Range string) ([][]string, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errMissingSpreadsheetID
	}
	endpoint := fmt.Sprintf("%s/spreadsheets/%s/values/%s?majorDimension=%s",
		c.baseURL, url.PathEscape(spreadsheetID), url.PathEscape(a1Range), majorDimensionRows)

	var decoded valuesResponse
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &decoded); err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(decoded.Values))
	for _, row := range decoded.Values {
		cells := make([]string, len(row))
		for index, cell := range row {
			cells[index] = cellString(cell)
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

type batchUpdateRequest struct {
	ValueInputOption string            `json:"valueInputOption"`
	Data             []batchValueRange `json:"data"`
}

type batchValueRange struct {
	Range          string          `json:"range"`
	MajorDimension string          `json:"majorDimension"`
	Values         [][]interface{} `json:"values"`
}

type batchUpdateResponse struct {
	TotalUpdatedCells int `json:"totalUpdatedCells"`
}

// BatchUpdateValues writes every range in one request and returns the number
// of cells the API reports as updated.
func (c *Client) BatchUpdateValues(ctx context.Context, spreadsheetID string, ranges []ValueRange) (int, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return 0, errMissingSpreadsheetID
	}
	if len(ranges) == 0 {
		return 0, nil
	}

	payload := batchUpdateRequest{
		ValueInputOption: valueInputUserEntered,
		Data:             make([]batchValueRange, 0, len(ranges)),
	}
	for _, valueRange := range ranges {
		payload.Data = append(payload.Data, batchValueRange{
			Range:          valueRange.Range,
			MajorDimension: majorDimensionRows,
			Values:         valueRange.Values,
		})
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}

	endpoint := fmt.Sprintf("%s/spreadsheets/%s/values:batchUpdate", c.baseURL, url.PathEscape(spreadsheetID))
	var decoded batchUpdateResponse
	if err := c.do(ctx, http.MethodPost, endpoint, body, &decoded); err != nil {
		return 0, err
	}
	c.logger.Debug("sheet values updated",
		zap.String("spreadsheet_id", spreadsheetID),
		zap.Int("ranges", len(ranges)),
		zap.Int("cells", decoded.TotalUpdatedCells))
	return decoded.TotalUpdatedCells, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte, target interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	request, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	request.Header.Set("Accept", "application/json")
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return decodeAPIError(response)
	}
	return json.NewDecoder(response.Body).Decode(target)
}

type errorEnvelope struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func decodeAPIError(response *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(response.Body, errorBodyLimit))
	apiErr := &APIError{StatusCode: response.StatusCode}

	var envelope errorEnvelope
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Message != "" {
		apiErr.Status = envelope.Error.Status
		apiErr.Message = envelope.Error.Message
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(raw))
	return apiErr
}

func cellString(cell interface{}) string {
	switch typed := cell.(type) {
	case nil:
		return ""
	case string:
		return typed
	default:
		return fmt.Sprint(typed)
	}
}
