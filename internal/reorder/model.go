package reorder

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Mode selects which manual order column a request updates.
type Mode string

const (
	// ModeQueued updates the queued order column.
	ModeQueued Mode = "queued"
	// ModeWishlist updates the wishlist order column.
	ModeWishlist Mode = "wishlist"
)

const (
	queuedOrderHeader   = "Queued Order"
	wishlistOrderHeader = "Wishlist Order"
)

// Identifier column headers, in priority order.
var idHeaders = []string{"Game ID", "ID"}

var (
	// ErrInvalidRequest marks failures caused by the caller's input or by the
	// shape of the target sheet.
	ErrInvalidRequest = errors.New("reorder: invalid request")
	// ErrInvalidMode indicates a mode other than queued or wishlist.
	ErrInvalidMode = fmt.Errorf("%w: mode must be \"queued\" or \"wishlist\"", ErrInvalidRequest)
	// ErrMissingIDHeader indicates the sheet has no identifier column.
	ErrMissingIDHeader = fmt.Errorf("%w: sheet has no %q or %q column", ErrInvalidRequest, "Game ID", "ID")
	// ErrMissingOrderHeader indicates the sheet has no column for the mode.
	ErrMissingOrderHeader = fmt.Errorf("%w: sheet has no order column", ErrInvalidRequest)
)

// ParseMode validates a raw mode value.
func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModeQueued:
		return ModeQueued, nil
	case ModeWishlist:
		return ModeWishlist, nil
	default:
		return "", ErrInvalidMode
	}
}

// OrderHeader names the sheet column holding this mode's order values.
func (m Mode) OrderHeader() string {
	if m == ModeWishlist {
		return wishlistOrderHeader
	}
	return queuedOrderHeader
}

// CellValue holds a JSON string or number as text.
type CellValue string

// UnmarshalJSON accepts strings, numbers and null.
func (v *CellValue) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*v = ""
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return err
		}
		*v = CellValue(text)
		return nil
	}
	var number json.Number
	if err := json.Unmarshal(trimmed, &number); err != nil {
		return fmt.Errorf("expected string or number, got %s", string(trimmed))
	}
	*v = CellValue(number.String())
	return nil
}

// String returns the trimmed text.
func (v CellValue) String() string {
	return strings.TrimSpace(string(v))
}

// Update pairs an external game id with its new order value. An empty order
// clears the cell.
type Update struct {
	ExternalGameID CellValue `json:"externalGameId"`
	Order          CellValue `json:"order"`
}

// Request is one write-back call.
type Request struct {
	SpreadsheetID string   `json:"spreadsheetId"`
	SheetName     string   `json:"sheetName"`
	Mode          string   `json:"mode"`
	Updates       []Update `json:"updates"`
}

// Result reports what a write-back changed.
type Result struct {
	OK        bool     `json:"ok"`
	RequestID string   `json:"requestId"`
	Updated   int      `json:"updated"`
	Unmatched []string `json:"unmatched"`
}

// writePlan is a validated request with defaults applied.
type writePlan struct {
	spreadsheetID string
	sheetName     string
	mode          Mode
	updates       []Update
}

func newPlan(request Request, defaultSpreadsheetID, defaultSheetName string) (writePlan, error) {
	spreadsheetID := strings.TrimSpace(request.SpreadsheetID)
	if spreadsheetID == "" {
		spreadsheetID = strings.TrimSpace(defaultSpreadsheetID)
	}
	if spreadsheetID == "" {
		return writePlan{}, fmt.Errorf("%w: spreadsheetId is required", ErrInvalidRequest)
	}
	sheetName := strings.TrimSpace(request.SheetName)
	if sheetName == "" {
		sheetName = strings.TrimSpace(defaultSheetName)
	}
	if sheetName == "" {
		return writePlan{}, fmt.Errorf("%w: sheetName is required", ErrInvalidRequest)
	}
	mode, err := ParseMode(request.Mode)
	if err != nil {
		return writePlan{}, err
	}
	if len(request.Updates) == 0 {
		return writePlan{}, fmt.Errorf("%w: updates must not be empty", ErrInvalidRequest)
	}

	// Repeated ids collapse to their last order value, keeping first position.
	updates := make([]Update, 0, len(request.Updates))
	positions := make(map[string]int, len(request.Updates))
	for index, update := range request.Updates {
		id := update.ExternalGameID.String()
		if id == "" {
			return writePlan{}, fmt.Errorf("%w: updates[%d].externalGameId is required", ErrInvalidRequest, index)
		}
		normalized := Update{ExternalGameID: CellValue(id), Order: CellValue(update.Order.String())}
		if position, seen := positions[id]; seen {
			updates[position] = normalized
			continue
		}
		positions[id] = len(updates)
		updates = append(updates, normalized)
	}

	return writePlan{
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		mode:          mode,
		updates:       updates,
	}, nil
}

// locateColumns finds the identifier and order columns in a header row.
func locateColumns(header []string, mode Mode) (idColumn, orderColumn int, err error) {
	idColumn = -1
	for _, name := range idHeaders {
		if idColumn = indexOfHeader(header, name); idColumn >= 0 {
			break
		}
	}
	if idColumn < 0 {
		return -1, -1, ErrMissingIDHeader
	}
	orderColumn = indexOfHeader(header, mode.OrderHeader())
	if orderColumn < 0 {
		return -1, -1, fmt.Errorf("%w %q", ErrMissingOrderHeader, mode.OrderHeader())
	}
	return idColumn, orderColumn, nil
}

func indexOfHeader(header []string, name string) int {
	for index, cell := range header {
		if strings.TrimSpace(cell) == name {
			return index
		}
	}
	return -1
}
