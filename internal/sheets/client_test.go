package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/oauth2"
)

type failingToken struct{}

func (failingToken) Token() (*oauth2.Token, error) {
	return nil, errors.New("credentials rejected")
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient(ClientConfig{
		BaseURL:     server.URL + "/v4/",
		TokenSource: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "access-token"}),
		HTTPClient:  server.Client(),
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}
	return client
}

func TestGetValuesReturnsRaggedRows(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("unexpected method %s", r.Method)
		}
		if r.URL.Path != "/v4/spreadsheets/sheet-123/values/'Games'!1:1" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer access-token" {
			t.Errorf("missing bearer token, got %q", r.Header.Get("Authorization"))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"range":  "'Games'!A1:C2",
			"values": []any{[]any{"Title", "Game ID", 3}, []any{"Hades"}},
		})
	})

	rows, err := client.GetValues(context.Background(), "sheet-123", RowRange("Games", 1))
	if err != nil {
		t.Fatalf("GetValues failed: %v", err)
	}
	expected := [][]string{{"Title", "Game ID", "3"}, {"Hades"}}
	if diff := cmp.Diff(expected, rows); diff != "" {
		t.Fatalf("unexpected rows (-want +got):\n%s", diff)
	}
}

func TestBatchUpdateValuesSendsAllRanges(t *testing.T) {
	var received batchUpdateRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v4/spreadsheets/sheet-123/values:batchUpdate" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"totalUpdatedCells": 2})
	})

	updated, err := client.BatchUpdateValues(context.Background(), "sheet-123", []ValueRange{
		{Range: CellRange("Games", 4, 2), Values: [][]interface{}{{1}}},
		{Range: CellRange("Games", 4, 7), Values: [][]interface{}{{2}}},
	})
	if err != nil {
		t.Fatalf("BatchUpdateValues failed: %v", err)
	}
	if updated != 2 {
		t.Fatalf("expected 2 updated cells, got %d", updated)
	}
	if received.ValueInputOption != valueInputUserEntered {
		t.Fatalf("unexpected value input option %q", received.ValueInputOption)
	}
	if len(received.Data) != 2 || received.Data[0].Range != "'Games'!E2" || received.Data[1].Range != "'Games'!E7" {
		t.Fatalf("unexpected ranges %+v", received.Data)
	}
}

func TestBatchUpdateValuesSkipsEmptyRequest(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
	})
	updated, err := client.BatchUpdateValues(context.Background(), "sheet-123", nil)
	if err != nil || updated != 0 {
		t.Fatalf("expected no-op, got %d %v", updated, err)
	}
}

func TestClientSurfacesAPIErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"The caller does not have permission","status":"PERMISSION_DENIED"}}`))
	})

	_, err := client.GetValues(context.Background(), "sheet-123", "A1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusForbidden || apiErr.Status != "PERMISSION_DENIED" {
		t.Fatalf("unexpected api error %+v", apiErr)
	}
	if apiErr.Message != "The caller does not have permission" {
		t.Fatalf("unexpected message %q", apiErr.Message)
	}
}

func TestClientSurfacesTokenErrors(t *testing.T) {
	client, err := NewClient(ClientConfig{TokenSource: failingToken{}})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}
	_, err = client.GetValues(context.Background(), "sheet-123", "A1")
	if err == nil || !strings.Contains(err.Error(), "credentials rejected") {
		t.Fatalf("expected token error, got %v", err)
	}
}

func TestNewClientRequiresTokenSource(t *testing.T) {
	if _, err := NewClient(ClientConfig{}); !errors.Is(err, errMissingTokenSource) {
		t.Fatalf("expected missing token source error, got %v", err)
	}
}

func TestA1Helpers(t *testing.T) {
	tests := []struct {
		index    int
		expected string
	}{
		{index: 0, expected: "A"},
		{index: 25, expected: "Z"},
		{index: 26, expected: "AA"},
		{index: 51, expected: "AZ"},
		{index: 52, expected: "BA"},
		{index: 701, expected: "ZZ"},
		{index: 702, expected: "AAA"},
	}
	for _, tt := range tests {
		if got := ColumnName(tt.index); got != tt.expected {
			t.Fatalf("ColumnName(%d): want %q got %q", tt.index, tt.expected, got)
		}
	}
	if got := CellRange("Bob's Games", 2, 10); got != "'Bob''s Games'!C10" {
		t.Fatalf("unexpected cell range %q", got)
	}
	if got := ColumnRange("Games", 27); got != "'Games'!AB:AB" {
		t.Fatalf("unexpected column range %q", got)
	}
}
