package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/talkdb/talkdb/internal/database"
)

func TestUIConfigEndpoint(t *testing.T) {
	cfg := testConfig(t, map[string]string{
		"TALKDB_CHAT_TITLE":    "Hospital data",
		"TALKDB_CHAT_EXAMPLES": "How many beds?|Which doctors?",
	})

	h := NewHandler(cfg, Dependencies{})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/ui/config", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
	}
	var body struct {
		Title    string   `json:"title"`
		Examples []string `json:"examples"`
		Theme    uiTheme  `json:"theme"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Title != "Hospital data" || len(body.Examples) != 2 || body.Examples[1] != "Which doctors?" {
		t.Fatalf("body = %#v", body)
	}
	if body.Theme.PrimaryHue != "blue" || body.Theme.SecondaryHue != "green" {
		t.Fatalf("theme = %#v", body.Theme)
	}
}

func TestUISchemaEndpointReturnsTables(t *testing.T) {
	cfg := testConfig(t, map[string]string{"TALKDB_DATABASE_SAMPLE_ROWS": "2"})
	handle := &fakeHandle{tables: []database.Table{{
		Name:       "Hospitals",
		Columns:    []database.Column{{Name: "HospitalID", Type: "INTEGER"}, {Name: "TotalBeds", Type: "INTEGER"}},
		SampleRows: [][]any{{1, 120}},
	}}}

	h := NewHandler(cfg, Dependencies{Database: handle})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/ui/schema", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr.Body.Bytes())
	tables, ok := body["tables"].([]any)
	if !ok || len(tables) != 1 {
		t.Fatalf("tables = %#v", body["tables"])
	}
	if body["dialect"] != "sqlite" {
		t.Fatalf("dialect = %v", body["dialect"])
	}
	if handle.sampleArg != 2 {
		t.Fatalf("sample rows = %d", handle.sampleArg)
	}
}

func TestUISchemaEndpointReportsFailures(t *testing.T) {
	cfg := testConfig(t, nil)

	rr := httptest.NewRecorder()
	NewHandler(cfg, Dependencies{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/ui/schema", nil))
	if rr.Code != http.StatusNotImplemented {
		t.Fatalf("status without database = %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	NewHandler(cfg, Dependencies{Database: &fakeHandle{listErr: errors.New("no such table: sqlite_master")}}).
		ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/ui/schema", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	if decodeBody(t, rr.Body.Bytes())["error_code"] != "SCHEMA_FETCH_FAILED" {
		t.Fatalf("body = %s", rr.Body.String())
	}
}

func decodeBody(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}
