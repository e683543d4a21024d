package server_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/example/go-wordpiece/internal/server"
	"github.com/example/go-wordpiece/internal/tokenizer"
)

// stubModel implements server.Model for tests.
type stubModel struct {
	segments [][]string
	units    []tokenizer.Unit
	onCall   func()
}

func (s *stubModel) TokenizeWords(_ string) [][]string {
	if s.onCall != nil {
		s.onCall()
	}
	return s.segments
}

func (s *stubModel) NIters() int    { return 3 }
func (s *stubModel) MaxLength() int { return 4 }
func (s *stubModel) Len() int       { return len(s.units) }

func (s *stubModel) TopUnits(n int) []tokenizer.Unit {
	if n > 0 && n < len(s.units) {
		return s.units[:n]
	}
	return s.units
}

// trainedModel returns an encoder trained on the "low/lowest" corpus.
func trainedModel() *tokenizer.BytePairEncoder {
	e := tokenizer.New(1)
	e.Train([]string{"low low low low low", "lowest lowest"})
	return e
}

func postTokenize(h http.Handler, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/tokenize", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(rec, req)
	return rec
}

// ---------------------------------------------------------------------------
// GET /health
// ---------------------------------------------------------------------------

func TestHealth_Returns200WithStatusOK(t *testing.T) {
	h := server.NewHandler(&stubModel{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}

	var body map[string]string
	err := json.NewDecoder(rec.Body).Decode(&body)
	if err != nil {
		t.Fatalf("decode body: %v", err)
	}

	if body["status"] != "ok" {
		t.Errorf("want status=ok, got %q", body["status"])
	}

	if _, ok := body["version"]; !ok {
		t.Error("want version field in response")
	}
}

func TestRequestID_AssignedAndEchoed(t *testing.T) {
	h := server.NewHandler(&stubModel{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if id := rec.Header().Get(server.RequestIDHeader); len(id) != 36 {
		t.Errorf("want generated uuid request id, got %q", id)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(server.RequestIDHeader, "abc-123")
	h.ServeHTTP(rec, req)

	if id := rec.Header().Get(server.RequestIDHeader); id != "abc-123" {
		t.Errorf("want echoed request id, got %q", id)
	}
}

// ---------------------------------------------------------------------------
// GET /units
// ---------------------------------------------------------------------------

func TestUnits_ReturnsTableSummary(t *testing.T) {
	h := server.NewHandler(trainedModel())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/units?top=2", nil)
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}

	var got server.UnitsResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode body: %v", err)
	}

	want := server.UnitsResponse{
		NIters:    1,
		MaxLength: 3,
		Size:      5,
		Units:     []tokenizer.Unit{{Text: "low", Freq: 7}, {Text: "_", Freq: 7}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("GET /units = %+v; want %+v", got, want)
	}
}

func TestUnits_EmptyTableReturnsEmptyArray(t *testing.T) {
	h := server.NewHandler(&stubModel{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/units", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(rec.Body).Decode(&raw); err != nil {
		t.Fatalf("decode body: %v", err)
	}

	if string(raw["units"]) != "[]" {
		t.Errorf("want units=[], got %s", raw["units"])
	}
}

func TestUnits_RejectsBadTop(t *testing.T) {
	h := server.NewHandler(&stubModel{})

	for _, q := range []string{"top=-1", "top=abc"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/units?"+q, nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: want 400, got %d", q, rec.Code)
		}
	}
}

func TestUnits_RejectsPost(t *testing.T) {
	h := server.NewHandler(&stubModel{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/units", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("want 405, got %d", rec.Code)
	}
}

// ---------------------------------------------------------------------------
// POST /tokenize
// ---------------------------------------------------------------------------

func TestTokenize_ReturnsMissingBodyAs400(t *testing.T) {
	h := server.NewHandler(&stubModel{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/tokenize", nil)
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", rec.Code)
	}

	var body map[string]string
	err := json.NewDecoder(rec.Body).Decode(&body)
	if err != nil {
		t.Fatalf("decode error body: %v", err)
	}

	if body["error"] == "" {
		t.Error("want non-empty error field")
	}
}

func TestTokenize_ReturnsEmptyTextAs400(t *testing.T) {
	h := server.NewHandler(&stubModel{})

	rec := postTokenize(h, `{"text":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", rec.Code)
	}
}

func TestTokenize_InvalidJSONAs400(t *testing.T) {
	h := server.NewHandler(&stubModel{})

	rec := postTokenize(h, `{"text":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", rec.Code)
	}
}

func TestTokenize_RejectsGet(t *testing.T) {
	h := server.NewHandler(&stubModel{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tokenize", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("want 405, got %d", rec.Code)
	}
}

func TestTokenize_ReturnsSegmentation(t *testing.T) {
	h := server.NewHandler(trainedModel())

	rec := postTokenize(h, `{"text":"low lowest"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("want Content-Type application/json, got %q", ct)
	}

	var got server.TokenizeResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode body: %v", err)
	}

	if got.Tokens != "low _ low e s t _" {
		t.Errorf("tokens = %q; want %q", got.Tokens, "low _ low e s t _")
	}

	wantSegs := [][]string{{"low", "_"}, {"low", "e", "s", "t", "_"}}
	if !reflect.DeepEqual(got.Segments, wantSegs) {
		t.Errorf("segments = %v; want %v", got.Segments, wantSegs)
	}
}

func TestTokenize_WhitespaceOnlyReturnsEmpty(t *testing.T) {
	h := server.NewHandler(trainedModel())

	rec := postTokenize(h, `{"text":"   "}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(rec.Body).Decode(&raw); err != nil {
		t.Fatalf("decode body: %v", err)
	}

	if string(raw["tokens"]) != `""` || string(raw["segments"]) != "[]" {
		t.Errorf("want empty tokens and segments, got %s / %s", raw["tokens"], raw["segments"])
	}
}
