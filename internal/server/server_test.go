package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chatguard/chatguard/internal/config"
	"github.com/chatguard/chatguard/internal/eventlog"
	"github.com/chatguard/chatguard/internal/validator"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, cfg *config.Config) (*Server, *eventlog.Log) {
	t.Helper()

	events := eventlog.NewLog(10)
	engine, err := validator.New(validator.Config{
		Events: events,
		Logger: testLogger(),
	})
	if err != nil {
		t.Fatalf("validator.New error: %v", err)
	}

	srv, err := New(Options{
		Config:    cfg,
		Validator: engine,
		Events:    events,
		Logger:    testLogger(),
		Version:   "test",
	})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	return srv, events
}

func postJSON(h http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeVerdict(t *testing.T, rec *httptest.ResponseRecorder) ValidateResponse {
	t.Helper()
	var resp ValidateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestValidateAccepts(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := postJSON(srv.Router(), "/api/v1/validate",
		`{"input":"  hello there  ","context":{"identity":"u1"}}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decodeVerdict(t, rec)
	if !resp.IsValid {
		t.Fatalf("expected valid, got reason %q", resp.Reason)
	}
	if resp.SanitizedInput != "hello there" {
		t.Fatalf("expected trimmed input, got %q", resp.SanitizedInput)
	}
	if resp.ThreatLevel != "low" {
		t.Fatalf("expected low threat level, got %q", resp.ThreatLevel)
	}
}

func TestValidateBlockedContent(t *testing.T) {
	srv, events := newTestServer(t, nil)

	rec := postJSON(srv.Router(), "/api/v1/validate",
		`{"input":"<script>alert(1)</script>","context":{"identity":"mallory"}}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with verdict, got %d", rec.Code)
	}
	resp := decodeVerdict(t, rec)
	if resp.IsValid {
		t.Fatal("expected rejection")
	}
	if resp.Reason != ReasonProhibited {
		t.Fatalf("expected %s, got %q", ReasonProhibited, resp.Reason)
	}
	if resp.ThreatLevel != "medium" {
		t.Fatalf("expected medium after one strike, got %q", resp.ThreatLevel)
	}

	body := rec.Body.String()
	if strings.Contains(body, "xss") || strings.Contains(body, "script") {
		t.Fatalf("category or evidence leaked to the wire: %s", body)
	}

	if events.Len() != 1 {
		t.Fatalf("expected one recorded event, got %d", events.Len())
	}
}

func TestValidateStructuralReason(t *testing.T) {
	srv, events := newTestServer(t, nil)

	body := `{"input":"` + strings.Repeat(`a\n`, 60) + `","context":{"identity":"u1"}}`
	rec := postJSON(srv.Router(), "/api/v1/validate", body)

	resp := decodeVerdict(t, rec)
	if resp.IsValid {
		t.Fatal("expected rejection")
	}
	if resp.Reason != "line_count_exceeded" {
		t.Fatalf("expected line_count_exceeded, got %q", resp.Reason)
	}
	if events.Len() != 0 {
		t.Fatal("structural rejections must not create security events")
	}
}

func TestValidateEmptyInput(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := postJSON(srv.Router(), "/api/v1/validate", `{"input":"   "}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decodeVerdict(t, rec)
	if resp.IsValid || resp.Reason != ReasonInvalidInput {
		t.Fatalf("expected invalid_input, got valid=%v reason=%q", resp.IsValid, resp.Reason)
	}
}

func TestValidateRateLimited(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	var rec *httptest.ResponseRecorder
	for i := 0; i < 11; i++ {
		rec = postJSON(srv.Router(), "/api/v1/validate",
			`{"input":"hello","context":{"identity":"burst"}}`)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with verdict, got %d", rec.Code)
	}
	resp := decodeVerdict(t, rec)
	if resp.IsValid || resp.Reason != ReasonRateLimited {
		t.Fatalf("expected rate_limited, got valid=%v reason=%q", resp.IsValid, resp.Reason)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
}

func TestValidateMalformedBody(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := postJSON(srv.Router(), "/api/v1/validate", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestValidateRejectsOversizedIdentity(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	body := `{"input":"hello","context":{"identity":"` + strings.Repeat("x", 200) + `"}}`
	rec := postJSON(srv.Router(), "/api/v1/validate", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSanitizeAuthorEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := postJSON(srv.Router(), "/api/v1/sanitize/author", `{"name":"<b>Alice</b> :)"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp authorPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Name != "Alice" {
		t.Fatalf("expected Alice, got %q", resp.Name)
	}
}

func TestSanitizeFilenameEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := postJSON(srv.Router(), "/api/v1/sanitize/filename", `{"filename":"../../etc/passwd"}`)

	var resp filenamePayload
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Filename != "passwd" {
		t.Fatalf("expected passwd, got %q", resp.Filename)
	}
}

func TestURLCheckEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := postJSON(srv.Router(), "/api/v1/url/check", `{"url":"https://example.com/page"}`)
	var resp urlCheckResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Allowed {
		t.Fatal("expected https URL to be allowed")
	}

	rec = postJSON(srv.Router(), "/api/v1/url/check", `{"url":"javascript:alert(1)"}`)
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Allowed {
		t.Fatal("expected javascript URL to be rejected")
	}
}

func TestEventsEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	postJSON(srv.Router(), "/api/v1/validate",
		`{"input":"<script>a</script>","context":{"identity":"u1"}}`)
	postJSON(srv.Router(), "/api/v1/validate",
		`{"input":"DROP TABLE users; --","context":{"identity":"u2"}}`)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/events", nil))
	var listing eventsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &listing); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if listing.Count != 2 {
		t.Fatalf("expected 2 events, got %d", listing.Count)
	}

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/events?identity=u2", nil))
	if err := json.Unmarshal(rec.Body.Bytes(), &listing); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if listing.Count != 1 || listing.Events[0].Identity != "u2" {
		t.Fatalf("expected one u2 event, got %+v", listing)
	}

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/events?category=xss", nil))
	if err := json.Unmarshal(rec.Body.Bytes(), &listing); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if listing.Count != 1 {
		t.Fatalf("expected one xss event, got %d", listing.Count)
	}

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/events/summary", nil))
	var summary eventlog.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.Total != 2 {
		t.Fatalf("expected summary total 2, got %d", summary.Total)
	}

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/events", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/events", nil))
	if err := json.Unmarshal(rec.Body.Bytes(), &listing); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if listing.Count != 0 {
		t.Fatalf("expected no events after clear, got %d", listing.Count)
	}
}

func TestEventsSummaryRejectsBadWindow(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/events/summary?window=bogus", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected nosniff, got %q", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("expected DENY, got %q", got)
	}
	if got := rec.Header().Get("Content-Security-Policy"); got == "" {
		t.Fatal("expected CSP header")
	}
}

func TestTransportThrottle(t *testing.T) {
	cfg := config.Default()
	cfg.Server.RequestsPerSecond = 1
	cfg.Server.Burst = 2
	srv, _ := newTestServer(t, cfg)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		codes = append(codes, rec.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Fatalf("expected first two requests to pass, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Fatalf("expected third request throttled, got %v", codes)
	}

	if removed := srv.SweepTransport(time.Now().Add(time.Hour)); removed != 1 {
		t.Fatalf("expected one throttle entry swept, got %d", removed)
	}
}

func TestOversizedBodyRejected(t *testing.T) {
	cfg := config.Default()
	cfg.Server.MaxBodyBytes = 64
	srv, _ := newTestServer(t, cfg)

	body := `{"input":"` + strings.Repeat("a", 200) + `"}`
	rec := postJSON(srv.Router(), "/api/v1/validate", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized body, got %d", rec.Code)
	}
}
