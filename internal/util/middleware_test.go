package util

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// captureLogs routes the default logger into a buffer for the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	var buf bytes.Buffer
	initLogger(&buf, "debug")
	return &buf
}

func decodeRecords(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	dec := json.NewDecoder(buf)
	for dec.More() {
		var rec map[string]any
		if err := dec.Decode(&rec); err != nil {
			t.Fatalf("decode log record: %v", err)
		}
		out = append(out, rec)
	}
	return out
}

// draftsHandler stands in for the authenticated POST /drafts route.
func draftsHandler(status int) http.Handler {
	return WithRequestID(WithRequestLog("drafter", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		AnnotateRequest(r.Context(), "member", "jamie")
		LoggerFromContext(r.Context()).Info("draft generated", "contact", "dana@ortiz.com")
		if status == http.StatusOK {
			AnnotateRequest(r.Context(), "draft_id", "d-1")
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"id":"d-1"}`))
	})))
}

func TestDraftRequestLogCarriesMemberAndDraft(t *testing.T) {
	buf := captureLogs(t)
	req := httptest.NewRequest(http.MethodPost, "/drafts", nil)
	req.Header.Set(RequestIDHeader, "req-7f3a")
	rec := httptest.NewRecorder()

	draftsHandler(http.StatusOK).ServeHTTP(rec, req)

	if got := rec.Header().Get(RequestIDHeader); got != "req-7f3a" {
		t.Fatalf("response request id = %q", got)
	}
	records := decodeRecords(t, buf)
	if len(records) != 2 {
		t.Fatalf("expected handler and access records, got %d", len(records))
	}
	inner, access := records[0], records[1]
	if inner["request_id"] != "req-7f3a" || inner["contact"] != "dana@ortiz.com" {
		t.Fatalf("handler record missing fields: %v", inner)
	}
	if access["msg"] != "http_request" || access["level"] != "INFO" {
		t.Fatalf("unexpected access record: %v", access)
	}
	for key, want := range map[string]any{
		"service":    "drafter",
		"path":       "/drafts",
		"status":     float64(http.StatusOK),
		"bytes":      float64(len(`{"id":"d-1"}`)),
		"request_id": "req-7f3a",
		"member":     "jamie",
		"draft_id":   "d-1",
	} {
		if access[key] != want {
			t.Fatalf("access %s = %v, want %v", key, access[key], want)
		}
	}
}

func TestDraftRequestLogLevelFollowsStatus(t *testing.T) {
	for status, level := range map[int]string{
		http.StatusBadRequest: "WARN",
		http.StatusBadGateway: "ERROR",
	} {
		buf := captureLogs(t)
		draftsHandler(status).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/drafts", nil))
		records := decodeRecords(t, buf)
		access := records[len(records)-1]
		if access["level"] != level {
			t.Fatalf("status %d logged at %v, want %s", status, access["level"], level)
		}
		if _, ok := access["draft_id"]; ok {
			t.Fatalf("failed draft should not carry a draft id: %v", access)
		}
	}
}

func TestRequestIDReplacesUnsafeIncoming(t *testing.T) {
	for _, incoming := range []string{"", "bad id\n{\"forged\":1}", strings.Repeat("a", maxRequestIDLen+1)} {
		var seen string
		h := WithRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = RequestIDFromContext(r.Context())
		}))
		req := httptest.NewRequest(http.MethodGet, "/history", nil)
		req.Header.Set(RequestIDHeader, incoming)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if seen == "" || seen == incoming {
			t.Fatalf("incoming %q was not replaced: %q", incoming, seen)
		}
		if rec.Header().Get(RequestIDHeader) != seen {
			t.Fatalf("response id %q differs from context id %q", rec.Header().Get(RequestIDHeader), seen)
		}
	}
}

func TestAnnotateOutsideRequestIsNoop(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	AnnotateRequest(req.Context(), "member", "jamie")
	if RequestIDFromContext(req.Context()) != "" {
		t.Fatalf("expected no request id outside a scope")
	}
}

func TestSecurityHeadersOnContactLookup(t *testing.T) {
	h := WithSecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"Dana"}`))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/contacts/dana@ortiz.com", nil))
	for _, kv := range apiHeaders {
		if got := rec.Header().Get(kv[0]); got != kv[1] {
			t.Fatalf("%s = %q, want %q", kv[0], got, kv[1])
		}
	}
	if got := rec.Header().Get("Strict-Transport-Security"); got != "" {
		t.Fatalf("did not expect HSTS over plain http, got %q", got)
	}

	req := httptest.NewRequest(http.MethodGet, "/contacts/dana@ortiz.com", nil)
	req.Header.Set("X-Forwarded-Proto", "HTTPS")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Strict-Transport-Security") == "" {
		t.Fatalf("expected HSTS behind a TLS proxy")
	}
}
