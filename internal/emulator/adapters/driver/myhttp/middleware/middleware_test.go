package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ride-sim/internal/mylogger"
)

func TestRecoverPanic(t *testing.T) {
	var buf bytes.Buffer
	log := mylogger.NewWithWriter(&buf, "DEBUG")

	h := RecoverPanic(log)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/vehicles", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(buf.String(), "http_panic") {
		t.Errorf("panic not logged: %s", buf.String())
	}
}

func TestLogRequestRecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	log := mylogger.NewWithWriter(&buf, "DEBUG")

	h := LogRequest(log)(SecureHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ghosts", nil))

	if rec.Header().Get("X-Frame-Options") != "deny" {
		t.Error("secure headers missing")
	}
	if !strings.Contains(buf.String(), `"status":418`) {
		t.Errorf("status not logged: %s", buf.String())
	}
}
