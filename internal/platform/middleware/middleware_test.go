package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attest/internal/platform/metrics"
)

// procMetrics is shared across tests: promauto registers into the default
// registry and a second New would panic.
var procMetrics = metrics.New()

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequestIDGenerated(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/certificates/1A2B3C4D", nil))

	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))
}

func TestRequestIDKeepsClientValue(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/certificates", nil)
	req.Header.Set("X-Request-ID", "retry-7")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "retry-7", seen)
}

func TestRecoveryWritesErrorEnvelope(t *testing.T) {
	h := Recovery(discardLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/certificates/1A2B3C4D", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal", body["error"])
}

func TestContentTypeJSON(t *testing.T) {
	h := ContentTypeJSON(okHandler())

	cases := []struct {
		name        string
		method      string
		contentType string
		wantStatus  int
	}{
		{"post json", http.MethodPost, "application/json", http.StatusOK},
		{"post xml", http.MethodPost, "text/xml", http.StatusBadRequest},
		{"post without body type", http.MethodPost, "", http.StatusOK},
		{"get ignores content type", http.MethodGet, "text/xml", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/certificates", nil)
			if tc.contentType != "" {
				req.Header.Set("Content-Type", tc.contentType)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.wantStatus, rec.Code)
		})
	}
}

func TestMetricsCountsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics(procMetrics))
	r.Get("/certificates/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	before := testutil.ToFloat64(procMetrics.RequestsTotal.WithLabelValues("/certificates/{id}", "200"))

	for _, id := range []string{"1A2B3C4D", "CAFEF00D"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/certificates/"+id, nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	// Both requests land on the route pattern label, not the raw paths.
	after := testutil.ToFloat64(procMetrics.RequestsTotal.WithLabelValues("/certificates/{id}", "200"))
	assert.Equal(t, 2.0, after-before)
}

func TestMetricsSkipsProbeTraffic(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics(procMetrics))
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	before := testutil.ToFloat64(procMetrics.RequestsTotal.WithLabelValues("/health/ready", "200"))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	after := testutil.ToFloat64(procMetrics.RequestsTotal.WithLabelValues("/health/ready", "200"))

	assert.Equal(t, before, after)
}

func TestLoggerRecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	h := Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/certificates/FFFFFFFF", nil))

	line := buf.String()
	assert.Contains(t, line, "status=404")
	assert.Contains(t, line, "path=/certificates/FFFFFFFF")
}

func TestLoggerSkipsProbeTraffic(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	h := Logger(logger)(okHandler())
	for _, path := range []string{"/metrics", "/health", "/health/live", "/health/ready"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Empty(t, strings.TrimSpace(buf.String()))
}
