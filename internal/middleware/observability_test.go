package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"pushrelay/internal/tracing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newObservedHandler(t *testing.T, handler http.HandlerFunc) (http.Handler, *bytes.Buffer) {
	t.Helper()

	logs := &bytes.Buffer{}
	logger := logrus.New()
	logger.SetOutput(logs)
	logger.SetFormatter(&logrus.JSONFormatter{})

	return Observability(logger)(handler), logs
}

func logLines(t *testing.T, logs *bytes.Buffer) []map[string]interface{} {
	t.Helper()

	var lines []map[string]interface{}
	for _, raw := range bytes.Split(bytes.TrimSpace(logs.Bytes()), []byte("\n")) {
		var line map[string]interface{}
		require.NoError(t, json.Unmarshal(raw, &line))
		lines = append(lines, line)
	}
	return lines
}

func TestObservabilityInjectsRequestContext(t *testing.T) {
	var gotRequestID string
	handler, _ := newObservedHandler(t, func(w http.ResponseWriter, r *http.Request) {
		gotRequestID = tracing.GetRequestID(r.Context())
		assert.False(t, tracing.GetStartTime(r.Context()).IsZero())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.NotEmpty(t, gotRequestID)
	assert.Contains(t, gotRequestID, "req_")
}

func TestObservabilityLogsStartAndCompletion(t *testing.T) {
	handler, logs := newObservedHandler(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/queue/process", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	lines := logLines(t, logs)
	require.Len(t, lines, 2)

	assert.Equal(t, "HTTP request started", lines[0]["msg"])
	assert.Equal(t, "POST", lines[0]["method"])
	assert.Equal(t, "/queue/process", lines[0]["url"])

	assert.Equal(t, "HTTP request completed", lines[1]["msg"])
	assert.Equal(t, float64(http.StatusOK), lines[1]["status_code"])
	assert.Equal(t, lines[0]["request_id"], lines[1]["request_id"])
}

func TestObservabilityLogLevelFollowsStatus(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantLevel string
	}{
		{"success", http.StatusOK, "info"},
		{"client error", http.StatusBadRequest, "warning"},
		{"server error", http.StatusInternalServerError, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, logs := newObservedHandler(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			lines := logLines(t, logs)
			require.Len(t, lines, 2)
			assert.Equal(t, tt.wantLevel, lines[1]["level"])
		})
	}
}

func TestResponseWrapperDefaultsToOK(t *testing.T) {
	handler, logs := newObservedHandler(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("implicit 200"))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	lines := logLines(t, logs)
	assert.Equal(t, float64(http.StatusOK), lines[1]["status_code"])
}
