package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handidevproject/pos-dashboard/internal/supabase"
)

func logRequest(t *testing.T, next http.Handler) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	Logging(logger)(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/admin/user", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestLogging_UserSetDownstreamIsLogged(t *testing.T) {
	entry := logRequest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner := r.WithContext(WithUser(r.Context(), &supabase.User{ID: "u1"}))
		assert.Equal(t, "u1", UserFromContext(inner.Context()).ID)
		w.WriteHeader(http.StatusTeapot)
	}))

	assert.Equal(t, "request", entry["msg"])
	assert.Equal(t, "u1", entry["user_id"])
	assert.Equal(t, float64(http.StatusTeapot), entry["status"])
}

func TestLogging_AnonymousRequest(t *testing.T) {
	entry := logRequest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	assert.NotContains(t, entry, "user_id")
	assert.Equal(t, "/admin/user", entry["path"])
}
