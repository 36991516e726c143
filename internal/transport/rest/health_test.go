package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok(context.Context) error { return nil }

func serve(t *testing.T, h *HealthHandler, path string) (int, HealthResponse) {
	t.Helper()
	mux := http.NewServeMux()
	h.Register(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return rec.Code, resp
}

func TestLive(t *testing.T) {
	t.Parallel()
	h := NewHealthHandler("v1", time.Second, map[string]Pinger{
		"database": PingFunc(func(context.Context) error { return errors.New("down") }),
	})

	code, resp := serve(t, h, "/livez")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "v1", resp.Version)
	assert.Empty(t, resp.Components, "liveness runs no checks")
	assert.False(t, resp.Timestamp.IsZero())
}

func TestReady_AllUp(t *testing.T) {
	t.Parallel()
	h := NewHealthHandler("v1", time.Second, map[string]Pinger{
		"database": PingFunc(ok),
		"notify":   PingFunc(ok),
	})

	code, resp := serve(t, h, "/readyz")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Components, 2)
	assert.Equal(t, "ok", resp.Components["database"].Status)
	assert.NotEmpty(t, resp.Components["database"].Latency)
}

func TestReady_OneDown(t *testing.T) {
	t.Parallel()
	h := NewHealthHandler("v1", time.Second, map[string]Pinger{
		"database": PingFunc(ok),
		"notify":   PingFunc(func(context.Context) error { return errors.New("dispatcher closed") }),
	})

	code, resp := serve(t, h, "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "down", resp.Status)
	assert.Equal(t, "ok", resp.Components["database"].Status)
	assert.Equal(t, ComponentStatus{Status: "down", Error: "dispatcher closed"}, resp.Components["notify"])
}

func TestReady_Timeout(t *testing.T) {
	t.Parallel()
	h := NewHealthHandler("", 10*time.Millisecond, map[string]Pinger{
		"database": PingFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}),
	})

	code, resp := serve(t, h, "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, context.DeadlineExceeded.Error(), resp.Components["database"].Error)
}

func TestReady_MethodNotAllowed(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	NewHealthHandler("", 0, nil).Register(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/readyz", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
