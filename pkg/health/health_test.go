package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeStatus(t *testing.T, rec *httptest.ResponseRecorder) statusResponse {
	t.Helper()
	var resp statusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestReadyEndpointRequiresManualGate(t *testing.T) {
	s := New()

	rec := httptest.NewRecorder()
	s.ReadyEndpoint(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	s.SetReady(true)
	rec = httptest.NewRecorder()
	s.ReadyEndpoint(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeStatus(t, rec).Status)
	assert.True(t, s.IsReady())
}

func TestCheckFailureThreshold(t *testing.T) {
	s := New()

	var fail atomic.Bool
	s.AddReadinessCheck("db", time.Second, func(context.Context) error {
		if fail.Load() {
			return errors.New("connection refused")
		}
		return nil
	})
	s.SetReady(true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx, 5*time.Millisecond)
	defer s.Stop()

	require.Eventually(t, s.IsReady, time.Second, 5*time.Millisecond)

	// After three consecutive failures it goes unhealthy.
	fail.Store(true)
	require.Eventually(t, func() bool { return !s.IsReady() }, time.Second, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	s.ReadyEndpoint(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, decodeStatus(t, rec).Checks["db"], "connection refused")

	// A single success recovers immediately.
	fail.Store(false)
	require.Eventually(t, s.IsReady, time.Second, 5*time.Millisecond)
}

func TestLiveEndpointIndependentOfReadiness(t *testing.T) {
	s := New()
	s.AddLivenessCheck("goroutines", time.Second, GoroutineCountCheck(100000))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx, 10*time.Millisecond)
	defer s.Stop()

	// Not ready, but alive.
	rec := httptest.NewRecorder()
	s.LiveEndpoint(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGoroutineCountCheck(t *testing.T) {
	require.NoError(t, GoroutineCountCheck(1000000)(context.Background()))
	require.Error(t, GoroutineCountCheck(0)(context.Background()))
}
