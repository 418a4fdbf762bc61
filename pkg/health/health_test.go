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

func probeStatus(t *testing.T, endpoint http.HandlerFunc) (int, statusResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	endpoint(w, httptest.NewRequest(http.MethodGet, "/", nil))

	var resp statusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return w.Code, resp
}

func TestReadyEndpoint_NotReadyByDefault(t *testing.T) {
	h := New()

	code, resp := probeStatus(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Contains(t, resp.Checks, "_readiness")
}

func TestReadyEndpoint_Ready(t *testing.T) {
	h := New()
	h.SetReady(true)

	code, resp := probeStatus(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", resp.Status)
	assert.Empty(t, resp.Checks)
}

func TestLiveEndpoint_HealthyWithoutChecks(t *testing.T) {
	h := New()

	code, resp := probeStatus(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", resp.Status)
}

func TestCheck_FailureThreshold(t *testing.T) {
	c := newCheck("flappy", time.Second, func(context.Context) error {
		return errors.New("down")
	})

	// One failure is not enough to flip the probe.
	c.run(context.Background())
	_, failed := c.failure()
	assert.False(t, failed)

	// Consecutive failures up to the threshold flip it.
	for range failureThreshold - 1 {
		c.run(context.Background())
	}
	msg, failed := c.failure()
	assert.True(t, failed)
	assert.Equal(t, "down", msg)
}

func TestCheck_RecoversAfterSuccess(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	c := newCheck("dep", time.Second, func(context.Context) error {
		if fail.Load() {
			return errors.New("down")
		}
		return nil
	})

	for range failureThreshold {
		c.run(context.Background())
	}
	_, failed := c.failure()
	require.True(t, failed)

	fail.Store(false)
	c.run(context.Background())
	_, failed = c.failure()
	assert.False(t, failed)
}

func TestIsReady_FailingReadinessCheck(t *testing.T) {
	h := New()
	h.SetReady(true)
	h.AddReadinessCheck("dep", time.Second, func(context.Context) error {
		return errors.New("unreachable")
	})

	// Probe starts healthy; drive it past the failure threshold.
	h.mu.RLock()
	c := h.readiness[0]
	h.mu.RUnlock()
	for range failureThreshold {
		c.run(context.Background())
	}

	assert.False(t, h.IsReady())

	code, resp := probeStatus(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unreachable", resp.Checks["dep"])
}

func TestStartAndStop(t *testing.T) {
	var calls atomic.Int32
	h := New()
	h.AddLivenessCheck("counter", time.Second, func(context.Context) error {
		calls.Add(1)
		return nil
	})

	h.Start(context.Background(), 10*time.Millisecond)
	defer h.Stop()

	require.Eventually(t, func() bool {
		return calls.Load() >= 2
	}, time.Second, 5*time.Millisecond, "check should run on start and on ticks")

	h.Stop()
	after := calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, calls.Load(), after+1, "checks should stop after Stop")
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(1_000_000)(context.Background()))
	assert.Error(t, GoroutineCountCheck(0)(context.Background()))
}
