package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func probe(t *testing.T, endpoint http.HandlerFunc) (int, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	endpoint(w, httptest.NewRequest(http.MethodGet, "/", nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestService_HealthyChecks(t *testing.T) {
	svc := New()
	svc.AddLivenessCheck("always-ok", time.Second, func(context.Context) error { return nil })
	svc.AddReadinessCheck("dep", time.Second, func(context.Context) error { return nil })

	svc.Start(context.Background(), 10*time.Millisecond)
	defer svc.Stop()
	svc.SetReady(true)

	assert.Eventually(t, func() bool {
		code, _ := probe(t, svc.ReadyEndpoint)
		return code == http.StatusOK
	}, time.Second, 10*time.Millisecond)

	code, body := probe(t, svc.LiveEndpoint)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestService_FailingCheck(t *testing.T) {
	svc := New()
	svc.AddReadinessCheck("db", time.Second, func(context.Context) error {
		return errors.New("connection refused")
	})

	svc.Start(context.Background(), 10*time.Millisecond)
	defer svc.Stop()
	svc.SetReady(true)

	assert.Eventually(t, func() bool {
		code, body := probe(t, svc.ReadyEndpoint)
		if code != http.StatusServiceUnavailable {
			return false
		}
		checks, ok := body["checks"].(map[string]any)
		return ok && checks["db"] == "connection refused"
	}, time.Second, 10*time.Millisecond)

	// A failing readiness check never affects liveness.
	code, _ := probe(t, svc.LiveEndpoint)
	assert.Equal(t, http.StatusOK, code)
}

func TestService_ReadinessGate(t *testing.T) {
	svc := New()
	svc.Start(context.Background(), time.Minute)
	defer svc.Stop()

	code, body := probe(t, svc.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code, "not ready until SetReady(true)")
	assert.Equal(t, "unavailable", body["status"])

	svc.SetReady(true)
	code, _ = probe(t, svc.ReadyEndpoint)
	assert.Equal(t, http.StatusOK, code)

	// Draining flips it back.
	svc.SetReady(false)
	code, _ = probe(t, svc.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestGoroutineCountCheck(t *testing.T) {
	require.NoError(t, GoroutineCountCheck(1_000_000)(context.Background()))
	require.Error(t, GoroutineCountCheck(0)(context.Background()))
}
