package http

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

	"github.com/lealta/gateway/internal/audit"
	"github.com/lealta/gateway/internal/business"
	"github.com/lealta/gateway/internal/cache"
	"github.com/lealta/gateway/internal/observability/metrics"
	"github.com/lealta/gateway/internal/ratelimit"
	"github.com/lealta/gateway/internal/session"
)

func newTestRouter(t *testing.T, checks map[string]HealthCheck) http.Handler {
	t.Helper()

	resolver := business.NewResolver(
		new(mockBusinessRepo),
		cache.New[*business.Business](time.Minute, 100, time.Minute),
		cache.New[*business.Business](time.Minute, 100, time.Minute),
	)
	validator := session.NewValidator(new(mockUserRepo), new(mockClientRepo))

	gatewayMetrics, err := metrics.NewGateway(metrics.New(metrics.Config{}, "test"))
	require.NoError(t, err)

	d := NewDispatcher(
		resolver,
		validator,
		ratelimit.New(nil, ratelimit.DefaultConfig()),
		audit.NopLogger{},
		gatewayMetrics,
		&upstreamRecorder{},
		session.CookieName,
	)
	return NewRouter(d, checks, 10*time.Second)
}

func TestHealthEndpointHealthy(t *testing.T) {
	router := newTestRouter(t, map[string]HealthCheck{
		"database": func(ctx context.Context) error { return nil },
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "ok", body["database"])
}

func TestHealthEndpointDegraded(t *testing.T) {
	router := newTestRouter(t, map[string]HealthCheck{
		"database": func(ctx context.Context) error { return nil },
		"redis":    func(ctx context.Context) error { return errors.New("connection refused") },
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "unavailable", body["redis"])
}
