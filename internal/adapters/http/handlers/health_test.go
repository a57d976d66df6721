package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/stoic-reflections/internal/mocks"
	"github.com/jsamuelsen/stoic-reflections/internal/ports"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// serveHealth registers the handler's routes on a fresh engine and performs
// the request.
func serveHealth(handler *HealthHandler, method, path string) *httptest.ResponseRecorder {
	engine := gin.New()
	handler.RegisterHealthRoutesOnEngine(engine)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	engine.ServeHTTP(rec, req)

	return rec
}

func TestNewBuildInfo(t *testing.T) {
	info := NewBuildInfo("1.4.0", "f3a91c2", "2026-08-20T06:00:00Z")

	assert.Equal(t, "1.4.0", info.Version)
	assert.Equal(t, "f3a91c2", info.Commit)
	assert.Equal(t, "2026-08-20T06:00:00Z", info.BuildTime)
	assert.Equal(t, runtime.Version(), info.GoVersion)
}

// TestLiveness pins down that the liveness probe never consults the
// dependency checks: a wedged mailer must not get the pod restarted.
func TestLiveness(t *testing.T) {
	registry := mocks.NewMockHealthRegistry(t) // no expectations: CheckAll must not run
	handler := NewHealthHandler(registry, NewBuildInfo("1.4.0", "f3a91c2", ""))

	rec := serveHealth(handler, http.MethodGet, "/-/live")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestReadiness_AllChecksHealthy(t *testing.T) {
	registry := mocks.NewMockHealthRegistry(t)
	registry.EXPECT().CheckAll(mock.Anything).Return(&ports.HealthResult{
		Status: ports.HealthStatusHealthy,
		Checks: map[string]*ports.CheckResult{
			"blob-store": {Status: ports.HealthStatusHealthy, Duration: 12 * time.Millisecond},
			"mailer":     {Status: ports.HealthStatusHealthy, Duration: 40 * time.Millisecond},
		},
		Timestamp: time.Now(),
	})

	handler := NewHealthHandler(registry, BuildInfo{})

	rec := serveHealth(handler, http.MethodGet, "/-/ready")

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status string                        `json:"status"`
		Checks map[string]*ports.CheckResult `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, "healthy", body.Status)
	assert.Len(t, body.Checks, 2)
	assert.Equal(t, ports.HealthStatusHealthy, body.Checks["blob-store"].Status)
}

func TestReadiness_FailingCheckReturns503(t *testing.T) {
	registry := mocks.NewMockHealthRegistry(t)
	registry.EXPECT().CheckAll(mock.Anything).Return(&ports.HealthResult{
		Status: ports.HealthStatusUnhealthy,
		Checks: map[string]*ports.CheckResult{
			"blob-store": {Status: ports.HealthStatusHealthy, Duration: 9 * time.Millisecond},
			"mailer": {
				Status:   ports.HealthStatusUnhealthy,
				Message:  "sending quota check failed",
				Duration: 230 * time.Millisecond,
			},
		},
		Timestamp: time.Now(),
	})

	handler := NewHealthHandler(registry, BuildInfo{})

	rec := serveHealth(handler, http.MethodGet, "/-/ready")

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"unhealthy"`)
	assert.Contains(t, rec.Body.String(), "sending quota check failed")
}

func TestReadiness_NoRegisteredChecks(t *testing.T) {
	// A service booted with the in-memory store registers nothing; it is
	// ready as soon as it is live.
	handler := NewHealthHandler(ports.NewHealthRegistry(), BuildInfo{})

	rec := serveHealth(handler, http.MethodGet, "/-/ready")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"healthy"`)
}

// failingChecker drives the readiness endpoint through a real registry.
type failingChecker struct{}

func (failingChecker) Name() string { return "anthropic" }

func (failingChecker) Check(context.Context) error {
	return errors.New("provider unreachable")
}

func TestReadiness_RealRegistryWiring(t *testing.T) {
	registry := ports.NewHealthRegistry()
	require.NoError(t, registry.Register(failingChecker{}))

	handler := NewHealthHandler(registry, BuildInfo{})

	rec := serveHealth(handler, http.MethodGet, "/-/ready")

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "provider unreachable")
}

func TestBuildInfoEndpoint(t *testing.T) {
	handler := NewHealthHandler(
		ports.NewHealthRegistry(),
		NewBuildInfo("1.4.0", "f3a91c2", "2026-08-20T06:00:00Z"),
	)

	rec := serveHealth(handler, http.MethodGet, "/-/build")

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, "1.4.0", body["version"])
	assert.Equal(t, "f3a91c2", body["commit"])
	assert.Equal(t, "2026-08-20T06:00:00Z", body["buildTime"])
	assert.Equal(t, runtime.Version(), body["goVersion"])
}

func TestMetricsEndpoint(t *testing.T) {
	handler := NewHealthHandler(ports.NewHealthRegistry(), BuildInfo{})

	rec := serveHealth(handler, http.MethodGet, "/-/metrics")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "# HELP", "prometheus exposition format")
}

func TestRegisterHealthRoutes_CustomGroup(t *testing.T) {
	engine := gin.New()
	handler := NewHealthHandler(ports.NewHealthRegistry(), BuildInfo{})
	handler.RegisterHealthRoutes(engine.Group("/internal"))

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/internal/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
