package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotebook/internal/mocks"
	"github.com/jsamuelsen/quotebook/internal/ports"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func healthEngine(registry ports.HealthRegistry, info BuildInfo) *gin.Engine {
	engine := gin.New()
	NewHealthHandler(registry, info).RegisterHealthRoutesOnEngine(engine)

	return engine
}

func get(engine *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

	return w
}

func TestNewBuildInfo(t *testing.T) {
	bi := NewBuildInfo("1.4.0", "9f2c1ab", "2024-05-01T08:30:00Z")

	assert.Equal(t, BuildInfo{
		Version:   "1.4.0",
		Commit:    "9f2c1ab",
		BuildTime: "2024-05-01T08:30:00Z",
		GoVersion: runtime.Version(),
	}, bi)
}

func TestHealthHandler_Liveness(t *testing.T) {
	registry := mocks.NewMockHealthRegistry(t)

	w := get(healthEngine(registry, BuildInfo{}), "/-/live")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestHealthHandler_Readiness(t *testing.T) {
	tests := []struct {
		name       string
		result     *ports.HealthResult
		wantStatus int
	}{
		{
			name: "store and mirror healthy",
			result: &ports.HealthResult{
				Status: ports.HealthStatusHealthy,
				Checks: map[string]*ports.CheckResult{
					"sqlite":       {Status: ports.HealthStatusHealthy},
					"quote-mirror": {Status: ports.HealthStatusHealthy},
				},
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "mirror down",
			result: &ports.HealthResult{
				Status: ports.HealthStatusUnhealthy,
				Checks: map[string]*ports.CheckResult{
					"sqlite":       {Status: ports.HealthStatusHealthy},
					"quote-mirror": {Status: ports.HealthStatusUnhealthy, Message: "circuit breaker open"},
				},
			},
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "nothing registered",
			result:     &ports.HealthResult{Status: ports.HealthStatusHealthy, Checks: map[string]*ports.CheckResult{}},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := mocks.NewMockHealthRegistry(t)
			registry.EXPECT().CheckAll(mock.Anything).Return(tt.result)

			w := get(healthEngine(registry, BuildInfo{}), "/-/ready")

			assert.Equal(t, tt.wantStatus, w.Code)

			var body readinessResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, string(tt.result.Status), body.Status)
			assert.Len(t, body.Checks, len(tt.result.Checks))
		})
	}
}

func TestHealthHandler_ReadinessRunsRegisteredCheckers(t *testing.T) {
	mirror := mocks.NewMockHealthChecker(t)
	mirror.EXPECT().Name().Return("quote-mirror")
	mirror.EXPECT().Check(mock.Anything).Return(errors.New("dial tcp: connection refused"))

	store := mocks.NewMockHealthChecker(t)
	store.EXPECT().Name().Return("sqlite")
	store.EXPECT().Check(mock.Anything).Return(nil)

	registry := ports.NewHealthRegistry()
	require.NoError(t, registry.Register(mirror))
	require.NoError(t, registry.Register(store))

	w := get(healthEngine(registry, BuildInfo{}), "/-/ready")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body ports.HealthResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, ports.HealthStatusUnhealthy, body.Status)
	require.Contains(t, body.Checks, "quote-mirror")
	assert.Equal(t, "dial tcp: connection refused", body.Checks["quote-mirror"].Message)
	assert.Equal(t, ports.HealthStatusHealthy, body.Checks["sqlite"].Status)
}

func TestHealthHandler_ReadinessWithoutRegistry(t *testing.T) {
	w := get(healthEngine(nil, BuildInfo{}), "/-/ready")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}

func TestHealthHandler_Build(t *testing.T) {
	info := NewBuildInfo("1.4.0", "9f2c1ab", "2024-05-01T08:30:00Z")

	w := get(healthEngine(nil, info), "/-/build")

	assert.Equal(t, http.StatusOK, w.Code)

	var got BuildInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, info, got)
}

func TestHealthHandler_Metrics(t *testing.T) {
	w := get(healthEngine(nil, BuildInfo{}), "/-/metrics")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
