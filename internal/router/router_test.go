package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sigcom-backoffice-api/internal/handler"
	"github.com/noah-isme/sigcom-backoffice-api/internal/middleware"
	"github.com/noah-isme/sigcom-backoffice-api/internal/models"
	"github.com/noah-isme/sigcom-backoffice-api/internal/service"
	"github.com/noah-isme/sigcom-backoffice-api/pkg/config"
	appErrors "github.com/noah-isme/sigcom-backoffice-api/pkg/errors"
)

type roleTokens map[string]models.UserRole

func (r roleTokens) ValidateToken(token string) (*models.JWTClaims, error) {
	role, ok := r[token]
	if !ok {
		return nil, appErrors.ErrUnauthorized
	}
	return &models.JWTClaims{UserID: token, Role: role}, nil
}

type failingPinger struct{}

func (failingPinger) PingContext(ctx context.Context) error { return errors.New("connection refused") }

func newTestEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	policy, err := middleware.NewPolicy(middleware.DefaultPolicy)
	require.NoError(t, err)

	r := gin.New()
	Register(r, Handlers{
		Auth:      handler.NewAuthHandler(nil),
		Leave:     handler.NewLeaveHandler(nil, nil),
		GateDuty:  handler.NewGateDutyHandler(nil, nil),
		OutDuty:   handler.NewOutDutyHandler(nil, nil),
		Directory: handler.NewDirectoryHandler(nil, nil),
		Metrics:   handler.NewMetricsHandler(service.NewMetricsService(), failingPinger{}),
	}, Options{
		Prefix: "/api/v1",
		Tokens: roleTokens{"admin": models.RoleOfficeAdmin, "crq": models.RoleCRQ, "incharge": models.RoleUnitIncharge},
		Policy: policy,
	})
	return r
}

func do(r http.Handler, method, path, token string) int {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRouterGuardsRoutesBeforeHandlers(t *testing.T) {
	r := newTestEngine(t)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/health", ""))
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/metrics", ""))
	assert.Equal(t, http.StatusServiceUnavailable, do(r, http.MethodGet, "/ready", ""))
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/v1/leaves", ""))
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/v1/leaves", "forged"))

	assert.Equal(t, http.StatusForbidden, do(r, http.MethodPost, "/api/v1/gate-duty/setup", "crq"))
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodPost, "/api/v1/leaves", "incharge"))
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodPut, "/api/v1/leaves/l-1/approve-medical", "incharge"))
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodPut, "/api/v1/leaves/balance/emp-1", "crq"))
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodDelete, "/api/v1/holidays/h-1", "incharge"))
}

func TestRouterRejectsMalformedPathsAfterPolicy(t *testing.T) {
	r := newTestEngine(t)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/v1/gate-duty/roster/2024/march", "admin"))
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/v1/gate-duty/check-availability/emp-1/tomorrow", "crq"))
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/v1/out-duty/check-availability/emp-1/tomorrow", "incharge"))
}

func TestNewEngineAppliesCORSAndRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewEngine(zap.NewNop(), config.CORSConfig{AllowedOrigins: []string{"https://office.example"}})
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://office.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://office.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://elsewhere.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
