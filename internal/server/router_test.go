package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"tiffin/internal/identity"
	identityrepo "tiffin/internal/identity/repository"
	"tiffin/internal/infrastructure/metrics"
	"tiffin/internal/order/controller"
	"tiffin/internal/order/service"
)

func newTestRouter(m *metrics.Metrics) http.Handler {
	ctrl := controller.NewOrderController(nil, nil, nil, service.NewScreenRegistry(m), nil, zap.NewNop())
	provider := identity.NewProvider(identityrepo.NewMemoryProfileRepository(), zap.NewNop())
	return NewRouter(ctrl, identity.Middleware(provider, zap.NewNop()), m, zap.NewNop())
}

func TestRouter_Health(t *testing.T) {
	router := newTestRouter(metrics.New())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRouter_OrderRoutesRequireActor(t *testing.T) {
	router := newTestRouter(metrics.New())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/views/active", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_CountsRequestsByRoute(t *testing.T) {
	m := metrics.New()
	router := newTestRouter(m)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/orders/order-1", nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `tiffin_http_requests_total{route="/health",status="200"} 1`)
	assert.Contains(t, body, `tiffin_http_requests_total{route="/orders/{orderId}",status="401"} 1`)
}
