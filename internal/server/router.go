package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"tiffin/internal/infrastructure/metrics"
	"tiffin/internal/order/controller"
)

func NewRouter(
	orders *controller.OrderController,
	authenticate func(http.Handler) http.Handler,
	m *metrics.Metrics,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestMetrics(m))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Group(func(r chi.Router) {
		r.Use(authenticate)

		r.Post("/orders", orders.PlaceOrder)
		r.Get("/orders/{orderId}", orders.GetOrder)
		r.Post("/orders/{orderId}/transitions", orders.Transition)

		r.Get("/views/{view}", orders.ListView)
		r.Get("/views/{view}/stream", orders.StreamView)

		r.Post("/screens/{screenId}/refresh", orders.RefreshScreen)
		r.Post("/screens/{screenId}/orders/{orderId}/transitions", orders.ScreenTransition)

		r.Get("/earnings", orders.GetEarnings)
	})

	logger.Debug("routes registered")
	return r
}

func requestMetrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		})
	}
}
