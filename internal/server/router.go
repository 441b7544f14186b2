package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"bazaar/internal/auth"
	"bazaar/internal/order/controller"
	"bazaar/internal/product"
)

type RequestObserver interface {
	ObserveRequest(route string, status int, elapsed time.Duration)
	Handler() http.Handler
}

func NewRouter(
	productCtrl *product.Controller,
	orderCtrl *controller.CheckoutController,
	verifier *auth.Verifier,
	metrics RequestObserver,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(observe(metrics))

	r.Get("/health", health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Post("/products/search", productCtrl.HandleSearchProducts)

	r.Route("/orders", func(r chi.Router) {
		r.Use(auth.Middleware(verifier, logger))
		r.Post("/", orderCtrl.PlaceOrder)
		r.Post("/preview", orderCtrl.Preview)
		r.Get("/my-orders", orderCtrl.MyOrders)
	})

	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// observe records status and latency per route pattern, so ids in paths do
// not blow up label cardinality.
func observe(metrics RequestObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			metrics.ObserveRequest(route, status, time.Since(start))
		})
	}
}
