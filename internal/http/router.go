// Package httpapi assembles the HTTP surface. It should delegate to domain
// services without embedding business logic so transport concerns remain
// isolated.
package httpapi

import (
	"net/http"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dataguard/internal/platform/middleware"
	"dataguard/pkg/platform/httputil"
)

// Registrar is anything that mounts routes on a chi router.
type Registrar interface {
	Register(r chi.Router)
}

// NewRouter wires all endpoints. API handlers get the full middleware
// chain; live gets only recovery and request IDs, because response
// wrapping breaks the websocket hijack and a request timeout would kill
// long-lived subscriptions.
func NewRouter(logger *slog.Logger, api []Registrar, live Registrar) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/quality", func(qr chi.Router) {
		qr.Group(func(g chi.Router) {
			g.Use(middleware.Logger(logger))
			g.Use(middleware.Timeout(30 * time.Second))
			g.Use(middleware.ContentTypeJSON)
			for _, h := range api {
				h.Register(g)
			}
		})
		if live != nil {
			live.Register(qr)
		}
	})
	return r
}
