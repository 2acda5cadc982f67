// Package httpapi is the Registry Service's HTTP transport: a chi router
// exposing the routes spec.md §6 lists, wrapping every response as
// {"success": T} | {"error": string}.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rcpklmc/sn0int/internal/registry/service"
	"github.com/rcpklmc/sn0int/pkg/logger"
)

// NewRouter builds the registry's chi.Router against svc.
func NewRouter(svc *service.Service, log *logger.Logger) http.Handler {
	h := &handlers{svc: svc, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api/v0", func(r chi.Router) {
		r.Get("/search", h.search)
		r.Get("/info/{author}/{name}", h.info)
		r.Get("/dl/{author}/{name}/{version}", h.download)
		r.Post("/publish/{name}", h.publish)
		r.Get("/whoami", h.whoami)
		r.Get("/login/{session}", h.login)
		r.Get("/authorize", h.authorize)
	})

	return r
}
