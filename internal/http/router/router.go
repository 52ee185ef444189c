// Package router arma el árbol de rutas HTTP del servicio.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dropDatabas3/teamgate/internal/app"
	"github.com/dropDatabas3/teamgate/internal/http/handlers"
	mw "github.com/dropDatabas3/teamgate/internal/http/middlewares"
)

// New construye el router con todos los endpoints montados.
func New(c *app.Container) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.WithLogging())
	r.Use(middleware.Recoverer)

	// Probes y métricas quedan fuera del rate limit.
	r.Get("/healthz", handlers.NewHealthzHandler())
	r.Get("/readyz", handlers.NewReadyzHandler(c))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/auth", func(r chi.Router) {
		// Los POST de credenciales son el blanco de fuerza bruta.
		r.Group(func(r chi.Router) {
			r.Use(mw.WithRateLimit(c.Limiter))
			r.Post("/directory", handlers.NewDirectoryAuthHandler(c))
			r.Post("/invitation", handlers.NewInvitationAuthHandler(c))
			r.Post("/email", handlers.NewEmailAuthHandler(c))
			r.Post("/external/{provider}", handlers.NewExternalAuthHandler(c))
		})
		r.Get("/email.callback", handlers.NewEmailCallbackHandler(c))
		r.Get("/redirect", handlers.NewAuthRedirectHandler(c))
		r.Get("/signout", handlers.NewSignoutHandler(c))
	})

	return r
}
