package handlers

import (
	"net/http"

	"github.com/dropDatabas3/teamgate/internal/app"
	"github.com/dropDatabas3/teamgate/internal/observability/logger"
)

// NewHealthzHandler: liveness plano, sin tocar dependencias.
func NewHealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

// NewReadyzHandler: readiness real, con ping al storage.
func NewReadyzHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := c.Store.Ping(r.Context()); err != nil {
			logger.From(r.Context()).Warn("readiness ping failed", logger.Err(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("storage unavailable"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	}
}
