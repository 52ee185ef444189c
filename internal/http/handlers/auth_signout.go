package handlers

import (
	"net/http"

	"github.com/dropDatabas3/teamgate/internal/app"
	"github.com/dropDatabas3/teamgate/internal/audit"
	"github.com/dropDatabas3/teamgate/internal/observability/logger"
)

// NewSignoutHandler atiende GET /auth/signout: sobreescribe las cookies de
// sesión y de state con cookies de borrado y manda a la raíz. No invalida
// el token del lado servidor; expira solo.
func NewSignoutHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		for _, ck := range c.Sessions.SignoutCookies(c.TeamURL()) {
			http.SetCookie(w, ck)
		}
		audit.Log(ctx, audit.EventSignedOut, logger.ClientIP(clientIP(r)))

		http.Redirect(w, r, "/", http.StatusFound)
	}
}
