package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dropDatabas3/teamgate/internal/app"
	"github.com/dropDatabas3/teamgate/internal/audit"
	"github.com/dropDatabas3/teamgate/internal/auth"
	"github.com/dropDatabas3/teamgate/internal/metrics"
	"github.com/dropDatabas3/teamgate/internal/observability/logger"
	"github.com/dropDatabas3/teamgate/internal/session"
)

// NewAuthRedirectHandler atiende GET /auth/redirect: valida el token
// presentado, lo re-emite con actividad fresca y manda al home del team.
// Un token re-presentado sin actividad nueva no se extiende.
func NewAuthRedirectHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := logger.From(ctx).With(logger.Component("auth-redirect"))

		token := bearerToken(r)
		if token == "" {
			if ck, err := r.Cookie(c.Sessions.CookieName()); err == nil {
				token = ck.Value
			}
		}
		if token == "" {
			writeJSON(w, http.StatusUnauthorized, AuthResponse{Success: false, Message: "Authentication required"})
			return
		}

		claims, err := c.Sessions.Parse(token)
		if err != nil {
			log.Info("invalid session token", logger.Err(err))
			writeJSON(w, http.StatusUnauthorized, AuthResponse{Success: false, Message: "Authentication required"})
			return
		}

		acct, err := c.Sessions.Extend(ctx, c.Store, claims.AccountID, clientIP(r))
		if err != nil {
			if errors.Is(err, session.ErrCannotExtend) {
				log.Info("token replay rejected", logger.AccountID(claims.AccountID))
				audit.Log(ctx, audit.EventExtensionRefused,
					logger.AccountID(claims.AccountID), logger.ClientIP(clientIP(r)))
				writeJSON(w, http.StatusUnauthorized, AuthResponse{Success: false, Message: "Cannot extend token"})
				return
			}
			log.Error("token extend failed", logger.AccountID(claims.AccountID), logger.Err(err))
			writeJSON(w, http.StatusUnauthorized, AuthResponse{Success: false, Message: "Authentication required"})
			return
		}

		team, err := c.Store.GetTeamByID(ctx, acct.TeamID)
		if err != nil {
			log.Error("team lookup failed", logger.TeamID(acct.TeamID), logger.Err(err))
			http.Redirect(w, r, auth.GenericAuthErrorPath, http.StatusFound)
			return
		}

		artifacts, err := c.Sessions.Issue(acct, team, claims.Provider)
		if err != nil {
			log.Error("session reissue failed", logger.Err(err))
			http.Redirect(w, r, auth.GenericAuthErrorPath, http.StatusFound)
			return
		}
		http.SetCookie(w, artifacts.SessionCookie)
		http.SetCookie(w, artifacts.StateCookie)
		metrics.SessionsIssued.Inc()
		audit.Log(ctx, audit.EventSessionExtended,
			logger.AccountID(acct.ID), logger.ClientIP(clientIP(r)))

		http.Redirect(w, r, strings.TrimRight(team.URL, "/")+"/home", http.StatusFound)
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
