package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dropDatabas3/teamgate/internal/app"
	"github.com/dropDatabas3/teamgate/internal/auth"
	"github.com/dropDatabas3/teamgate/internal/config"
	"github.com/dropDatabas3/teamgate/internal/email"
	"github.com/dropDatabas3/teamgate/internal/metrics"
	"github.com/dropDatabas3/teamgate/internal/observability/logger"
	"github.com/dropDatabas3/teamgate/internal/session"
	"github.com/dropDatabas3/teamgate/internal/store/core"
	"github.com/dropDatabas3/teamgate/internal/util"
)

type emailRequest struct {
	Email string `json:"email"`
}

const msgEmailSent = "If that address belongs to an account, a sign-in link is on its way."

// NewEmailAuthHandler atiende POST /auth/email. La respuesta es la misma
// exista o no la cuenta; el link one-time viaja por correo.
func NewEmailAuthHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := logger.From(ctx).With(logger.Component("email-auth"))

		if c.Mailer == nil {
			writeJSON(w, http.StatusNotFound, AuthResponse{Success: false, Message: "provider not enabled"})
			return
		}

		var req emailRequest
		if !readJSON(w, r, &req) {
			return
		}
		addr := strings.ToLower(strings.TrimSpace(req.Email))
		if addr == "" || !strings.Contains(addr, "@") {
			writeJSON(w, http.StatusBadRequest, AuthResponse{Success: false, Message: msgAuthFailed})
			return
		}

		// Respuesta fija pase lo que pase de acá en adelante.
		defer writeJSON(w, http.StatusOK, AuthResponse{Success: true, Message: msgEmailSent})

		team, err := resolveTeamReadOnly(ctx, c)
		if err != nil {
			log.Warn("team lookup failed", logger.Err(err))
			return
		}
		acct, err := c.Store.FindAccountByEmail(ctx, team.ID, addr)
		if err != nil {
			if !errors.Is(err, core.ErrNotFound) {
				log.Warn("account lookup failed", logger.Err(err))
			} else {
				log.Info("signin link for unknown address",
					logger.Email(util.MaskEmail(addr)))
			}
			return
		}

		ttl := config.Duration(c.Cfg.Email.LinkTTL)
		token := c.Sessions.States().NewToken(session.KindEmailLink, acct.ID, ttl)
		link := c.TeamURL() + "/auth/email.callback?token=" + token

		subject, html, text := email.SigninLink(team.Name, link)
		if err := c.Mailer.Send(acct.Email, subject, html, text); err != nil {
			log.Error("signin mail send failed", logger.AccountID(acct.ID), logger.Err(err))
			return
		}
		log.Info("signin link sent",
			logger.AccountID(acct.ID), logger.Email(util.MaskEmail(acct.Email)))
	}
}

// NewEmailCallbackHandler atiende GET /auth/email.callback?token=. El token
// se consume al primer uso; repetirlo o dejarlo vencer manda de vuelta al
// sign-in con aviso.
func NewEmailCallbackHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := logger.From(ctx).With(logger.Component("email-auth"))

		token := r.URL.Query().Get("token")
		if token == "" {
			http.Redirect(w, r, c.TeamURL()+"?notice="+NoticeExpiredToken, http.StatusFound)
			return
		}
		accountID, ok := c.Sessions.States().Consume(session.KindEmailLink, token)
		if !ok {
			http.Redirect(w, r, c.TeamURL()+"?notice="+NoticeExpiredToken, http.StatusFound)
			return
		}

		acct, err := c.Store.GetAccountByID(ctx, accountID)
		if err != nil {
			log.Warn("account gone after link consume", logger.AccountID(accountID), logger.Err(err))
			http.Redirect(w, r, auth.GenericAuthErrorPath, http.StatusFound)
			return
		}
		team, err := c.Store.GetTeamByID(ctx, acct.TeamID)
		if err != nil {
			log.Error("team lookup failed", logger.TeamID(acct.TeamID), logger.Err(err))
			http.Redirect(w, r, auth.GenericAuthErrorPath, http.StatusFound)
			return
		}

		artifacts, err := c.Sessions.Issue(acct, team, "email")
		if err != nil {
			log.Error("session issue failed", logger.Err(err))
			http.Redirect(w, r, auth.GenericAuthErrorPath, http.StatusFound)
			return
		}
		if err := c.Store.TouchAccountActivity(ctx, acct.ID, clientIP(r), true); err != nil {
			log.Warn("touch activity failed", logger.AccountID(acct.ID), logger.Err(err))
		}
		http.SetCookie(w, artifacts.SessionCookie)
		http.SetCookie(w, artifacts.StateCookie)
		metrics.SessionsIssued.Inc()
		log.Info("signed in via email link", logger.AccountID(acct.ID), logger.TeamID(team.ID))

		http.Redirect(w, r, strings.TrimRight(team.URL, "/")+"/home", http.StatusFound)
	}
}

// resolveTeamReadOnly busca el team dueño sin crearlo. Antes del primer
// sign-in no hay team, y eso es respuesta negativa, no motivo de creación.
func resolveTeamReadOnly(ctx context.Context, c *app.Container) (*core.Team, error) {
	if c.Cfg.Team.ID != "" {
		return c.Store.GetTeamByID(ctx, c.Cfg.Team.ID)
	}
	return c.Store.GetTeamByName(ctx, c.Cfg.Team.Name)
}
