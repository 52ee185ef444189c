package handlers

import (
	"errors"
	"net/http"

	"github.com/dropDatabas3/teamgate/internal/app"
	"github.com/dropDatabas3/teamgate/internal/audit"
	"github.com/dropDatabas3/teamgate/internal/auth"
	"github.com/dropDatabas3/teamgate/internal/directory"
	"github.com/dropDatabas3/teamgate/internal/metrics"
	"github.com/dropDatabas3/teamgate/internal/observability/logger"
	"github.com/dropDatabas3/teamgate/internal/store/core"
	"go.uber.org/zap"
)

// Clases de fallo user-visible (notice= en redirects).
const (
	NoticeAuthValidation      = "auth_validation"
	NoticeDirectoryValidation = "directory_validation"
	NoticeInvalidInvitation   = "invalid_invitation"
	NoticeAuthError           = "auth-error"
	NoticeExpiredToken        = "expired_token"
)

const (
	msgAuthFailed        = "Authentication failed, please try again."
	msgInvalidInvitation = "Invalid invitation code, please try again."
)

// login corre el pipeline verificación → reconciliación → emisión para un
// provider y escribe la respuesta. Toda falla se traduce antes de cruzar el
// boundary (ver taxonomy de errores).
func login(c *app.Container, w http.ResponseWriter, r *http.Request, provider auth.Provider, cred auth.Credential) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Provider(provider.String()))

	v, ok := c.Verifier(provider)
	if !ok {
		writeJSON(w, http.StatusNotFound, AuthResponse{Success: false, Message: "provider not enabled"})
		return
	}

	identity, err := v.Verify(ctx, cred)
	if err != nil {
		audit.Log(ctx, audit.EventSigninFailed,
			logger.Provider(provider.String()), logger.ClientIP(clientIP(r)))
		writeVerifyFailure(c, w, log, provider, err)
		return
	}

	res, err := c.Reconciler.Reconcile(ctx, *identity, c.TeamSelector(), clientIP(r))
	if err != nil {
		var mismatch *auth.ProviderMismatchError
		if errors.As(err, &mismatch) {
			audit.Log(ctx, audit.EventSigninMismatch,
				logger.Provider(provider.String()), logger.String("bound_service", mismatch.Service))
		} else {
			audit.Log(ctx, audit.EventSigninFailed,
				logger.Provider(provider.String()), logger.ClientIP(clientIP(r)))
		}
		writeReconcileFailure(c, w, log, provider, err)
		return
	}

	artifacts, err := c.Sessions.Issue(res.Account, res.Team, provider.String())
	if err != nil {
		log.Error("session issue failed", logger.Err(err))
		metrics.AuthAttempts.WithLabelValues(provider.String(), metrics.OutcomeError).Inc()
		writeJSON(w, http.StatusInternalServerError, AuthResponse{Success: false, Message: msgAuthFailed})
		return
	}
	http.SetCookie(w, artifacts.SessionCookie)
	http.SetCookie(w, artifacts.StateCookie)

	metrics.AuthAttempts.WithLabelValues(provider.String(), metrics.OutcomeSuccess).Inc()
	metrics.SessionsIssued.Inc()
	log.Info("signed in",
		logger.AccountID(res.Account.ID), logger.TeamID(res.Team.ID),
		logger.Bool("first_signin", res.FirstSignin),
		logger.Bool("first_account_for_team", res.FirstAccountForTeam))
	if res.FirstSignin {
		audit.Log(ctx, audit.EventAccountCreated,
			logger.AccountID(res.Account.ID), logger.TeamID(res.Team.ID),
			logger.Provider(provider.String()), logger.Bool("is_admin", res.Account.IsAdmin))
	}
	audit.Log(ctx, audit.EventSigninSuccess,
		logger.AccountID(res.Account.ID), logger.Provider(provider.String()),
		logger.ClientIP(clientIP(r)))

	writeJSON(w, http.StatusOK, AuthResponse{
		Redirect: c.TeamURL() + "/home",
		Success:  true,
	})
}

// writeVerifyFailure traduce fallas de verificación. El mensaje al usuario
// es genérico salvo para el código de invitación, que tiene aviso propio.
func writeVerifyFailure(c *app.Container, w http.ResponseWriter, log *zap.Logger, provider auth.Provider, err error) {
	var dirErr *directory.AuthError
	switch {
	case errors.Is(err, auth.ErrInvalidInvitation):
		metrics.AuthAttempts.WithLabelValues(provider.String(), metrics.OutcomeFailed).Inc()
		log.Info("invalid invitation code")
		writeJSON(w, http.StatusOK, AuthResponse{
			Redirect: c.TeamURL() + "?notice=" + NoticeInvalidInvitation,
			Message:  msgInvalidInvitation,
			Success:  false,
		})
	case errors.As(err, &dirErr):
		// Detalle al log, mensaje genérico al usuario. Un directorio caído
		// falla cerrado: nunca cae a otro provider.
		metrics.AuthAttempts.WithLabelValues(provider.String(), metrics.OutcomeFailed).Inc()
		log.Warn("directory exchange failed",
			logger.String("phase", dirErr.Phase), logger.Err(dirErr.Err))
		writeJSON(w, http.StatusOK, AuthResponse{
			Redirect: c.TeamURL() + "?notice=" + NoticeDirectoryValidation,
			Message:  msgAuthFailed,
			Success:  false,
		})
	case errors.Is(err, auth.ErrAuthenticationFailed):
		metrics.AuthAttempts.WithLabelValues(provider.String(), metrics.OutcomeFailed).Inc()
		log.Info("authentication failed")
		writeJSON(w, http.StatusOK, AuthResponse{
			Redirect: c.TeamURL() + "?notice=" + NoticeAuthValidation,
			Message:  msgAuthFailed,
			Success:  false,
		})
	default:
		// Error de store/infra inesperado: fatal para el request.
		metrics.AuthAttempts.WithLabelValues(provider.String(), metrics.OutcomeError).Inc()
		log.Error("verification error", logger.Err(err))
		writeJSON(w, http.StatusInternalServerError, AuthResponse{Success: false, Message: msgAuthFailed})
	}
}

// writeReconcileFailure traduce fallas de reconciliación.
func writeReconcileFailure(c *app.Container, w http.ResponseWriter, log *zap.Logger, provider auth.Provider, err error) {
	var mismatch *auth.ProviderMismatchError
	switch {
	case errors.As(err, &mismatch):
		// La identidad ya pertenece a otro provider: redirect al sign-in
		// original, nunca merge ni duplicado.
		metrics.AuthAttempts.WithLabelValues(provider.String(), metrics.OutcomeMismatch).Inc()
		log.Info("provider mismatch", logger.String("bound_service", mismatch.Service))
		decision := auth.ResolveConflict(&core.Team{URL: c.TeamURL()}, mismatch.Service)
		writeJSON(w, http.StatusOK, AuthResponse{Redirect: decision.URL, Success: false})
	case errors.Is(err, auth.ErrTeamNotFound):
		metrics.AuthAttempts.WithLabelValues(provider.String(), metrics.OutcomeError).Inc()
		log.Warn("team not found")
		writeJSON(w, http.StatusOK, AuthResponse{Redirect: auth.GenericAuthErrorPath, Success: false})
	default:
		metrics.AuthAttempts.WithLabelValues(provider.String(), metrics.OutcomeError).Inc()
		log.Error("reconcile error", logger.Err(err))
		writeJSON(w, http.StatusInternalServerError, AuthResponse{Success: false, Message: msgAuthFailed})
	}
}
