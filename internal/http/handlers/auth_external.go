package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/teamgate/internal/app"
	"github.com/dropDatabas3/teamgate/internal/auth"
)

type externalRequest struct {
	ExternalID  string `json:"externalId"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

// NewExternalAuthHandler atiende POST /auth/external/{provider}. El llamador
// ya completó el intercambio con el IdP; este endpoint sólo acepta
// confirmaciones de providers configurados explícitamente.
func NewExternalAuthHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := strings.ToLower(chi.URLParam(r, "provider"))
		provider := auth.ExternalProvider(name)
		if _, ok := c.Verifier(provider); !ok {
			writeJSON(w, http.StatusNotFound, AuthResponse{Success: false, Message: "provider not enabled"})
			return
		}

		var req externalRequest
		if !readJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.ExternalID) == "" {
			writeJSON(w, http.StatusBadRequest, AuthResponse{Success: false, Message: msgAuthFailed})
			return
		}

		login(c, w, r, provider, auth.Credential{
			ExternalID:  strings.TrimSpace(req.ExternalID),
			Username:    strings.TrimSpace(req.Username),
			Email:       strings.ToLower(strings.TrimSpace(req.Email)),
			DisplayName: strings.TrimSpace(req.DisplayName),
		})
	}
}
