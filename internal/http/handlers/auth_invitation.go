package handlers

import (
	"net/http"
	"strings"

	"github.com/dropDatabas3/teamgate/internal/app"
	"github.com/dropDatabas3/teamgate/internal/auth"
)

type invitationRequest struct {
	Username       string `json:"username"`
	Password       string `json:"password"`
	InvitationCode string `json:"invitationCode"`
}

// NewInvitationAuthHandler atiende POST /auth/invitation. Primer login con el
// código correcto registra la cuenta; los siguientes son password-check
// normal contra el hash guardado.
func NewInvitationAuthHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req invitationRequest
		if !readJSON(w, r, &req) {
			return
		}
		req.Username = strings.TrimSpace(req.Username)
		if req.Username == "" || req.Password == "" {
			writeJSON(w, http.StatusBadRequest, AuthResponse{Success: false, Message: msgAuthFailed})
			return
		}

		login(c, w, r, auth.ProviderInvitation, auth.Credential{
			Username:       req.Username,
			Secret:         req.Password,
			InvitationCode: req.InvitationCode,
		})
	}
}
