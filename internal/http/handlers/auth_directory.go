package handlers

import (
	"net/http"
	"strings"

	"github.com/dropDatabas3/teamgate/internal/app"
	"github.com/dropDatabas3/teamgate/internal/auth"
)

type directoryRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// NewDirectoryAuthHandler atiende POST /auth/directory. El bind contra el
// directorio es la única prueba de credencial; acá sólo parseamos y
// delegamos al pipeline común.
func NewDirectoryAuthHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req directoryRequest
		if !readJSON(w, r, &req) {
			return
		}
		req.Username = strings.TrimSpace(req.Username)
		if req.Username == "" || req.Password == "" {
			writeJSON(w, http.StatusBadRequest, AuthResponse{Success: false, Message: msgAuthFailed})
			return
		}

		login(c, w, r, auth.ProviderDirectory, auth.Credential{
			Username: req.Username,
			Secret:   req.Password,
		})
	}
}
