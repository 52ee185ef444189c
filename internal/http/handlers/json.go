package handlers

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
)

// AuthResponse es la forma de respuesta de todos los endpoints de login:
// o un redirect, o {success:false, message}. Nunca un error crudo.
type AuthResponse struct {
	Redirect string `json:"redirect,omitempty"`
	Message  string `json:"message,omitempty"`
	Success  bool   `json:"success"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, AuthResponse{Success: false, Message: "invalid request body"})
		return false
	}
	return true
}

// clientIP: primer hop de X-Forwarded-For si existe, si no el peer.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
