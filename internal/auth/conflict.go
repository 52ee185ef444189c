package auth

import (
	"strings"

	"github.com/dropDatabas3/teamgate/internal/store/core"
)

// RedirectDecision es el destino elegido para un flujo que no puede emitir
// sesión acá: el sign-in del provider dueño, o la página genérica de error.
type RedirectDecision struct {
	URL string
}

// GenericAuthErrorPath es el destino cuando no hay team resoluble.
const GenericAuthErrorPath = "/?notice=auth-error"

// ResolveConflict decide el redirect para un ProviderMismatch. Función
// pura: no toca estado, solo elige URL.
func ResolveConflict(team *core.Team, boundService string) RedirectDecision {
	if team == nil || team.URL == "" {
		return RedirectDecision{URL: GenericAuthErrorPath}
	}
	if boundService == "" {
		return RedirectDecision{URL: strings.TrimRight(team.URL, "/") + "?notice=auth-error"}
	}
	// Para external:<name> la entrada de sign-in es /auth/<name>.
	entry := boundService
	if p := Provider(boundService); p.IsExternal() {
		entry = p.ExternalName()
	}
	return RedirectDecision{URL: strings.TrimRight(team.URL, "/") + "/auth/" + entry}
}
