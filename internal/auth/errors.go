package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthenticationFailed es la falla genérica de credencial. No
	// distingue "usuario inexistente" de "secret incorrecto" para no
	// permitir enumeración de usuarios.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrInvalidInvitation: el código de invitación no es válido. Se chequea
	// antes que la credencial y tiene mensaje propio.
	ErrInvalidInvitation = errors.New("invalid invitation code")

	// ErrTeamNotFound es fatal para el flujo: redirect a la página genérica
	// de auth-error.
	ErrTeamNotFound = errors.New("team not found")
)

// ProviderMismatchError: la identidad colisiona con una cuenta ya bindeada
// a otro provider. Nombra el provider dueño para que el caller redirija al
// sign-in original en vez de mergear o duplicar.
type ProviderMismatchError struct {
	Service string
}

func (e *ProviderMismatchError) Error() string {
	return fmt.Sprintf("identity already bound to provider %q", e.Service)
}

// ProvisionError: falló el bootstrap del team. No desarma la cuenta ya
// creada ni la sesión; se loguea y el usuario queda en estado degradado.
type ProvisionError struct {
	Step string
	Err  error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("team provisioning (%s): %v", e.Step, e.Err)
}

func (e *ProvisionError) Unwrap() error { return e.Err }
