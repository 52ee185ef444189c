// Package auth implementa la verificación polimórfica de credenciales y la
// reconciliación de identidades externas sobre cuentas internas.
package auth

// Provider identifica la fuente de credenciales de una identidad.
type Provider string

const (
	ProviderPassword   Provider = "password"
	ProviderDirectory  Provider = "directory"
	ProviderInvitation Provider = "invitation"
)

const externalPrefix = "external:"

// ExternalProvider construye el provider para un identity provider externo
// ya confirmado por el colaborador de redirect (ej: external:slack).
func ExternalProvider(name string) Provider {
	return Provider(externalPrefix + name)
}

func (p Provider) String() string { return string(p) }

// IsExternal reporta si el provider es un identity provider externo.
func (p Provider) IsExternal() bool {
	return len(p) > len(externalPrefix) && string(p[:len(externalPrefix)]) == externalPrefix
}

// ExternalName retorna el nombre del provider externo, o "" si no lo es.
func (p Provider) ExternalName() string {
	if !p.IsExternal() {
		return ""
	}
	return string(p[len(externalPrefix):])
}

// ExternalIdentity es el resultado de una verificación exitosa. Vive solo
// durante el request; nunca se persiste tal cual.
type ExternalIdentity struct {
	Provider Provider

	// ExternalID es la clave única scoped al provider: id derivado del DN
	// para directory, username para password/invitation, subject id para
	// externos.
	ExternalID string

	// Username es la clave de colisión cross-provider. Vacío para
	// providers externos: email nunca mergea solo.
	Username string

	Email       string
	DisplayName string

	// Raw transporta atributos provider-specific que solo se usan al crear
	// la cuenta (ej: el password hash de un alta por invitación).
	Raw map[string]string
}

// Claves reconocidas dentro de Raw.
const (
	RawPasswordHash = "password_hash"
	RawDirectoryDN  = "dn"
)
