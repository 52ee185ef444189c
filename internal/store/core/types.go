package core

import "time"

// Team es la organización dueña de las cuentas. Se crea una sola vez por
// nombre (o se fija por ID en despliegues single-tenant).
type Team struct {
	ID        string
	Name      string
	Domain    string
	Subdomain string
	URL       string
	AvatarURL string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Account es la cuenta interna. El binding de identidad es el triple
// (TeamID, Service, ServiceID): único en el store, inmutable tras la
// creación.
type Account struct {
	ID       string
	TeamID   string
	Username string
	Email    string

	// PasswordHash solo está presente para los providers password/invitation.
	PasswordHash *string

	// Service es el provider que posee el binding de esta cuenta
	// (password | directory | invitation | external:<name>). Vacío = ninguno.
	Service   string
	ServiceID string

	// IsAdmin solo es true para la primera cuenta creada del team.
	IsAdmin bool

	CreatedAt      time.Time
	UpdatedAt      time.Time
	LastActiveAt   time.Time
	LastSignedInAt time.Time
	LastActiveIP   string
	LastSignedInIP string
}

// Collection es el contenido inicial que el provisioner crea para un team
// nuevo. Única por (TeamID, Name) para que re-provisionar sea no-op.
type Collection struct {
	ID          string
	TeamID      string
	Name        string
	CreatedByID string
	CreatedAt   time.Time
}
