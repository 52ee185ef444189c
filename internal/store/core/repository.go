package core

import "context"

// Repository es el colaborador de storage transaccional del engine.
// Los unique constraints del backend son el único mecanismo de
// concurrencia: toda violación se superficie como ErrConflict.
type Repository interface {
	Ping(ctx context.Context) error

	// Teams
	// FindOrCreateTeam resuelve el team por nombre, creándolo con defaults
	// si no existe. El bool es true solo si esta llamada lo creó.
	FindOrCreateTeam(ctx context.Context, name string, defaults Team) (*Team, bool, error)
	GetTeamByID(ctx context.Context, id string) (*Team, error)
	// GetTeamByName es lookup puro, nunca crea.
	GetTeamByName(ctx context.Context, name string) (*Team, error)
	SetTeamSubdomain(ctx context.Context, teamID, subdomain string) error

	// Accounts
	FindAccountByService(ctx context.Context, teamID, service, serviceID string) (*Account, error)
	FindAccountByUsername(ctx context.Context, teamID, username string) (*Account, error)
	FindAccountByEmail(ctx context.Context, teamID, email string) (*Account, error)
	GetAccountByID(ctx context.Context, id string) (*Account, error)
	// CreateAccount inserta la cuenta; ErrConflict si ya existe el binding
	// (team_id, service, service_id) o el username dentro del team.
	CreateAccount(ctx context.Context, a *Account) error
	// TouchAccountActivity actualiza last_active_at/_ip y, con signedIn,
	// también last_signed_in_at/_ip. Best-effort para el caller.
	TouchAccountActivity(ctx context.Context, accountID, ip string, signedIn bool) error

	// Provisioning
	// CreateCollection inserta la colección inicial; ErrConflict significa
	// que el team ya fue provisionado (idempotencia).
	CreateCollection(ctx context.Context, c *Collection) error
}
