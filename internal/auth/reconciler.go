package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dropDatabas3/teamgate/internal/observability/logger"
	"github.com/dropDatabas3/teamgate/internal/store/core"
)

// TeamSelector resuelve el team dueño de la reconciliación: por ID fijo
// (single-tenant) o por nombre con find-or-create.
type TeamSelector struct {
	ID       string
	Name     string
	Defaults core.Team
}

// Result es el resultado de una reconciliación exitosa.
type Result struct {
	Account *core.Account
	Team    *core.Team
	// FirstAccountForTeam: esta reconciliación creó la primera cuenta del
	// team (la cuenta bootstrap, admin).
	FirstAccountForTeam bool
	// FirstSignin: la cuenta fue creada en esta reconciliación.
	FirstSignin bool
}

// Reconciler mapea una ExternalIdentity verificada sobre exactamente una
// cuenta interna. Los unique constraints del store son la única guarda de
// concurrencia: ErrConflict se trata como "alguien más acaba de crearla".
type Reconciler struct {
	store       core.Repository
	provisioner *Provisioner
	log         *zap.Logger
}

func NewReconciler(store core.Repository, p *Provisioner) *Reconciler {
	return &Reconciler{store: store, provisioner: p, log: logger.Named("reconciler")}
}

// Reconcile ejecuta find-or-create de team y cuenta, en ese orden estricto,
// y el provisioning del team cuando la cuenta creada es la primera.
// ip alimenta los campos de actividad (best-effort).
func (r *Reconciler) Reconcile(ctx context.Context, identity ExternalIdentity, sel TeamSelector, ip string) (*Result, error) {
	team, teamCreated, err := r.resolveTeam(ctx, sel)
	if err != nil {
		return nil, err
	}

	service := identity.Provider.String()

	// Returning user: binding exacto, sin tocar campos de identidad.
	acct, err := r.store.FindAccountByService(ctx, team.ID, service, identity.ExternalID)
	if err == nil {
		r.touch(ctx, acct, ip)
		return &Result{Account: acct, Team: team}, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return nil, err
	}

	// Colisión cross-provider sobre el username. Email a propósito no es
	// clave de merge: mergear por email habilita account takeover.
	if identity.Username != "" {
		if existing, ferr := r.store.FindAccountByUsername(ctx, team.ID, identity.Username); ferr == nil {
			if existing.Service == service && existing.ServiceID == identity.ExternalID {
				r.touch(ctx, existing, ip)
				return &Result{Account: existing, Team: team}, nil
			}
			return nil, &ProviderMismatchError{Service: existing.Service}
		} else if !errors.Is(ferr, core.ErrNotFound) {
			return nil, ferr
		}
	}

	now := time.Now().UTC()
	acct = &core.Account{
		ID:             uuid.NewString(),
		TeamID:         team.ID,
		Username:       usernameFor(identity),
		Email:          identity.Email,
		Service:        service,
		ServiceID:      identity.ExternalID,
		IsAdmin:        teamCreated,
		CreatedAt:      now,
		UpdatedAt:      now,
		LastActiveAt:   now,
		LastSignedInAt: now,
		LastActiveIP:   ip,
		LastSignedInIP: ip,
	}
	if phc, ok := identity.Raw[RawPasswordHash]; ok {
		acct.PasswordHash = &phc
	}

	if err := r.store.CreateAccount(ctx, acct); err != nil {
		if !errors.Is(err, core.ErrConflict) {
			return nil, err
		}
		// Carrera de creación duplicada: re-lookup en vez de fallar.
		return r.afterCreateRace(ctx, identity, team, ip)
	}

	if teamCreated {
		// Ordering: la cuenta ya es durable; si el provisioning falla no se
		// revierte: re-provisionar es idempotente, perder la cuenta no.
		if perr := r.provisioner.Provision(ctx, team, acct.ID); perr != nil {
			r.log.Error("team provisioning failed, continuing signed in",
				logger.TeamID(team.ID), logger.AccountID(acct.ID), logger.Err(perr))
		}
	}

	r.log.Info("account created",
		logger.AccountID(acct.ID), logger.TeamID(team.ID),
		logger.Provider(service), logger.Bool("is_admin", acct.IsAdmin))

	return &Result{
		Account:             acct,
		Team:                team,
		FirstAccountForTeam: teamCreated,
		FirstSignin:         true,
	}, nil
}

// afterCreateRace resuelve el ErrConflict de CreateAccount: o bien otro
// request idéntico ganó la carrera (re-lookup), o el username pertenece a
// otro provider (ProviderMismatch igual que en el camino normal).
func (r *Reconciler) afterCreateRace(ctx context.Context, identity ExternalIdentity, team *core.Team, ip string) (*Result, error) {
	service := identity.Provider.String()

	acct, err := r.store.FindAccountByService(ctx, team.ID, service, identity.ExternalID)
	if err == nil {
		r.touch(ctx, acct, ip)
		return &Result{Account: acct, Team: team}, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return nil, err
	}

	if identity.Username != "" {
		if existing, ferr := r.store.FindAccountByUsername(ctx, team.ID, identity.Username); ferr == nil {
			return nil, &ProviderMismatchError{Service: existing.Service}
		}
	}
	return nil, fmt.Errorf("account create conflict without resolvable owner: %w", core.ErrConflict)
}

func (r *Reconciler) resolveTeam(ctx context.Context, sel TeamSelector) (*core.Team, bool, error) {
	if sel.ID != "" {
		team, err := r.store.GetTeamByID(ctx, sel.ID)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return nil, false, ErrTeamNotFound
			}
			return nil, false, err
		}
		return team, false, nil
	}
	if sel.Name == "" {
		return nil, false, ErrTeamNotFound
	}
	team, created, err := r.store.FindOrCreateTeam(ctx, sel.Name, sel.Defaults)
	if err != nil {
		return nil, false, fmt.Errorf("resolve team %q: %w", sel.Name, err)
	}
	return team, created, nil
}

// touch actualiza actividad y sign-in. Best-effort: un error acá no voltea
// una reconciliación ya exitosa.
func (r *Reconciler) touch(ctx context.Context, acct *core.Account, ip string) {
	if err := r.store.TouchAccountActivity(ctx, acct.ID, ip, true); err != nil {
		r.log.Warn("activity touch failed", logger.AccountID(acct.ID), logger.Err(err))
		return
	}
	now := time.Now().UTC()
	acct.LastActiveAt = now
	acct.LastSignedInAt = now
	acct.LastActiveIP = ip
	acct.LastSignedInIP = ip
}

func usernameFor(identity ExternalIdentity) string {
	if identity.Username != "" {
		return identity.Username
	}
	// Providers externos no traen username; derivar uno estable para la
	// fila (no participa de la clave de colisión de esos providers).
	return identity.Provider.ExternalName() + ":" + identity.ExternalID
}
