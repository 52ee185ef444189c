package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dropDatabas3/teamgate/internal/observability/logger"
	"github.com/dropDatabas3/teamgate/internal/store/core"
)

// DefaultCollectionName si la config no especifica otro.
const DefaultCollectionName = "Welcome"

// Provisioner hace el bootstrap de un team nuevo: la colección inicial y el
// subdomain derivado del dominio configurado. Idempotente por construcción:
// re-ejecutarlo sobre un team ya provisionado es no-op.
type Provisioner struct {
	store          core.Repository
	collectionName string
	log            *zap.Logger
}

func NewProvisioner(store core.Repository, collectionName string) *Provisioner {
	if collectionName == "" {
		collectionName = DefaultCollectionName
	}
	return &Provisioner{store: store, collectionName: collectionName, log: logger.Named("provisioner")}
}

// Provision se invoca solo para la primera cuenta del team, después de que
// esa cuenta es durable.
func (p *Provisioner) Provision(ctx context.Context, team *core.Team, firstAccountID string) error {
	col := &core.Collection{
		ID:          uuid.NewString(),
		TeamID:      team.ID,
		Name:        p.collectionName,
		CreatedByID: firstAccountID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := p.store.CreateCollection(ctx, col); err != nil {
		if !errors.Is(err, core.ErrConflict) {
			return &ProvisionError{Step: "collection", Err: err}
		}
		// Ya existe: provisioning previo (total o parcial) llegó hasta acá.
	}

	if sub := DeriveSubdomain(team.Domain); sub != "" && team.Subdomain == "" {
		if err := p.store.SetTeamSubdomain(ctx, team.ID, sub); err != nil {
			return &ProvisionError{Step: "subdomain", Err: err}
		}
		team.Subdomain = sub
	}

	p.log.Info("team provisioned",
		logger.TeamID(team.ID), logger.String("collection", p.collectionName),
		logger.String("subdomain", team.Subdomain))
	return nil
}

// DeriveSubdomain toma el primer label del dominio del team, saneado a
// [a-z0-9-]. "" si no hay nada usable.
func DeriveSubdomain(domain string) string {
	label := strings.ToLower(strings.TrimSpace(domain))
	if i := strings.IndexByte(label, '.'); i >= 0 {
		label = label[:i]
	}
	var b strings.Builder
	for _, r := range label {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-")
}
