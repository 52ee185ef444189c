// Package app arma el container de dependencias del servicio. Todo se
// construye una vez en main y se inyecta; no hay singletons de dominio.
package app

import (
	"strings"

	"github.com/dropDatabas3/teamgate/internal/auth"
	"github.com/dropDatabas3/teamgate/internal/config"
	"github.com/dropDatabas3/teamgate/internal/email"
	"github.com/dropDatabas3/teamgate/internal/rate"
	"github.com/dropDatabas3/teamgate/internal/session"
	"github.com/dropDatabas3/teamgate/internal/store/core"
)

type Container struct {
	Cfg        *config.Config
	Store      core.Repository
	Reconciler *auth.Reconciler
	Sessions   *session.Issuer
	Mailer     email.Sender
	Limiter    rate.Limiter // opcional

	// Verifiers por provider, armados según la config.
	verifiers map[auth.Provider]auth.Verifier
}

func NewContainer(cfg *config.Config, store core.Repository, rec *auth.Reconciler, sess *session.Issuer) *Container {
	return &Container{
		Cfg:        cfg,
		Store:      store,
		Reconciler: rec,
		Sessions:   sess,
		verifiers:  map[auth.Provider]auth.Verifier{},
	}
}

func (c *Container) RegisterVerifier(v auth.Verifier) {
	c.verifiers[v.Provider()] = v
}

func (c *Container) Verifier(p auth.Provider) (auth.Verifier, bool) {
	v, ok := c.verifiers[p]
	return v, ok
}

// TeamSelector arma el selector del team dueño desde la config.
func (c *Container) TeamSelector() auth.TeamSelector {
	return auth.TeamSelector{
		ID:   c.Cfg.Team.ID,
		Name: c.Cfg.Team.Name,
		Defaults: core.Team{
			Name:      c.Cfg.Team.Name,
			Domain:    c.Cfg.Team.Domain,
			URL:       c.Cfg.Team.URL,
			AvatarURL: c.Cfg.Team.AvatarURL,
		},
	}
}

// TeamURL es la base para los redirects user-visible (notices, /home).
func (c *Container) TeamURL() string {
	return strings.TrimRight(c.Cfg.Team.URL, "/")
}
