// Package mem implementa el Repository en memoria, con la misma semántica
// de unique constraints que el driver postgres. Pensado para dev sin DB y
// para tests de la capa HTTP; no sobrevive reinicios.
package mem

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/teamgate/internal/store/core"
)

type Store struct {
	mu          sync.RWMutex
	teams       map[string]*core.Team
	accounts    map[string]*core.Account
	collections map[string]*core.Collection
}

func New() *Store {
	return &Store{
		teams:       map[string]*core.Team{},
		accounts:    map[string]*core.Account{},
		collections: map[string]*core.Collection{},
	}
}

var _ core.Repository = (*Store)(nil)

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) FindOrCreateTeam(_ context.Context, name string, defaults core.Team) (*core.Team, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t := s.teamByName(name); t != nil {
		cp := *t
		return &cp, false, nil
	}
	t := defaults
	t.ID = uuid.NewString()
	t.Name = name
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	s.teams[t.ID] = &t
	cp := t
	return &cp, true, nil
}

func (s *Store) GetTeamByID(_ context.Context, id string) (*core.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.teams[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *Store) GetTeamByName(_ context.Context, name string) (*core.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t := s.teamByName(name)
	if t == nil {
		return nil, core.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *Store) SetTeamSubdomain(_ context.Context, teamID, subdomain string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[teamID]
	if !ok {
		return core.ErrNotFound
	}
	t.Subdomain = subdomain
	t.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) FindAccountByService(_ context.Context, teamID, service, serviceID string) (*core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.accounts {
		if a.TeamID == teamID && a.Service == service && a.ServiceID == serviceID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *Store) FindAccountByUsername(_ context.Context, teamID, username string) (*core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.accounts {
		if a.TeamID == teamID && strings.EqualFold(a.Username, username) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *Store) FindAccountByEmail(_ context.Context, teamID, email string) (*core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.accounts {
		if a.TeamID == teamID && strings.EqualFold(a.Email, email) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *Store) GetAccountByID(_ context.Context, id string) (*core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *Store) CreateAccount(_ context.Context, a *core.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ex := range s.accounts {
		if ex.TeamID != a.TeamID {
			continue
		}
		if ex.Service == a.Service && ex.ServiceID == a.ServiceID {
			return core.ErrConflict
		}
		if strings.EqualFold(ex.Username, a.Username) {
			return core.ErrConflict
		}
	}
	cp := *a
	s.accounts[a.ID] = &cp
	return nil
}

func (s *Store) TouchAccountActivity(_ context.Context, accountID, ip string, signedIn bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return core.ErrNotFound
	}
	now := time.Now().UTC()
	a.LastActiveAt = now
	a.LastActiveIP = ip
	if signedIn {
		a.LastSignedInAt = now
		a.LastSignedInIP = ip
	}
	return nil
}

func (s *Store) CreateCollection(_ context.Context, c *core.Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ex := range s.collections {
		if ex.TeamID == c.TeamID && ex.Name == c.Name {
			return core.ErrConflict
		}
	}
	cp := *c
	s.collections[c.ID] = &cp
	return nil
}

// teamByName requiere lock tomado por el caller.
func (s *Store) teamByName(name string) *core.Team {
	for _, t := range s.teams {
		if t.Name == name {
			return t
		}
	}
	return nil
}
