package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/teamgate/internal/store/core"
)

// memStore: Repository en memoria con la misma semántica de unique
// constraints que el driver real. Suficiente para ejercitar los caminos de
// carrera sin una DB.
type memStore struct {
	mu          sync.Mutex
	teams       map[string]*core.Team
	accounts    map[string]*core.Account
	collections map[string]*core.Collection

	// Hooks de inyección de fallas.
	failNextCreateAccount bool
	collectionErr         error
	touchErr              error
	// raceWinner simula una carrera perdida: el insert del caller entra
	// después de que esta fila ganó, y devuelve ErrConflict.
	raceWinner *core.Account
}

func newMemStore() *memStore {
	return &memStore{
		teams:       map[string]*core.Team{},
		accounts:    map[string]*core.Account{},
		collections: map[string]*core.Collection{},
	}
}

func (m *memStore) Ping(context.Context) error { return nil }

func (m *memStore) FindOrCreateTeam(_ context.Context, name string, d core.Team) (*core.Team, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.teams {
		if t.Name == name {
			cp := *t
			return &cp, false, nil
		}
	}
	t := d
	t.ID = uuid.NewString()
	t.Name = name
	t.CreatedAt = time.Now().UTC()
	t.UpdatedAt = t.CreatedAt
	m.teams[t.ID] = &t
	cp := t
	return &cp, true, nil
}

func (m *memStore) GetTeamByID(_ context.Context, id string) (*core.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.teams[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memStore) GetTeamByName(_ context.Context, name string) (*core.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.teams {
		if t.Name == name {
			cp := *t
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (m *memStore) SetTeamSubdomain(_ context.Context, teamID, subdomain string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.teams[teamID]
	if !ok {
		return core.ErrNotFound
	}
	t.Subdomain = subdomain
	return nil
}

func (m *memStore) FindAccountByService(_ context.Context, teamID, service, serviceID string) (*core.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.TeamID == teamID && a.Service == service && a.ServiceID == serviceID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (m *memStore) FindAccountByUsername(_ context.Context, teamID, username string) (*core.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.TeamID == teamID && strings.EqualFold(a.Username, username) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (m *memStore) FindAccountByEmail(_ context.Context, teamID, email string) (*core.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.TeamID == teamID && strings.EqualFold(a.Email, email) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (m *memStore) GetAccountByID(_ context.Context, id string) (*core.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) CreateAccount(_ context.Context, a *core.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNextCreateAccount {
		m.failNextCreateAccount = false
		return core.ErrConflict
	}
	if m.raceWinner != nil {
		w := *m.raceWinner
		m.accounts[w.ID] = &w
		m.raceWinner = nil
		return core.ErrConflict
	}
	for _, ex := range m.accounts {
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
	m.accounts[a.ID] = &cp
	return nil
}

func (m *memStore) TouchAccountActivity(_ context.Context, accountID, ip string, signedIn bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.touchErr != nil {
		return m.touchErr
	}
	a, ok := m.accounts[accountID]
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

func (m *memStore) CreateCollection(_ context.Context, c *core.Collection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.collectionErr != nil {
		return m.collectionErr
	}
	for _, ex := range m.collections {
		if ex.TeamID == c.TeamID && ex.Name == c.Name {
			return core.ErrConflict
		}
	}
	cp := *c
	m.collections[c.ID] = &cp
	return nil
}

func (m *memStore) accountCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.accounts)
}
