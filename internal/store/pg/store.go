// Package pg implementa core.Repository sobre PostgreSQL (pgx/pgxpool).
package pg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/teamgate/internal/observability/logger"
	"github.com/dropDatabas3/teamgate/internal/store/core"
)

type Store struct{ pool *pgxpool.Pool }

type Config struct {
	MaxOpenConns    int
	MinIdleConns    int
	ConnMaxLifetime string
}

func New(ctx context.Context, dsn string, cfg Config) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		pcfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MinIdleConns > 0 {
		pcfg.MinConns = int32(cfg.MinIdleConns)
	}
	if cfg.ConnMaxLifetime != "" {
		if d, err := time.ParseDuration(cfg.ConnMaxLifetime); err == nil {
			pcfg.MaxConnLifetime = d
			pcfg.MaxConnIdleTime = d
		}
	}
	if pcfg.MaxConns == 0 {
		pcfg.MaxConns = 8
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}

	// Non-blocking startup: la app puede arrancar con la DB caída.
	if err := pool.Ping(ctx); err != nil {
		logger.Named("pg").Warn("startup ping failed", logger.Err(err))
	} else {
		logger.Named("pg").Info("pool ready", logger.Int("max_conns", int(pcfg.MaxConns)))
	}

	return &Store{pool: pool}, nil
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// Close cierra el pool subyacente (idempotente).
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// isUnique reporta si el error es una violación de unique constraint.
func isUnique(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique")
}

// ====================== TEAMS ======================

const teamCols = `id, name, domain, subdomain, url, avatar_url, created_at, updated_at`

func scanTeam(row pgx.Row) (*core.Team, error) {
	var t core.Team
	err := row.Scan(&t.ID, &t.Name, &t.Domain, &t.Subdomain, &t.URL, &t.AvatarURL, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (s *Store) FindOrCreateTeam(ctx context.Context, name string, d core.Team) (*core.Team, bool, error) {
	if t, err := scanTeam(s.pool.QueryRow(ctx,
		`SELECT `+teamCols+` FROM team WHERE name = $1`, name)); err == nil {
		return t, false, nil
	} else if !errors.Is(err, core.ErrNotFound) {
		return nil, false, err
	}

	t, err := scanTeam(s.pool.QueryRow(ctx, `
		INSERT INTO team (id, name, domain, subdomain, url, avatar_url)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
		RETURNING `+teamCols, name, d.Domain, d.Subdomain, d.URL, d.AvatarURL))
	if err == nil {
		return t, true, nil
	}
	if !isUnique(err) {
		return nil, false, err
	}
	// Carrera: otro request lo creó entre el SELECT y el INSERT.
	t, err = scanTeam(s.pool.QueryRow(ctx,
		`SELECT `+teamCols+` FROM team WHERE name = $1`, name))
	if err != nil {
		return nil, false, err
	}
	return t, false, nil
}

func (s *Store) GetTeamByID(ctx context.Context, id string) (*core.Team, error) {
	return scanTeam(s.pool.QueryRow(ctx, `SELECT `+teamCols+` FROM team WHERE id = $1`, id))
}

func (s *Store) GetTeamByName(ctx context.Context, name string) (*core.Team, error) {
	return scanTeam(s.pool.QueryRow(ctx, `SELECT `+teamCols+` FROM team WHERE name = $1`, name))
}

func (s *Store) SetTeamSubdomain(ctx context.Context, teamID, subdomain string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE team SET subdomain = $2, updated_at = now() WHERE id = $1`, teamID, subdomain)
	return err
}

// ====================== ACCOUNTS ======================

const accountCols = `id, team_id, username, email, password_hash, service, service_id, is_admin,
	created_at, updated_at, last_active_at, last_signed_in_at, last_active_ip, last_signed_in_ip`

func scanAccount(row pgx.Row) (*core.Account, error) {
	var a core.Account
	err := row.Scan(&a.ID, &a.TeamID, &a.Username, &a.Email, &a.PasswordHash,
		&a.Service, &a.ServiceID, &a.IsAdmin,
		&a.CreatedAt, &a.UpdatedAt, &a.LastActiveAt, &a.LastSignedInAt,
		&a.LastActiveIP, &a.LastSignedInIP)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (s *Store) FindAccountByService(ctx context.Context, teamID, service, serviceID string) (*core.Account, error) {
	return scanAccount(s.pool.QueryRow(ctx, `
		SELECT `+accountCols+` FROM account
		WHERE team_id = $1 AND service = $2 AND service_id = $3`,
		teamID, service, serviceID))
}

func (s *Store) FindAccountByUsername(ctx context.Context, teamID, username string) (*core.Account, error) {
	return scanAccount(s.pool.QueryRow(ctx, `
		SELECT `+accountCols+` FROM account
		WHERE team_id = $1 AND LOWER(username) = LOWER($2)`,
		teamID, username))
}

func (s *Store) FindAccountByEmail(ctx context.Context, teamID, email string) (*core.Account, error) {
	return scanAccount(s.pool.QueryRow(ctx, `
		SELECT `+accountCols+` FROM account
		WHERE team_id = $1 AND LOWER(email) = LOWER($2)
		ORDER BY created_at LIMIT 1`,
		teamID, email))
}

func (s *Store) GetAccountByID(ctx context.Context, id string) (*core.Account, error) {
	return scanAccount(s.pool.QueryRow(ctx,
		`SELECT `+accountCols+` FROM account WHERE id = $1`, id))
}

func (s *Store) CreateAccount(ctx context.Context, a *core.Account) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO account (id, team_id, username, email, password_hash, service, service_id,
			is_admin, created_at, updated_at, last_active_at, last_signed_in_at,
			last_active_ip, last_signed_in_ip)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		a.ID, a.TeamID, a.Username, a.Email, a.PasswordHash, a.Service, a.ServiceID,
		a.IsAdmin, a.CreatedAt, a.UpdatedAt, a.LastActiveAt, a.LastSignedInAt,
		a.LastActiveIP, a.LastSignedInIP)
	if err != nil {
		if isUnique(err) {
			return core.ErrConflict
		}
		logger.Named("pg").Error("create account failed",
			logger.TeamID(a.TeamID), logger.Username(a.Username), logger.Err(err))
		return err
	}
	return nil
}

func (s *Store) TouchAccountActivity(ctx context.Context, accountID, ip string, signedIn bool) error {
	if signedIn {
		_, err := s.pool.Exec(ctx, `
			UPDATE account SET last_active_at = now(), last_active_ip = $2,
				last_signed_in_at = now(), last_signed_in_ip = $2, updated_at = now()
			WHERE id = $1`, accountID, ip)
		return err
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE account SET last_active_at = now(), last_active_ip = $2, updated_at = now()
		WHERE id = $1`, accountID, ip)
	return err
}

// ====================== COLLECTIONS ======================

func (s *Store) CreateCollection(ctx context.Context, c *core.Collection) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO collection (id, team_id, name, created_by_id, created_at)
		VALUES ($1,$2,$3,$4,$5)`,
		c.ID, c.TeamID, c.Name, c.CreatedByID, c.CreatedAt)
	if err != nil {
		if isUnique(err) {
			return core.ErrConflict
		}
		return err
	}
	return nil
}

// ====================== MIGRATIONS ======================

// RunMigrations aplica los *.up.sql del directorio en orden lexicográfico.
func (s *Store) RunMigrations(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			return err
		}
		if _, err := s.pool.Exec(ctx, string(b)); err != nil {
			return fmt.Errorf("exec %s: %w", f, err)
		}
	}
	return nil
}
