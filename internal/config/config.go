package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Storage struct {
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxOpenConns    int    `yaml:"max_open_conns"`
			MinIdleConns    int    `yaml:"min_idle_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	// Team: el team dueño en despliegues single-tenant. Con ID fijo el team
	// debe existir; con Name se hace find-or-create con estos defaults.
	Team struct {
		ID                string `yaml:"id"`
		Name              string `yaml:"name"`
		Domain            string `yaml:"domain"`
		URL               string `yaml:"url"`
		AvatarURL         string `yaml:"avatar_url"`
		DefaultCollection string `yaml:"default_collection"`
	} `yaml:"team"`

	Directory struct {
		Enabled            bool   `yaml:"enabled"`
		URL                string `yaml:"url"`
		BindDN             string `yaml:"bind_dn"`
		BindPassword       string `yaml:"bind_password"`
		BaseDN             string `yaml:"base_dn"`
		UserFilter         string `yaml:"user_filter"`
		EmailAttr          string `yaml:"email_attr"`
		NameAttr           string `yaml:"name_attr"`
		Timeout            string `yaml:"timeout"`
		InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
	} `yaml:"directory"`

	Invitation struct {
		Enabled bool `yaml:"enabled"`
		// Code es el único código activo.
		Code string `yaml:"code"`
	} `yaml:"invitation"`

	Session struct {
		SigningSeed       string `yaml:"signing_seed"`
		StateHashKey      string `yaml:"state_hash_key"`
		Issuer            string `yaml:"issuer"`
		CookieName        string `yaml:"cookie_name"`
		StateCookieName   string `yaml:"state_cookie_name"`
		TTL               string `yaml:"ttl"`
		StateTTL          string `yaml:"state_ttl"`
		MinExtendInterval string `yaml:"min_extend_interval"`
		Secure            bool   `yaml:"secure"`
	} `yaml:"session"`

	// Providers externos confiables (slack, google, ...): el intercambio de
	// redirect es del colaborador; acá solo se consume su confirmación.
	Providers struct {
		External []string `yaml:"external"`
	} `yaml:"providers"`

	Email struct {
		Enabled bool   `yaml:"enabled"`
		LinkTTL string `yaml:"link_ttl"`
	} `yaml:"email"`

	SMTP struct {
		Host               string `yaml:"host"`
		Port               int    `yaml:"port"`
		Username           string `yaml:"username"`
		Password           string `yaml:"password"`
		From               string `yaml:"from"`
		TLS                string `yaml:"tls"` // auto | starttls | ssl | none
		InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
	} `yaml:"smtp"`

	Rate struct {
		Enabled bool   `yaml:"enabled"`
		Redis   struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
		Login struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"login"`
	} `yaml:"rate"`

	Flags struct {
		Migrate bool `yaml:"migrate"`
	} `yaml:"flags"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	// sane defaults
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Team.Name == "" {
		c.Team.Name = "wiki"
	}
	if c.Team.DefaultCollection == "" {
		c.Team.DefaultCollection = "Welcome"
	}
	if c.Directory.UserFilter == "" {
		c.Directory.UserFilter = "(cn=%s)"
	}
	if c.Directory.Timeout == "" {
		c.Directory.Timeout = "500ms"
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "accessToken"
	}
	if c.Session.StateCookieName == "" {
		c.Session.StateCookieName = "state"
	}
	if c.Session.TTL == "" {
		c.Session.TTL = "2160h" // ~3 meses
	}
	if c.Session.StateTTL == "" {
		c.Session.StateTTL = "1h"
	}
	if c.Session.MinExtendInterval == "" {
		c.Session.MinExtendInterval = "1s"
	}
	if c.Email.LinkTTL == "" {
		c.Email.LinkTTL = "15m"
	}
	if c.SMTP.TLS == "" {
		c.SMTP.TLS = "auto"
	}
	if c.Rate.Login.Limit == 0 {
		c.Rate.Login.Limit = 10
	}
	if c.Rate.Login.Window == "" {
		c.Rate.Login.Window = "1m"
	}

	c.applyEnvOverrides()

	// validate string durations
	for _, d := range []string{
		c.Directory.Timeout, c.Session.TTL, c.Session.StateTTL,
		c.Session.MinExtendInterval, c.Email.LinkTTL, c.Rate.Login.Window,
	} {
		if _, err := time.ParseDuration(d); err != nil {
			return nil, fmt.Errorf("config: bad duration %q: %w", d, err)
		}
	}
	if c.Storage.Postgres.ConnMaxLifetime != "" {
		if _, err := time.ParseDuration(c.Storage.Postgres.ConnMaxLifetime); err != nil {
			return nil, err
		}
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// applyEnvOverrides pisa los secretos y endpoints con env vars cuando
// están presentes, para no commitear secretos en el YAML.
func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("DATABASE_URL"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvStr("DIRECTORY_URL"); ok {
		c.Directory.URL = v
	}
	if v, ok := getEnvStr("DIRECTORY_BIND_PASSWORD"); ok {
		c.Directory.BindPassword = v
	}
	if v, ok := getEnvStr("INVITATION_CODE"); ok {
		c.Invitation.Code = v
	}
	if v, ok := getEnvStr("SESSION_SIGNING_SEED"); ok {
		c.Session.SigningSeed = v
	}
	if v, ok := getEnvStr("SMTP_PASSWORD"); ok {
		c.SMTP.Password = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Rate.Redis.Addr = v
	}
	if v, ok := getEnvStr("TEAM_ID"); ok {
		c.Team.ID = v
	}
}

func (c *Config) Validate() error {
	if c.Storage.DSN == "" {
		return fmt.Errorf("config: storage.dsn is required")
	}
	if c.Directory.Enabled && c.Directory.URL == "" {
		return fmt.Errorf("config: directory.url is required when directory is enabled")
	}
	if c.Directory.Enabled && c.Directory.BaseDN == "" {
		return fmt.Errorf("config: directory.base_dn is required when directory is enabled")
	}
	if c.Invitation.Enabled && c.Invitation.Code == "" {
		return fmt.Errorf("config: invitation.code is required when invitation is enabled")
	}
	if c.Email.Enabled && c.SMTP.Host == "" {
		return fmt.Errorf("config: smtp.host is required when email sign-in is enabled")
	}
	if strings.EqualFold(c.App.Env, "prod") && c.Session.SigningSeed == "" {
		return fmt.Errorf("config: session.signing_seed is required in prod")
	}
	return nil
}

// Duration parsea una duración ya validada por Load.
func Duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
