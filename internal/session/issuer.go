// Package session emite el artefacto de sesión firmado y las cookies que
// lo transportan, y protege la extensión de sesión contra replay.
package session

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/securecookie"

	"github.com/dropDatabas3/teamgate/internal/store/core"
)

const (
	// DefaultSessionTTL: cookie de sesión larga (~3 meses).
	DefaultSessionTTL = 3 * 30 * 24 * time.Hour
	// DefaultStateTTL: cookie/valor de state anti-replay corto.
	DefaultStateTTL = time.Hour
	// DefaultMinExtendInterval: una extensión sin tiempo transcurrido y sin
	// cambio de IP es replay.
	DefaultMinExtendInterval = time.Second

	DefaultCookieName      = "accessToken"
	DefaultStateCookieName = "state"
)

// ErrCannotExtend: el token re-presentado no muestra actividad nueva ni
// cambio de origen; posible replay.
var ErrCannotExtend = errors.New("cannot extend token")

// Claims son los claims propios embebidos en el token de sesión.
type Claims struct {
	AccountID string
	TeamID    string
	Provider  string
	IssuedAt  time.Time
}

// Artifacts es lo que sale de una emisión: el token firmado y las cookies
// listas para setear.
type Artifacts struct {
	Token         string
	SessionCookie *http.Cookie
	StateCookie   *http.Cookie
	StateValue    string
}

type Config struct {
	// SigningSeed: seed ed25519 de 32 bytes en base64 estándar. Vacío ⇒ se
	// genera una clave efímera (solo dev: invalida sesiones al reiniciar).
	SigningSeed string
	// StateHashKey firma el valor de la cookie de state (securecookie).
	// Vacío ⇒ clave random efímera.
	StateHashKey string

	Issuer            string
	SessionTTL        time.Duration
	StateTTL          time.Duration
	MinExtendInterval time.Duration
	CookieName        string
	StateCookieName   string
	Secure            bool
}

type Issuer struct {
	cfg    Config
	priv   ed25519.PrivateKey
	pub    ed25519.PublicKey
	sc     *securecookie.SecureCookie
	states *OneTime
	clock  func() time.Time
}

func NewIssuer(cfg Config, states *OneTime) (*Issuer, error) {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.StateTTL <= 0 {
		cfg.StateTTL = DefaultStateTTL
	}
	if cfg.MinExtendInterval <= 0 {
		cfg.MinExtendInterval = DefaultMinExtendInterval
	}
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}
	if cfg.StateCookieName == "" {
		cfg.StateCookieName = DefaultStateCookieName
	}

	var priv ed25519.PrivateKey
	if cfg.SigningSeed != "" {
		seed, err := base64.StdEncoding.DecodeString(cfg.SigningSeed)
		if err != nil {
			return nil, fmt.Errorf("session signing seed: %w", err)
		}
		if len(seed) != ed25519.SeedSize {
			return nil, fmt.Errorf("session signing seed: want %d bytes, got %d", ed25519.SeedSize, len(seed))
		}
		priv = ed25519.NewKeyFromSeed(seed)
	} else {
		_, p, err := ed25519.GenerateKey(nil)
		if err != nil {
			return nil, err
		}
		priv = p
	}

	hashKey := []byte(cfg.StateHashKey)
	if len(hashKey) == 0 {
		hashKey = securecookie.GenerateRandomKey(32)
	}

	if states == nil {
		states = NewOneTime()
	}
	return &Issuer{
		cfg:    cfg,
		priv:   priv,
		pub:    priv.Public().(ed25519.PublicKey),
		sc:     securecookie.New(hashKey, nil),
		states: states,
		clock:  func() time.Time { return time.Now().UTC() },
	}, nil
}

// Issue genera el token de sesión firmado, la cookie larga que lo
// transporta y la cookie corta de state, scoped al dominio de cookies del
// hostname del team.
func (i *Issuer) Issue(acct *core.Account, team *core.Team, provider string) (*Artifacts, error) {
	now := i.clock()
	claims := jwtv5.MapClaims{
		"iss":      i.cfg.Issuer,
		"sub":      acct.ID,
		"tid":      team.ID,
		"provider": provider,
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"exp":      now.Add(i.cfg.SessionTTL).Unix(),
	}
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodEdDSA, claims)
	tk.Header["typ"] = "JWT"
	signed, err := tk.SignedString(i.priv)
	if err != nil {
		return nil, err
	}

	domain := CookieDomain(team.URL)

	state := base64.RawURLEncoding.EncodeToString(securecookie.GenerateRandomKey(18))
	i.states.Put(KindState, state, acct.ID, i.cfg.StateTTL)
	encodedState, err := i.sc.Encode(i.cfg.StateCookieName, state)
	if err != nil {
		return nil, err
	}

	return &Artifacts{
		Token:         signed,
		SessionCookie: BuildCookie(i.cfg.CookieName, signed, domain, true, i.cfg.Secure, i.cfg.SessionTTL),
		// httpOnly=false: el state lo lee el colaborador de redirect en el
		// browser.
		StateCookie: BuildCookie(i.cfg.StateCookieName, encodedState, domain, false, i.cfg.Secure, i.cfg.StateTTL),
		StateValue:  state,
	}, nil
}

// DecodeState valida la firma de un valor de cookie de state y devuelve el
// state crudo.
func (i *Issuer) DecodeState(encoded string) (string, error) {
	var state string
	if err := i.sc.Decode(i.cfg.StateCookieName, encoded, &state); err != nil {
		return "", err
	}
	return state, nil
}

// Parse valida firma y expiración del token de sesión.
func (i *Issuer) Parse(token string) (*Claims, error) {
	parsed, err := jwtv5.Parse(token, func(t *jwtv5.Token) (any, error) {
		if _, ok := t.Method.(*jwtv5.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return i.pub, nil
	})
	if err != nil {
		return nil, err
	}
	mc, ok := parsed.Claims.(jwtv5.MapClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid session token")
	}
	c := &Claims{}
	c.AccountID, _ = mc["sub"].(string)
	c.TeamID, _ = mc["tid"].(string)
	c.Provider, _ = mc["provider"].(string)
	if iat, ok := mc["iat"].(float64); ok {
		c.IssuedAt = time.Unix(int64(iat), 0).UTC()
	}
	if c.AccountID == "" || c.TeamID == "" {
		return nil, errors.New("invalid session token")
	}
	return c, nil
}

// Extend valida la re-presentación de una sesión vigente y registra
// actividad. Replay: sin tiempo transcurrido desde la última actividad y
// sin cambio de IP ⇒ ErrCannotExtend en vez de re-extender en silencio.
func (i *Issuer) Extend(ctx context.Context, store core.Repository, accountID, ip string) (*core.Account, error) {
	acct, err := store.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	elapsed := i.clock().Sub(acct.LastActiveAt)
	if elapsed < i.cfg.MinExtendInterval && ip == acct.LastActiveIP {
		return nil, ErrCannotExtend
	}
	// Acá el touch no es best-effort: la protección de replay depende de él.
	if err := store.TouchAccountActivity(ctx, acct.ID, ip, false); err != nil {
		return nil, err
	}
	acct.LastActiveAt = i.clock()
	acct.LastActiveIP = ip
	return acct, nil
}

// CookieName expone el nombre configurado de la cookie de sesión.
func (i *Issuer) CookieName() string { return i.cfg.CookieName }

// SignoutCookies construye las cookies de borrado para cerrar la sesión
// en el browser, con el mismo scope de dominio que la emisión.
func (i *Issuer) SignoutCookies(teamURL string) []*http.Cookie {
	domain := CookieDomain(teamURL)
	return []*http.Cookie{
		BuildDeletionCookie(i.cfg.CookieName, domain, i.cfg.Secure),
		BuildDeletionCookie(i.cfg.StateCookieName, domain, i.cfg.Secure),
	}
}

// States expone el store de valores one-time (states emitidos, links de
// sign-in por email).
func (i *Issuer) States() *OneTime { return i.states }
