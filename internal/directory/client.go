// Package directory verifica credenciales contra un servicio de directorio
// (LDAP) con el intercambio bind → search → second bind. Solo el éxito del
// segundo bind prueba la credencial; la fase de search nunca alcanza.
package directory

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	ldap "github.com/go-ldap/ldap/v3"

	"github.com/dropDatabas3/teamgate/internal/observability/logger"
)

type Config struct {
	// URL del servidor, ej: ldap://ldap.example.com:389 o ldaps://...
	URL string

	// BindDN/BindPassword: credencial de servicio para la fase de search.
	// Vacíos ⇒ bind anónimo.
	BindDN       string
	BindPassword string

	// BaseDN es el scope base del search, ej: ou=people,dc=example,dc=com.
	BaseDN string

	// UserFilter es el template del filtro; %s se reemplaza por el username
	// ya escapado. Default: "(cn=%s)".
	UserFilter string

	// Atributos a traer del entry. Defaults: mail / displayName.
	EmailAttr string
	NameAttr  string

	// Timeout acota el intercambio completo (dial + binds + search).
	// Excederlo es una falla, nunca un retry. Default: 500ms.
	Timeout time.Duration

	// InsecureSkipVerify solo para dev con ldaps y certs self-signed.
	InsecureSkipVerify bool
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.UserFilter == "" {
		out.UserFilter = "(cn=%s)"
	}
	if out.EmailAttr == "" {
		out.EmailAttr = "mail"
	}
	if out.NameAttr == "" {
		out.NameAttr = "displayName"
	}
	if out.Timeout <= 0 {
		out.Timeout = 500 * time.Millisecond
	}
	return out
}

// Attributes es el resultado de una verificación exitosa.
type Attributes struct {
	DN          string
	Username    string
	Email       string
	DisplayName string
}

// phase es el estado del intercambio. Se reporta en AuthError para logs;
// nunca llega al usuario.
type phase int

const (
	phaseDial phase = iota
	phaseServiceBind
	phaseSearch
	phaseUserBind
	phaseBound
)

func (p phase) String() string {
	switch p {
	case phaseDial:
		return "dial"
	case phaseServiceBind:
		return "service_bind"
	case phaseSearch:
		return "search"
	case phaseUserBind:
		return "user_bind"
	case phaseBound:
		return "bound"
	}
	return "unknown"
}

var (
	errEmptyCredential = errors.New("empty username or secret")
	errNoMatch         = errors.New("no matching entry")
	errAmbiguous       = errors.New("multiple matching entries")
)

// AuthError envuelve cualquier falla del intercambio, con la fase en la que
// ocurrió. El caller la traduce a un mensaje genérico.
type AuthError struct {
	Phase string
	Err   error
}

func (e *AuthError) Error() string { return fmt.Sprintf("directory auth (%s): %v", e.Phase, e.Err) }
func (e *AuthError) Unwrap() error { return e.Err }

func failAt(p phase, err error) error { return &AuthError{Phase: p.String(), Err: err} }

// Client es el adapter al servicio de directorio. Se construye una vez en
// el arranque y se inyecta; no hay handles globales.
type Client struct {
	cfg Config
}

func NewClient(cfg Config) *Client {
	return &Client{cfg: cfg.withDefaults()}
}

// Verify ejecuta el intercambio completo acotado por un solo deadline.
// La conexión se libera en todos los caminos de salida.
func (c *Client) Verify(ctx context.Context, username, secret string) (*Attributes, error) {
	// Un secret vacío degeneraría el segundo bind en bind anónimo "exitoso".
	if strings.TrimSpace(username) == "" || secret == "" {
		return nil, failAt(phaseUserBind, errEmptyCredential)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	deadline, _ := ctx.Deadline()

	var (
		st    = phaseDial
		conn  *ldap.Conn
		entry *ldap.Entry
	)
	for {
		if err := ctx.Err(); err != nil {
			if conn != nil {
				conn.Close()
			}
			return nil, failAt(st, err)
		}

		switch st {
		case phaseDial:
			cn, err := c.dial(deadline)
			if err != nil {
				return nil, failAt(st, err)
			}
			conn = cn
			st = phaseServiceBind

		case phaseServiceBind:
			var err error
			if c.cfg.BindDN != "" {
				err = conn.Bind(c.cfg.BindDN, c.cfg.BindPassword)
			} else {
				err = conn.UnauthenticatedBind("")
			}
			if err != nil {
				conn.Close()
				return nil, failAt(st, err)
			}
			st = phaseSearch

		case phaseSearch:
			e, err := c.search(conn, deadline, username)
			if err != nil {
				conn.Close()
				return nil, failAt(st, err)
			}
			entry = e
			st = phaseUserBind

		case phaseUserBind:
			// Única prueba válida de la credencial.
			if err := conn.Bind(entry.DN, secret); err != nil {
				conn.Close()
				return nil, failAt(st, err)
			}
			st = phaseBound

		case phaseBound:
			attrs := &Attributes{
				DN:          entry.DN,
				Username:    username,
				Email:       entry.GetAttributeValue(c.cfg.EmailAttr),
				DisplayName: entry.GetAttributeValue(c.cfg.NameAttr),
			}
			if attrs.DisplayName == "" {
				attrs.DisplayName = username
			}
			conn.Close()
			logger.Named("directory").Debug("credential verified",
				logger.Username(username), logger.String("dn", entry.DN))
			return attrs, nil
		}
	}
}

func (c *Client) dial(deadline time.Time) (*ldap.Conn, error) {
	dialer := &net.Dialer{Timeout: time.Until(deadline)}
	opts := []ldap.DialOpt{ldap.DialWithDialer(dialer)}
	if c.cfg.InsecureSkipVerify {
		opts = append(opts, ldap.DialWithTLSConfig(&tls.Config{InsecureSkipVerify: true}))
	}
	conn, err := ldap.DialURL(c.cfg.URL, opts...)
	if err != nil {
		return nil, err
	}
	conn.SetTimeout(time.Until(deadline))
	return conn, nil
}

func (c *Client) search(conn *ldap.Conn, deadline time.Time, username string) (*ldap.Entry, error) {
	secs := int(time.Until(deadline).Seconds())
	if secs < 1 {
		secs = 1
	}
	req := ldap.NewSearchRequest(
		c.cfg.BaseDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases,
		2, // sizeLimit 2 para detectar entries ambiguos
		secs,
		false,
		c.Filter(username),
		[]string{c.cfg.EmailAttr, c.cfg.NameAttr},
		nil,
	)
	res, err := conn.Search(req)
	if err != nil {
		return nil, err
	}
	switch len(res.Entries) {
	case 0:
		return nil, errNoMatch
	case 1:
		return res.Entries[0], nil
	default:
		return nil, errAmbiguous
	}
}

// Filter renderiza el filtro de búsqueda con el username escapado.
func (c *Client) Filter(username string) string {
	return fmt.Sprintf(c.cfg.UserFilter, ldap.EscapeFilter(username))
}
