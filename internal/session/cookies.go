package session

import (
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// BuildCookie construye una cookie con flags de seguridad consistentes.
// domain vacío ⇒ host-only.
func BuildCookie(name, value, domain string, httpOnly, secure bool, ttl time.Duration) *http.Cookie {
	now := time.Now().UTC()
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  now.Add(ttl),
		MaxAge:   int(ttl.Seconds()),
		Secure:   secure,
		HttpOnly: httpOnly,
		SameSite: http.SameSiteLaxMode,
	}
	if domain != "" {
		c.Domain = domain
	}
	return c
}

// BuildDeletionCookie devuelve una cookie que elimina la sesión del
// browser (mismo nombre/domain para que el user-agent la sobreescriba).
func BuildDeletionCookie(name, domain string, secure bool) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if domain != "" {
		c.Domain = domain
	}
	return c
}

// CookieDomain deriva el dominio de cookies para el hostname del team:
// "wiki.example.com" ⇒ "example.com" para que las cookies cubran los
// subdominios del team. IPs, localhost y hosts de un solo label quedan
// host-only ("").
func CookieDomain(teamURL string) string {
	host := teamURL
	if u, err := url.Parse(teamURL); err == nil && u.Host != "" {
		host = u.Host
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if host == "" || host == "localhost" || net.ParseIP(host) != nil {
		return ""
	}
	labels := strings.Split(host, ".")
	if len(labels) < 3 {
		return ""
	}
	return strings.Join(labels[len(labels)-2:], ".")
}
