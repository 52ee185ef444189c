package session

import (
	"encoding/base64"
	"time"

	"github.com/gorilla/securecookie"
	gocache "github.com/patrickmn/go-cache"
)

// OneTime guarda valores de un solo uso con TTL: states anti-replay
// emitidos y tokens de sign-in por email. En memoria: este engine es
// single-node (ver modelo de concurrencia).
type OneTime struct {
	c *gocache.Cache
}

func NewOneTime() *OneTime {
	return &OneTime{c: gocache.New(time.Hour, 10*time.Minute)}
}

// NewToken genera un token random url-safe y lo registra con el valor
// asociado y TTL.
func (o *OneTime) NewToken(kind, value string, ttl time.Duration) string {
	token := base64.RawURLEncoding.EncodeToString(securecookie.GenerateRandomKey(24))
	o.c.Set(kind+":"+token, value, ttl)
	return token
}

// Put registra un token ya generado (ej: el state de una emisión).
func (o *OneTime) Put(kind, token, value string, ttl time.Duration) {
	o.c.Set(kind+":"+token, value, ttl)
}

// Consume devuelve el valor asociado y lo invalida. Segundo consumo del
// mismo token ⇒ (_, false).
func (o *OneTime) Consume(kind, token string) (string, bool) {
	key := kind + ":" + token
	v, ok := o.c.Get(key)
	if !ok {
		return "", false
	}
	o.c.Delete(key)
	s, _ := v.(string)
	return s, true
}

// Kinds reconocidos.
const (
	KindState     = "state"
	KindEmailLink = "email"
)
