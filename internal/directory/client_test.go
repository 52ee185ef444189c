package directory

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestConfig_Defaults(t *testing.T) {
	c := (&Config{}).withDefaults()
	if c.UserFilter != "(cn=%s)" {
		t.Fatalf("filter default: %q", c.UserFilter)
	}
	if c.EmailAttr != "mail" || c.NameAttr != "displayName" {
		t.Fatalf("attr defaults: %q %q", c.EmailAttr, c.NameAttr)
	}
	if c.Timeout != 500*time.Millisecond {
		t.Fatalf("timeout default: %v", c.Timeout)
	}
}

func TestFilter_EscapesUsername(t *testing.T) {
	c := NewClient(Config{})

	// Metacaracteres de filtro LDAP no pueden inyectarse.
	got := c.Filter("bob)(cn=*")
	if strings.Contains(got, "*") && !strings.Contains(got, `\2a`) {
		t.Fatalf("wildcard not escaped: %q", got)
	}
	if strings.Count(got, "(") != 1 {
		t.Fatalf("injected parens survived: %q", got)
	}
	if got != `(cn=bob\29\28cn=\2a)` {
		t.Fatalf("escaped filter: %q", got)
	}
}

func TestFilter_CustomTemplate(t *testing.T) {
	c := NewClient(Config{UserFilter: "(uid=%s)"})
	if got := c.Filter("bob"); got != "(uid=bob)" {
		t.Fatalf("got %q", got)
	}
}

func TestVerify_EmptySecretFailsClosed(t *testing.T) {
	c := NewClient(Config{URL: "ldap://ldap.invalid:389"})

	// Secret vacío nunca llega al wire: degeneraría en bind anónimo.
	_, err := c.Verify(context.Background(), "bob", "")
	var ae *AuthError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if ae.Phase != "user_bind" {
		t.Fatalf("phase: %q", ae.Phase)
	}

	_, err = c.Verify(context.Background(), "   ", "secret")
	if !errors.As(err, &ae) {
		t.Fatalf("expected AuthError, got %v", err)
	}
}

func TestVerify_UnreachableServerFailsWithinTimeout(t *testing.T) {
	c := NewClient(Config{URL: "ldap://127.0.0.1:1", Timeout: 150 * time.Millisecond})

	start := time.Now()
	_, err := c.Verify(context.Background(), "bob", "secret123")
	elapsed := time.Since(start)

	var ae *AuthError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if ae.Phase != "dial" {
		t.Fatalf("phase: %q", ae.Phase)
	}
	// Timeout acotado: nunca colgarse esperando al directorio.
	if elapsed > 2*time.Second {
		t.Fatalf("verify took %v, deadline not honored", elapsed)
	}
}

func TestVerify_CancelledContext(t *testing.T) {
	c := NewClient(Config{URL: "ldap://127.0.0.1:1"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.Verify(ctx, "bob", "secret123"); err == nil {
		t.Fatalf("cancelled context must fail")
	}
}

func TestAuthError_Unwrap(t *testing.T) {
	inner := errors.New("boom")
	err := failAt(phaseSearch, inner)
	if !errors.Is(err, inner) {
		t.Fatalf("AuthError must unwrap")
	}
	var ae *AuthError
	if !errors.As(err, &ae) || ae.Phase != "search" {
		t.Fatalf("phase lost: %v", err)
	}
}
