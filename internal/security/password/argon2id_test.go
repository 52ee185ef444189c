package password

import (
	"strings"
	"testing"
)

// Params chicos para que la suite no pague el costo de producción.
var testParams = Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, KeyLen: 32}

func TestHashVerify_RoundTrip(t *testing.T) {
	phc, err := Hash(testParams, "secret123")
	if err != nil {
		t.Fatalf("Hash err: %v", err)
	}
	if !strings.HasPrefix(phc, "$argon2id$v=19$") {
		t.Fatalf("PHC prefix: %q", phc)
	}
	if !Verify("secret123", phc) {
		t.Fatalf("correct password must verify")
	}
	if Verify("secret124", phc) {
		t.Fatalf("wrong password must not verify")
	}
}

func TestHash_EmptyPassword(t *testing.T) {
	if _, err := Hash(testParams, ""); err == nil {
		t.Fatalf("empty password must not hash")
	}
}

func TestHash_SaltedPerCall(t *testing.T) {
	a, _ := Hash(testParams, "secret123")
	b, _ := Hash(testParams, "secret123")
	if a == b {
		t.Fatalf("salt must differ per call")
	}
	if !Verify("secret123", a) || !Verify("secret123", b) {
		t.Fatalf("both hashes must verify")
	}
}

func TestVerify_MalformedIsFalseNotError(t *testing.T) {
	cases := []string{
		"",
		"plaintext",
		"$argon2id$v=19$m=8192,t=1,p=1$salt",        // faltan partes
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdA$ZGs",   // variante incorrecta
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdA$ZGs",  // versión incorrecta
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdA$ZGs",     // params rotos
		"$argon2id$v=19$m=8192,t=1,p=1$!!b64!!$ZGs", // salt no-b64
	}
	for _, phc := range cases {
		if Verify("whatever", phc) {
			t.Errorf("malformed PHC verified: %q", phc)
		}
	}
}

func TestVerify_ParamsReadFromHash(t *testing.T) {
	// El verify usa los params del PHC, no los de emisión actuales: un hash
	// viejo con otros costos sigue verificando.
	old := Params{Memory: 4 * 1024, Time: 2, Parallelism: 1, KeyLen: 16}
	phc, err := Hash(old, "secret123")
	if err != nil {
		t.Fatalf("Hash err: %v", err)
	}
	if !Verify("secret123", phc) {
		t.Fatalf("hash with non-default params must verify")
	}
}
