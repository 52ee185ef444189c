package mem

import (
	"context"
	"errors"
	"testing"

	"github.com/dropDatabas3/teamgate/internal/store/core"
)

func TestFindOrCreateTeam(t *testing.T) {
	s := New()
	ctx := context.Background()

	a, created, err := s.FindOrCreateTeam(ctx, "wiki", core.Team{Name: "wiki", Domain: "wiki.example.com"})
	if err != nil || !created {
		t.Fatalf("first call: %v created=%v", err, created)
	}
	b, created, err := s.FindOrCreateTeam(ctx, "wiki", core.Team{Name: "wiki"})
	if err != nil || created {
		t.Fatalf("second call: %v created=%v", err, created)
	}
	if a.ID != b.ID {
		t.Fatalf("ids differ: %s vs %s", a.ID, b.ID)
	}
	if b.Domain != "wiki.example.com" {
		t.Fatalf("defaults lost on re-find: %+v", b)
	}
}

func TestCreateAccount_UniqueConstraints(t *testing.T) {
	s := New()
	ctx := context.Background()
	team, _, _ := s.FindOrCreateTeam(ctx, "wiki", core.Team{Name: "wiki"})

	base := core.Account{TeamID: team.ID, Username: "bob", Service: "directory", ServiceID: "sid-1"}

	a := base
	a.ID = "a1"
	if err := s.CreateAccount(ctx, &a); err != nil {
		t.Fatalf("first insert: %v", err)
	}

	// Mismo binding (service, serviceId) conflicta.
	dup := base
	dup.ID = "a2"
	dup.Username = "other"
	if err := s.CreateAccount(ctx, &dup); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("binding dup: %v", err)
	}

	// Mismo username (case-insensitive) conflicta.
	dup = base
	dup.ID = "a3"
	dup.ServiceID = "sid-2"
	dup.Username = "BOB"
	if err := s.CreateAccount(ctx, &dup); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("username dup: %v", err)
	}

	// Otro team, mismos valores: sin conflicto.
	other, _, _ := s.FindOrCreateTeam(ctx, "docs", core.Team{Name: "docs"})
	ok := base
	ok.ID = "a4"
	ok.TeamID = other.ID
	if err := s.CreateAccount(ctx, &ok); err != nil {
		t.Fatalf("cross-team insert: %v", err)
	}
}

func TestCreateCollection_Idempotence(t *testing.T) {
	s := New()
	ctx := context.Background()
	team, _, _ := s.FindOrCreateTeam(ctx, "wiki", core.Team{Name: "wiki"})

	col := &core.Collection{ID: "c1", TeamID: team.ID, Name: "Welcome"}
	if err := s.CreateCollection(ctx, col); err != nil {
		t.Fatalf("first: %v", err)
	}
	col2 := &core.Collection{ID: "c2", TeamID: team.ID, Name: "Welcome"}
	if err := s.CreateCollection(ctx, col2); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("dup collection: %v", err)
	}
}

func TestTouchAccountActivity(t *testing.T) {
	s := New()
	ctx := context.Background()
	team, _, _ := s.FindOrCreateTeam(ctx, "wiki", core.Team{Name: "wiki"})
	_ = s.CreateAccount(ctx, &core.Account{ID: "a1", TeamID: team.ID, Username: "bob", Service: "directory", ServiceID: "s"})

	if err := s.TouchAccountActivity(ctx, "a1", "10.0.0.1", false); err != nil {
		t.Fatalf("touch: %v", err)
	}
	a, _ := s.GetAccountByID(ctx, "a1")
	if a.LastActiveIP != "10.0.0.1" || !a.LastSignedInAt.IsZero() {
		t.Fatalf("activity-only touch: %+v", a)
	}

	if err := s.TouchAccountActivity(ctx, "a1", "10.0.0.2", true); err != nil {
		t.Fatalf("touch signed in: %v", err)
	}
	a, _ = s.GetAccountByID(ctx, "a1")
	if a.LastSignedInIP != "10.0.0.2" {
		t.Fatalf("signed-in touch: %+v", a)
	}

	if err := s.TouchAccountActivity(ctx, "ghost", "", false); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("ghost touch: %v", err)
	}
}
