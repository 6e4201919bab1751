package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
)

func openTestStore(t *testing.T) *UserStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "users.db"))
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestFind_Unknown(t *testing.T) {
	s := openTestStore(t)

	u, err := s.Find(context.Background(), 404)
	if err != nil {
		t.Fatalf("Find error: %v", err)
	}
	if u != nil {
		t.Errorf("expected nil for unknown user, got %+v", u)
	}
}

func TestCreate_ThenFind(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, &User{ID: 1, Username: "alice", Lang: "en", Roles: []string{RoleUser}})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if created.ID != 1 || created.Lang != "en" {
		t.Errorf("created = %+v", created)
	}

	found, err := s.Find(ctx, 1)
	if err != nil {
		t.Fatalf("Find error: %v", err)
	}
	if found == nil || found.Username != "alice" || !found.HasRole(RoleUser) {
		t.Errorf("found = %+v", found)
	}
}

func TestCreate_Idempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.Create(ctx, &User{ID: 2, Lang: "en", Roles: []string{RoleUser}})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	// A second create with different attributes must not overwrite.
	second, err := s.Create(ctx, &User{ID: 2, Lang: "ru", Roles: []string{RoleAdmin}})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if second.Lang != first.Lang {
		t.Errorf("second create overwrote lang: %q", second.Lang)
	}
	if second.HasRole(RoleAdmin) {
		t.Error("second create overwrote roles")
	}
}

func TestCreate_ConcurrentSameID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Create(ctx, &User{ID: 7, Lang: "en", Roles: []string{RoleUser}}); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent Create error: %v", err)
	}

	u, err := s.Find(ctx, 7)
	if err != nil {
		t.Fatalf("Find error: %v", err)
	}
	if u == nil {
		t.Fatal("user 7 not found after concurrent creates")
	}
}

func TestSetLang(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, &User{ID: 4, Lang: "en", Roles: []string{RoleUser}}); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if err := s.SetLang(ctx, 4, "ru"); err != nil {
		t.Fatalf("SetLang error: %v", err)
	}

	u, err := s.Find(ctx, 4)
	if err != nil {
		t.Fatalf("Find error: %v", err)
	}
	if u.Lang != "ru" {
		t.Errorf("lang = %q, want ru", u.Lang)
	}

	// Unknown user is a no-op.
	if err := s.SetLang(ctx, 999, "ru"); err != nil {
		t.Errorf("SetLang unknown user error: %v", err)
	}
}

func TestGrantRole(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, &User{ID: 3, Lang: "en", Roles: []string{RoleUser}}); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if err := s.GrantRole(ctx, 3, RoleAdmin); err != nil {
		t.Fatalf("GrantRole error: %v", err)
	}
	// Granting twice stays a single role entry.
	if err := s.GrantRole(ctx, 3, RoleAdmin); err != nil {
		t.Fatalf("GrantRole error: %v", err)
	}

	u, err := s.Find(ctx, 3)
	if err != nil {
		t.Fatalf("Find error: %v", err)
	}
	if !u.HasRole(RoleAdmin) || !u.HasRole(RoleUser) {
		t.Errorf("roles = %v", u.Roles)
	}
	if len(u.Roles) != 2 {
		t.Errorf("roles = %v, want exactly 2", u.Roles)
	}

	// Unknown user is a no-op.
	if err := s.GrantRole(ctx, 999, RoleAdmin); err != nil {
		t.Errorf("GrantRole unknown user error: %v", err)
	}
}
