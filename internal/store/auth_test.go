package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"docattach/internal/models"
)

func TestAuthUserLifecycle(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	count, err := st.CountEnabledUsers(ctx)
	if err != nil {
		t.Fatalf("count enabled users: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 users, got %d", count)
	}

	created, err := st.CreateUser(ctx, "Admin", "hash-1", models.RoleAdmin, now)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if created.Username != "admin" {
		t.Fatalf("expected normalized username admin, got %q", created.Username)
	}
	if created.Role != models.RoleAdmin {
		t.Fatalf("expected role %q, got %q", models.RoleAdmin, created.Role)
	}

	if _, err := st.CreateUser(ctx, "admin", "hash-2", models.RoleReader, now); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict for duplicate username, got %v", err)
	}
	if _, err := st.CreateUser(ctx, "bob", "hash-2", models.Role("owner"), now); err == nil {
		t.Fatal("expected invalid role error")
	}

	loaded, err := st.GetUserByUsername(ctx, "ADMIN")
	if err != nil {
		t.Fatalf("get user by username: %v", err)
	}
	if loaded == nil || loaded.ID != created.ID {
		t.Fatalf("expected loaded user %q, got %#v", created.ID, loaded)
	}

	if _, err := st.CreateUser(ctx, "reader", "hash-3", models.RoleReader, now); err != nil {
		t.Fatalf("create reader: %v", err)
	}
	users, err := st.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 2 || users[0].Username != "admin" || users[1].Username != "reader" {
		t.Fatalf("unexpected users: %#v", users)
	}

	disabled, err := st.SetUserDisabled(ctx, "reader", true, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("disable user: %v", err)
	}
	if disabled == nil || !disabled.Disabled {
		t.Fatalf("expected disabled user, got %#v", disabled)
	}

	count, err = st.CountEnabledUsers(ctx)
	if err != nil {
		t.Fatalf("count enabled users after disable: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 enabled user, got %d", count)
	}

	missing, err := st.SetUserDisabled(ctx, "nobody", true, now)
	if err != nil {
		t.Fatalf("disable missing user: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing user, got %#v", missing)
	}
}
