package auth

import (
	"strings"
	"testing"

	"docattach/internal/models"
)

func TestNormalizeUsername(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "valid", raw: "Admin.User", want: "admin.user"},
		{name: "trim", raw: "  a-user  ", want: "a-user"},
		{name: "invalid chars", raw: "bad space", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeUsername(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("NormalizeUsername(%q)=%q want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("password-123")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if !VerifyPassword(hash, "password-123") {
		t.Fatal("expected password to verify")
	}
	if VerifyPassword(hash, "wrong") {
		t.Fatal("expected wrong password to fail")
	}
}

func TestValidatePasswordBounds(t *testing.T) {
	if err := ValidatePassword("short"); err == nil {
		t.Fatal("expected short password error")
	}
	if err := ValidatePassword(strings.Repeat("x", 73)); err == nil {
		t.Fatal("expected long password error")
	}
}

func TestPrepareUser(t *testing.T) {
	user, err := PrepareUser(" Alice ", "password-123", "Writer")
	if err != nil {
		t.Fatalf("prepare user: %v", err)
	}
	if user.Username != "alice" || user.Role != models.RoleWriter {
		t.Fatalf("unexpected user: %#v", user)
	}
	if !VerifyPassword(user.PasswordHash, "password-123") {
		t.Fatal("expected hash to verify")
	}
	if _, err := PrepareUser("alice", "password-123", "owner"); err == nil {
		t.Fatal("expected invalid role error")
	}
}
