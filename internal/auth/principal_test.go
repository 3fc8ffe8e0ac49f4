package auth

import (
	"context"
	"testing"

	"docattach/internal/models"
)

func TestPrincipalCanWriteDocument(t *testing.T) {
	tests := []struct {
		name  string
		p     Principal
		owner string
		want  bool
	}{
		{name: "admin", p: Principal{Username: "root", Role: models.RoleAdmin}, owner: "alice", want: true},
		{name: "writer", p: Principal{Username: "bob", Role: models.RoleWriter}, owner: "alice", want: true},
		{name: "reader", p: Principal{Username: "bob", Role: models.RoleReader}, owner: "alice", want: false},
		{name: "reader owner", p: Principal{Username: "alice", Role: models.RoleReader}, owner: "Alice", want: true},
		{name: "reader no owner", p: Principal{Username: "alice", Role: models.RoleReader}, owner: "", want: false},
		{name: "token", p: Principal{Token: true}, owner: "alice", want: true},
		{name: "anonymous", p: Principal{Anonymous: true}, owner: "alice", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.CanWriteDocument(tt.owner); got != tt.want {
				t.Fatalf("CanWriteDocument(%q)=%v want %v", tt.owner, got, tt.want)
			}
		})
	}
}

func TestPrincipalContextRoundTrip(t *testing.T) {
	if _, ok := PrincipalFromContext(context.Background()); ok {
		t.Fatal("expected no principal on empty context")
	}
	ctx := WithPrincipal(context.Background(), Principal{Username: "alice", Role: models.RoleWriter})
	p, ok := PrincipalFromContext(ctx)
	if !ok || p.Username != "alice" {
		t.Fatalf("unexpected principal: %#v", p)
	}
}

func TestTokenMatches(t *testing.T) {
	if !TokenMatches("secret", " secret ") {
		t.Fatal("expected token to match")
	}
	if TokenMatches("secret", "nope") {
		t.Fatal("expected mismatch")
	}
	if TokenMatches("", "") {
		t.Fatal("expected empty configured token to never match")
	}
}
