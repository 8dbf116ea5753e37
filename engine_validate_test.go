package authgate

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestValidateSessionReturnsIdentity(t *testing.T) {
	engine, _, done := newTestEngine(t, nil)
	defer done()

	id := seedAccount(t, engine, "alice", "alice@example.com", "correct-horse")
	result, err := engine.SignIn(context.Background(), "alice", "correct-horse")
	if err != nil {
		t.Fatalf("sign-in failed: %v", err)
	}

	identity, err := engine.ValidateSession(context.Background(), result.SessionToken)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if identity.ID != id || identity.Username != "alice" {
		t.Fatalf("identity = %+v", identity)
	}
	if len(identity.Roles) != 1 || identity.Roles[0] != RoleUser {
		t.Fatalf("roles = %v", identity.Roles)
	}
}

func TestValidateSessionRejections(t *testing.T) {
	engine, _, done := newTestEngine(t, nil)
	defer done()

	seedAccount(t, engine, "alice", "alice@example.com", "correct-horse")

	if _, err := engine.ValidateSession(context.Background(), "not-a-token"); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("garbage: got %v, want ErrTokenMalformed", err)
	}

	// Expired session token.
	engine.now = func() time.Time { return time.Now().Add(-9 * time.Hour) }
	result, err := engine.SignIn(context.Background(), "alice", "correct-horse")
	if err != nil {
		t.Fatalf("sign-in failed: %v", err)
	}
	engine.now = nil
	if _, err := engine.ValidateSession(context.Background(), result.SessionToken); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expired: got %v, want ErrTokenExpired", err)
	}
}

func TestValidateSessionForeignSignature(t *testing.T) {
	engine, _, done := newTestEngine(t, nil)
	defer done()
	other, _, otherDone := newTestEngine(t, nil)
	defer otherDone()

	seedAccount(t, other, "alice", "alice@example.com", "correct-horse")
	result, err := other.SignIn(context.Background(), "alice", "correct-horse")
	if err != nil {
		t.Fatalf("sign-in failed: %v", err)
	}

	if _, err := engine.ValidateSession(context.Background(), result.SessionToken); !errors.Is(err, ErrTokenBadSignature) {
		t.Fatalf("foreign key: got %v, want ErrTokenBadSignature", err)
	}
}

func TestCurrentIdentityAlias(t *testing.T) {
	engine, _, done := newTestEngine(t, nil)
	defer done()

	seedAccount(t, engine, "alice", "alice@example.com", "correct-horse")
	result, err := engine.SignIn(context.Background(), "alice", "correct-horse")
	if err != nil {
		t.Fatalf("sign-in failed: %v", err)
	}

	identity, err := engine.CurrentIdentity(context.Background(), result.SessionToken)
	if err != nil {
		t.Fatalf("current identity failed: %v", err)
	}
	if identity.Username != "alice" {
		t.Fatalf("username = %q", identity.Username)
	}
}
