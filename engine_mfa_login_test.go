package authgate

import (
	"context"
	"errors"
	"testing"
	"time"
)

func signInToGate(t *testing.T, engine *Engine) string {
	t.Helper()

	result, err := engine.SignIn(context.Background(), "alice", "correct-horse")
	if err != nil {
		t.Fatalf("sign-in failed: %v", err)
	}
	if !result.TwoFactorRequired || result.PreAuthToken == "" {
		t.Fatal("expected the second-factor gate")
	}
	return result.PreAuthToken
}

func TestConfirmTwoFactorSignIn(t *testing.T) {
	engine, dir, done := newTestEngine(t, nil)
	defer done()

	id := seedAccount(t, engine, "alice", "alice@example.com", "correct-horse")
	secret := enrollAndConfirm(t, engine, dir, id)

	preAuth := signInToGate(t, engine)
	code := codeAtTime(t, engine, secret, time.Now())

	result, err := engine.ConfirmTwoFactorSignIn(context.Background(), preAuth, code)
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if result.SessionToken == "" || result.TwoFactorRequired {
		t.Fatal("expected a full session token")
	}

	identity, err := engine.ValidateSession(context.Background(), result.SessionToken)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if identity.ID != id {
		t.Fatalf("identity id = %d, want %d", identity.ID, id)
	}
}

func TestConfirmTwoFactorSignInWrongCode(t *testing.T) {
	engine, dir, done := newTestEngine(t, nil)
	defer done()

	id := seedAccount(t, engine, "alice", "alice@example.com", "correct-horse")
	enrollAndConfirm(t, engine, dir, id)

	preAuth := signInToGate(t, engine)

	if _, err := engine.ConfirmTwoFactorSignIn(context.Background(), preAuth, "000000"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("got %v, want ErrInvalidCode", err)
	}
}

func TestConfirmTwoFactorSignInRejectsSessionToken(t *testing.T) {
	engine, dir, done := newTestEngine(t, nil)
	defer done()

	id := seedAccount(t, engine, "alice", "alice@example.com", "correct-horse")
	secret := enrollAndConfirm(t, engine, dir, id)

	preAuth := signInToGate(t, engine)
	code := codeAtTime(t, engine, secret, time.Now())
	result, err := engine.ConfirmTwoFactorSignIn(context.Background(), preAuth, code)
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	code = codeAtTime(t, engine, secret, time.Now())
	if _, err := engine.ConfirmTwoFactorSignIn(context.Background(), result.SessionToken, code); !errors.Is(err, ErrTokenWrongKind) {
		t.Fatalf("session token at the gate: got %v, want ErrTokenWrongKind", err)
	}
}

func TestConfirmTwoFactorSignInExpiredPreAuth(t *testing.T) {
	engine, dir, done := newTestEngine(t, nil)
	defer done()

	id := seedAccount(t, engine, "alice", "alice@example.com", "correct-horse")
	secret := enrollAndConfirm(t, engine, dir, id)

	// Mint the pre-auth token in the past so its 5m TTL has elapsed.
	engine.now = func() time.Time { return time.Now().Add(-10 * time.Minute) }
	preAuth := signInToGate(t, engine)
	engine.now = nil

	code := codeAtTime(t, engine, secret, time.Now())
	if _, err := engine.ConfirmTwoFactorSignIn(context.Background(), preAuth, code); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("got %v, want ErrTokenExpired", err)
	}
}

func TestConfirmTwoFactorSignInGarbageToken(t *testing.T) {
	engine, _, done := newTestEngine(t, nil)
	defer done()

	if _, err := engine.ConfirmTwoFactorSignIn(context.Background(), "not-a-token", "123456"); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("got %v, want ErrTokenMalformed", err)
	}
}

func TestPreAuthTokenReusableUntilExpiry(t *testing.T) {
	engine, dir, done := newTestEngine(t, nil)
	defer done()

	id := seedAccount(t, engine, "alice", "alice@example.com", "correct-horse")
	secret := enrollAndConfirm(t, engine, dir, id)

	preAuth := signInToGate(t, engine)

	// The pre-auth token is not consumed on success; within its window a
	// second exchange also succeeds.
	for i := 0; i < 2; i++ {
		code := codeAtTime(t, engine, secret, time.Now())
		if _, err := engine.ConfirmTwoFactorSignIn(context.Background(), preAuth, code); err != nil {
			t.Fatalf("exchange %d failed: %v", i, err)
		}
	}
}

func TestConfirmTwoFactorSignInAfterDisable(t *testing.T) {
	engine, dir, done := newTestEngine(t, nil)
	defer done()

	id := seedAccount(t, engine, "alice", "alice@example.com", "correct-horse")
	secret := enrollAndConfirm(t, engine, dir, id)

	preAuth := signInToGate(t, engine)

	if err := engine.DisableTwoFactor(context.Background(), id); err != nil {
		t.Fatalf("disable failed: %v", err)
	}

	code := codeAtTime(t, engine, secret, time.Now())
	if _, err := engine.ConfirmTwoFactorSignIn(context.Background(), preAuth, code); !errors.Is(err, ErrTwoFactorNotEnrolled) {
		t.Fatalf("got %v, want ErrTwoFactorNotEnrolled", err)
	}
}
