package password

import (
	"errors"
	"strings"
	"testing"
)

func testHasher(t *testing.T) *Hasher {
	t.Helper()

	h, err := New(Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("hasher build failed: %v", err)
	}
	return h
}

func TestHashAndVerify(t *testing.T) {
	h := testHasher(t)

	encoded, err := h.Hash("correct-horse")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$v=19$") {
		t.Fatalf("unexpected PHC prefix: %q", encoded)
	}

	ok, err := h.Verify("correct-horse", encoded)
	if err != nil || !ok {
		t.Fatalf("verify = %v, %v; want match", ok, err)
	}

	ok, err = h.Verify("wrong-password", encoded)
	if err != nil {
		t.Fatalf("verify errored: %v", err)
	}
	if ok {
		t.Fatal("wrong password must not verify")
	}
}

func TestHashSaltsAreFresh(t *testing.T) {
	h := testHasher(t)

	first, err := h.Hash("correct-horse")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	second, err := h.Hash("correct-horse")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if first == second {
		t.Fatal("two hashes of the same password must differ")
	}

	for _, encoded := range []string{first, second} {
		if ok, err := h.Verify("correct-horse", encoded); err != nil || !ok {
			t.Fatalf("verify = %v, %v", ok, err)
		}
	}
}

func TestHashPolicyFloor(t *testing.T) {
	h := testHasher(t)

	if _, err := h.Hash("short"); !errors.Is(err, ErrPolicy) {
		t.Fatalf("got %v, want ErrPolicy", err)
	}
	if _, err := h.Hash("exactly8"); err != nil {
		t.Fatalf("8 chars must pass: %v", err)
	}
}

func TestVerifyMalformedEncoding(t *testing.T) {
	h := testHasher(t)

	cases := []string{
		"",
		"plaintext",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=19$m=established$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1,p=1$!!$aGFzaA",
	}
	for _, encoded := range cases {
		if _, err := h.Verify("whatever", encoded); err == nil {
			t.Fatalf("encoded %q: expected an error", encoded)
		}
	}
}

func TestVerifyRejectsBelowFloorParameters(t *testing.T) {
	h := testHasher(t)

	// A stored hash claiming m=1024 is below the floor and must error
	// rather than run a cheap verification.
	weak := "$argon2id$v=19$m=1024,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaA"
	if _, err := h.Verify("whatever", weak); err == nil {
		t.Fatal("below-floor parameters must be rejected")
	}
}

func TestVerifyDecoyDoesNotPanic(t *testing.T) {
	h := testHasher(t)
	h.VerifyDecoy("any input at all")
}

func TestNewRejectsWeakConfig(t *testing.T) {
	cases := []Config{
		{Memory: 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32},
		{Memory: 8192, Time: 0, Parallelism: 1, SaltLength: 16, KeyLength: 32},
		{Memory: 8192, Time: 1, Parallelism: 0, SaltLength: 16, KeyLength: 32},
		{Memory: 8192, Time: 1, Parallelism: 1, SaltLength: 8, KeyLength: 32},
		{Memory: 8192, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 8},
	}
	for i, cfg := range cases {
		if _, err := New(cfg); err == nil {
			t.Fatalf("case %d: expected a config error", i)
		}
	}
}
