package authgate

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestDefaultConfigValidatesWithKeys(t *testing.T) {
	cfg := testConfig(t)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config with keys must validate: %v", err)
	}
}

func TestConfigValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero session ttl", func(c *Config) { c.Token.SessionTTL = 0 }},
		{"preauth exceeds session", func(c *Config) { c.Token.PreAuthTTL = c.Token.SessionTTL + time.Hour }},
		{"unknown signing method", func(c *Config) { c.Token.SigningMethod = "rsa" }},
		{"missing ed25519 key", func(c *Config) { c.Token.PrivateKey = nil }},
		{"short hs256 key", func(c *Config) {
			c.Token.SigningMethod = "hs256"
			c.Token.PrivateKey = []byte("short")
		}},
		{"excessive leeway", func(c *Config) { c.Token.Leeway = 10 * time.Minute }},
		{"weak argon2 memory", func(c *Config) { c.Password.Memory = 1024 }},
		{"short min password", func(c *Config) { c.Password.MinLength = 4 }},
		{"empty totp issuer", func(c *Config) { c.TOTP.Issuer = "" }},
		{"seven digit totp", func(c *Config) { c.TOTP.Digits = 7 }},
		{"tiny totp period", func(c *Config) { c.TOTP.Period = 5 }},
		{"wide totp skew", func(c *Config) { c.TOTP.Skew = 5 }},
		{"bad reset strategy", func(c *Config) { c.PasswordReset.Strategy = ResetStrategyType(99) }},
		{"zero reset ttl", func(c *Config) { c.PasswordReset.ResetTTL = 0 }},
		{"huge reset ttl", func(c *Config) { c.PasswordReset.ResetTTL = 3 * time.Hour }},
		{"zero reset retention", func(c *Config) { c.PasswordReset.Retention = 0 }},
		{"empty default role", func(c *Config) { c.SignUp.DefaultRole = "" }},
		{"throttle without window", func(c *Config) {
			c.Throttle.Enabled = true
			c.Throttle.SignInWindow = 0
		}},
		{"audit without buffer", func(c *Config) {
			c.Audit.Enabled = true
			c.Audit.BufferSize = 0
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig(t)
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected a validation error")
			}
		})
	}
}

func TestCloneConfigCopiesKeyMaterial(t *testing.T) {
	cfg := testConfig(t)

	clone := cloneConfig(cfg)
	clone.Token.PrivateKey[0] ^= 0xff

	if cfg.Token.PrivateKey[0] == clone.Token.PrivateKey[0] {
		t.Fatal("clone must not alias the original key slice")
	}
}

func TestBuilderRequiresDependencies(t *testing.T) {
	cfg := testConfig(t)

	if _, err := New().WithConfig(cfg).Build(); err == nil {
		t.Fatal("build without directory and redis must fail")
	}
	if _, err := New().WithConfig(cfg).WithDirectory(newMockDirectory()).Build(); err == nil {
		t.Fatal("build without redis must fail")
	}
}

func TestBuilderIsSingleUse(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis failed: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	b := New().
		WithConfig(testConfig(t)).
		WithRedis(rdb).
		WithDirectory(newMockDirectory())

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("first build failed: %v", err)
	}
	defer engine.Close()

	if _, err := b.Build(); err == nil {
		t.Fatal("second build on the same builder must fail")
	}
}

func TestBuilderFailureLeavesBuilderUsable(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis failed: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	b := New().WithConfig(testConfig(t)).WithDirectory(newMockDirectory())
	if _, err := b.Build(); err == nil {
		t.Fatal("expected missing redis error")
	}

	engine, err := b.WithRedis(rdb).Build()
	if err != nil {
		t.Fatalf("build after fixing the wiring failed: %v", err)
	}
	engine.Close()
}
