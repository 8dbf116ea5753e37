package authgate

import (
	"errors"
	"time"
)

// Config is the full engine configuration. Fill what you need, leave the
// rest at the defaults installed by the builder. A Config is treated as
// immutable after Build.
type Config struct {
	Token         TokenConfig
	Password      PasswordConfig
	TOTP          TOTPConfig
	PasswordReset PasswordResetConfig
	SignUp        SignUpConfig
	Throttle      ThrottleConfig
	Audit         AuditConfig
	Metrics       MetricsConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig controls the signed tokens the engine mints. Two kinds
// exist: full session tokens and short-lived pre-auth tokens issued when
// a sign-in still owes a second factor.
type TokenConfig struct {
	SessionTTL    time.Duration
	PreAuthTTL    time.Duration
	SigningMethod string // "ed25519" (default), "hs256" optional
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig tunes Argon2id and the minimum accepted password
// length.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	MinLength   int
}

/*
====================================
TOTP CONFIG
====================================
*/

// TOTPConfig controls time-based one-time codes. Codes are SHA-1,
// six digits, 30 second steps unless overridden.
type TOTPConfig struct {
	Issuer string
	Digits int
	Period int
	Skew   int
}

/*
====================================
PASSWORD RESET CONFIG
====================================
*/

// ResetStrategyType selects how reset tokens are minted.
type ResetStrategyType int

const (
	// ResetToken mints an opaque id+secret token; only a hash of the
	// secret is stored.
	ResetToken ResetStrategyType = iota
	// ResetUUID mints a random UUID as the secret.
	ResetUUID
)

// PasswordResetConfig controls the single-use reset token flow.
type PasswordResetConfig struct {
	Strategy    ResetStrategyType
	ResetTTL    time.Duration
	Retention   time.Duration
	RedisPrefix string
}

/*
====================================
SIGN UP CONFIG
====================================
*/

// SignUpConfig controls new account creation.
type SignUpConfig struct {
	DefaultRole         string
	AccountLifetime     time.Duration
	CredentialsLifetime time.Duration
}

/*
====================================
THROTTLE CONFIG
====================================
*/

// ThrottleConfig enables the optional Redis fixed-window throttles. All
// throttling is off by default; the engine stays correct without it.
type ThrottleConfig struct {
	Enabled          bool
	EnableIPThrottle bool

	MaxSignInAttempts  int
	SignInWindow       time.Duration
	MaxResetRequests   int
	ResetRequestWindow time.Duration
	MaxCodeAttempts    int
	CodeAttemptWindow  time.Duration
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the configuration the builder starts from.
// Token key material must still be supplied before Build.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			SessionTTL:    8 * time.Hour,
			PreAuthTTL:    5 * time.Minute,
			SigningMethod: "ed25519",
			Issuer:        "authgate",
			Leeway:        30 * time.Second,
		},
		Password: PasswordConfig{
			Memory:      65536,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
			MinLength:   8,
		},
		TOTP: TOTPConfig{
			Issuer: "authgate",
			Digits: 6,
			Period: 30,
			Skew:   1,
		},
		PasswordReset: PasswordResetConfig{
			Strategy:    ResetToken,
			ResetTTL:    30 * time.Minute,
			Retention:   1 * time.Hour,
			RedisPrefix: "agr",
		},
		SignUp: SignUpConfig{
			DefaultRole:         RoleUser,
			AccountLifetime:     365 * 24 * time.Hour,
			CredentialsLifetime: 365 * 24 * time.Hour,
		},
		Throttle: ThrottleConfig{
			Enabled:            false,
			EnableIPThrottle:   false,
			MaxSignInAttempts:  10,
			SignInWindow:       15 * time.Minute,
			MaxResetRequests:   5,
			ResetRequestWindow: 1 * time.Hour,
			MaxCodeAttempts:    5,
			CodeAttemptWindow:  5 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.PrivateKey = cloneBytes(cfg.Token.PrivateKey)
	out.Token.PublicKey = cloneBytes(cfg.Token.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks the configuration for internal consistency. Build
// calls it; callers can also run it early to fail fast.
func (c *Config) Validate() error {
	// Token
	if c.Token.SessionTTL <= 0 {
		return errors.New("Token SessionTTL must be > 0")
	}
	if c.Token.PreAuthTTL <= 0 {
		return errors.New("Token PreAuthTTL must be > 0")
	}
	if c.Token.PreAuthTTL > c.Token.SessionTTL {
		return errors.New("Token PreAuthTTL must not exceed SessionTTL")
	}
	if c.Token.SigningMethod != "ed25519" && c.Token.SigningMethod != "hs256" {
		return errors.New("unsupported Token signing method")
	}
	if c.Token.SigningMethod == "ed25519" && len(c.Token.PrivateKey) == 0 {
		return errors.New("ed25519 requires PrivateKey")
	}
	if c.Token.SigningMethod == "ed25519" && len(c.Token.PublicKey) == 0 {
		return errors.New("ed25519 requires PublicKey")
	}
	if c.Token.SigningMethod == "hs256" && len(c.Token.PrivateKey) < 32 {
		return errors.New("hs256 requires PrivateKey of at least 32 bytes")
	}
	if c.Token.Leeway < 0 || c.Token.Leeway > 2*time.Minute {
		return errors.New("Token Leeway must be between 0 and 2m")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MinLength < 8 {
		return errors.New("Password MinLength must be >= 8")
	}

	// TOTP
	if c.TOTP.Issuer == "" {
		return errors.New("TOTP Issuer is required")
	}
	if c.TOTP.Digits != 6 && c.TOTP.Digits != 8 {
		return errors.New("TOTP Digits must be 6 or 8")
	}
	if c.TOTP.Period < 15 || c.TOTP.Period > 60 {
		return errors.New("TOTP Period must be between 15 and 60 seconds")
	}
	if c.TOTP.Skew < 0 || c.TOTP.Skew > 2 {
		return errors.New("TOTP Skew must be between 0 and 2")
	}

	// Password Reset
	switch c.PasswordReset.Strategy {
	case ResetToken, ResetUUID:
		// valid
	default:
		return errors.New("PasswordReset Strategy is invalid")
	}
	if c.PasswordReset.ResetTTL <= 0 {
		return errors.New("PasswordReset ResetTTL must be > 0")
	}
	if c.PasswordReset.ResetTTL > 2*time.Hour {
		return errors.New("PasswordReset ResetTTL must be <= 2h")
	}
	if c.PasswordReset.Retention <= 0 {
		return errors.New("PasswordReset Retention must be > 0")
	}

	// Sign Up
	if c.SignUp.DefaultRole == "" {
		return errors.New("SignUp DefaultRole is required")
	}
	if c.SignUp.AccountLifetime <= 0 {
		return errors.New("SignUp AccountLifetime must be > 0")
	}
	if c.SignUp.CredentialsLifetime <= 0 {
		return errors.New("SignUp CredentialsLifetime must be > 0")
	}

	// Throttle
	if c.Throttle.Enabled {
		if c.Throttle.MaxSignInAttempts > 0 && c.Throttle.SignInWindow <= 0 {
			return errors.New("Throttle SignInWindow must be > 0 when sign-in throttling is enabled")
		}
		if c.Throttle.MaxResetRequests > 0 && c.Throttle.ResetRequestWindow <= 0 {
			return errors.New("Throttle ResetRequestWindow must be > 0 when reset throttling is enabled")
		}
		if c.Throttle.MaxCodeAttempts > 0 && c.Throttle.CodeAttemptWindow <= 0 {
			return errors.New("Throttle CodeAttemptWindow must be > 0 when code throttling is enabled")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
