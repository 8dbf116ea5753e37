package authgate

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/calmisko/authgate/internal/audit"
	"github.com/calmisko/authgate/internal/rate"
	"github.com/calmisko/authgate/internal/stores"
	"github.com/calmisko/authgate/password"
	"github.com/calmisko/authgate/token"
)

// Builder assembles an Engine. A Builder is single-use: Build may be
// called once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	directory Directory
	notifier  Notifier
	auditSink AuditSink

	built bool
}

// New returns a Builder preloaded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration. The config is cloned; the
// caller's copy can be discarded.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis supplies the Redis client backing reset tokens and the
// optional throttles.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithDirectory supplies the account directory. Required.
func (b *Builder) WithDirectory(d Directory) *Builder {
	b.directory = d
	return b
}

// WithNotifier supplies the reset-token delivery hook. Optional; a no-op
// notifier is installed when absent.
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithAuditSink supplies the audit event destination and turns the
// dispatcher on.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = true
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the validation latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, wires the components, and returns a
// ready Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.directory == nil {
		return nil, errors.New("account directory required")
	}
	if b.redis == nil {
		return nil, errors.New("redis client required")
	}

	// -------- TOKEN MANAGER --------
	tokenManager, err := token.NewManager(token.Config{
		SessionTTL:    cfg.Token.SessionTTL,
		PreAuthTTL:    cfg.Token.PreAuthTTL,
		SigningMethod: token.SigningMethod(cfg.Token.SigningMethod),
		PrivateKey:    cfg.Token.PrivateKey,
		PublicKey:     cfg.Token.PublicKey,
		Issuer:        cfg.Token.Issuer,
		Leeway:        cfg.Token.Leeway,
	})
	if err != nil {
		return nil, err
	}

	// -------- PASSWORD HASHER --------
	hasher, err := password.New(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
		MinLength:   cfg.Password.MinLength,
	})
	if err != nil {
		return nil, err
	}

	// -------- RESET STORE --------
	resetStore := stores.NewResetStore(b.redis, cfg.PasswordReset.RedisPrefix, cfg.PasswordReset.Retention)

	// -------- THROTTLES --------
	var limiter *rate.Limiter
	if cfg.Throttle.Enabled {
		limiter = rate.New(b.redis, rate.Config{
			EnableIPThrottle:   cfg.Throttle.EnableIPThrottle,
			MaxSignInAttempts:  cfg.Throttle.MaxSignInAttempts,
			SignInWindow:       cfg.Throttle.SignInWindow,
			MaxResetRequests:   cfg.Throttle.MaxResetRequests,
			ResetRequestWindow: cfg.Throttle.ResetRequestWindow,
			MaxCodeAttempts:    cfg.Throttle.MaxCodeAttempts,
			CodeAttemptWindow:  cfg.Throttle.CodeAttemptWindow,
		})
	}

	// -------- AUDIT --------
	var dispatcher *audit.Dispatcher
	if cfg.Audit.Enabled {
		sink := b.auditSink
		if sink == nil {
			sink = NoOpSink{}
		}
		dispatcher = audit.NewDispatcher(audit.Config{
			Enabled:    true,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, sink)
	}

	notifier := b.notifier
	if notifier == nil {
		notifier = NoOpNotifier{}
	}

	b.built = true

	return &Engine{
		config:     cfg,
		directory:  b.directory,
		notifier:   notifier,
		tokens:     tokenManager,
		passwords:  hasher,
		totp:       newTOTPManager(cfg.TOTP),
		resetStore: resetStore,
		limiter:    limiter,
		audit:      dispatcher,
		metrics:    NewMetrics(cfg.Metrics),
	}, nil
}
