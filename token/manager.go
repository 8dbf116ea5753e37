package token

import (
	"crypto/ed25519"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Kind discriminates what a token proves. A session token proves a
// completed login; a pre-auth token proves first-factor success only and
// is valid solely for submitting a second-factor code.
type Kind string

const (
	KindSession Kind = "session"
	KindPreAuth Kind = "preauth"
)

// SigningMethod selects the signature algorithm.
type SigningMethod string

const (
	MethodEd25519 SigningMethod = "ed25519"
	MethodHS256   SigningMethod = "hs256"
)

// Validation failure sentinels, ordered by check: structure first, then
// signature, then expiry. Parse never reports a later failure for input
// that already failed an earlier check.
var (
	ErrMalformed    = errors.New("token: malformed")
	ErrBadSignature = errors.New("token: bad signature")
	ErrExpired      = errors.New("token: expired")
	ErrWrongKind    = errors.New("token: wrong kind")
)

// Config holds the signing key material and per-kind TTLs. It is loaded
// once at engine construction and treated as immutable afterwards.
type Config struct {
	SessionTTL time.Duration
	PreAuthTTL time.Duration

	SigningMethod SigningMethod
	// PrivateKey is the HS256 secret, or an Ed25519 private key (raw or
	// PEM). PublicKey is only consulted for Ed25519 verification.
	PrivateKey []byte
	PublicKey  []byte

	Issuer string
	Leeway time.Duration
}

// Claims is the decoded, verified payload of a token. Callers must not act
// on any field before Parse has succeeded.
type Claims struct {
	Username  string   `json:"name"`
	Roles     []string `json:"roles"`
	TokenKind Kind     `json:"kind"`
	jwt.RegisteredClaims
}

// AccountID returns the numeric subject.
func (c *Claims) AccountID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, ErrMalformed
	}
	return id, nil
}

// Manager issues and validates signed tokens. A Manager is immutable and
// safe for concurrent use.
type Manager struct {
	config Config
}

// NewManager validates cfg and returns a Manager. Both TTLs must be
// positive and the pre-auth TTL must not exceed the session TTL.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.SessionTTL <= 0 || cfg.PreAuthTTL <= 0 {
		return nil, errors.New("token: TTLs must be positive")
	}
	if cfg.PreAuthTTL > cfg.SessionTTL {
		return nil, errors.New("token: pre-auth TTL exceeds session TTL")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("token: invalid leeway")
	}

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) < 32 {
			return nil, errors.New("token: hs256 requires a key of at least 32 bytes")
		}
	case MethodEd25519:
		if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
			return nil, err
		}
		if len(cfg.PublicKey) > 0 {
			if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
				return nil, err
			}
		}
	default:
		return nil, errors.New("token: unsupported signing method")
	}

	return &Manager{config: cfg}, nil
}

// Issue signs a token of the given kind for the subject. The TTL follows
// the kind: SessionTTL for session tokens, PreAuthTTL for pre-auth
// tokens. now is injectable for tests.
func (m *Manager) Issue(subject int64, username string, roles []string, kind Kind, now time.Time) (string, error) {
	ttl := m.config.SessionTTL
	if kind == KindPreAuth {
		ttl = m.config.PreAuthTTL
	}

	claims := Claims{
		Username:  username,
		Roles:     roles,
		TokenKind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(subject, 10),
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	tok := jwt.NewWithClaims(m.signingMethod(), claims)
	key, err := m.signKey()
	if err != nil {
		return "", err
	}
	return tok.SignedString(key)
}

// Parse validates the token and requires it to carry the given kind.
// Failures map to ErrMalformed, ErrBadSignature, ErrExpired, or
// ErrWrongKind; the kind check runs last so a forged or expired token
// never reports its kind.
func (m *Manager) Parse(tokenStr string, want Kind) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.signingMethod().Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return m.verifyKey()
	})
	if err != nil {
		return nil, mapParseError(err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrMalformed
	}
	if _, err := claims.AccountID(); err != nil {
		return nil, ErrMalformed
	}
	if claims.TokenKind != want {
		return nil, ErrWrongKind
	}
	return claims, nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrBadSignature
	case errors.Is(err, jwt.ErrTokenExpired),
		errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrExpired
	default:
		return ErrMalformed
	}
}

func (m *Manager) signingMethod() jwt.SigningMethod {
	if m.config.SigningMethod == MethodHS256 {
		return jwt.SigningMethodHS256
	}
	return jwt.SigningMethodEdDSA
}

func (m *Manager) signKey() (interface{}, error) {
	if m.config.SigningMethod == MethodHS256 {
		return m.config.PrivateKey, nil
	}
	return parseEdPrivateKey(m.config.PrivateKey)
}

func (m *Manager) verifyKey() (interface{}, error) {
	if m.config.SigningMethod == MethodHS256 {
		return m.config.PrivateKey, nil
	}
	if len(m.config.PublicKey) > 0 {
		return parseEdPublicKey(m.config.PublicKey)
	}
	priv, err := parseEdPrivateKey(m.config.PrivateKey)
	if err != nil {
		return nil, err
	}
	return priv.Public(), nil
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("token: invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("token: invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("token: invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("token: invalid ed25519 public key type")
	}
	return edKey, nil
}
