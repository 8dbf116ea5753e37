package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	algorithmID = "argon2id"

	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
)

// ErrPolicy is returned by Hash when the plaintext fails the minimum
// length policy.
var ErrPolicy = errors.New("password: below minimum length")

// Config holds argon2id cost parameters plus the plaintext policy floor.
type Config struct {
	Memory      uint32 // KiB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	// MinLength is the minimum plaintext length in bytes accepted by
	// Hash. Defaults to 8 when zero.
	MinLength int
}

// Hasher hashes and verifies passwords in PHC string format
// ($argon2id$v=19$m=...,t=...,p=...$salt$hash). Immutable after New.
type Hasher struct {
	config Config
	// decoy is a hash of random material, burned on verification when no
	// account exists so the miss path costs the same as a hit.
	decoy string
}

// New validates cfg and returns a Hasher.
func New(cfg Config) (*Hasher, error) {
	if cfg.MinLength == 0 {
		cfg.MinLength = 8
	}
	switch {
	case cfg.Memory < minMemoryKB:
		return nil, errors.New("password: memory must be >= 8192 KiB")
	case cfg.Time < minTimeCost:
		return nil, errors.New("password: time cost must be >= 1")
	case cfg.Parallelism < minParallelism:
		return nil, errors.New("password: parallelism must be >= 1")
	case cfg.SaltLength < minSaltLength:
		return nil, errors.New("password: salt length must be >= 16")
	case cfg.KeyLength < minKeyLength:
		return nil, errors.New("password: key length must be >= 16")
	case cfg.MinLength < 0:
		return nil, errors.New("password: negative minimum length")
	}

	h := &Hasher{config: cfg}

	var random [24]byte
	if _, err := rand.Read(random[:]); err != nil {
		return nil, err
	}
	decoy, err := h.hash(base64.RawStdEncoding.EncodeToString(random[:]))
	if err != nil {
		return nil, err
	}
	h.decoy = decoy

	return h, nil
}

// Hash applies the policy floor and returns the PHC-encoded hash of
// password under a fresh random salt.
func (h *Hasher) Hash(password string) (string, error) {
	if len(password) < h.config.MinLength {
		return "", ErrPolicy
	}
	return h.hash(password)
}

func (h *Hasher) hash(password string) (string, error) {
	salt := make([]byte, h.config.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(password), salt, h.config.Time, h.config.Memory, h.config.Parallelism, h.config.KeyLength)

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		h.config.Memory,
		h.config.Time,
		h.config.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify recomputes the hash with the parameters embedded in encoded and
// compares in constant time. A malformed encoded hash is an error, not a
// mismatch.
func (h *Hasher) Verify(password, encoded string) (bool, error) {
	memory, timeCost, parallelism, salt, want, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}

	got := argon2.IDKey([]byte(password), salt, timeCost, memory, parallelism, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// VerifyDecoy burns a verification against internal decoy material and
// discards the result. Call it on the no-such-account path so lookup
// misses take as long as password mismatches.
func (h *Hasher) VerifyDecoy(password string) {
	_, _ = h.Verify(password, h.decoy)
}

func parsePHC(encoded string) (memory, timeCost uint32, parallelism uint8, salt, hash []byte, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != algorithmID {
		return 0, 0, 0, nil, nil, errors.New("password: invalid PHC format")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return 0, 0, 0, nil, nil, errors.New("password: unsupported argon2 version")
	}

	var m, t uint32
	var p uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &m, &t, &p); err != nil {
		return 0, 0, 0, nil, nil, errors.New("password: invalid parameters")
	}
	if m < minMemoryKB || t < minTimeCost || p < minParallelism {
		return 0, 0, 0, nil, nil, errors.New("password: parameters below floor")
	}

	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || uint32(len(salt)) < minSaltLength {
		return 0, 0, 0, nil, nil, errors.New("password: invalid salt")
	}
	hash, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || uint32(len(hash)) < minKeyLength {
		return 0, 0, 0, nil, nil, errors.New("password: invalid hash")
	}

	return m, t, p, salt, hash, nil
}
