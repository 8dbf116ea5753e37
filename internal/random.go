package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

const (
	resetIDSize     = 16
	resetSecretSize = 32
	resetTokenSize  = resetIDSize + resetSecretSize
)

// ResetID is the public half of a reset token: the store lookup key. It
// carries no proof by itself; proof is the secret's hash match.
type ResetID [resetIDSize]byte

func NewResetID() (ResetID, error) {
	var id ResetID
	_, err := rand.Read(id[:])
	return id, err
}

func (r ResetID) String() string {
	return base64.RawURLEncoding.EncodeToString(r[:])
}

func ParseResetID(s string) (ResetID, error) {
	var id ResetID
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return id, err
	}
	if len(raw) != len(id) {
		return id, errors.New("invalid reset id size")
	}
	copy(id[:], raw)
	return id, nil
}

// NewResetSecret returns 256 bits of fresh secret material.
func NewResetSecret() ([resetSecretSize]byte, error) {
	var secret [resetSecretSize]byte
	_, err := rand.Read(secret[:])
	return secret, err
}

// HashSecret is what the store persists; the plaintext secret only ever
// travels inside the encoded token.
func HashSecret(secret []byte) [32]byte {
	return sha256.Sum256(secret)
}

// EncodeResetToken packs id+secret into the opaque string handed to the
// notification sink.
func EncodeResetToken(id ResetID, secret [resetSecretSize]byte) string {
	var raw [resetTokenSize]byte
	copy(raw[:resetIDSize], id[:])
	copy(raw[resetIDSize:], secret[:])
	return base64.RawURLEncoding.EncodeToString(raw[:])
}

// DecodeResetToken is the inverse of EncodeResetToken. Any length or
// encoding deviation fails; the caller maps that to token-not-found.
func DecodeResetToken(token string) (ResetID, [resetSecretSize]byte, error) {
	var id ResetID
	var secret [resetSecretSize]byte

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return id, secret, err
	}
	if len(raw) != resetTokenSize {
		return id, secret, errors.New("invalid reset token size")
	}
	copy(id[:], raw[:resetIDSize])
	copy(secret[:], raw[resetIDSize:])
	return id, secret, nil
}
