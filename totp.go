package authgate

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"net/url"
	"strconv"
	"time"
)

// 20 bytes = 160 bits of secret entropy, the RFC 4226 recommendation and
// well above the 80-bit floor.
const totpSecretBytes = 20

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// totpManager computes and checks RFC 6238 codes: HMAC-SHA1, 6 digits,
// 30-second steps, with the configured skew of adjacent steps accepted on
// either side of now.
type totpManager struct {
	issuer string
	digits int
	period int
	skew   int
}

func newTOTPManager(cfg TOTPConfig) *totpManager {
	return &totpManager{
		issuer: cfg.Issuer,
		digits: cfg.Digits,
		period: cfg.Period,
		skew:   cfg.Skew,
	}
}

// GenerateSecret returns fresh random secret material and its base32
// rendering for authenticator apps.
func (m *totpManager) GenerateSecret() ([]byte, string, error) {
	raw := make([]byte, totpSecretBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, "", err
	}
	return raw, b32.EncodeToString(raw), nil
}

// ProvisionURI renders the otpauth:// enrollment URI for account under the
// configured issuer.
func (m *totpManager) ProvisionURI(secretBase32, account string) string {
	q := url.Values{}
	q.Set("secret", secretBase32)
	q.Set("issuer", m.issuer)
	q.Set("digits", strconv.Itoa(m.digits))
	q.Set("period", strconv.Itoa(m.period))

	return "otpauth://totp/" + url.PathEscape(m.issuer+":"+account) + "?" + q.Encode()
}

// VerifyCode reports whether code matches the secret at any step within
// the skew window around now. The comparison is constant-time per step and
// the loop always walks the whole window.
func (m *totpManager) VerifyCode(secret []byte, code string, now time.Time) (bool, error) {
	if len(secret) == 0 {
		return false, nil
	}
	if len(code) != m.digits || !allDigits(code) {
		return false, nil
	}

	matched := 0
	base := now.Unix() / int64(m.period)
	for offset := -m.skew; offset <= m.skew; offset++ {
		step := base + int64(offset)
		if step < 0 {
			continue
		}
		want, err := m.codeAt(secret, step)
		if err != nil {
			return false, err
		}
		matched |= subtle.ConstantTimeCompare([]byte(want), []byte(code))
	}

	return matched == 1, nil
}

func (m *totpManager) codeAt(secret []byte, step int64) (string, error) {
	if step < 0 {
		return "", errors.New("negative time step")
	}

	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(step))

	mac := hmac.New(sha1.New, secret)
	_, _ = mac.Write(msg[:])
	sum := mac.Sum(nil)

	// RFC 4226 dynamic truncation.
	offset := sum[len(sum)-1] & 0x0f
	value := uint32(sum[offset]&0x7f)<<24 |
		uint32(sum[offset+1])<<16 |
		uint32(sum[offset+2])<<8 |
		uint32(sum[offset+3])

	mod := uint32(1)
	for i := 0; i < m.digits; i++ {
		mod *= 10
	}

	code := strconv.FormatUint(uint64(value%mod), 10)
	for len(code) < m.digits {
		code = "0" + code
	}
	return code, nil
}

func allDigits(v string) bool {
	for i := 0; i < len(v); i++ {
		if v[i] < '0' || v[i] > '9' {
			return false
		}
	}
	return true
}
