package authgate

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/calmisko/authgate/internal"
	"github.com/calmisko/authgate/internal/rate"
	"github.com/calmisko/authgate/internal/stores"
)

// RequestPasswordReset mints a single-use reset token for the account
// behind the email and hands it to the notifier. The return value never
// reveals whether the email exists: unknown addresses get a small
// randomized delay and then the same nil as the success path.
//
// A new request supersedes any live token for the same account; at most
// one reset token per account is redeemable at any time.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) error {
	if e == nil || e.resetStore == nil {
		return ErrEngineNotReady
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return ErrInvalidInput
	}
	ip := clientIPFromContext(ctx)

	if e.limiter != nil {
		if err := e.limiter.BumpResetRequest(ctx, email, ip); err != nil {
			if errors.Is(err, rate.ErrLimited) {
				return ErrResetThrottled
			}
			return err
		}
	}

	e.metricInc(MetricResetRequested)
	e.emitAudit(ctx, auditEventResetRequested, 0, true, "", map[string]string{"identifier": email})

	account, err := e.directory.AccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrDirectoryNotFound) {
			return sleepEnumerationDelay(ctx)
		}
		return errors.Join(ErrDirectoryUnavailable, err)
	}

	resetID, plaintext, secretHash, err := e.mintResetToken()
	if err != nil {
		return err
	}

	now := e.clock()
	expiresAt := now.Add(e.config.PasswordReset.ResetTTL)
	record := &stores.ResetRecord{
		AccountID:  account.ID,
		SecretHash: secretHash,
		ExpiresAt:  expiresAt.Unix(),
	}
	if err := e.resetStore.Put(ctx, resetID, record, e.config.PasswordReset.ResetTTL); err != nil {
		return errors.Join(ErrResetStoreUnavailable, err)
	}

	e.notifier.PasswordResetIssued(ctx, account, plaintext, expiresAt)
	return nil
}

// RedeemPasswordReset exchanges a live reset token and a replacement
// password for a password update. Redemption is at-most-once: the first
// redeemer consumes the token, and every later attempt observes
// [ErrResetTokenUsed]. A password policy failure leaves the token live.
func (e *Engine) RedeemPasswordReset(ctx context.Context, resetToken, newPassword string) error {
	if e == nil || e.resetStore == nil {
		return ErrEngineNotReady
	}

	resetID, providedHash, err := e.parseResetToken(resetToken)
	if err != nil {
		e.metricInc(MetricResetRejected)
		return ErrResetTokenNotFound
	}

	// Hash first so a policy violation is reported before the token is
	// burnt.
	hash, err := e.passwords.Hash(newPassword)
	if err != nil {
		return err
	}

	record, err := e.resetStore.Consume(ctx, resetID, providedHash, e.clock())
	if err != nil {
		e.metricInc(MetricResetRejected)
		mapped := mapResetStoreError(err)
		e.emitAudit(ctx, auditEventResetRejected, 0, false, mapped.Error(), nil)
		return mapped
	}

	if err := e.directory.UpdatePasswordHash(ctx, record.AccountID, hash); err != nil {
		return errors.Join(ErrDirectoryUnavailable, err)
	}

	e.metricInc(MetricResetRedeemed)
	e.emitAudit(ctx, auditEventResetRedeemed, record.AccountID, true, "", nil)
	return nil
}

// mintResetToken produces (store key, plaintext for delivery, stored
// hash) under the configured strategy.
func (e *Engine) mintResetToken() (string, string, [32]byte, error) {
	var emptyHash [32]byte

	switch e.config.PasswordReset.Strategy {
	case ResetToken:
		resetID, err := internal.NewResetID()
		if err != nil {
			return "", "", emptyHash, err
		}
		secret, err := internal.NewResetSecret()
		if err != nil {
			return "", "", emptyHash, err
		}
		plaintext := internal.EncodeResetToken(resetID, secret)
		return resetID.String(), plaintext, internal.HashSecret(secret[:]), nil

	case ResetUUID:
		resetUUID := uuid.New()
		resetID := internal.ResetID(resetUUID)
		return resetID.String(), resetUUID.String(), internal.HashSecret([]byte(resetUUID.String())), nil

	default:
		return "", "", emptyHash, errors.New("unsupported reset strategy")
	}
}

func (e *Engine) parseResetToken(resetToken string) (string, [32]byte, error) {
	var emptyHash [32]byte

	switch e.config.PasswordReset.Strategy {
	case ResetToken:
		resetID, secret, err := internal.DecodeResetToken(resetToken)
		if err != nil {
			return "", emptyHash, err
		}
		return resetID.String(), internal.HashSecret(secret[:]), nil

	case ResetUUID:
		parsed, err := uuid.Parse(resetToken)
		if err != nil {
			return "", emptyHash, err
		}
		resetID := internal.ResetID(parsed)
		return resetID.String(), internal.HashSecret([]byte(parsed.String())), nil

	default:
		return "", emptyHash, errors.New("unsupported reset strategy")
	}
}

func mapResetStoreError(err error) error {
	switch {
	case errors.Is(err, stores.ErrResetExpired):
		return ErrResetTokenExpired
	case errors.Is(err, stores.ErrResetConsumed):
		return ErrResetTokenUsed
	case errors.Is(err, stores.ErrResetNotFound):
		return ErrResetTokenNotFound
	default:
		return errors.Join(ErrResetStoreUnavailable, err)
	}
}

// sleepEnumerationDelay pads the unknown-email path so its latency
// blends into the minting path.
func sleepEnumerationDelay(ctx context.Context) error {
	minMs := int64(20)
	maxMs := int64(40)
	span := maxMs - minMs + 1

	n, err := rand.Int(rand.Reader, big.NewInt(span))
	if err != nil {
		return err
	}

	delay := time.Duration(minMs+n.Int64()) * time.Millisecond
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
