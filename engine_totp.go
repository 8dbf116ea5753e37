package authgate

import (
	"context"
	"errors"

	"github.com/calmisko/authgate/internal/rate"
)

// EnrollTwoFactor generates fresh secret material for the account and
// stores it in the pending state. The secret and provisioning URI are
// returned exactly once; until a code is confirmed via
// [Engine.ConfirmTwoFactorEnrollment], sign-in behavior is unchanged.
// Re-enrolling while pending replaces the stored secret.
func (e *Engine) EnrollTwoFactor(ctx context.Context, accountID int64) (*TwoFactorEnrollment, error) {
	if e == nil || e.totp == nil {
		return nil, ErrEngineNotReady
	}

	account, err := e.accountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	secret, secretBase32, err := e.totp.GenerateSecret()
	if err != nil {
		return nil, err
	}
	if err := e.directory.SetTwoFactorSecret(ctx, account.ID, secret); err != nil {
		return nil, errors.Join(ErrDirectoryUnavailable, err)
	}

	e.metricInc(MetricTwoFactorEnrolled)
	e.emitAudit(ctx, auditEventTwoFactorEnrolled, account.ID, true, "", nil)

	return &TwoFactorEnrollment{
		SecretBase32: secretBase32,
		ProvisionURI: e.totp.ProvisionURI(secretBase32, account.Username),
	}, nil
}

// ConfirmTwoFactorEnrollment proves possession of the pending secret
// with a live code and flips the account to the enabled state. A wrong
// code leaves the account pending; the stored secret is not discarded.
func (e *Engine) ConfirmTwoFactorEnrollment(ctx context.Context, accountID int64, code string) error {
	if e == nil || e.totp == nil {
		return ErrEngineNotReady
	}

	account, err := e.accountByID(ctx, accountID)
	if err != nil {
		return err
	}
	if twoFactorStateOf(account) == TwoFactorOff {
		return ErrTwoFactorNotEnrolled
	}

	if err := e.checkCode(ctx, account, code); err != nil {
		return err
	}
	if account.TwoFactorEnabled {
		// Already confirmed; a second valid code is a no-op.
		return nil
	}

	if err := e.directory.EnableTwoFactor(ctx, account.ID); err != nil {
		return errors.Join(ErrDirectoryUnavailable, err)
	}

	e.metricInc(MetricTwoFactorConfirmed)
	e.emitAudit(ctx, auditEventTwoFactorConfirmed, account.ID, true, "", nil)
	return nil
}

// DisableTwoFactor clears the account's secret material and enabled
// flag. It applies to both the pending and the enabled state; subsequent
// sign-ins complete on the password alone.
func (e *Engine) DisableTwoFactor(ctx context.Context, accountID int64) error {
	if e == nil {
		return ErrEngineNotReady
	}

	account, err := e.accountByID(ctx, accountID)
	if err != nil {
		return err
	}
	if twoFactorStateOf(account) == TwoFactorOff {
		return ErrTwoFactorNotEnrolled
	}

	if err := e.directory.DisableTwoFactor(ctx, account.ID); err != nil {
		return errors.Join(ErrDirectoryUnavailable, err)
	}

	e.metricInc(MetricTwoFactorDisabled)
	e.emitAudit(ctx, auditEventTwoFactorDisabled, account.ID, true, "", nil)
	return nil
}

// TwoFactorStatus reports the account's position in the second-factor
// state machine.
func (e *Engine) TwoFactorStatus(ctx context.Context, accountID int64) (TwoFactorState, error) {
	if e == nil {
		return TwoFactorOff, ErrEngineNotReady
	}
	account, err := e.accountByID(ctx, accountID)
	if err != nil {
		return TwoFactorOff, err
	}
	return twoFactorStateOf(account), nil
}

// checkCode verifies a one-time code against the account's stored
// secret, with the optional attempt throttle in front.
func (e *Engine) checkCode(ctx context.Context, account AccountRecord, code string) error {
	if e.limiter != nil {
		if err := e.limiter.BumpCodeAttempt(ctx, account.ID); err != nil {
			if errors.Is(err, rate.ErrLimited) {
				e.metricInc(MetricCodeThrottled)
				e.emitAudit(ctx, auditEventCodeThrottled, account.ID, false, "throttled", nil)
				return ErrCodeAttemptsThrottled
			}
			return err
		}
	}

	ok, err := e.totp.VerifyCode(account.TwoFactorSecret, code, e.clock())
	if err != nil {
		return err
	}
	if !ok {
		e.metricInc(MetricCodeFailure)
		e.emitAudit(ctx, auditEventCodeFailure, account.ID, false, "invalid_code", nil)
		return ErrInvalidCode
	}

	if e.limiter != nil {
		_ = e.limiter.ResetCodeAttempts(ctx, account.ID)
	}
	e.metricInc(MetricCodeSuccess)
	e.emitAudit(ctx, auditEventCodeSuccess, account.ID, true, "", nil)
	return nil
}

func (e *Engine) accountByID(ctx context.Context, accountID int64) (AccountRecord, error) {
	account, err := e.directory.AccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrDirectoryNotFound) {
			return AccountRecord{}, ErrAccountNotFound
		}
		return AccountRecord{}, errors.Join(ErrDirectoryUnavailable, err)
	}
	return account, nil
}
