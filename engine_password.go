package authgate

import (
	"context"
	"errors"
)

// ChangePassword rotates an authenticated account's password. The
// current password must verify first, and the replacement must differ
// from it; both checks run before anything is written.
func (e *Engine) ChangePassword(ctx context.Context, accountID int64, oldPassword, newPassword string) error {
	if e == nil || e.passwords == nil {
		return ErrEngineNotReady
	}

	account, err := e.accountByID(ctx, accountID)
	if err != nil {
		return err
	}

	ok, err := e.passwords.Verify(oldPassword, account.PasswordHash)
	if err != nil || !ok {
		e.emitAudit(ctx, auditEventPasswordChanged, account.ID, false, "invalid_old_password", nil)
		return ErrBadCredentials
	}

	if reused, err := e.passwords.Verify(newPassword, account.PasswordHash); err == nil && reused {
		e.emitAudit(ctx, auditEventPasswordChanged, account.ID, false, "password_reuse", nil)
		return ErrPasswordReuse
	}

	return e.setPassword(ctx, account, newPassword)
}

// UpdatePassword replaces an account's password without checking the
// old one. Meant for administrative rotation; interactive flows go
// through ChangePassword. Session tokens issued before the update stay
// valid until their natural expiry.
func (e *Engine) UpdatePassword(ctx context.Context, accountID int64, newPassword string) error {
	if e == nil || e.passwords == nil {
		return ErrEngineNotReady
	}

	account, err := e.accountByID(ctx, accountID)
	if err != nil {
		return err
	}
	return e.setPassword(ctx, account, newPassword)
}

// setPassword hashes and stores a replacement password. Shared by
// ChangePassword, UpdatePassword, and the reset redemption path.
func (e *Engine) setPassword(ctx context.Context, account AccountRecord, newPassword string) error {
	hash, err := e.passwords.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := e.directory.UpdatePasswordHash(ctx, account.ID, hash); err != nil {
		return errors.Join(ErrDirectoryUnavailable, err)
	}

	e.metricInc(MetricPasswordChanged)
	e.emitAudit(ctx, auditEventPasswordChanged, account.ID, true, "", nil)
	return nil
}
