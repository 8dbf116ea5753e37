package authgate

import (
	"context"
	"errors"

	"github.com/calmisko/authgate/internal/rate"
	"github.com/calmisko/authgate/token"
)

// SignIn checks the credential pair and, when it holds, either issues a
// session token or, for an account with a verified second factor, a
// short-lived pre-auth token to be exchanged via
// [Engine.ConfirmTwoFactorSignIn].
//
// An unknown username and a wrong password both return
// [ErrBadCredentials]; the caller cannot tell which occurred. Account
// state problems (locked, disabled, expired) surface only after the
// password verified, so they never become an enumeration oracle either.
func (e *Engine) SignIn(ctx context.Context, username, passwd string) (*SignInResult, error) {
	if e == nil || e.passwords == nil {
		return nil, ErrEngineNotReady
	}
	ip := clientIPFromContext(ctx)

	if e.limiter != nil {
		if err := e.limiter.CheckSignIn(ctx, username, ip); err != nil {
			if errors.Is(err, rate.ErrLimited) {
				e.metricInc(MetricSignInThrottled)
				e.emitAudit(ctx, auditEventSignInThrottled, 0, false, "throttled", map[string]string{"identifier": username})
				return nil, ErrSignInThrottled
			}
			return nil, err
		}
	}

	if username == "" || passwd == "" {
		return nil, e.failSignIn(ctx, username, ip, 0, "empty_input")
	}

	account, err := e.directory.AccountByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrDirectoryNotFound) {
			// Burn a verification so unknown usernames cost the same as
			// wrong passwords.
			e.passwords.VerifyDecoy(passwd)
			return nil, e.failSignIn(ctx, username, ip, 0, "unknown_account")
		}
		return nil, errors.Join(ErrDirectoryUnavailable, err)
	}

	ok, err := e.passwords.Verify(passwd, account.PasswordHash)
	if err != nil || !ok {
		return nil, e.failSignIn(ctx, username, ip, account.ID, "password_mismatch")
	}

	if stateErr := e.accountStateError(account); stateErr != nil {
		e.metricInc(MetricSignInFailure)
		e.emitAudit(ctx, auditEventSignInFailure, account.ID, false, stateErr.Error(), map[string]string{"identifier": username, "reason": "account_state"})
		return nil, stateErr
	}

	if e.limiter != nil {
		// Counter reset failures must not block a valid sign-in.
		_ = e.limiter.ResetSignIn(ctx, username, ip)
	}

	identity := identityOf(account)

	if twoFactorStateOf(account) == TwoFactorOn {
		preAuth, err := e.tokens.Issue(account.ID, account.Username, identity.Roles, token.KindPreAuth, e.clock())
		if err != nil {
			return nil, err
		}
		e.metricInc(MetricPreAuthIssued)
		e.emitAudit(ctx, auditEventPreAuthIssued, account.ID, true, "", nil)
		return &SignInResult{
			PreAuthToken:      preAuth,
			TwoFactorRequired: true,
			Identity:          identity,
		}, nil
	}

	session, err := e.tokens.Issue(account.ID, account.Username, identity.Roles, token.KindSession, e.clock())
	if err != nil {
		return nil, err
	}
	e.metricInc(MetricSignInSuccess)
	e.emitAudit(ctx, auditEventSignInSuccess, account.ID, true, "", nil)
	return &SignInResult{
		SessionToken: session,
		Identity:     identity,
	}, nil
}

func (e *Engine) failSignIn(ctx context.Context, username, ip string, accountID int64, reason string) error {
	if e.limiter != nil {
		if err := e.limiter.RecordSignInFailure(ctx, username, ip); err != nil && errors.Is(err, rate.ErrLimited) {
			e.metricInc(MetricSignInThrottled)
			e.emitAudit(ctx, auditEventSignInThrottled, accountID, false, "throttled", map[string]string{"identifier": username})
			return ErrSignInThrottled
		}
	}
	e.metricInc(MetricSignInFailure)
	e.emitAudit(ctx, auditEventSignInFailure, accountID, false, "bad_credentials", map[string]string{
		"identifier": username,
		"reason":     reason,
	})
	return ErrBadCredentials
}

// accountStateError maps stored account flags to the sentinel surfaced
// after a correct password. Check order: locked, disabled, account
// expiry, credential expiry.
func (e *Engine) accountStateError(account AccountRecord) error {
	now := e.clock()
	switch {
	case account.Locked:
		return ErrAccountLocked
	case account.Disabled:
		return ErrAccountDisabled
	case !account.AccountExpiresAt.IsZero() && !account.AccountExpiresAt.After(now):
		return ErrAccountExpired
	case !account.CredentialsExpireAt.IsZero() && !account.CredentialsExpireAt.After(now):
		return ErrCredentialsExpired
	default:
		return nil
	}
}
