package authgate

import (
	"context"
	"errors"

	"github.com/calmisko/authgate/token"
)

// ConfirmTwoFactorSignIn exchanges a pre-auth token plus a live code for
// a full session token. The pre-auth token is validated like any other
// token (structure, signature, expiry, then kind); a session token
// presented here fails with [ErrTokenWrongKind].
//
// Pre-auth tokens are not consumed on success. They stay exchangeable
// until their short expiry passes; replay control is the expiry window,
// not single-use bookkeeping.
func (e *Engine) ConfirmTwoFactorSignIn(ctx context.Context, preAuthToken, code string) (*SignInResult, error) {
	if e == nil || e.totp == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.tokens.Parse(preAuthToken, token.KindPreAuth)
	if err != nil {
		return nil, mapTokenError(err)
	}
	accountID, err := claims.AccountID()
	if err != nil {
		return nil, ErrTokenMalformed
	}

	account, err := e.accountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	// The account must still carry a verified second factor; a factor
	// disabled after the pre-auth token was minted invalidates the
	// exchange.
	if twoFactorStateOf(account) != TwoFactorOn {
		return nil, ErrTwoFactorNotEnrolled
	}
	if stateErr := e.accountStateError(account); stateErr != nil {
		return nil, stateErr
	}

	if err := e.checkCode(ctx, account, code); err != nil {
		return nil, err
	}

	identity := identityOf(account)
	session, err := e.tokens.Issue(account.ID, account.Username, identity.Roles, token.KindSession, e.clock())
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricSignInSuccess)
	e.emitAudit(ctx, auditEventSignInSuccess, account.ID, true, "", map[string]string{"factor": "totp"})

	return &SignInResult{
		SessionToken: session,
		Identity:     identity,
	}, nil
}

// mapTokenError translates token package sentinels into the engine's
// taxonomy.
func mapTokenError(err error) error {
	switch {
	case errors.Is(err, token.ErrBadSignature):
		return ErrTokenBadSignature
	case errors.Is(err, token.ErrExpired):
		return ErrTokenExpired
	case errors.Is(err, token.ErrWrongKind):
		return ErrTokenWrongKind
	default:
		return ErrTokenMalformed
	}
}
