package authgate

import (
	"context"
	"time"

	"github.com/calmisko/authgate/token"
)

// ValidateSession checks a session token and returns the identity it
// proves. Validation is stateless: structure, signature, expiry, then
// kind, with no directory read. A pre-auth token presented here fails
// with [ErrTokenWrongKind].
func (e *Engine) ValidateSession(ctx context.Context, sessionToken string) (*Identity, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}
	start := time.Now()

	claims, err := e.tokens.Parse(sessionToken, token.KindSession)
	if err != nil {
		e.metricInc(MetricValidateFailure)
		return nil, mapTokenError(err)
	}
	accountID, err := claims.AccountID()
	if err != nil {
		e.metricInc(MetricValidateFailure)
		return nil, ErrTokenMalformed
	}

	e.metricInc(MetricValidateSuccess)
	if e.metrics != nil {
		e.metrics.Observe(MetricValidateLatency, time.Since(start))
	}

	return &Identity{
		ID:       accountID,
		Username: claims.Username,
		Roles:    claims.Roles,
	}, nil
}

// CurrentIdentity is ValidateSession under the name request handlers
// tend to reach for.
func (e *Engine) CurrentIdentity(ctx context.Context, sessionToken string) (*Identity, error) {
	return e.ValidateSession(ctx, sessionToken)
}
