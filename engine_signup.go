package authgate

import (
	"context"
	"errors"
	"strings"
)

// SignUp registers a new account. Username and email must be unused;
// violations surface as [ErrUsernameTaken] or [ErrEmailTaken]. The
// password goes through the same policy and hashing as every other
// write path. New accounts start with the second factor off.
func (e *Engine) SignUp(ctx context.Context, req SignUpRequest) (*SignUpResult, error) {
	if e == nil || e.passwords == nil {
		return nil, ErrEngineNotReady
	}

	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if username == "" || email == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidInput
	}

	role := req.Role
	if role == "" {
		role = e.config.SignUp.DefaultRole
	}
	if role != RoleUser && role != RoleAdmin {
		return nil, ErrInvalidInput
	}

	hash, err := e.passwords.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := e.clock()
	account, err := e.directory.CreateAccount(ctx, CreateAccountInput{
		Username:            username,
		Email:               email,
		PasswordHash:        hash,
		Role:                role,
		AccountExpiresAt:    now.Add(e.config.SignUp.AccountLifetime),
		CredentialsExpireAt: now.Add(e.config.SignUp.CredentialsLifetime),
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrDirectoryDuplicateUsername):
			e.metricInc(MetricSignUpDuplicate)
			e.emitAudit(ctx, auditEventSignUpDuplicate, 0, false, "username_taken", map[string]string{"identifier": username})
			return nil, ErrUsernameTaken
		case errors.Is(err, ErrDirectoryDuplicateEmail):
			e.metricInc(MetricSignUpDuplicate)
			e.emitAudit(ctx, auditEventSignUpDuplicate, 0, false, "email_taken", map[string]string{"identifier": username})
			return nil, ErrEmailTaken
		default:
			return nil, errors.Join(ErrDirectoryUnavailable, err)
		}
	}

	e.metricInc(MetricSignUpSuccess)
	e.emitAudit(ctx, auditEventSignUpSuccess, account.ID, true, "", map[string]string{"identifier": username})

	return &SignUpResult{
		AccountID: account.ID,
		Username:  account.Username,
		Email:     account.Email,
		Role:      account.Role,
	}, nil
}
