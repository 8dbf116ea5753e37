package authgate

import (
	"context"
	"time"
)

// Role names used by the engine. SignUp defaults to RoleUser; any other
// requested role must be RoleAdmin.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// AccountRecord is the full account record exchanged with the [Directory].
// The engine reads and writes only the fields it owns: the password hash,
// the lock/enable/expiry flags, and the second-factor state.
type AccountRecord struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Role         string

	Locked   bool
	Disabled bool
	// Zero values mean "never expires".
	AccountExpiresAt    time.Time
	CredentialsExpireAt time.Time

	// TwoFactorSecret holds raw secret material. A non-empty secret with
	// TwoFactorEnabled false is the pending-enrollment state.
	TwoFactorSecret  []byte
	TwoFactorEnabled bool
}

// Identity is the authenticated identity value threaded through the engine
// and embedded into tokens. There is no ambient current-user state; callers
// pass Identity (or a token proving it) explicitly.
type Identity struct {
	ID               int64
	Username         string
	Roles            []string
	TwoFactorEnabled bool
}

// TwoFactorState describes an account's position in the second-factor
// state machine, derived from stored fields: no secret means
// TwoFactorOff, a secret that has never verified means TwoFactorPending,
// and a verified secret means TwoFactorOn.
type TwoFactorState int

const (
	TwoFactorOff TwoFactorState = iota
	TwoFactorPending
	TwoFactorOn
)

func (s TwoFactorState) String() string {
	switch s {
	case TwoFactorPending:
		return "pending"
	case TwoFactorOn:
		return "enabled"
	default:
		return "off"
	}
}

func twoFactorStateOf(account AccountRecord) TwoFactorState {
	switch {
	case len(account.TwoFactorSecret) == 0:
		return TwoFactorOff
	case !account.TwoFactorEnabled:
		return TwoFactorPending
	default:
		return TwoFactorOn
	}
}

func identityOf(account AccountRecord) Identity {
	return Identity{
		ID:               account.ID,
		Username:         account.Username,
		Roles:            rolesOf(account),
		TwoFactorEnabled: twoFactorStateOf(account) == TwoFactorOn,
	}
}

func rolesOf(account AccountRecord) []string {
	if account.Role == "" {
		return []string{RoleUser}
	}
	return []string{account.Role}
}

// CreateAccountInput is passed to [Directory.CreateAccount]. The directory
// assigns the numeric id.
type CreateAccountInput struct {
	Username            string
	Email               string
	PasswordHash        string
	Role                string
	AccountExpiresAt    time.Time
	CredentialsExpireAt time.Time
}

// Directory is the user-directory collaborator the engine reads and writes
// accounts through. Implementations must return [ErrDirectoryNotFound] for
// missing accounts and the duplicate sentinels from CreateAccount; reads
// must observe the latest committed write (the engine tolerates no
// staleness for the two-factor flags).
type Directory interface {
	AccountByID(ctx context.Context, id int64) (AccountRecord, error)
	AccountByUsername(ctx context.Context, username string) (AccountRecord, error)
	AccountByEmail(ctx context.Context, email string) (AccountRecord, error)
	CreateAccount(ctx context.Context, input CreateAccountInput) (AccountRecord, error)
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error

	// SetTwoFactorSecret stores pending secret material (enabled stays
	// false). EnableTwoFactor flips the enabled flag for an account that
	// already has a secret. DisableTwoFactor clears both.
	SetTwoFactorSecret(ctx context.Context, id int64, secret []byte) error
	EnableTwoFactor(ctx context.Context, id int64) error
	DisableTwoFactor(ctx context.Context, id int64) error
}

// Notifier is the notification-sink collaborator. The engine never sends
// mail itself; it hands the artifact to the sink and moves on.
type Notifier interface {
	// PasswordResetIssued receives the plaintext reset token for delivery
	// to the account's email. The token is never persisted in plaintext.
	PasswordResetIssued(ctx context.Context, account AccountRecord, token string, expiresAt time.Time)
}

// NoOpNotifier discards notifications.
type NoOpNotifier struct{}

func (NoOpNotifier) PasswordResetIssued(context.Context, AccountRecord, string, time.Time) {}

// SignInResult is returned by [Engine.SignIn] and
// [Engine.ConfirmTwoFactorSignIn]. Exactly one of SessionToken or
// PreAuthToken is set: PreAuthToken when the account has a verified second
// factor and the code is still outstanding.
type SignInResult struct {
	SessionToken string
	PreAuthToken string

	TwoFactorRequired bool
	Identity          Identity
}

// TwoFactorEnrollment is returned by [Engine.EnrollTwoFactor]. This is the
// only moment the secret leaves the engine in a usable form.
type TwoFactorEnrollment struct {
	SecretBase32 string
	// ProvisionURI is the otpauth:// URI an authenticator app consumes.
	// Rendering it as a QR image is a caller concern.
	ProvisionURI string
}

// SignUpRequest is the input for [Engine.SignUp]. Role is optional and
// defaults to RoleUser.
type SignUpRequest struct {
	Username string
	Email    string
	Password string
	Role     string
}

// SignUpResult summarizes the created account.
type SignUpResult struct {
	AccountID int64
	Username  string
	Email     string
	Role      string
}
