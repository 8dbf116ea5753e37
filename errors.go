package authgate

import "errors"

var (
	// ErrBadCredentials is returned by SignIn for an unknown username and
	// for a wrong password alike; the two cases are indistinguishable to
	// the caller.
	ErrBadCredentials = errors.New("bad credentials")
	// ErrAccountNotFound is returned when an operation names an account id
	// the directory does not know.
	ErrAccountNotFound = errors.New("account not found")
	// ErrUsernameTaken is returned by SignUp when the username is in use.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrEmailTaken is returned by SignUp when the email is in use.
	ErrEmailTaken = errors.New("email already in use")
	// ErrInvalidInput is returned for structurally invalid request fields,
	// such as an empty username or an unknown role name.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAccountLocked is returned after a correct password for a locked
	// account. Account-state errors are only surfaced once the first
	// factor succeeded, so they never act as an enumeration oracle.
	ErrAccountLocked = errors.New("account locked")
	// ErrAccountDisabled is returned after a correct password for a
	// disabled account.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrAccountExpired is returned after a correct password for an
	// account past its expiry date.
	ErrAccountExpired = errors.New("account expired")
	// ErrCredentialsExpired is returned after a correct password whose
	// credential expiry date has passed.
	ErrCredentialsExpired = errors.New("credentials expired")

	// ErrTokenMalformed is returned for token input that does not parse.
	// No signature work is attempted on malformed input.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenBadSignature is returned when the token signature does not
	// verify against the configured key.
	ErrTokenBadSignature = errors.New("token signature invalid")
	// ErrTokenExpired is returned for a structurally valid, correctly
	// signed token whose expiry has passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenWrongKind is returned when a session token is presented
	// where a pre-auth token is required, or vice versa.
	ErrTokenWrongKind = errors.New("token kind not acceptable here")

	// ErrInvalidCode is returned for a TOTP code that does not match the
	// current or adjacent time step.
	ErrInvalidCode = errors.New("invalid second-factor code")
	// ErrTwoFactorNotEnrolled is returned when a second-factor operation
	// targets an account with no secret on file.
	ErrTwoFactorNotEnrolled = errors.New("second factor not enrolled")

	// ErrResetTokenNotFound is returned when a reset token does not decode
	// or names no live record.
	ErrResetTokenNotFound = errors.New("reset token not found")
	// ErrResetTokenExpired is returned when the reset record exists but
	// its expiry window has passed.
	ErrResetTokenExpired = errors.New("reset token expired")
	// ErrResetTokenUsed is returned when the reset token was already
	// consumed; consumption is terminal.
	ErrResetTokenUsed = errors.New("reset token already used")

	// ErrPasswordPolicy is returned when a new password fails the minimum
	// length policy.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrPasswordReuse is returned by ChangePassword when the new password
	// equals the current one.
	ErrPasswordReuse = errors.New("new password must differ from current password")

	// ErrSignInThrottled is returned when the optional sign-in throttle is
	// enabled and the attempt budget is exhausted.
	ErrSignInThrottled = errors.New("sign-in attempts throttled")
	// ErrResetThrottled is returned when reset requests for an identifier
	// or IP exceed the configured budget.
	ErrResetThrottled = errors.New("password reset requests throttled")
	// ErrCodeAttemptsThrottled is returned when second-factor code
	// attempts exceed the configured budget.
	ErrCodeAttemptsThrottled = errors.New("second-factor attempts throttled")

	// ErrDirectoryUnavailable wraps directory failures that are neither
	// not-found nor duplicate conflicts.
	ErrDirectoryUnavailable = errors.New("directory unavailable")
	// ErrResetStoreUnavailable wraps Redis failures in the reset store.
	ErrResetStoreUnavailable = errors.New("reset store unavailable")
	// ErrEngineNotReady is returned when an Engine method runs before
	// Builder.Build wired its dependencies.
	ErrEngineNotReady = errors.New("engine not initialized")

	// ErrDirectoryNotFound is the sentinel Directory implementations must
	// return for missing accounts.
	ErrDirectoryNotFound = errors.New("directory: account not found")
	// ErrDirectoryDuplicateUsername is the sentinel Directory
	// implementations must return for a username conflict on create.
	ErrDirectoryDuplicateUsername = errors.New("directory: duplicate username")
	// ErrDirectoryDuplicateEmail is the sentinel Directory implementations
	// must return for an email conflict on create.
	ErrDirectoryDuplicateEmail = errors.New("directory: duplicate email")
)
