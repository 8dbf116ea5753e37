// Package authgate is the identity and trust engine for a social platform:
// password credential verification, stateless signed session tokens, the
// TOTP second-factor enrollment/verification state machine, and single-use
// password-reset tokens.
//
// The package is the public surface. It exposes [Engine], [Builder],
// [Config], and value types (Identity, SignInResult, AuditEvent, etc.).
// Reset-token storage, throttling, and audit dispatch live under internal/
// and are never exported.
//
// # Architecture boundaries
//
// authgate owns authentication decisions and token artifacts only. Account
// persistence belongs to the caller through the [Directory] interface, and
// outbound messages (reset mails) go through the [Notifier] interface.
// Post/comment/follower features, HTTP routing, and serialization are
// collaborator concerns; see examples/http-minimal for a binding.
//
// # Concurrency
//
// Engine methods are safe to call from any goroutine after [Builder.Build].
// Token validation is a pure function of the token bytes and the signing
// key: no locks, no Redis round-trip. The only shared mutable state is
// what the Directory and the Redis reset-token store persist, and the
// reset consumed-flag transition is a single compare-and-swap so that
// concurrent redemptions of one token succeed at most once.
package authgate
