// Package middleware exposes HTTP adapters over authgate.Engine session
// validation.
//
// # Guards
//
//   - [RequireSession] - bearer-token session validation.
//   - [RequireRole] - role check layered on a validated identity.
//
// Each guard reads the Authorization header, calls
// Engine.ValidateSession, and injects the proven identity into the
// request context.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself.
//
// # What this package must NOT do
//
//   - Parse or create tokens directly (delegates to Engine).
//   - Access Redis or the account directory.
//   - Make authorization decisions beyond pass/reject.
package middleware
