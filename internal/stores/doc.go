// Package stores holds the Redis-backed persistence for password-reset
// tokens. Nothing else in the engine persists state of its own: session
// and pre-auth tokens are stateless, and accounts live in the caller's
// directory.
package stores
