// Package token encodes and validates the signed, self-contained tokens
// the engine hands out: session tokens proving a completed login and
// short-lived pre-auth tokens proving first-factor success only.
//
// Validation order is fixed: structural parse, then signature, then
// expiry, then kind. A token that fails an earlier check never reaches a
// later one, and claims are only readable from a fully validated token.
//
// # What this package must NOT do
//
//   - Touch Redis or the directory (tokens are stateless by contract).
//   - Accept a token of one kind where another is required.
package token
