// Package password hashes credentials with argon2id in PHC string format
// and verifies them in constant time. The decoy facility lets callers make
// unknown-username sign-ins cost the same as wrong-password ones.
package password
