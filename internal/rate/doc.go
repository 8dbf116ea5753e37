// Package rate implements fixed-window Redis counters for sign-in
// attempts, password-reset requests, and second-factor code attempts.
package rate
