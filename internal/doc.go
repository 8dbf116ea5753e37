// Package internal holds unexported engine plumbing: reset-token entropy
// and encoding helpers shared by the root package and internal/stores.
package internal
