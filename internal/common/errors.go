// Package common defines shared constants and sentinel errors used across
// the famwealth client layers. Callers should use errors.Is to match these
// values; most of them arrive wrapped with request-specific detail.
package common

import "errors"

var (
	// Login errors.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMalformedResponse  = errors.New("malformed response")

	// Persisted session errors. ErrCorruptPersistedState is only ever logged:
	// the store recovers by clearing itself.
	ErrCorruptPersistedState = errors.New("corrupt persisted session")

	// Token lifecycle errors.
	ErrRefreshRejected = errors.New("refresh credential rejected")
	ErrNoSession       = errors.New("no active session")
	ErrSessionChanged  = errors.New("session changed during refresh")

	// Transport-level errors.
	ErrNetwork      = errors.New("network error")
	ErrUnauthorized = errors.New("unauthorized")
)
