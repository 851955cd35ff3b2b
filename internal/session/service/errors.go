package service

import "errors"

// Error taxonomy. Bool-returning operations log these instead of returning them.
var (
	// ErrStoreUnavailable wraps any session store failure.
	ErrStoreUnavailable = errors.New("session store unavailable")
	// ErrInvalidSession means no active row matches the current credential.
	ErrInvalidSession = errors.New("no active session for current credential")
	// ErrUnauthorizedRevoke means the session does not exist or belongs to another user.
	ErrUnauthorizedRevoke = errors.New("session not owned by user")
	// ErrCredentialInvalidation is returned by SecureLogout when local teardown succeeded
	// but the identity provider could not invalidate the credential.
	ErrCredentialInvalidation = errors.New("credential invalidation failed")
	// ErrStaleRememberedSession marks a remembered session whose last activity is too old.
	// It is a normal expiry, not a failure.
	ErrStaleRememberedSession = errors.New("remembered session is stale")
)
