// Package identity is the boundary to the credential issuer. The session manager reads the
// current credential pair through Provider and asks it to invalidate that pair on logout.
package identity

import (
	"context"
	"errors"
)

var (
	// ErrNoCredential is returned when no one is signed in.
	ErrNoCredential = errors.New("no current credential")
	// ErrCredentialRevoked is returned when the current credential is on the revocation list.
	ErrCredentialRevoked = errors.New("credential revoked")
)

// Credential is the opaque access/refresh pair plus the principal it belongs to.
type Credential struct {
	AccessToken  string
	RefreshToken string
	UserID       string
}

// Provider exposes the caller's current credential and can invalidate it.
type Provider interface {
	GetCurrentCredential(ctx context.Context) (Credential, error)
	InvalidateCredential(ctx context.Context) error
}

// Anonymous is a Provider with nobody signed in. Operator tooling uses it to manage
// other users' sessions without holding a credential of its own.
type Anonymous struct{}

func (Anonymous) GetCurrentCredential(context.Context) (Credential, error) {
	return Credential{}, ErrNoCredential
}

func (Anonymous) InvalidateCredential(context.Context) error { return nil }
