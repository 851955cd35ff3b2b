package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"session-lifecycle-manager/internal/security"
)

func newTestProvider(t *testing.T) (*JWTProvider, *MemoryRevoker) {
	t.Helper()
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	rev := NewMemoryRevoker()
	return NewJWTProvider(tokens, rev), rev
}

func TestJWTProvider_NoCredential(t *testing.T) {
	p, _ := newTestProvider(t)
	if _, err := p.GetCurrentCredential(context.Background()); !errors.Is(err, ErrNoCredential) {
		t.Errorf("GetCurrentCredential: want ErrNoCredential, got %v", err)
	}
	if err := p.InvalidateCredential(context.Background()); err != nil {
		t.Errorf("InvalidateCredential with nothing signed in: %v", err)
	}
}

func TestJWTProvider_SignInAndInvalidate(t *testing.T) {
	ctx := context.Background()
	p, rev := newTestProvider(t)

	cred, err := p.SignIn(ctx, "user-1")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if cred.UserID != "user-1" || cred.AccessToken == "" || cred.RefreshToken == "" {
		t.Fatalf("SignIn credential = %+v", cred)
	}
	got, err := p.GetCurrentCredential(ctx)
	if err != nil {
		t.Fatalf("GetCurrentCredential: %v", err)
	}
	if got != cred {
		t.Errorf("GetCurrentCredential = %+v, want %+v", got, cred)
	}

	if err := p.InvalidateCredential(ctx); err != nil {
		t.Fatalf("InvalidateCredential: %v", err)
	}
	if _, err := p.GetCurrentCredential(ctx); !errors.Is(err, ErrNoCredential) {
		t.Errorf("after invalidate: want ErrNoCredential, got %v", err)
	}

	// Re-adopting the invalidated pair must fail.
	if _, err := p.Use(ctx, cred.AccessToken, cred.RefreshToken); !errors.Is(err, ErrCredentialRevoked) {
		t.Errorf("Use revoked pair: want ErrCredentialRevoked, got %v", err)
	}
	if len(rev.m) != 2 {
		t.Errorf("revoked ids = %d, want 2", len(rev.m))
	}
}

func TestJWTProvider_UseRejectsAccessAsRefresh(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestProvider(t)
	cred, err := p.SignIn(ctx, "user-1")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if _, err := p.Use(ctx, cred.AccessToken, cred.AccessToken); !errors.Is(err, security.ErrInvalidToken) {
		t.Errorf("Use with access token as refresh: want ErrInvalidToken, got %v", err)
	}
}

type failingRevoker struct{ NoOpRevoker }

func (failingRevoker) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	return errors.New("revocation list down")
}

func TestJWTProvider_InvalidateForgetsPairOnRevokerError(t *testing.T) {
	ctx := context.Background()
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	p := NewJWTProvider(tokens, failingRevoker{})
	if _, err := p.SignIn(ctx, "user-1"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if err := p.InvalidateCredential(ctx); err == nil {
		t.Error("InvalidateCredential: want error from revoker")
	}
	if _, err := p.GetCurrentCredential(ctx); !errors.Is(err, ErrNoCredential) {
		t.Errorf("pair should be forgotten, got %v", err)
	}
}
