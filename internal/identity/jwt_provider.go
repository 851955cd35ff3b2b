package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"session-lifecycle-manager/internal/security"
)

// JWTProvider holds the credential pair of the signed-in principal and validates it
// against a TokenProvider and a Revoker.
type JWTProvider struct {
	tokens  *security.TokenProvider
	revoker Revoker

	mu      sync.Mutex
	current *Credential
}

// NewJWTProvider returns a JWTProvider. A nil revoker disables revocation checks.
func NewJWTProvider(tokens *security.TokenProvider, revoker Revoker) *JWTProvider {
	if revoker == nil {
		revoker = NoOpRevoker{}
	}
	return &JWTProvider{tokens: tokens, revoker: revoker}
}

// SignIn issues a fresh pair for userID and makes it current.
func (p *JWTProvider) SignIn(ctx context.Context, userID string) (Credential, error) {
	access, err := p.tokens.Issue(userID, security.KindAccess)
	if err != nil {
		return Credential{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := p.tokens.Issue(userID, security.KindRefresh)
	if err != nil {
		return Credential{}, fmt.Errorf("issue refresh token: %w", err)
	}
	cred := Credential{AccessToken: access.Token, RefreshToken: refresh.Token, UserID: userID}
	p.mu.Lock()
	p.current = &cred
	p.mu.Unlock()
	return cred, nil
}

// Use adopts an externally issued pair. The refresh token must be valid and not revoked.
func (p *JWTProvider) Use(ctx context.Context, accessToken, refreshToken string) (Credential, error) {
	claims, err := p.checkRefresh(ctx, refreshToken)
	if err != nil {
		return Credential{}, err
	}
	cred := Credential{AccessToken: accessToken, RefreshToken: refreshToken, UserID: claims.Subject}
	p.mu.Lock()
	p.current = &cred
	p.mu.Unlock()
	return cred, nil
}

// GetCurrentCredential returns the current pair after re-checking the refresh token.
func (p *JWTProvider) GetCurrentCredential(ctx context.Context) (Credential, error) {
	p.mu.Lock()
	cur := p.current
	p.mu.Unlock()
	if cur == nil {
		return Credential{}, ErrNoCredential
	}
	if _, err := p.checkRefresh(ctx, cur.RefreshToken); err != nil {
		return Credential{}, err
	}
	return *cur, nil
}

// InvalidateCredential puts both tokens of the current pair on the revocation list and
// forgets the pair. The pair is forgotten even if revocation fails.
func (p *JWTProvider) InvalidateCredential(ctx context.Context) error {
	p.mu.Lock()
	cur := p.current
	p.current = nil
	p.mu.Unlock()
	if cur == nil {
		return nil
	}
	var errs []error
	for _, t := range []struct {
		token string
		kind  security.TokenKind
	}{{cur.AccessToken, security.KindAccess}, {cur.RefreshToken, security.KindRefresh}} {
		claims, err := p.tokens.Validate(t.token, t.kind)
		if err != nil {
			// Already unusable.
			continue
		}
		exp := time.Time{}
		if claims.ExpiresAt != nil {
			exp = claims.ExpiresAt.Time
		}
		if err := p.revoker.Revoke(ctx, claims.ID, exp); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *JWTProvider) checkRefresh(ctx context.Context, refreshToken string) (*security.Claims, error) {
	claims, err := p.tokens.Validate(refreshToken, security.KindRefresh)
	if err != nil {
		return nil, err
	}
	revoked, err := p.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrCredentialRevoked
	}
	return claims, nil
}
