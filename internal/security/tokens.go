package security

import (
	"crypto"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed, expired, or fails verification.
	ErrInvalidToken = errors.New("invalid token")
	// ErrNoSigningKey is returned by Issue when the provider was built without a private key.
	ErrNoSigningKey = errors.New("token provider has no signing key")
)

// TokenKind distinguishes access from refresh tokens.
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

// Claims are the JWT claims carried by credentials this module understands.
type Claims struct {
	jwt.RegisteredClaims
	Kind TokenKind `json:"typ"`
}

// IssuedToken is a signed token plus the metadata a revocation list needs.
type IssuedToken struct {
	Token     string
	ID        string
	ExpiresAt time.Time
}

// TokenProvider verifies (and, given a private key, issues) RS256/ES256 JWTs.
type TokenProvider struct {
	privateKey crypto.Signer // nil for verify-only providers
	publicKey  crypto.PublicKey
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenProvider returns a TokenProvider. privateKey may be nil; then Issue returns ErrNoSigningKey.
func NewTokenProvider(privateKey crypto.Signer, publicKey crypto.PublicKey, issuer, audience string, accessTTL, refreshTTL time.Duration) *TokenProvider {
	return &TokenProvider{
		privateKey: privateKey,
		publicKey:  publicKey,
		issuer:     issuer,
		audience:   audience,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithNow returns a copy of p that reads the current time from now.
func (p *TokenProvider) WithNow(now func() time.Time) *TokenProvider {
	cp := *p
	cp.now = now
	return &cp
}

// Issue signs a token of the given kind for userID.
func (p *TokenProvider) Issue(userID string, kind TokenKind) (IssuedToken, error) {
	if p.privateKey == nil {
		return IssuedToken{}, ErrNoSigningKey
	}
	jti, err := generateJTI()
	if err != nil {
		return IssuedToken{}, err
	}
	ttl := p.accessTTL
	if kind == KindRefresh {
		ttl = p.refreshTTL
	}
	now := p.now()
	expiresAt := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Kind: kind,
	}
	method := jwt.GetSigningMethod(KeyAlg(p.privateKey.Public()))
	if method == nil {
		return IssuedToken{}, ErrInvalidKey
	}
	signed, err := jwt.NewWithClaims(method, claims).SignedString(p.privateKey)
	if err != nil {
		return IssuedToken{}, err
	}
	return IssuedToken{Token: signed, ID: jti, ExpiresAt: expiresAt}, nil
}

// Validate parses tokenString and checks signature, expiry, issuer, audience and kind.
func (p *TokenProvider) Validate(tokenString string, kind TokenKind) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		switch token.Method.(type) {
		case *jwt.SigningMethodRSA, *jwt.SigningMethodECDSA:
			return p.publicKey, nil
		}
		return nil, ErrInvalidToken
	}, jwt.WithTimeFunc(p.now))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Issuer != p.issuer || !slices.Contains(claims.Audience, p.audience) {
		return nil, ErrInvalidToken
	}
	if claims.Kind != kind || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
