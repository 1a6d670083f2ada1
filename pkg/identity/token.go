package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims extends standard JWT claims with tenant and role fields.
type Claims struct {
	jwt.RegisteredClaims
	TenantID string   `json:"tenant_id,omitempty"`
	Roles    []string `json:"roles,omitempty"`
}

// TokenManager issues and validates principal tokens.
type TokenManager struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
	iss  string
}

// NewTokenManager creates a manager with the given keypair.
func NewTokenManager(pub ed25519.PublicKey, priv ed25519.PrivateKey, issuer string) *TokenManager {
	if issuer == "" {
		issuer = "castellan/identity"
	}
	return &TokenManager{priv: priv, pub: pub, iss: issuer}
}

// GenerateTokenManager creates a manager with a fresh Ed25519 keypair,
// for tests and single-process deployments.
func GenerateTokenManager(issuer string) (*TokenManager, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("identity: keygen: %w", err)
	}
	return NewTokenManager(pub, priv, issuer), nil
}

// Issue creates a signed JWT for a principal.
func (tm *TokenManager) Issue(p *Principal, ttl time.Duration) (string, error) {
	if tm.priv == nil {
		return "", fmt.Errorf("identity: no signing key configured")
	}

	now := time.Now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Subject,
			Issuer:    tm.iss,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		TenantID: p.Tenant,
		Roles:    p.Role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(tm.priv)
}

// Validate parses a token and returns its principal.
func (tm *TokenManager) Validate(tokenString string) (*Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return tm.pub, nil
	}, jwt.WithIssuer(tm.iss))
	if err != nil {
		return nil, fmt.Errorf("identity: token invalid: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("identity: token invalid")
	}

	return &Principal{
		Subject: claims.Subject,
		Tenant:  claims.TenantID,
		Role:    claims.Roles,
	}, nil
}
