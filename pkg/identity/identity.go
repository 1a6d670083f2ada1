// Package identity resolves the acting principal at the boundary and
// carries it through context. Tokens are Ed25519-signed JWTs.
package identity

import "context"

// Principal is an authenticated actor.
type Principal struct {
	Subject string   `json:"sub"`
	Tenant  string   `json:"tenant_id,omitempty"`
	Role    []string `json:"roles,omitempty"`
}

// ID returns the principal's subject.
func (p *Principal) ID() string { return p.Subject }

// TenantID returns the principal's tenant.
func (p *Principal) TenantID() string { return p.Tenant }

// Roles returns the principal's roles.
func (p *Principal) Roles() []string { return p.Role }

type contextKey struct{}

// WithPrincipal attaches p to ctx.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// FromContext returns the principal attached to ctx, or nil.
func FromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(contextKey{}).(*Principal)
	return p
}
