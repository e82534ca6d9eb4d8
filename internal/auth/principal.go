// Package auth carries the authenticated principal through a request.
// Authentication itself happens upstream (the panel's auth gateway);
// this service only consumes the identity headers the gateway injects.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strconv"
)

// ErrNoPrincipal is returned when a request carries no usable identity.
var ErrNoPrincipal = errors.New("missing or invalid principal")

// Role values forwarded by the gateway.
const (
	RoleAdmin  = "admin"
	RoleSeller = "seller"
)

// Principal is the caller's identity and tenant binding. Everything in
// this service is scoped by TenantID.
type Principal struct {
	UserID   int64
	TenantID int64
	Role     string
}

// IsAdmin reports whether the principal carries the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Headers injected by the auth gateway.
const (
	HeaderUser   = "X-Auth-User"
	HeaderTenant = "X-Auth-Tenant"
	HeaderRole   = "X-Auth-Role"
)

// FromRequest extracts the principal from the gateway headers. A
// request without a valid tenant id is unauthenticated.
func FromRequest(r *http.Request) (Principal, error) {
	tenantID, err := strconv.ParseInt(r.Header.Get(HeaderTenant), 10, 64)
	if err != nil || tenantID <= 0 {
		return Principal{}, ErrNoPrincipal
	}
	userID, _ := strconv.ParseInt(r.Header.Get(HeaderUser), 10, 64)
	return Principal{
		UserID:   userID,
		TenantID: tenantID,
		Role:     r.Header.Get(HeaderRole),
	}, nil
}

type contextKey struct{}

// NewContext returns ctx carrying p.
func NewContext(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// FromContext returns the principal stored in ctx, if any.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(Principal)
	return p, ok
}
