// Package auth provides tenant-scoped request authentication.
//
// Requests authenticate with a bearer JWT (HS256) carrying tenant_id and
// user_id claims, or with a static API key plus an X-Tenant-ID header for
// machine-to-machine callers. Handlers trust the tenant context injected
// here and never re-derive it.
package auth

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/latticehq/lattice-core/pkg/apperror"
)

// AuthUser represents an authenticated caller
type AuthUser struct {
	// UserID is the authenticated user (empty for API key callers)
	UserID string `json:"userId,omitempty"`

	// TenantID scopes every operation performed by this request
	TenantID string `json:"tenantId"`

	// Email from the token, when present
	Email string `json:"email,omitempty"`

	// APIKeyAuth is true when the request authenticated via X-API-Key
	APIKeyAuth bool `json:"apiKeyAuth,omitempty"`
}

// contextKey for storing the auth user in the Echo context
type contextKey string

const UserContextKey contextKey = "auth_user"

// GetUser retrieves the authenticated user from the Echo context
func GetUser(c echo.Context) *AuthUser {
	if user, ok := c.Get(string(UserContextKey)).(*AuthUser); ok {
		return user
	}
	return nil
}

// GetTenantID extracts and parses the tenant ID from the auth user context.
// Returns ErrUnauthorized if no user is present.
func GetTenantID(c echo.Context) (uuid.UUID, error) {
	user := GetUser(c)
	if user == nil {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	id, err := uuid.Parse(user.TenantID)
	if err != nil {
		return uuid.Nil, apperror.ErrUnauthorized.WithMessage("invalid tenant context")
	}

	return id, nil
}
