package auth

import (
	"crypto/subtle"
	"log/slog"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"

	"github.com/latticehq/lattice-core/internal/config"
	"github.com/latticehq/lattice-core/pkg/apperror"
	"github.com/latticehq/lattice-core/pkg/logger"
)

var Module = fx.Module("auth",
	fx.Provide(NewMiddleware),
)

// Claims are the JWT claims this service understands
type Claims struct {
	TenantID string `json:"tenant_id"`
	Email    string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Middleware handles authentication for routes
type Middleware struct {
	cfg *config.Config
	log *slog.Logger
}

// NewMiddleware creates a new auth middleware
func NewMiddleware(cfg *config.Config, log *slog.Logger) *Middleware {
	return &Middleware{
		cfg: cfg,
		log: log.With(logger.Scope("auth")),
	}
}

// RequireAuth returns middleware that requires tenant-scoped authentication
func (m *Middleware) RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, err := m.authenticate(c)
			if err != nil {
				m.log.Warn("authentication failed", logger.Error(err))
				return err
			}

			c.Set(string(UserContextKey), user)
			return next(c)
		}
	}
}

func (m *Middleware) authenticate(c echo.Context) (*AuthUser, error) {
	// Debug tenant bypass for local development only
	if m.cfg.Debug && m.cfg.Auth.DebugTenantID != "" {
		return &AuthUser{TenantID: m.cfg.Auth.DebugTenantID}, nil
	}

	// API key auth: static key + explicit tenant header
	if apiKey := c.Request().Header.Get("X-API-Key"); apiKey != "" {
		return m.authenticateAPIKey(c, apiKey)
	}

	// Bearer token auth
	authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
	if authHeader == "" {
		return nil, apperror.ErrMissingToken
	}

	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok {
		return nil, apperror.ErrInvalidToken.WithMessage("authorization header must use Bearer scheme")
	}

	return m.authenticateJWT(token)
}

func (m *Middleware) authenticateAPIKey(c echo.Context, apiKey string) (*AuthUser, error) {
	if m.cfg.Auth.APIKey == "" {
		return nil, apperror.ErrUnauthorized.WithMessage("API key authentication is not enabled")
	}
	if subtle.ConstantTimeCompare([]byte(apiKey), []byte(m.cfg.Auth.APIKey)) != 1 {
		return nil, apperror.ErrUnauthorized
	}

	tenantID := c.Request().Header.Get("X-Tenant-ID")
	if tenantID == "" {
		return nil, apperror.ErrBadRequest.WithMessage("x-tenant-id header required")
	}

	return &AuthUser{
		TenantID:   tenantID,
		APIKeyAuth: true,
	}, nil
}

func (m *Middleware) authenticateJWT(tokenString string) (*AuthUser, error) {
	if m.cfg.Auth.JWTSecret == "" {
		return nil, apperror.ErrUnauthorized.WithMessage("JWT authentication is not enabled")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(m.cfg.Auth.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, apperror.ErrInvalidToken.WithInternal(err)
	}

	if claims.TenantID == "" {
		return nil, apperror.ErrInvalidToken.WithMessage("token missing tenant_id claim")
	}

	return &AuthUser{
		UserID:   claims.Subject,
		TenantID: claims.TenantID,
		Email:    claims.Email,
	}, nil
}
