package auth

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticehq/lattice-core/internal/config"
	"github.com/latticehq/lattice-core/pkg/apperror"
)

const testSecret = "test-signing-secret"

func newTestMiddleware(mutate func(*config.Config)) *Middleware {
	cfg := &config.Config{}
	cfg.Auth.JWTSecret = testSecret
	if mutate != nil {
		mutate(cfg)
	}
	return NewMiddleware(cfg, slog.New(slog.DiscardHandler))
}

func signToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

// invoke runs a request through RequireAuth into a handler that reports
// the resolved tenant.
func invoke(m *Middleware, req *http.Request) (uuid.UUID, error) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var tenantID uuid.UUID
	handler := m.RequireAuth()(func(c echo.Context) error {
		var err error
		tenantID, err = GetTenantID(c)
		return err
	})
	return tenantID, handler(c)
}

func authStatus(t *testing.T, err error) (int, string) {
	t.Helper()
	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	return appErr.HTTPStatus, appErr.Code
}

func TestRequireAuth_ValidJWT(t *testing.T) {
	m := newTestMiddleware(nil)
	tenantID := uuid.New()

	token := signToken(t, testSecret, Claims{
		TenantID: tenantID.String(),
		Email:    "rep@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)

	got, err := invoke(m, req)
	require.NoError(t, err)
	assert.Equal(t, tenantID, got)
}

func TestRequireAuth_MissingHeader(t *testing.T) {
	m := newTestMiddleware(nil)

	_, err := invoke(m, httptest.NewRequest(http.MethodGet, "/", nil))
	status, code := authStatus(t, err)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "missing_token", code)
}

func TestRequireAuth_WrongScheme(t *testing.T) {
	m := newTestMiddleware(nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Basic dXNlcjpwYXNz")

	_, err := invoke(m, req)
	status, code := authStatus(t, err)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "invalid_token", code)
}

func TestRequireAuth_WrongSecret(t *testing.T) {
	m := newTestMiddleware(nil)

	token := signToken(t, "other-secret", Claims{
		TenantID: uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)

	_, err := invoke(m, req)
	status, _ := authStatus(t, err)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRequireAuth_ExpiredToken(t *testing.T) {
	m := newTestMiddleware(nil)

	token := signToken(t, testSecret, Claims{
		TenantID: uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)

	_, err := invoke(m, req)
	status, code := authStatus(t, err)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "invalid_token", code)
}

func TestRequireAuth_MissingTenantClaim(t *testing.T) {
	m := newTestMiddleware(nil)

	token := signToken(t, testSecret, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)

	_, err := invoke(m, req)
	status, _ := authStatus(t, err)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRequireAuth_APIKey(t *testing.T) {
	m := newTestMiddleware(func(cfg *config.Config) {
		cfg.Auth.APIKey = "machine-key"
	})
	tenantID := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-API-Key", "machine-key")
	req.Header.Set("X-Tenant-ID", tenantID.String())

	got, err := invoke(m, req)
	require.NoError(t, err)
	assert.Equal(t, tenantID, got)
}

func TestRequireAuth_APIKeyMismatch(t *testing.T) {
	m := newTestMiddleware(func(cfg *config.Config) {
		cfg.Auth.APIKey = "machine-key"
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-API-Key", "guessed-key")
	req.Header.Set("X-Tenant-ID", uuid.NewString())

	_, err := invoke(m, req)
	status, _ := authStatus(t, err)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRequireAuth_APIKeyWithoutTenantHeader(t *testing.T) {
	m := newTestMiddleware(func(cfg *config.Config) {
		cfg.Auth.APIKey = "machine-key"
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-API-Key", "machine-key")

	_, err := invoke(m, req)
	status, _ := authStatus(t, err)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRequireAuth_APIKeyNotEnabled(t *testing.T) {
	m := newTestMiddleware(nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-API-Key", "machine-key")
	req.Header.Set("X-Tenant-ID", uuid.NewString())

	_, err := invoke(m, req)
	status, _ := authStatus(t, err)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRequireAuth_DebugTenantBypass(t *testing.T) {
	tenantID := uuid.New()
	m := newTestMiddleware(func(cfg *config.Config) {
		cfg.Debug = true
		cfg.Auth.DebugTenantID = tenantID.String()
	})

	got, err := invoke(m, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, tenantID, got)
}

func TestGetTenantID_NoUser(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	_, err := GetTenantID(c)
	status, _ := authStatus(t, err)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestGetTenantID_MalformedTenant(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.Set(string(UserContextKey), &AuthUser{TenantID: "not-a-uuid"})

	_, err := GetTenantID(c)
	status, _ := authStatus(t, err)
	assert.Equal(t, http.StatusUnauthorized, status)
}
