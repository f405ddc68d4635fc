package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/wes-cook-live/pkg/response"
)

const (
	UserIDKey     = "user_id"
	EmailKey      = "email"
	UsernameKey   = "username"
	RoleKey       = "role"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
	TokenQueryKey = "token"
)

// Principal is the authenticated caller attached to a request.
type Principal struct {
	UserID   string
	Email    string
	Username string
	Role     string
}

// Verifier resolves a bearer token into a Principal.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Principal, error)
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(ctx context.Context, token string) (*Principal, error)

// Verify calls f.
func (f VerifierFunc) Verify(ctx context.Context, token string) (*Principal, error) {
	return f(ctx, token)
}

// coded is implemented by errors that carry a machine-readable code.
type coded interface {
	Code() string
}

// ErrorCode returns the code carried by err, or fallback.
func ErrorCode(err error, fallback string) string {
	var c coded
	if errors.As(err, &c) {
		return c.Code()
	}
	return fallback
}

// TokenFromRequest reads the bearer token from the Authorization header,
// falling back to the token query parameter used by browser WebSocket clients.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get(AuthHeaderKey); h != "" {
		if strings.HasPrefix(h, BearerPrefix) {
			return strings.TrimSpace(strings.TrimPrefix(h, BearerPrefix))
		}
		return ""
	}
	return r.URL.Query().Get(TokenQueryKey)
}

// AuthMiddleware validates bearer tokens.
type AuthMiddleware struct {
	verifier Verifier
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(verifier Verifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// RequireAuth returns a Gin middleware that validates bearer tokens.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := m.verifier.Verify(c.Request.Context(), TokenFromRequest(c.Request))
		if err != nil {
			response.Error(c, http.StatusUnauthorized, ErrorCode(err, "UNAUTHORIZED"), err.Error())
			c.Abort()
			return
		}

		c.Set(UserIDKey, principal.UserID)
		c.Set(EmailKey, principal.Email)
		c.Set(UsernameKey, principal.Username)
		c.Set(RoleKey, principal.Role)

		c.Next()
	}
}

// RequireRole rejects callers whose role is not in roles. Must run after RequireAuth.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := GetRole(c)
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		response.Forbidden(c, "insufficient role")
		c.Abort()
	}
}

// GetUserID extracts user ID from Gin context.
func GetUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

// GetUsername extracts username from Gin context.
func GetUsername(c *gin.Context) string {
	return c.GetString(UsernameKey)
}

// GetEmail extracts email from Gin context.
func GetEmail(c *gin.Context) string {
	return c.GetString(EmailKey)
}

// GetRole extracts role from Gin context.
func GetRole(c *gin.Context) string {
	return c.GetString(RoleKey)
}
