package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type codedErr struct{ code string }

func (e codedErr) Error() string { return "denied" }
func (e codedErr) Code() string  { return e.code }

func newRouter(v Verifier, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append([]gin.HandlerFunc{NewAuthMiddleware(v).RequireAuth()}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		c.String(http.StatusOK, GetUserID(c)+"/"+GetRole(c))
	})
	r.GET("/me", handlers...)
	return r
}

func TestTokenFromRequest(t *testing.T) {
	tests := []struct {
		name   string
		header string
		url    string
		want   string
	}{
		{"bearer header", "Bearer abc", "/", "abc"},
		{"query param", "", "/?token=xyz", "xyz"},
		{"header wins", "Bearer abc", "/?token=xyz", "abc"},
		{"non bearer header", "Basic abc", "/?token=xyz", ""},
		{"none", "", "/", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			if tt.header != "" {
				req.Header.Set(AuthHeaderKey, tt.header)
			}
			require.Equal(t, tt.want, TokenFromRequest(req))
		})
	}
}

func TestRequireAuth(t *testing.T) {
	v := VerifierFunc(func(_ context.Context, token string) (*Principal, error) {
		switch token {
		case "good":
			return &Principal{UserID: "u1", Role: "chef"}, nil
		case "":
			return nil, codedErr{code: "MISSING_CREDENTIAL"}
		default:
			return nil, errors.New("bad")
		}
	})
	r := newRouter(v)

	t.Run("accepted", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set(AuthHeaderKey, "Bearer good")
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "u1/chef", w.Body.String())
	})

	t.Run("missing uses error code", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
		require.Equal(t, http.StatusUnauthorized, w.Code)
		require.Contains(t, w.Body.String(), "MISSING_CREDENTIAL")
	})

	t.Run("uncoded error falls back", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me?token=bad", nil))
		require.Equal(t, http.StatusUnauthorized, w.Code)
		require.Contains(t, w.Body.String(), "UNAUTHORIZED")
	})
}

func TestRequireRole(t *testing.T) {
	v := VerifierFunc(func(_ context.Context, token string) (*Principal, error) {
		return &Principal{UserID: token, Role: token}, nil
	})
	r := newRouter(v, RequireRole("admin"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me?token=admin", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me?token=user", nil))
	require.Equal(t, http.StatusForbidden, w.Code)
}
