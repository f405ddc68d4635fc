package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestManager_RoundTrip(t *testing.T) {
	m, err := NewManager("secret", time.Hour, "cook-live")
	require.NoError(t, err)

	token, exp, err := m.GenerateToken("u1", "alice@example.com", "alice", "chef")
	require.NoError(t, err)
	require.Greater(t, exp, time.Now().Unix())

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, "u1", claims.UserID)
	require.Equal(t, "alice", claims.Username)
	require.Equal(t, "chef", claims.Role)
	require.Equal(t, "cook-live", claims.Issuer)
}

func TestManager_ValidateErrors(t *testing.T) {
	m, err := NewManager("secret", time.Hour, "cook-live")
	require.NoError(t, err)
	other, err := NewManager("other-secret", time.Hour, "cook-live")
	require.NoError(t, err)

	expired, err := NewManager("secret", time.Hour, "cook-live")
	require.NoError(t, err)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, _, err := expired.GenerateToken("u1", "", "alice", "user")
	require.NoError(t, err)

	foreignToken, _, err := other.GenerateToken("u1", "", "alice", "user")
	require.NoError(t, err)

	elsewhere, err := NewManager("secret", time.Hour, "another-service")
	require.NoError(t, err)
	elsewhereToken, _, err := elsewhere.GenerateToken("u1", "", "alice", "user")
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "", ErrMissingToken},
		{"garbage", "not-a-jwt", ErrInvalidToken},
		{"wrong secret", foreignToken, ErrInvalidToken},
		{"wrong issuer", elsewhereToken, ErrInvalidToken},
		{"expired", expiredToken, ErrExpiredToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.ValidateToken(tt.token)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewManager_RequiresSecret(t *testing.T) {
	_, err := NewManager("", time.Hour, "x")
	require.Error(t, err)
}
