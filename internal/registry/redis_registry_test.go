package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/weiawesome/wes-cook-live/internal/config"
)

func TestKeyRoundTrip(t *testing.T) {
	r := NewRedisRegistry(nil, config.RegistryConfig{Prefix: "cook:presence"}, "node-1")

	key := r.keyFor("recipe-1", "user-9")
	require.Equal(t, "cook:presence:room:recipe-1:user:user-9:instance:node-1", key)

	roomID, userID, ok := r.parseKey(key)
	require.True(t, ok)
	require.Equal(t, "recipe-1", roomID)
	require.Equal(t, "user-9", userID)
}

func TestParseKey_Rejects(t *testing.T) {
	r := NewRedisRegistry(nil, config.RegistryConfig{Prefix: "cook:presence"}, "node-1")

	for _, key := range []string{
		"other:room:r:user:u:instance:n",
		"cook:presence:room::user:u:instance:n",
		"cook:presence:room:r:user::instance:n",
		"cook:presence:room:r:instance:n",
	} {
		_, _, ok := r.parseKey(key)
		require.False(t, ok, key)
	}
}

func TestDefaults(t *testing.T) {
	r := NewRedisRegistry(nil, config.RegistryConfig{KeyTTL: 9 * time.Second, HeartbeatInterval: time.Minute}, "n")
	require.Equal(t, "cook:presence", r.prefix)
	require.Equal(t, 3*time.Second, r.heartbeatInterval)
}

func TestCountUsers(t *testing.T) {
	got := countUsers(map[string]map[string]struct{}{
		"r1": {"a": {}, "b": {}},
		"r2": {"a": {}},
	})
	require.Equal(t, map[string]int{"r1": 2, "r2": 1}, got)
}
