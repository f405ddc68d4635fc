package cache

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/weiawesome/wes-cook-live/internal/domain"
)

func TestRedisUserCache_Keys(t *testing.T) {
	c := NewRedisUserCache(nil, "")

	require.Equal(t, "cook:user:id:U1", c.key(ByID, "U1"))
	require.Equal(t, "cook:user:email:bob@cook.io", c.key(ByEmail, "Bob@Cook.io"))
	require.Equal(t, "cook:user:username:bob", c.key(ByUsername, "BOB"))

	require.Equal(t, []string{
		"cook:user:id:U1",
		"cook:user:email:bob@cook.io",
		"cook:user:username:bob",
	}, c.keys(&domain.User{ID: "U1", Email: "bob@cook.io", Username: "Bob"}))

	require.Equal(t, []string{"x:id:U2"}, NewRedisUserCache(nil, "x").keys(&domain.User{ID: "U2"}))
}
