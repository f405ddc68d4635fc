package directory

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/weiawesome/wes-cook-live/internal/cache"
	"github.com/weiawesome/wes-cook-live/internal/domain"
	"github.com/weiawesome/wes-cook-live/internal/repository"
	"github.com/weiawesome/wes-cook-live/internal/repository/repotest"
)

type memCache struct {
	mu   sync.Mutex
	data map[string]domain.User
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string]domain.User)}
}

func (c *memCache) Get(_ context.Context, by cache.Lookup, value string) (*domain.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.data[string(by)+":"+value]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return &u, nil
}

func (c *memCache) Put(_ context.Context, u *domain.User, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data["id:"+u.ID] = *u
	c.data["email:"+strings.ToLower(u.Email)] = *u
	c.data["username:"+strings.ToLower(u.Username)] = *u
	return nil
}

func (c *memCache) Evict(_ context.Context, u *domain.User) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, "id:"+u.ID)
	delete(c.data, "email:"+strings.ToLower(u.Email))
	delete(c.data, "username:"+strings.ToLower(u.Username))
	return nil
}

func (c *memCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}

func TestDirectory_WithoutCache(t *testing.T) {
	users := repotest.NewUsers(&domain.User{ID: "u1", Email: "bob@example.com", Username: "bob"})
	d := New(users, nil, time.Minute)
	ctx := context.Background()

	u, err := d.ByID(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "bob", u.Username)

	u, err = d.ByUsername(ctx, "BOB")
	require.NoError(t, err)
	require.Equal(t, "u1", u.ID)

	u, err = d.ByEmail(ctx, "Bob@Example.com")
	require.NoError(t, err)
	require.Equal(t, "u1", u.ID)

	_, err = d.ByID(ctx, "ghost")
	require.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestDirectory_CachesHits(t *testing.T) {
	users := repotest.NewUsers(&domain.User{ID: "u1", Email: "bob@example.com", Username: "bob"})
	c := newMemCache()
	d := New(users, c, time.Minute)
	ctx := context.Background()

	_, err := d.ByID(ctx, "u1")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return c.has("id:u1") }, time.Second, 5*time.Millisecond)

	callsBefore := users.Calls()
	u, err := d.ByID(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "bob", u.Username)
	require.Equal(t, callsBefore, users.Calls())

	// One fill serves every lookup of the same user.
	u, err = d.ByUsername(ctx, "Bob")
	require.NoError(t, err)
	require.Equal(t, "u1", u.ID)
	require.Equal(t, callsBefore, users.Calls())

	d.Invalidate(ctx, u)
	require.False(t, c.has("id:u1"))
	require.False(t, c.has("username:bob"))
}

func TestDirectory_ReturnsCopies(t *testing.T) {
	users := repotest.NewUsers(&domain.User{ID: "u1", Username: "bob"})
	d := New(users, nil, time.Minute)

	u, err := d.ByID(context.Background(), "u1")
	require.NoError(t, err)
	u.Role = domain.RoleAdmin

	again, err := d.ByID(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, domain.RoleUser, again.Role)
}

// gatedUsers blocks GetByID until release is closed, after signalling entered.
type gatedUsers struct {
	*repotest.Users
	entered chan struct{}
	release chan struct{}
}

func (g *gatedUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	u, err := g.Users.GetByID(ctx, id)
	close(g.entered)
	<-g.release
	return u, err
}

func TestDirectory_InvalidateDuringFetchSkipsFill(t *testing.T) {
	users := repotest.NewUsers(&domain.User{ID: "u1", Email: "bob@example.com", Username: "bob"})
	gated := &gatedUsers{Users: users, entered: make(chan struct{}), release: make(chan struct{})}
	c := newMemCache()
	d := New(gated, c, time.Minute)
	ctx := context.Background()

	var stale *domain.User
	done := make(chan error)
	go func() {
		var err error
		stale, err = d.ByID(ctx, "u1")
		done <- err
	}()

	<-gated.entered
	require.NoError(t, users.UpdateRole(ctx, "u1", domain.RoleChef, domain.ChefRequestApproved))
	d.Invalidate(ctx, &domain.User{ID: "u1", Email: "bob@example.com", Username: "bob"})
	close(gated.release)

	require.NoError(t, <-done)
	require.Equal(t, domain.RoleUser, stale.Role)
	require.False(t, c.has("id:u1"))

	fresh, err := d.ByUsername(ctx, "bob")
	require.NoError(t, err)
	require.Equal(t, domain.RoleChef, fresh.Role)
	require.True(t, c.has("id:u1"))
}
