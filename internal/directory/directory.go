package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/weiawesome/wes-cook-live/internal/cache"
	"github.com/weiawesome/wes-cook-live/internal/domain"
	"github.com/weiawesome/wes-cook-live/internal/repository"
	"github.com/weiawesome/wes-cook-live/pkg/log"
)

// Directory answers "who is this user" for the handshake, the dispatcher
// and the mention resolver. Lookups are coalesced and, when a cache is
// configured, served from it.
type Directory struct {
	users    repository.UserRepository
	cache    cache.UserCache
	cacheTTL time.Duration
	sf       singleflight.Group

	// generation counts invalidations. A fill is stored only if no
	// invalidation happened since its fetch began.
	fillMu     sync.RWMutex
	generation uint64
}

// New creates a directory. userCache may be nil.
func New(users repository.UserRepository, userCache cache.UserCache, cacheTTL time.Duration) *Directory {
	return &Directory{
		users:    users,
		cache:    userCache,
		cacheTTL: cacheTTL,
	}
}

// ByID returns the user with id or repository.ErrUserNotFound.
func (d *Directory) ByID(ctx context.Context, id string) (*domain.User, error) {
	return d.lookup(ctx, cache.ByID, id, func(ctx context.Context) (*domain.User, error) {
		return d.users.GetByID(ctx, id)
	})
}

// ByEmail returns the user with email, ignoring case.
func (d *Directory) ByEmail(ctx context.Context, email string) (*domain.User, error) {
	return d.lookup(ctx, cache.ByEmail, strings.ToLower(email), func(ctx context.Context) (*domain.User, error) {
		return d.users.GetByEmail(ctx, email)
	})
}

// ByUsername returns the user with username, ignoring case.
func (d *Directory) ByUsername(ctx context.Context, username string) (*domain.User, error) {
	return d.lookup(ctx, cache.ByUsername, strings.ToLower(username), func(ctx context.Context) (*domain.User, error) {
		return d.users.GetByUsername(ctx, username)
	})
}

// Invalidate drops cached entries for u after it changed.
func (d *Directory) Invalidate(ctx context.Context, u *domain.User) {
	if d.cache == nil || u == nil {
		return
	}
	d.fillMu.Lock()
	d.generation++
	d.fillMu.Unlock()

	if err := d.cache.Evict(ctx, u); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldUserID, u.ID).Msg("cache evict error")
	}
}

// lookup coalesces concurrent lookups of the same value and hands out copies.
func (d *Directory) lookup(ctx context.Context, by cache.Lookup, value string, fetch func(context.Context) (*domain.User, error)) (*domain.User, error) {
	result, err, _ := d.sf.Do(string(by)+":"+value, func() (interface{}, error) {
		return d.fetchWithCache(ctx, by, value, fetch)
	})
	if err != nil {
		return nil, err
	}

	u, ok := result.(*domain.User)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from singleflight")
	}
	copied := *u
	return &copied, nil
}

func (d *Directory) fetchWithCache(ctx context.Context, by cache.Lookup, value string, fetch func(context.Context) (*domain.User, error)) (*domain.User, error) {
	if d.cache != nil {
		cached, err := d.cache.Get(ctx, by, value)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			l := log.Ctx(ctx)
			l.Warn().Err(err).Str("lookup", string(by)).Msg("cache get error")
		}
	}

	d.fillMu.RLock()
	started := d.generation
	d.fillMu.RUnlock()

	u, err := fetch(ctx)
	if err != nil {
		return nil, err
	}

	if d.cache != nil {
		d.fill(ctx, u, started)
	}
	return u, nil
}

// fill caches u unless Invalidate ran since started was read.
func (d *Directory) fill(ctx context.Context, u *domain.User, started uint64) {
	d.fillMu.RLock()
	defer d.fillMu.RUnlock()
	if d.generation != started {
		return
	}

	cacheCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := d.cache.Put(cacheCtx, u, d.cacheTTL); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldUserID, u.ID).Msg("cache put error")
	}
}
