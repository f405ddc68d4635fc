package cache

import (
	"context"
	"errors"
	"time"

	"github.com/weiawesome/wes-cook-live/internal/domain"
)

var ErrCacheMiss = errors.New("cache miss")

// Lookup names the attribute a cached user is found by.
type Lookup string

const (
	ByID       Lookup = "id"
	ByEmail    Lookup = "email"
	ByUsername Lookup = "username"
)

// UserCache stores users under each of their lookups.
type UserCache interface {
	// Get returns ErrCacheMiss when nothing is stored for value.
	Get(ctx context.Context, by Lookup, value string) (*domain.User, error)
	// Put stores u under its id, email and username.
	Put(ctx context.Context, u *domain.User, ttl time.Duration) error
	// Evict drops every entry of u.
	Evict(ctx context.Context, u *domain.User) error
}
