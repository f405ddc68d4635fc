package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/weiawesome/wes-cook-live/internal/domain"
)

// RedisUserCache keeps one JSON copy of a user per lookup key.
type RedisUserCache struct {
	client *redis.Client
	prefix string
}

// NewRedisUserCache uses a client owned by the caller.
func NewRedisUserCache(client *redis.Client, prefix string) *RedisUserCache {
	if prefix == "" {
		prefix = "cook:user"
	}
	return &RedisUserCache{client: client, prefix: prefix}
}

// key is "{prefix}:{by}:{value}". Email and username are case-insensitive.
func (c *RedisUserCache) key(by Lookup, value string) string {
	if by != ByID {
		value = strings.ToLower(value)
	}
	return c.prefix + ":" + string(by) + ":" + value
}

func (c *RedisUserCache) keys(u *domain.User) []string {
	keys := []string{c.key(ByID, u.ID)}
	if u.Email != "" {
		keys = append(keys, c.key(ByEmail, u.Email))
	}
	if u.Username != "" {
		keys = append(keys, c.key(ByUsername, u.Username))
	}
	return keys
}

func (c *RedisUserCache) Get(ctx context.Context, by Lookup, value string) (*domain.User, error) {
	data, err := c.client.Get(ctx, c.key(by, value)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var u domain.User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached user: %w", err)
	}
	return &u, nil
}

func (c *RedisUserCache) Put(ctx context.Context, u *domain.User, ttl time.Duration) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, k := range c.keys(u) {
			pipe.Set(ctx, k, data, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to cache user %s: %w", u.ID, err)
	}
	return nil
}

func (c *RedisUserCache) Evict(ctx context.Context, u *domain.User) error {
	if err := c.client.Del(ctx, c.keys(u)...).Err(); err != nil {
		return fmt.Errorf("failed to evict user %s: %w", u.ID, err)
	}
	return nil
}

var _ UserCache = (*RedisUserCache)(nil)
