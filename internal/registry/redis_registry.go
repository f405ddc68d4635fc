package registry

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/weiawesome/wes-cook-live/internal/config"
	"github.com/weiawesome/wes-cook-live/pkg/log"
)

const scanBatch = 200

type RedisRegistry struct {
	client            *redis.Client
	instanceID        string
	prefix            string
	keyTTL            time.Duration
	heartbeatInterval time.Duration
	managedKeys       map[string]struct{} // keys owned by this instance
	mu                sync.RWMutex
	cancel            context.CancelFunc
}

// NewRedisRegistry uses client, which the caller keeps ownership of.
func NewRedisRegistry(client *redis.Client, cfg config.RegistryConfig, instanceID string) *RedisRegistry {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "cook:presence"
	}
	keyTTL := cfg.KeyTTL
	if keyTTL <= 0 {
		keyTTL = 30 * time.Second
	}
	interval := cfg.HeartbeatInterval
	if interval <= 0 || interval >= keyTTL {
		interval = keyTTL / 3
	}

	return &RedisRegistry{
		client:            client,
		instanceID:        instanceID,
		prefix:            prefix,
		keyTTL:            keyTTL,
		heartbeatInterval: interval,
		managedKeys:       make(map[string]struct{}),
	}
}

func (r *RedisRegistry) keyFor(roomID, userID string) string {
	return fmt.Sprintf("%s:room:%s:user:%s:instance:%s", r.prefix, roomID, userID, r.instanceID)
}

// parseKey extracts room and user from a presence key.
func (r *RedisRegistry) parseKey(key string) (roomID, userID string, ok bool) {
	rest, found := strings.CutPrefix(key, r.prefix+":room:")
	if !found {
		return "", "", false
	}
	roomID, rest, found = strings.Cut(rest, ":user:")
	if !found || roomID == "" {
		return "", "", false
	}
	userID, _, found = strings.Cut(rest, ":instance:")
	if !found || userID == "" {
		return "", "", false
	}
	return roomID, userID, true
}

func (r *RedisRegistry) Join(ctx context.Context, roomID, userID string) error {
	key := r.keyFor(roomID, userID)

	if err := r.client.Set(ctx, key, r.instanceID, r.keyTTL).Err(); err != nil {
		return fmt.Errorf("failed to register presence: %w", err)
	}

	r.mu.Lock()
	r.managedKeys[key] = struct{}{}
	r.mu.Unlock()

	l := log.L()
	l.Debug().Str(log.FieldRecipeID, roomID).Str(log.FieldUserID, userID).Msg("presence registered")
	return nil
}

func (r *RedisRegistry) Leave(ctx context.Context, roomID, userID string) error {
	key := r.keyFor(roomID, userID)

	r.mu.Lock()
	delete(r.managedKeys, key)
	r.mu.Unlock()

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to deregister presence: %w", err)
	}

	l := log.L()
	l.Debug().Str(log.FieldRecipeID, roomID).Str(log.FieldUserID, userID).Msg("presence deregistered")
	return nil
}

// ActiveRooms returns every room with at least one present user across all
// instances, with its distinct user count.
func (r *RedisRegistry) ActiveRooms(ctx context.Context) (map[string]int, error) {
	users := make(map[string]map[string]struct{})

	iter := r.client.Scan(ctx, 0, r.prefix+":room:*", scanBatch).Iterator()
	for iter.Next(ctx) {
		roomID, userID, ok := r.parseKey(iter.Val())
		if !ok {
			continue
		}
		if users[roomID] == nil {
			users[roomID] = make(map[string]struct{})
		}
		users[roomID][userID] = struct{}{}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan presence: %w", err)
	}

	return countUsers(users), nil
}

func (r *RedisRegistry) StartHeartbeat(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	go r.heartbeatLoop(ctx)
	l := log.L()
	l.Info().Dur("interval", r.heartbeatInterval).Dur("ttl", r.keyTTL).Msg("presence heartbeat started")
	return nil
}

func (r *RedisRegistry) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(r.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refreshKeys(ctx)
		}
	}
}

func (r *RedisRegistry) refreshKeys(ctx context.Context) {
	r.mu.RLock()
	keys := make([]string, 0, len(r.managedKeys))
	for k := range r.managedKeys {
		keys = append(keys, k)
	}
	r.mu.RUnlock()

	if len(keys) == 0 {
		return
	}

	pipe := r.client.Pipeline()
	for _, key := range keys {
		pipe.Set(ctx, key, r.instanceID, r.keyTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		l := log.L()
		l.Error().Err(err).Int("keys", len(keys)).Msg("failed to refresh presence keys")
	}
}

func (r *RedisRegistry) StopHeartbeat() {
	if r.cancel != nil {
		r.cancel()
	}
}

// Close stops the heartbeat and removes this instance's keys. The client
// itself is left open.
func (r *RedisRegistry) Close() error {
	r.StopHeartbeat()

	r.mu.Lock()
	keys := make([]string, 0, len(r.managedKeys))
	for k := range r.managedKeys {
		keys = append(keys, k)
	}
	r.managedKeys = make(map[string]struct{})
	r.mu.Unlock()

	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.client.Del(ctx, keys...).Err()
}

func countUsers(users map[string]map[string]struct{}) map[string]int {
	out := make(map[string]int, len(users))
	for roomID, set := range users {
		out[roomID] = len(set)
	}
	return out
}
