package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisPubSub carries events over Redis PUBLISH and PSUBSCRIBE.
type RedisPubSub struct {
	client     *redis.Client
	ownsClient bool

	mu   sync.Mutex
	subs map[*redis.PubSub]struct{}
}

// NewRedisPubSub dials a dedicated client.
func NewRedisPubSub(cfg RedisConfig) (*RedisPubSub, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	bus := NewRedisPubSubWithClient(client)
	bus.ownsClient = true
	return bus, nil
}

// NewRedisPubSubWithClient shares client with the cache and presence
// registry. Close leaves the client open.
func NewRedisPubSubWithClient(client *redis.Client) *RedisPubSub {
	return &RedisPubSub{client: client, subs: make(map[*redis.PubSub]struct{})}
}

func (r *RedisPubSub) Publish(ctx context.Context, channel string, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if err := r.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish on %s: %w", channel, err)
	}
	return nil
}

// SubscribePattern returns once Redis has confirmed the subscription.
func (r *RedisPubSub) SubscribePattern(ctx context.Context, pattern string) (<-chan *Event, error) {
	ps := r.client.PSubscribe(ctx, pattern)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", pattern, err)
	}

	r.mu.Lock()
	r.subs[ps] = struct{}{}
	r.mu.Unlock()

	out := make(chan *Event, subscriberBuffer)
	go func() {
		defer close(out)
		defer r.release(ps)

		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				if !forward(ctx, out, []byte(msg.Payload), msg.Channel) {
					return
				}
			}
		}
	}()
	return out, nil
}

func (r *RedisPubSub) release(ps *redis.PubSub) {
	r.mu.Lock()
	_, live := r.subs[ps]
	delete(r.subs, ps)
	r.mu.Unlock()
	if live {
		ps.Close()
	}
}

// Close ends every subscription, and the client when it was dialled here.
func (r *RedisPubSub) Close() error {
	r.mu.Lock()
	subs := r.subs
	r.subs = make(map[*redis.PubSub]struct{})
	r.mu.Unlock()

	for ps := range subs {
		ps.Close()
	}
	if r.ownsClient {
		return r.client.Close()
	}
	return nil
}
