package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/wes-cook-live/internal/config"
	"github.com/weiawesome/wes-cook-live/internal/directory"
	"github.com/weiawesome/wes-cook-live/internal/domain"
	"github.com/weiawesome/wes-cook-live/internal/hub"
	"github.com/weiawesome/wes-cook-live/internal/repository/repotest"
	"github.com/weiawesome/wes-cook-live/pkg/pubsub"
)

type fixture struct {
	hub   *hub.Hub
	repo  *repotest.Notifications
	users *repotest.Users
	d     *Dispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	users := repotest.NewUsers(
		&domain.User{ID: "alice", Username: "alice", Role: domain.RoleChef},
		&domain.User{ID: "bob", Username: "bob", Role: domain.RoleUser},
	)
	h := hub.NewHub(config.WebSocketConfig{})
	repo := repotest.NewNotifications()
	return &fixture{
		hub:   h,
		repo:  repo,
		users: users,
		d:     NewDispatcher(repo, directory.New(users, nil, 0), NewLocalPusher(h)),
	}
}

func (f *fixture) connect(id, userID string) *hub.Client {
	c := hub.NewClient(id, f.hub, nil, domain.Identity{UserID: userID, Username: userID}, config.WebSocketConfig{SendBuffer: 8})
	f.hub.Register(c)
	return c
}

func nextPush(t *testing.T, c *hub.Client) domain.NotificationPush {
	t.Helper()
	select {
	case data := <-c.Send:
		var env struct {
			Event string                  `json:"event"`
			Data  domain.NotificationPush `json:"data"`
		}
		require.NoError(t, json.Unmarshal(data, &env))
		require.Equal(t, domain.EventNewNotification, env.Event)
		return env.Data
	case <-time.After(time.Second):
		t.Fatalf("no notification for %s", c.ID)
		return domain.NotificationPush{}
	}
}

func TestNotify_PushesToEveryConnection(t *testing.T) {
	f := newFixture(t)
	a1 := f.connect("a1", "alice")
	a2 := f.connect("a2", "alice")
	b1 := f.connect("b1", "bob")

	n, err := f.d.Notify(context.Background(), Request{
		TargetID: "alice",
		ActorID:  "bob",
		Type:     domain.NotificationLike,
		Message:  "bob liked your recipe",
		Link:     "/recipes/r1",
	})
	require.NoError(t, err)
	require.NotEmpty(t, n.ID)
	require.False(t, n.Read)

	for _, c := range []*hub.Client{a1, a2} {
		push := nextPush(t, c)
		require.Equal(t, n.ID, push.ID)
		require.Equal(t, "like", push.Type)
		require.Equal(t, "bob liked your recipe", push.Message)
		require.Equal(t, "/recipes/r1", push.Link)
		require.NotEmpty(t, push.CreatedAt)
	}
	require.Empty(t, b1.Send)
	require.Len(t, f.repo.For("alice"), 1)
}

func TestNotify_OfflineTargetStillStored(t *testing.T) {
	f := newFixture(t)

	n, err := f.d.Notify(context.Background(), Request{TargetID: "alice", ActorID: "bob", Type: domain.NotificationComment, Message: "hi"})
	require.NoError(t, err)
	require.NotNil(t, n)
	require.Equal(t, 1, f.repo.Count())
}

func TestNotify_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("self notification is suppressed", func(t *testing.T) {
		f := newFixture(t)
		a1 := f.connect("a1", "alice")
		n, err := f.d.Notify(ctx, Request{TargetID: "alice", ActorID: "alice", Type: domain.NotificationMention, Message: "x"})
		require.NoError(t, err)
		require.Nil(t, n)
		require.Zero(t, f.repo.Count())
		require.Empty(t, a1.Send)
	})

	t.Run("unknown type", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.d.Notify(ctx, Request{TargetID: "alice", ActorID: "bob", Type: "poke"})
		require.ErrorIs(t, err, domain.ErrValidation)
		require.Zero(t, f.repo.Count())
	})

	t.Run("unknown target", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.d.Notify(ctx, Request{TargetID: "carol", ActorID: "bob", Type: domain.NotificationSystem})
		require.ErrorIs(t, err, domain.ErrNotFound)
		require.Zero(t, f.repo.Count())
	})

	t.Run("store failure skips the push", func(t *testing.T) {
		f := newFixture(t)
		a1 := f.connect("a1", "alice")
		f.repo.Fail = true
		_, err := f.d.Notify(ctx, Request{TargetID: "alice", ActorID: "bob", Type: domain.NotificationLike})
		require.ErrorIs(t, err, domain.ErrPersistence)
		require.Empty(t, a1.Send)
	})
}

func TestListAndMarkRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		n, err := f.d.Notify(ctx, Request{TargetID: "alice", ActorID: "bob", Type: domain.NotificationLike, Message: "like"})
		require.NoError(t, err)
		ids = append(ids, n.ID)
	}

	items, total, err := f.d.List(ctx, "alice", false, 1, 2)
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	require.Len(t, items, 2)
	require.Equal(t, ids[2], items[0].ID)

	require.NoError(t, f.d.MarkRead(ctx, "alice", ids[0]))
	require.ErrorIs(t, f.d.MarkRead(ctx, "bob", ids[1]), domain.ErrNotFound)

	_, total, err = f.d.List(ctx, "alice", true, 0, 0)
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
}

// memBus is a pattern-only in-memory bus. Each SubscribePattern call gets a
// fresh channel; Drop closes the current one.
type memBus struct {
	mu   sync.Mutex
	ch   chan *pubsub.Event
	subs int
	fail int
}

func (b *memBus) Publish(_ context.Context, _ string, event *pubsub.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ch == nil {
		return errors.New("no subscriber")
	}
	b.ch <- event
	return nil
}

func (b *memBus) SubscribePattern(ctx context.Context, _ string) (<-chan *pubsub.Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail > 0 {
		b.fail--
		return nil, errors.New("broker unavailable")
	}
	ch := make(chan *pubsub.Event, 8)
	b.ch = ch
	b.subs++
	go func() {
		<-ctx.Done()
		b.Drop()
	}()
	return ch, nil
}

func (b *memBus) Drop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ch != nil {
		close(b.ch)
		b.ch = nil
	}
}

func (b *memBus) subscribed() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ch == nil {
		return 0
	}
	return b.subs
}

func TestRelay_DeliversAndResubscribes(t *testing.T) {
	bus := &memBus{fail: 1}
	f := newFixture(t)
	a1 := f.connect("a1", "alice")

	relay := NewRelay(bus, f.hub)
	relay.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	d := NewDispatcher(f.repo, directory.New(f.users, nil, 0), NewRelayPusher(bus))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	require.Eventually(t, func() bool { return bus.subscribed() == 1 }, time.Second, 5*time.Millisecond)
	n, err := d.Notify(ctx, Request{TargetID: "alice", ActorID: "bob", Type: domain.NotificationChat, Message: "first"})
	require.NoError(t, err)
	require.Equal(t, n.ID, nextPush(t, a1).ID)

	bus.Drop()
	require.Eventually(t, func() bool { return bus.subscribed() == 2 }, time.Second, 5*time.Millisecond)
	_, err = d.Notify(ctx, Request{TargetID: "alice", ActorID: "bob", Type: domain.NotificationChat, Message: "second"})
	require.NoError(t, err)
	require.Equal(t, "second", nextPush(t, a1).Message)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}
