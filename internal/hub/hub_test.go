package hub

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/weiawesome/wes-cook-live/internal/config"
	"github.com/weiawesome/wes-cook-live/internal/domain"
)

func newTestClient(h *Hub, id, userID string, buf int) *Client {
	return NewClient(id, h, nil, domain.Identity{UserID: userID, Username: userID}, config.WebSocketConfig{SendBuffer: buf})
}

func connsOf(h *Hub, userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byUser[userID])
}

func readEvent(t *testing.T, c *Client) domain.Envelope {
	t.Helper()
	select {
	case data := <-c.Send:
		var env domain.Envelope
		require.NoError(t, json.Unmarshal(data, &env))
		return env
	default:
		t.Fatalf("no frame queued for %s", c.ID)
		return domain.Envelope{}
	}
}

func TestHub_UserIndex(t *testing.T) {
	h := NewHub(config.WebSocketConfig{})
	a1 := newTestClient(h, "a1", "alice", 4)
	a2 := newTestClient(h, "a2", "alice", 4)
	b1 := newTestClient(h, "b1", "bob", 4)
	h.Register(a1)
	h.Register(a2)
	h.Register(b1)

	require.Equal(t, 3, h.Count())
	require.Equal(t, 2, connsOf(h, "alice"))

	n, err := h.SendToUser("alice", domain.NewEvent(domain.EventPong, nil))
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, domain.EventPong, readEvent(t, a1).Event)
	require.Equal(t, domain.EventPong, readEvent(t, a2).Event)
	require.Empty(t, b1.Send)

	require.True(t, h.Unregister(a1))
	require.False(t, h.Unregister(a1))
	require.Equal(t, 1, connsOf(h, "alice"))

	require.True(t, h.Unregister(a2))
	require.Equal(t, 0, connsOf(h, "alice"))

	n, err = h.SendToUser("alice", domain.NewEvent(domain.EventPong, nil))
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestHub_SendToConnectionsSkipsGone(t *testing.T) {
	h := NewHub(config.WebSocketConfig{})
	a := newTestClient(h, "a", "alice", 4)
	b := newTestClient(h, "b", "bob", 4)
	h.Register(a)
	h.Register(b)
	h.Unregister(b)

	require.NoError(t, h.SendToConnections([]string{"a", "b", "missing"}, domain.NewErrorEvent("x")))
	require.Equal(t, domain.EventError, readEvent(t, a).Event)

	_, open := <-b.Send
	require.False(t, open)
}

func TestHub_SlowConsumerIsClosed(t *testing.T) {
	h := NewHub(config.WebSocketConfig{})
	slow := newTestClient(h, "slow", "alice", 1)
	fast := newTestClient(h, "fast", "bob", 8)
	h.Register(slow)
	h.Register(fast)

	for i := 0; i < 3; i++ {
		require.NoError(t, h.SendToConnections([]string{"slow", "fast"}, domain.NewEvent(domain.EventPong, nil)))
	}

	require.Equal(t, 0, connsOf(h, "alice"))
	require.Equal(t, 1, connsOf(h, "bob"))
	require.Len(t, fast.Send, 3)
}

func TestHub_ConcurrentSendAndUnregister(t *testing.T) {
	h := NewHub(config.WebSocketConfig{})
	clients := make([]*Client, 20)
	for i := range clients {
		clients[i] = newTestClient(h, string(rune('a'+i)), "u", 2)
		h.Register(clients[i])
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			_, _ = h.SendToUser("u", domain.NewEvent(domain.EventPong, nil))
		}
	}()
	go func() {
		defer wg.Done()
		for _, c := range clients {
			h.Unregister(c)
		}
	}()
	wg.Wait()

	require.Zero(t, h.Count())
}
