package hub

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/weiawesome/wes-cook-live/internal/config"
	"github.com/weiawesome/wes-cook-live/internal/metrics"
	pkglog "github.com/weiawesome/wes-cook-live/pkg/log"
)

// Hub indexes live clients by connection and by user. Sends happen under the
// read lock and Unregister closes Send under the write lock, so a send never
// races a close.
type Hub struct {
	clients map[string]*Client            // connID -> client
	byUser  map[string]map[string]*Client // userID -> connID -> client
	mu      sync.RWMutex
	config  config.WebSocketConfig
	logger  zerolog.Logger
}

func NewHub(cfg config.WebSocketConfig) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		byUser:  make(map[string]map[string]*Client),
		config:  cfg,
		logger:  pkglog.Component("hub"),
	}
}

func (h *Hub) Register(client *Client) {
	userID := client.Session.GetUserID()

	h.mu.Lock()
	h.clients[client.ID] = client
	conns, ok := h.byUser[userID]
	if !ok {
		conns = make(map[string]*Client)
		h.byUser[userID] = conns
	}
	conns[client.ID] = client
	total := len(h.clients)
	h.mu.Unlock()

	metrics.ConnectionsActive.Set(float64(total))
	h.logger.Debug().
		Str(pkglog.FieldConnID, client.ID).
		Str(pkglog.FieldUserID, userID).
		Msg("client registered")
}

// Unregister removes client and closes its Send channel. It reports whether
// the client was registered.
func (h *Hub) Unregister(client *Client) bool {
	userID := client.Session.GetUserID()

	h.mu.Lock()
	if _, ok := h.clients[client.ID]; !ok {
		h.mu.Unlock()
		return false
	}
	delete(h.clients, client.ID)
	if conns, ok := h.byUser[userID]; ok {
		delete(conns, client.ID)
		if len(conns) == 0 {
			delete(h.byUser, userID)
		}
	}
	close(client.Send)
	total := len(h.clients)
	h.mu.Unlock()

	metrics.ConnectionsActive.Set(float64(total))
	h.logger.Debug().
		Str(pkglog.FieldConnID, client.ID).
		Str(pkglog.FieldUserID, userID).
		Msg("client unregistered")
	return true
}

// Send delivers message to one client.
func (h *Hub) Send(client *Client, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.mu.RLock()
	var slow []*Client
	if _, ok := h.clients[client.ID]; ok {
		slow = h.deliver(client, data, slow)
	}
	h.mu.RUnlock()

	h.dropSlow(slow)
	return nil
}

// SendToConnections delivers message to each listed connection still live.
func (h *Hub) SendToConnections(connIDs []string, message interface{}) error {
	if len(connIDs) == 0 {
		return nil
	}
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.mu.RLock()
	var slow []*Client
	for _, id := range connIDs {
		if client, ok := h.clients[id]; ok {
			slow = h.deliver(client, data, slow)
		}
	}
	h.mu.RUnlock()

	h.dropSlow(slow)
	return nil
}

// SendToUser delivers message to every live connection of userID and returns
// how many connections were handed the frame.
func (h *Hub) SendToUser(userID string, message interface{}) (int, error) {
	data, err := json.Marshal(message)
	if err != nil {
		return 0, err
	}
	return h.SendRawToUser(userID, data), nil
}

// SendRawToUser is SendToUser for an already encoded frame.
func (h *Hub) SendRawToUser(userID string, data []byte) int {
	h.mu.RLock()
	var slow []*Client
	delivered := 0
	for _, client := range h.byUser[userID] {
		before := len(slow)
		slow = h.deliver(client, data, slow)
		if len(slow) == before {
			delivered++
		}
	}
	h.mu.RUnlock()

	h.dropSlow(slow)
	return delivered
}

// Count returns the number of live connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll closes every live connection. Used at shutdown.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	all := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		all = append(all, c)
	}
	h.mu.RUnlock()

	for _, c := range all {
		c.Close()
	}
}

// deliver must be called with h.mu held for reading.
func (h *Hub) deliver(client *Client, data []byte, slow []*Client) []*Client {
	select {
	case client.Send <- data:
	default:
		slow = append(slow, client)
	}
	return slow
}

func (h *Hub) dropSlow(slow []*Client) {
	for _, c := range slow {
		metrics.SlowConsumersClosed.Inc()
		h.logger.Warn().
			Str(pkglog.FieldConnID, c.ID).
			Str(pkglog.FieldUserID, c.Session.GetUserID()).
			Msg("send buffer full, closing client")
		c.Close()
	}
}
