package hub

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/weiawesome/wes-cook-live/internal/config"
	"github.com/weiawesome/wes-cook-live/internal/domain"
)

type Client struct {
	ID        string
	Hub       *Hub
	Conn      *websocket.Conn
	Send      chan []byte
	Session   *domain.Session
	config    config.WebSocketConfig
	closeOnce sync.Once
}

func NewClient(id string, hub *Hub, conn *websocket.Conn, identity domain.Identity, cfg config.WebSocketConfig) *Client {
	buf := cfg.SendBuffer
	if buf <= 0 {
		buf = 256
	}
	return &Client{
		ID:      id,
		Hub:     hub,
		Conn:    conn,
		Send:    make(chan []byte, buf),
		Session: domain.NewSession(id, identity),
		config:  cfg,
	}
}

// ReadPump reads frames until the connection fails, passing each to handler.
// On return the client is unregistered and the socket closed.
func (c *Client) ReadPump(handler func(*Client, []byte)) {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Debug().Err(err).Str("conn_id", c.ID).Msg("websocket read error")
			}
			break
		}

		c.Session.UpdateActivity()
		handler(c, message)
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendMessage queues message for this client through the hub.
func (c *Client) SendMessage(message interface{}) error {
	return c.Hub.Send(c, message)
}

// Close ends the connection. The read pump then unregisters the client and
// the disconnect path runs. Without a socket the client is unregistered
// directly.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		if c.Conn != nil {
			c.Conn.Close()
			return
		}
		c.Hub.Unregister(c)
	})
}
