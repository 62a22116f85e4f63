package chat

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"ChatCore/logger"
)

// Client represents one websocket session on this gateway. A single user may
// hold several clients (one per device), each with its own outbound queue
// consumed by a single writer goroutine.
type Client struct {
	ConnID string
	UserID string // empty for anonymous sessions
	WS     *websocket.Conn
	Send   chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func NewClient(connID, userID string, ws *websocket.Conn, sendQueueSize int) *Client {
	return &Client{
		ConnID: connID,
		UserID: userID,
		WS:     ws,
		Send:   make(chan []byte, sendQueueSize),
		done:   make(chan struct{}),
	}
}

func (c *Client) Anonymous() bool { return c.UserID == "" }

// Enqueue queues a frame without blocking. Slow clients drop frames rather
// than stalling the sender.
func (c *Client) Enqueue(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		logger.Warnf("[client] send queue full, dropping frame conn=%s user=%s", c.ConnID, c.UserID)
		return false
	}
}

// WritePump drains the send queue onto the socket. It owns all writes to the
// connection and exits when Close is called or a write fails.
func (c *Client) WritePump(pingInterval time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case data, ok := <-c.Send:
			if !ok {
				return
			}
			_ = c.WS.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := c.WS.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Infof("[client] write failed conn=%s err=%v", c.ConnID, err)
				return
			}
		case <-ticker.C:
			_ = c.WS.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := c.WS.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.Done():
			return
		}
	}
}

func (c *Client) Done() <-chan struct{} { return c.done }

// Close makes the writer exit and closes the socket. Safe to call twice.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.WS != nil {
			_ = c.WS.Close()
		}
	})
}
