package websocket

import (
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	viewWriteTimeout = 10 * time.Second
	// heartbeat surfaces dead connections as a failed write
	heartbeat = 50 * time.Second
	// displays only send control frames and close notices
	inboundLimit = 512
)

// Client is one display following a session's views.
type Client struct {
	Hub       *Hub
	Conn      *websocket.Conn
	SessionID string
	// Send carries encoded views; the hub closes it on unregister.
	Send chan []byte
}

// serve writes views until the display leaves, the hub drops the client,
// or a write fails. It returns with the client unregistered and the
// connection closed.
func (c *Client) serve() {
	gone := make(chan struct{})
	go c.watchClose(gone)

	ticker := time.NewTicker(heartbeat)
	defer func() {
		ticker.Stop()
		c.Hub.unregister(c)
		c.Conn.Close()
	}()

	for {
		select {
		case <-gone:
			return
		case view, ok := <-c.Send:
			if !ok {
				c.write(websocket.CloseMessage, nil)
				return
			}
			if err := c.write(websocket.TextMessage, view); err != nil {
				c.logWriteFailure(err)
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.logWriteFailure(err)
				return
			}
		}
	}
}

func (c *Client) write(messageType int, data []byte) error {
	c.Conn.SetWriteDeadline(time.Now().Add(viewWriteTimeout))
	return c.Conn.WriteMessage(messageType, data)
}

// watchClose discards inbound frames and closes gone once the display
// disconnects. Query state is never written through the socket.
func (c *Client) watchClose(gone chan<- struct{}) {
	defer close(gone)
	c.Conn.SetReadLimit(inboundLimit)
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.Hub.logger.Warn("HUB", "Unexpected websocket close", map[string]interface{}{
					"session_id": c.SessionID,
					"error":      err.Error(),
				})
			}
			return
		}
	}
}

func (c *Client) logWriteFailure(err error) {
	c.Hub.logger.Debug("HUB", "View write failed", map[string]interface{}{
		"session_id": c.SessionID,
		"error":      err.Error(),
	})
}
