package websocket

import (
	"github.com/gofiber/websocket/v2"
)

// ServeWs attaches c to the hub as a display of sessionID and blocks until
// it leaves. initial, when set, is written first so the display starts
// from the current view.
func ServeWs(hub *Hub, c *websocket.Conn, sessionID string, initial []byte) {
	client := &Client{Hub: hub, Conn: c, SessionID: sessionID, Send: make(chan []byte, 256)}
	if initial != nil {
		client.Send <- initial
	}
	hub.register(client)
	client.serve()
}
