package websocket

import (
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ServeWs registers the connection with the hub and blocks until it closes.
func ServeWs(hub *Hub, c *websocket.Conn) {
	client := &Client{Hub: hub, Conn: c, ID: uuid.New(), Send: make(chan []byte, 256)}
	select {
	case hub.register <- client:
	case <-hub.done:
		c.Close()
		return
	}

	go client.writePump()
	client.readPump()
}
