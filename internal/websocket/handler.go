package websocket

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ServeWs streams the session's pipeline events until the peer leaves.
func ServeWs(hub *Hub, c *websocket.Conn, sessionID uuid.UUID) {
	client := &Client{Hub: hub, Conn: c, SessionID: sessionID, Send: make(chan []byte, 256)}
	client.Hub.register <- client

	go client.writePump()
	client.readPump()
}

// RegisterRoutes mounts GET /ws/sessions/:id.
func (h *Hub) RegisterRoutes(app fiber.Router) {
	ws := app.Group("/ws")
	ws.Use(func(ctx *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(ctx) {
			return fiber.ErrUpgradeRequired
		}
		return ctx.Next()
	})
	ws.Get("/sessions/:id", websocket.New(func(c *websocket.Conn) {
		sessionID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			c.Close()
			return
		}
		ServeWs(h, c, sessionID)
	}))
}
