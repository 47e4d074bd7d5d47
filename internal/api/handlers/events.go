package handlers

import (
	"log/slog"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/xuminwlt/j360-idgen/internal/events"
)

// WebSocketUpgrade is middleware that checks for WebSocket upgrade requests.
func WebSocketUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		c.Locals("allowed", true)
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// EventStream handles WebSocket connections for streaming pool events.
// GET /v1/events/stream?domain=xxx&key=xxx
func EventStream(broker *events.Broker) fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		topic := determineTopic(c.Query("domain"), c.Query("key"))

		slog.Info("websocket connected",
			"remote_addr", c.RemoteAddr().String(),
			"topic", topic,
		)

		sub := broker.Subscribe(topic)
		if sub == nil {
			slog.Error("broker closed, cannot subscribe")
			return
		}
		defer sub.Unsubscribe()

		// Send connection confirmation
		if err := c.WriteJSON(map[string]any{
			"type":    "connected",
			"topic":   topic,
			"message": "Connected to pool event stream",
		}); err != nil {
			slog.Error("failed to send connection message", "error", err)
			return
		}

		// Drain incoming frames so close and ping/pong are handled.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := c.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case event, ok := <-sub.Events():
				if !ok {
					// Broker closed
					return
				}
				if err := c.WriteJSON(event); err != nil {
					slog.Debug("websocket write error", "error", err)
					return
				}
			case <-done:
				slog.Info("websocket disconnected", "remote_addr", c.RemoteAddr().String())
				return
			}
		}
	}, websocket.Config{
		EnableCompression: true,
		RecoverHandler: func(c *websocket.Conn) {
			slog.Error("websocket panic recovered", "remote_addr", c.RemoteAddr().String())
		},
	})
}

// determineTopic determines the subscription topic from query parameters.
func determineTopic(domain, key string) string {
	if domain != "" && key != "" {
		return domain + "/" + key
	}
	if domain != "" {
		return domain
	}
	return "*"
}
