package chat

import (
	"github.com/labstack/echo/v4"

	"github.com/parleyhq/parley/internal/gate"
)

// RegisterRoutes declares all chat routes to the router and the gate.
// Every chat operation requires authentication; ownership of the topic is
// checked separately in the service.
func RegisterRoutes(e *echo.Echo, g *gate.Gate, h *Handler) {
	g.Protect(e.POST("/chat/start", h.Start))
	g.Protect(e.POST("/chat/:topicId/message", h.Send))
	g.Protect(e.GET("/chat/:topicId/messages", h.Messages))
	g.Protect(e.GET("/chat/:topicId/messages/latest", h.Latest))
}
