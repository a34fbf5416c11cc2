package user

import (
	"github.com/labstack/echo/v4"

	"github.com/parleyhq/parley/internal/gate"
)

// RegisterRoutes declares all user routes to the router and the gate.
// Both routes require authentication.
func RegisterRoutes(e *echo.Echo, g *gate.Gate, h *Handler) {
	g.Protect(e.GET("/users/:id", h.Get))
	g.Protect(e.PUT("/users/:id", h.Update))
}
