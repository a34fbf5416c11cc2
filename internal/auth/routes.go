package auth

import (
	"github.com/labstack/echo/v4"

	"github.com/parleyhq/parley/internal/gate"
)

// RegisterRoutes declares all auth routes to the router and the gate.
// Login endpoints are public by definition; everything acting on an
// established session is protected.
func RegisterRoutes(e *echo.Echo, g *gate.Gate, h *Handler) {
	g.Public(e.POST("/auth/code", h.RequestCode))
	g.Public(e.POST("/auth/login/phone", h.LoginPhone))
	g.Public(e.POST("/auth/login/email", h.LoginEmail))
	g.Public(e.POST("/auth/login/provider", h.LoginProvider))
	g.Public(e.POST("/auth/login/password", h.LoginPassword))

	g.Protect(e.POST("/auth/set-password", h.SetPassword))
	g.Protect(e.POST("/auth/logout", h.Logout))
	g.Protect(e.GET("/auth/user-info", h.UserInfo))
}
