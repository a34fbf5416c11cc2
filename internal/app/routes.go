package app

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/parleyhq/parley/internal/auth"
	"github.com/parleyhq/parley/internal/chat"
	"github.com/parleyhq/parley/internal/gate"
	"github.com/parleyhq/parley/internal/session"
	"github.com/parleyhq/parley/internal/user"
)

// RegisterRoutes constructs every feature's repository/service/handler
// stack and declares all routes. This is the single place where routes are
// aggregated, so the gate's public-route table is complete before its
// middleware is installed.
func (a *App) RegisterRoutes() {
	e := a.Echo

	// Core components, leaves first.
	sessions := session.NewManager(a.Redis, []byte(a.Config.Auth.JWTSecret), a.Config.Auth.SessionTTL)
	g := gate.New(sessions)

	users := user.NewService(user.NewRepository(a.DB), a.Redis, a.Config.Cache.ProfileTTL)
	chats := chat.NewService(chat.NewRepository(a.DB), chat.NewRecentCache(a.Redis, a.Config.Cache.RecentWindow))
	logins := auth.NewService(users, sessions, a.Redis, a.Config.Auth.LoginCodeTTL)

	// Health check endpoint for container orchestration.
	g.Public(e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}))

	auth.RegisterRoutes(e, g, auth.NewHandler(logins, users))
	user.RegisterRoutes(e, g, user.NewHandler(users))
	chat.RegisterRoutes(e, g, chat.NewHandler(chats))

	// The gate runs after the route table above is fully declared.
	e.Use(g.Middleware())
}
