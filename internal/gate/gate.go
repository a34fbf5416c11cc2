// Package gate implements per-request admission control. Every route is
// declared to the gate at registration time with a public/protected marker;
// at request time the gate admits public routes unconditionally and
// validates the bearer credential of everything else against the session
// manager. It is a pure admission filter: its only side effect is attaching
// the resolved user ID to the request context.
package gate

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/parleyhq/parley/internal/apperror"
	"github.com/parleyhq/parley/internal/session"
)

// contextKeyUserID stores the authenticated user's ID in the Echo context.
const contextKeyUserID = "auth_user_id"

// Gate checks inbound requests against the declared route table. Routes are
// declared during startup (single goroutine); the table is read-only once
// the server starts serving.
type Gate struct {
	sessions *session.Manager

	// public maps "METHOD /path" route keys to their public marker.
	// Registered-and-unmarked does not occur: the Public/Protect helpers
	// are the only registration path, and unmarked means unregistered.
	public map[string]bool
}

// New creates a gate backed by the given session manager.
func New(sessions *session.Manager) *Gate {
	return &Gate{
		sessions: sessions,
		public:   make(map[string]bool),
	}
}

// Public marks a registered route as admitting requests without credentials.
func (g *Gate) Public(r *echo.Route) {
	g.public[routeKey(r.Method, r.Path)] = true
}

// Protect marks a registered route as requiring a valid session token.
func (g *Gate) Protect(r *echo.Route) {
	g.public[routeKey(r.Method, r.Path)] = false
}

// Middleware returns the admission filter, applied globally. Requests that
// match no declared route pass through untouched so the router's own 404
// handling stays visible.
func (g *Gate) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			isPublic, known := g.public[routeKey(c.Request().Method, c.Path())]
			if !known || isPublic {
				return next(c)
			}

			token := BearerToken(c)
			if token == "" {
				return apperror.NewUnauthenticated("missing credential")
			}

			// A failed validation is definitive for this request; the
			// response never says whether the token was malformed,
			// expired, or revoked.
			userID, err := g.sessions.Validate(c.Request().Context(), token)
			if err != nil {
				return err
			}

			c.Set(contextKeyUserID, userID)
			return next(c)
		}
	}
}

// UserID retrieves the authenticated user's ID from the Echo context.
// Returns empty string if the request was admitted without credentials.
func UserID(c echo.Context) string {
	id, ok := c.Get(contextKeyUserID).(string)
	if !ok {
		return ""
	}
	return id
}

// BearerToken extracts the credential from the Authorization header. Both a
// raw token and the conventional "Bearer <token>" form are accepted.
// Exposed for handlers that act on the presented token itself (logout).
func BearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return ""
	}
	if rest, ok := strings.CutPrefix(header, "Bearer "); ok {
		return rest
	}
	return header
}

// routeKey builds the lookup key for a method/path pair.
func routeKey(method, path string) string {
	return method + " " + path
}
