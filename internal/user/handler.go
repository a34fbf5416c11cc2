package user

import (
	"github.com/labstack/echo/v4"

	"github.com/parleyhq/parley/internal/apperror"
	"github.com/parleyhq/parley/internal/gate"
	"github.com/parleyhq/parley/internal/response"
)

// Handler handles HTTP requests for user profiles. Handlers are thin: they
// bind the request, call the service, and shape the response. No business
// logic lives here.
type Handler struct {
	service *Service
}

// NewHandler creates a user handler with the given service.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Get returns a user profile (GET /users/:id).
func (h *Handler) Get(c echo.Context) error {
	u, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return response.OK(c, "Success", u)
}

// Update modifies the caller's own profile (PUT /users/:id). Updating
// anyone else is Forbidden.
func (h *Handler) Update(c echo.Context) error {
	targetID := c.Param("id")
	if targetID != gate.UserID(c) {
		return apperror.NewForbidden("you can only update your own profile")
	}

	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	if req.Phone == nil && req.Email == nil {
		return apperror.NewBadRequest("nothing to update")
	}

	u, err := h.service.Update(c.Request().Context(), targetID, Patch{
		Phone: req.Phone,
		Email: req.Email,
	})
	if err != nil {
		return err
	}
	return response.OK(c, "Success", u)
}
