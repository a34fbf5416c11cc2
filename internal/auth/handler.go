package auth

import (
	"github.com/labstack/echo/v4"

	"github.com/parleyhq/parley/internal/apperror"
	"github.com/parleyhq/parley/internal/gate"
	"github.com/parleyhq/parley/internal/response"
	"github.com/parleyhq/parley/internal/user"
)

// Handler handles HTTP requests for authentication. Handlers are thin: they
// bind the request, call the service, and shape the response.
type Handler struct {
	service *Service
	users   *user.Service
}

// NewHandler creates an auth handler with the given services.
func NewHandler(service *Service, users *user.Service) *Handler {
	return &Handler{service: service, users: users}
}

// RequestCode issues a login verification code (POST /auth/code).
func (h *Handler) RequestCode(c echo.Context) error {
	var req CodeRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	target := req.Phone
	if (target == "") == (req.Email == "") {
		return apperror.NewBadRequest("exactly one of phone or email is required")
	}
	if target == "" {
		target = req.Email
	}

	if err := h.service.RequestCode(c.Request().Context(), target); err != nil {
		return err
	}
	return response.OK(c, "Verification code sent", nil)
}

// LoginPhone signs in with a phone number and code (POST /auth/login/phone).
func (h *Handler) LoginPhone(c echo.Context) error {
	var req PhoneLoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	if req.Phone == "" {
		return apperror.NewBadRequest("phone is required")
	}

	result, err := h.service.LoginWithPhone(c.Request().Context(), req.Phone, req.Code)
	if err != nil {
		return err
	}
	return response.OK(c, "Success", result)
}

// LoginEmail signs in with an email address and code (POST /auth/login/email).
func (h *Handler) LoginEmail(c echo.Context) error {
	var req EmailLoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	if req.Email == "" {
		return apperror.NewBadRequest("email is required")
	}

	result, err := h.service.LoginWithEmail(c.Request().Context(), req.Email, req.Code)
	if err != nil {
		return err
	}
	return response.OK(c, "Success", result)
}

// LoginProvider signs in with an external provider pair (POST /auth/login/provider).
func (h *Handler) LoginProvider(c echo.Context) error {
	var req ProviderLoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	if req.Provider == "" || req.ProviderID == "" {
		return apperror.NewBadRequest("provider and providerId are required")
	}

	result, err := h.service.LoginWithProvider(c.Request().Context(), req.Provider, req.ProviderID)
	if err != nil {
		return err
	}
	return response.OK(c, "Success", result)
}

// LoginPassword signs in with an identifier and password (POST /auth/login/password).
func (h *Handler) LoginPassword(c echo.Context) error {
	var req PasswordLoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	if req.Identifier == "" || req.Password == "" {
		return apperror.NewBadRequest("identifier and password are required")
	}

	result, err := h.service.LoginWithPassword(c.Request().Context(), req.Identifier, req.Password)
	if err != nil {
		return err
	}
	return response.OK(c, "Success", result)
}

// SetPassword sets the caller's password (POST /auth/set-password).
func (h *Handler) SetPassword(c echo.Context) error {
	var req SetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	if err := h.service.SetPassword(c.Request().Context(), gate.UserID(c), req.Password); err != nil {
		return err
	}
	return response.OK(c, "Password updated", nil)
}

// Logout revokes the presented token (POST /auth/logout).
func (h *Handler) Logout(c echo.Context) error {
	if err := h.service.Logout(c.Request().Context(), gate.BearerToken(c)); err != nil {
		return err
	}
	return response.OK(c, "Logged out", nil)
}

// UserInfo returns the caller's own profile (GET /auth/user-info).
func (h *Handler) UserInfo(c echo.Context) error {
	u, err := h.users.Get(c.Request().Context(), gate.UserID(c))
	if err != nil {
		return err
	}
	return response.OK(c, "Success", u)
}
