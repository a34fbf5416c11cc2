package chat

import (
	"github.com/labstack/echo/v4"

	"github.com/parleyhq/parley/internal/apperror"
	"github.com/parleyhq/parley/internal/gate"
	"github.com/parleyhq/parley/internal/response"
)

// Handler handles HTTP requests for conversations. Handlers are thin: bind,
// call the service, shape the response.
type Handler struct {
	service *Service
}

// NewHandler creates a chat handler with the given service.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Start creates a new topic (POST /chat/start).
func (h *Handler) Start(c echo.Context) error {
	topic, err := h.service.StartTopic(c.Request().Context(), gate.UserID(c))
	if err != nil {
		return err
	}
	return response.OK(c, "Chat started successfully", topic)
}

// Send appends a message to a topic (POST /chat/:topicId/message).
func (h *Handler) Send(c echo.Context) error {
	var req SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	msg, err := h.service.SendMessage(c.Request().Context(), gate.UserID(c), c.Param("topicId"), req.Content)
	if err != nil {
		return err
	}
	return response.OK(c, "Message sent successfully", msg)
}

// Messages returns a topic's full durable log (GET /chat/:topicId/messages).
func (h *Handler) Messages(c echo.Context) error {
	messages, err := h.service.Messages(c.Request().Context(), gate.UserID(c), c.Param("topicId"))
	if err != nil {
		return err
	}
	return response.OK(c, "Success", messages)
}

// Latest returns the cached recent window (GET /chat/:topicId/messages/latest).
func (h *Handler) Latest(c echo.Context) error {
	messages, err := h.service.Recent(c.Request().Context(), gate.UserID(c), c.Param("topicId"))
	if err != nil {
		return err
	}
	return response.OK(c, "Success", messages)
}
