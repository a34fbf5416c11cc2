// Package response defines the JSON envelope every endpoint returns.
// Success responses carry code 0; error responses reuse the HTTP status as
// the code. The envelope is produced here for handlers and in the app's
// error handler for failures, so clients always see the same shape.
package response

import (
	"github.com/labstack/echo/v4"
)

// Envelope is the wire format for every JSON response.
type Envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// OK writes a 200 response with code 0 and the given payload.
func OK(c echo.Context, message string, data any) error {
	return c.JSON(200, Envelope{Code: 0, Message: message, Data: data})
}

// Error writes an error response. The HTTP status doubles as the envelope
// code; data is always null on failure (no partial data).
func Error(c echo.Context, status int, message string) error {
	return c.JSON(status, Envelope{Code: status, Message: message, Data: nil})
}
