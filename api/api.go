// Package api implements the Fiber HTTP handlers for both backend
// services: the identity discovery registry and the trust graph
// engine.
package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	StatusCode int   `json:"status_code,omitempty"`
	Path      string `json:"path,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// ErrorHandler handles API errors, rendering them as an ErrorResponse:
// the message under "error", alongside success, status_code, path,
// request_id and timestamp.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}

	requestID := c.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.New().String()
	}

	return c.Status(code).JSON(ErrorResponse{
		Success:    false,
		Error:      err.Error(),
		StatusCode: code,
		Path:       c.Path(),
		RequestID:  requestID,
		Timestamp:  time.Now().Format(time.RFC3339),
	})
}

// SuccessResponse represents a success response.
type SuccessResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}
