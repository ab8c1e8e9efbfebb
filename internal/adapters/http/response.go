package http

import (
	"github.com/labstack/echo/v4"
)

// SuccessResponse is the envelope for every successful response. Data is
// always present, even when null.
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Message string      `json:"message,omitempty"`
}

// ErrorDetail carries the client-facing error. Stack is only populated
// outside production.
type ErrorDetail struct {
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
	Stack      string `json:"stack,omitempty"`
}

// ErrorResponse is the envelope for every failed response. It never carries
// data.
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

// NewErrorResponse builds the error envelope.
func NewErrorResponse(message string, statusCode int, stack string) ErrorResponse {
	return ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Message:    message,
			StatusCode: statusCode,
			Stack:      stack,
		},
	}
}

func sendSuccess(c echo.Context, statusCode int, data interface{}, message string) error {
	return c.JSON(statusCode, SuccessResponse{
		Success: true,
		Data:    data,
		Message: message,
	})
}
