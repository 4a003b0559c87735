package api

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusTimeout is reported when a request exceeds the client timeout.
const StatusTimeout = http.StatusRequestTimeout

// APIError is a non-2xx response (or a timeout, reported as 408).
// Message is empty when the backend gave no explanation.
type APIError struct {
	Status  int
	Message string
	Code    string // backend error code, when the body carried one
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Code, msg)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, msg)
}

// StatusOf returns the HTTP status carried by err, or 0 when err is not an *APIError.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// ServerMessage returns the backend's message for err, or "" when err is not an *APIError.
func ServerMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}

// Message maps err to text suitable for a notification.
func Message(err error) string {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return "Network error. Please try again."
	}

	switch apiErr.Status {
	case http.StatusBadRequest:
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return "Invalid request data"
	case http.StatusUnauthorized:
		return "Authentication required"
	case http.StatusConflict:
		return "This action conflicts with existing data"
	case http.StatusTooManyRequests:
		return "Too many requests. Please wait before trying again"
	case http.StatusInternalServerError:
		return "Server error. Please try again later"
	case StatusTimeout:
		return "Request timeout. Please check your connection"
	default:
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return "An unexpected error occurred"
	}
}
