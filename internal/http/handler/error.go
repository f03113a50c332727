package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"sharelink/internal/access"
	"sharelink/internal/expiry"
	"sharelink/internal/http/middleware"
	"sharelink/internal/service"
	"sharelink/internal/shortlink"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError writes a standardized JSON error response without leaking internal errors.
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: middleware.GetRequestID(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

// serviceErrors is checked in order; the first errors.Is match wins.
var serviceErrors = []errorMapping{
	{access.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND", "file not found"},
	{service.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND", "file not found"},
	{access.ErrExpired, fiber.StatusGone, "EXPIRED", "this link has expired"},
	{access.ErrPasswordRequired, fiber.StatusUnauthorized, "PASSWORD_REQUIRED", "password required"},
	{access.ErrPasswordMismatch, fiber.StatusForbidden, "PASSWORD_MISMATCH", "invalid password"},
	{expiry.ErrInvalidExpiry, fiber.StatusBadRequest, "INVALID_EXPIRY", "expiresInDays must be a positive integer"},
	{service.ErrFileTooLarge, fiber.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "file exceeds the maximum allowed size"},
	{service.ErrUnsupportedType, fiber.StatusUnsupportedMediaType, "UNSUPPORTED_TYPE", "file type is not allowed"},
	{service.ErrReaderNil, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required"},
	{service.ErrUserExists, fiber.StatusBadRequest, "USER_EXISTS", "username or email already exists"},
	{service.ErrInvalidCredentials, fiber.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid credentials"},
	{shortlink.ErrLinkSpaceExhausted, fiber.StatusServiceUnavailable, "LINK_SPACE_EXHAUSTED", "could not allocate a short link, try again"},
	{service.ErrStorageUnavailable, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable"},
}

// writeServiceError maps a service error onto the envelope. Validation errors
// carry their own message; everything unknown becomes a 500.
func writeServiceError(c *fiber.Ctx, err error) error {
	if errors.Is(err, service.ErrInvalidInput) {
		return writeError(c, fiber.StatusBadRequest, "INVALID_INPUT", err.Error())
	}
	for _, m := range serviceErrors {
		if errors.Is(err, m.target) {
			return writeError(c, m.status, m.code, m.message)
		}
	}
	return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var e *fiber.Error
		if errors.As(err, &e) {
			status = e.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusUnauthorized:
			return writeError(c, status, "UNAUTHORIZED", e.Message)
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "FILE_TOO_LARGE", "request body too large")
		case fiber.StatusTooManyRequests:
			return writeError(c, status, "RATE_LIMITED", "too many requests, please try again later")
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
