package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// statusOf returns the status the client will see. Errors returned up the
// chain are rendered later by the app ErrorHandler, so the response code is
// not final yet.
func statusOf(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}
