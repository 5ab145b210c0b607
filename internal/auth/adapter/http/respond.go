package http

import (
	"errors"
	"strconv"

	apperrors "projectgoat/internal/shared/errors"

	"github.com/gofiber/fiber/v2"
)

// respondError maps application errors onto the wire. Anything that is not
// a typed AppError is surfaced as an opaque 500; internals never leak.
func respondError(c *fiber.Ctx, err error) error {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	body := fiber.Map{"error": appErr.Message}
	if appErr.Code != "" {
		body["reason"] = appErr.Code
	}
	if len(appErr.Details) > 0 {
		body["details"] = appErr.Details
	}

	if appErr.Type == apperrors.ErrorTypeRateLimited {
		if secs, ok := appErr.Details["retry_after_seconds"].(int); ok && secs > 0 {
			c.Set("Retry-After", strconv.Itoa(secs))
		}
	}

	return c.Status(appErr.HTTPCode).JSON(body)
}
