package middlewares

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ErrorHandler converts unhandled errors into generic JSON responses.
// Internal error text never reaches the caller.
func ErrorHandler(ctx *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	if code == fiber.StatusInternalServerError {
		slog.Error("Unhandled error", "path", ctx.Path(), "error", err)
	}
	return ctx.Status(code).JSON(errorResponse{
		Code:    code,
		Message: statusMessage(code),
	})
}

func statusMessage(code int) string {
	switch code {
	case fiber.StatusBadRequest:
		return "Bad request"
	case fiber.StatusUnauthorized:
		return "Unauthorized"
	case fiber.StatusForbidden:
		return "Forbidden"
	case fiber.StatusNotFound, fiber.StatusMethodNotAllowed:
		return "Not found"
	default:
		return "Internal server error"
	}
}
