package serverutils

import (
	"errors"

	"coverage-compare-be/internal/pkg/logger"
	"coverage-compare-be/pkg/resolution/executor"
	"coverage-compare-be/pkg/resolution/session"
	"coverage-compare-be/pkg/resolution/viewstate"

	"github.com/gofiber/fiber/v2"
)

// StatusFor maps a handler error to its HTTP status.
func StatusFor(err error) int {
	var fiberErr *fiber.Error
	var validationErr *ValidationError
	switch {
	case errors.As(err, &fiberErr):
		return fiberErr.Code
	case errors.As(err, &validationErr), errors.Is(err, executor.ErrEmptyQuery):
		return fiber.StatusBadRequest
	case errors.Is(err, session.ErrSessionNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, session.ErrAccessDenied):
		return fiber.StatusForbidden
	case errors.Is(err, session.ErrTurnInProgress):
		return fiber.StatusConflict
	case errors.Is(err, viewstate.ErrBlockedStateChange), errors.Is(err, viewstate.ErrUnknownViewKey):
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

func ErrorHandlerMiddleware(log logger.ILogger) fiber.Handler {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		status := StatusFor(err)
		message := err.Error()
		if status == fiber.StatusInternalServerError {
			log.Error("HTTP", "Unhandled error", map[string]interface{}{
				"method": ctx.Method(),
				"path":   ctx.Path(),
				"error":  err.Error(),
			})
			message = "internal server error"
		}
		return ctx.Status(status).JSON(ErrorResponse(message))
	}
}
