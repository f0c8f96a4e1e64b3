package http

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"github.com/agriconnect/marketplace-service/internal/observability"
	"github.com/agriconnect/marketplace-service/pkg/apperrors"
)

// RegisterMiddlewares attaches the global chain: request IDs, access
// logging, per-request deadlines, and error rendering with panic
// recovery. The logger wraps error rendering so it records the status
// of the rendered error envelope, not the handler's.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	app.Use(requestid.New())
	app.Use(observability.RequestLogger(logger, metrics))
	if timeout > 0 {
		app.Use(withDeadline(timeout))
	}
	app.Use(renderErrors(logger, metrics))
}

func withDeadline(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// renderErrors converts any error bubbling out of a handler into the JSON
// error envelope, recovering panics into INTERNAL_ERROR responses.
func renderErrors(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := runHandler(c, logger)
		if err == nil {
			return nil
		}

		domainErr := apperrors.ToDomainError(err)
		metrics.RecordError(c.Path(), c.Method(), domainErr.Code)
		if domainErr.HTTPStatus >= fiber.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("request_id", c.GetRespHeader(fiber.HeaderXRequestID)),
				zap.String("path", c.Path()),
				zap.Error(domainErr))
		}

		body := fiber.Map{
			"code":    domainErr.Code,
			"message": domainErr.Message,
		}
		if len(domainErr.Details) > 0 {
			body["details"] = domainErr.Details
		}
		return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{"error": body})
	}
}

func runHandler(c *fiber.Ctx, logger *zap.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic recovered",
				zap.String("request_id", c.GetRespHeader(fiber.HeaderXRequestID)),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			err = apperrors.NewInternalError(nil)
		}
	}()
	return c.Next()
}
