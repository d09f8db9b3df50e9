package middleware

import (
	"errors"

	"github.com/airaware/aqi-analytics/internal/logging"
	"github.com/airaware/aqi-analytics/internal/models"
	"github.com/airaware/aqi-analytics/internal/services"
	"github.com/gofiber/fiber/v2"
)

// StatusForCode maps a service error code to its HTTP status
func StatusForCode(code string) int {
	switch code {
	case services.CodeInvalidRequest:
		return fiber.StatusBadRequest
	case services.CodeUnknownCountry, services.CodeResultNotFound:
		return fiber.StatusNotFound
	case services.CodeInsufficientHistory, services.CodeModelFitFailed:
		return fiber.StatusUnprocessableEntity
	case services.CodeDatasetUnavailable:
		return fiber.StatusServiceUnavailable
	case services.CodeTimeout:
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandler renders every error returned by a handler as an
// ErrorResponse. ServiceErrors keep their code and details.
func ErrorHandler(logger *logging.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		detail := models.ErrorDetail{
			Code:    services.CodeInternal,
			Message: "Internal Server Error",
		}

		var svcErr *services.ServiceError
		var fiberErr *fiber.Error
		switch {
		case errors.As(err, &svcErr):
			status = StatusForCode(svcErr.Code)
			detail.Code = svcErr.Code
			detail.Message = svcErr.Message
			detail.Details = svcErr.Details
		case errors.As(err, &fiberErr):
			status = fiberErr.Code
			detail.Code = "ERROR"
			detail.Message = fiberErr.Message
		}

		fields := []interface{}{
			"path", c.Path(),
			"method", c.Method(),
			"status", status,
			"code", detail.Code,
			"error", err,
		}
		reqLogger := logger.WithContext(c.UserContext())
		if status >= fiber.StatusInternalServerError {
			reqLogger.Error("Request failed", fields...)
		} else {
			reqLogger.Warn("Request rejected", fields...)
		}

		return c.Status(status).JSON(models.ErrorResponse{Error: detail})
	}
}
