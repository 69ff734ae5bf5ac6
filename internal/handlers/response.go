package handlers

import (
	"errors"

	"tienda/internal/services"
	"tienda/internal/validation"
	"tienda/pkg/logger"
	"tienda/pkg/paypal"

	"github.com/gofiber/fiber/v2"
)

// statusFor maps service errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrEmptyCart):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrUnauthenticated), errors.Is(err, services.ErrInvalidCredentials):
		return fiber.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrConflict),
		errors.Is(err, services.ErrAlreadyExists),
		errors.Is(err, services.ErrPaymentInProgress):
		return fiber.StatusConflict
	case errors.Is(err, services.ErrInvalidTransition):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, services.ErrPaymentUnavailable):
		return fiber.StatusServiceUnavailable
	}
	var apiErr *paypal.APIError
	if errors.As(err, &apiErr) {
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}

// fail writes err as {"message", "error"}. Server side failures are logged and their
// detail is not exposed.
func fail(c *fiber.Ctx, log *logger.Logger, message string, err error) error {
	status := statusFor(err)
	body := fiber.Map{"message": message, "error": err.Error()}

	var verr *services.ValidationError
	if errors.As(err, &verr) && len(verr.Fields) > 0 {
		body["errors"] = verr.Fields
	}
	if status >= fiber.StatusInternalServerError {
		log.Error(c.UserContext(), message, err)
		if status == fiber.StatusInternalServerError {
			body["error"] = "internal error"
		}
	}
	return c.Status(status).JSON(body)
}

func validationFailed(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Validation failed",
		"errors":  validation.FieldErrors(err),
	})
}

func badBody(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Invalid request body",
		"error":   err.Error(),
	})
}
