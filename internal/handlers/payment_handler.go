package handlers

import (
	"strings"

	"tienda/internal/middleware"
	"tienda/internal/services"
	"tienda/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// PaymentHandler exposes the PayPal checkout flow and the back-office payment actions.
type PaymentHandler struct {
	service *services.PaymentService
	log     *logger.Logger
}

func NewPaymentHandler(service *services.PaymentService, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{service: service, log: log}
}

// RegisterRoutes mounts the buyer side of the PayPal flow. PayPal redirects the buyer
// to the return and cancel URLs with the provider order id in the token parameter.
func (h *PaymentHandler) RegisterRoutes(router fiber.Router, optional fiber.Handler) {
	paypal := router.Group("/payments/paypal")
	paypal.Post("/checkout", optional, h.HandleStartCheckout)
	paypal.Post("/capture", h.HandleCapture)
	paypal.Get("/return", h.HandleReturn)
	paypal.Get("/cancel", h.HandleCancel)
}

// RegisterAdminRoutes mounts payment actions on orders. router must already require an admin.
func (h *PaymentHandler) RegisterAdminRoutes(router fiber.Router) {
	router.Post("/orders/:id/mark-paid", h.HandleMarkPaid)
	router.Post("/orders/:id/refund", h.HandleRefund)
}

func (h *PaymentHandler) HandleStartCheckout(c *fiber.Ctx) error {
	var req struct {
		OrderID string `json:"order_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	if strings.TrimSpace(req.OrderID) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  fiber.Map{"order_id": "is required"},
		})
	}
	session, err := h.service.StartPayPalCheckout(c.UserContext(), middleware.SessionFrom(c), req.OrderID)
	if err != nil {
		return fail(c, h.log, "Could not start PayPal checkout", err)
	}
	return c.Status(fiber.StatusCreated).JSON(session)
}

func (h *PaymentHandler) HandleCapture(c *fiber.Ctx) error {
	var req struct {
		ProviderOrderID string `json:"provider_order_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	return h.capture(c, req.ProviderOrderID)
}

func (h *PaymentHandler) HandleReturn(c *fiber.Ctx) error {
	return h.capture(c, c.Query("token"))
}

func (h *PaymentHandler) capture(c *fiber.Ctx, providerOrderID string) error {
	providerOrderID = strings.TrimSpace(providerOrderID)
	if providerOrderID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  fiber.Map{"provider_order_id": "is required"},
		})
	}
	order, err := h.service.Capture(c.UserContext(), providerOrderID)
	if err != nil {
		return fail(c, h.log, "Payment capture failed", err)
	}
	return c.JSON(order)
}

func (h *PaymentHandler) HandleCancel(c *fiber.Ctx) error {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  fiber.Map{"token": "is required"},
		})
	}
	order, err := h.service.Cancel(c.UserContext(), token, c.Query("reason"))
	if err != nil {
		return fail(c, h.log, "Could not cancel payment", err)
	}
	return c.JSON(order)
}

func (h *PaymentHandler) HandleMarkPaid(c *fiber.Ctx) error {
	order, err := h.service.MarkPaid(c.UserContext(), middleware.SessionFrom(c), c.Params("id"))
	if err != nil {
		return fail(c, h.log, "Could not mark order as paid", err)
	}
	return c.JSON(order)
}

func (h *PaymentHandler) HandleRefund(c *fiber.Ctx) error {
	order, err := h.service.Refund(c.UserContext(), middleware.SessionFrom(c), c.Params("id"))
	if err != nil {
		return fail(c, h.log, "Refund failed", err)
	}
	return c.JSON(order)
}
