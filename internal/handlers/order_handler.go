package handlers

import (
	"strings"

	"tienda/internal/middleware"
	"tienda/internal/models"
	"tienda/internal/services"
	"tienda/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

const maxPageSize = 100

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service *services.OrderService
	log     *logger.Logger
}

func NewOrderHandler(service *services.OrderService, log *logger.Logger) *OrderHandler {
	return &OrderHandler{service: service, log: log}
}

// RegisterRoutes mounts checkout and order reads. optional lets guests through,
// required rejects them.
func (h *OrderHandler) RegisterRoutes(router fiber.Router, optional, required fiber.Handler) {
	orders := router.Group("/orders")
	orders.Post("/", optional, h.HandleCreateOrder)
	orders.Get("/", required, h.HandleListMyOrders)
	orders.Get("/:id", optional, h.HandleGetOrderByID)
	orders.Post("/:id/cancel", required, h.HandleCancelOrder)
}

// RegisterAdminRoutes mounts the back-office order endpoints. router must already
// require an admin.
func (h *OrderHandler) RegisterAdminRoutes(router fiber.Router) {
	orders := router.Group("/orders")
	orders.Get("/", h.HandleAdminList)
	orders.Get("/:id", h.HandleGetOrderByID)
	orders.Patch("/:id/status", h.HandleUpdateOrderStatus)
	orders.Post("/:id/cancel", h.HandleCancelOrder)
}

// HandleCreateOrder places an order from the cart or from explicit items.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	var in services.PlaceOrderInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	if key := strings.TrimSpace(c.Get("Idempotency-Key")); key != "" && in.IdempotencyKey == "" {
		in.IdempotencyKey = key
	}

	order, err := h.service.PlaceOrder(c.UserContext(), middleware.SessionFrom(c), in)
	if err != nil {
		return fail(c, h.log, "Could not create order", err)
	}
	return c.Status(fiber.StatusCreated).JSON(order)
}

func (h *OrderHandler) HandleListMyOrders(c *fiber.Ctx) error {
	orders, err := h.service.ListMyOrders(c.UserContext(), middleware.SessionFrom(c), orderFilter(c))
	if err != nil {
		return fail(c, h.log, "Could not retrieve orders", err)
	}
	return c.JSON(orders)
}

func (h *OrderHandler) HandleAdminList(c *fiber.Ctx) error {
	rows, err := h.service.AdminListOrders(c.UserContext(), middleware.SessionFrom(c), orderFilter(c))
	if err != nil {
		return fail(c, h.log, "Could not retrieve orders", err)
	}
	return c.JSON(rows)
}

func orderFilter(c *fiber.Ctx) models.OrderFilter {
	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > maxPageSize {
		limit = maxPageSize
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}
	return models.OrderFilter{
		Status:        models.OrderStatus(c.Query("status")),
		PaymentStatus: models.PaymentStatus(c.Query("payment_status")),
		Search:        strings.TrimSpace(c.Query("q")),
		Limit:         limit,
		Offset:        offset,
	}
}

// HandleGetOrderByID retrieves a single order by its ID.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	order, err := h.service.GetOrder(c.UserContext(), middleware.SessionFrom(c), c.Params("id"))
	if err != nil {
		return fail(c, h.log, "Could not retrieve order", err)
	}
	return c.JSON(order)
}

type statusUpdateRequest struct {
	Status         models.OrderStatus `json:"status"`
	TrackingNumber *string            `json:"tracking_number"`
}

// HandleUpdateOrderStatus moves an order along the fulfilment table.
func (h *OrderHandler) HandleUpdateOrderStatus(c *fiber.Ctx) error {
	var req statusUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	if req.Status == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  fiber.Map{"status": "is required"},
		})
	}

	order, err := h.service.UpdateStatus(c.UserContext(), middleware.SessionFrom(c), c.Params("id"), req.Status, req.TrackingNumber)
	if err != nil {
		return fail(c, h.log, "Order update failed", err)
	}
	return c.JSON(order)
}

func (h *OrderHandler) HandleCancelOrder(c *fiber.Ctx) error {
	var req struct {
		Reason string `json:"reason"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badBody(c, err)
		}
	}
	order, err := h.service.CancelOrder(c.UserContext(), middleware.SessionFrom(c), c.Params("id"), req.Reason)
	if err != nil {
		return fail(c, h.log, "Could not cancel order", err)
	}
	return c.JSON(order)
}
