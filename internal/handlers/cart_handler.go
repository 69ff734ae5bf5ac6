package handlers

import (
	"tienda/internal/middleware"
	"tienda/internal/services"
	"tienda/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// CartHandler exposes the shopping cart of the signed in user.
type CartHandler struct {
	service *services.CartService
	log     *logger.Logger
}

func NewCartHandler(service *services.CartService, log *logger.Logger) *CartHandler {
	return &CartHandler{service: service, log: log}
}

// RegisterRoutes mounts the cart behind the required auth middleware.
func (h *CartHandler) RegisterRoutes(router fiber.Router, required fiber.Handler) {
	cart := router.Group("/cart", required)
	cart.Get("/", h.HandleGet)
	cart.Post("/items", h.HandleAdd)
	cart.Patch("/items/:id", h.HandleUpdate)
	cart.Delete("/items/:id", h.HandleRemove)
	cart.Delete("/", h.HandleClear)
}

type addToCartRequest struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

func (h *CartHandler) HandleGet(c *fiber.Ctx) error {
	view, err := h.service.GetCart(c.UserContext(), middleware.SessionFrom(c))
	if err != nil {
		return fail(c, h.log, "Could not retrieve cart", err)
	}
	return c.JSON(view)
}

func (h *CartHandler) HandleAdd(c *fiber.Ctx) error {
	req := addToCartRequest{Quantity: 1}
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	item, err := h.service.AddItem(c.UserContext(), middleware.SessionFrom(c), req.ProductID, req.VariantID, req.Quantity)
	if err != nil {
		return fail(c, h.log, "Could not add item to cart", err)
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

func (h *CartHandler) HandleUpdate(c *fiber.Ctx) error {
	var req struct {
		Quantity *int `json:"quantity"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	if req.Quantity == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  fiber.Map{"quantity": "is required"},
		})
	}
	if err := h.service.UpdateQuantity(c.UserContext(), middleware.SessionFrom(c), c.Params("id"), *req.Quantity); err != nil {
		return fail(c, h.log, "Could not update cart item", err)
	}
	return h.HandleGet(c)
}

func (h *CartHandler) HandleRemove(c *fiber.Ctx) error {
	if err := h.service.RemoveItem(c.UserContext(), middleware.SessionFrom(c), c.Params("id")); err != nil {
		return fail(c, h.log, "Could not remove cart item", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *CartHandler) HandleClear(c *fiber.Ctx) error {
	if err := h.service.Clear(c.UserContext(), middleware.SessionFrom(c)); err != nil {
		return fail(c, h.log, "Could not clear cart", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
