package handlers

import (
	"tienda/internal/middleware"
	"tienda/internal/services"
	"tienda/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

type ProfileHandler struct {
	service *services.ProfileService
	log     *logger.Logger
}

func NewProfileHandler(service *services.ProfileService, log *logger.Logger) *ProfileHandler {
	return &ProfileHandler{service: service, log: log}
}

// RegisterRoutes mounts the profile endpoints behind the required auth middleware.
func (h *ProfileHandler) RegisterRoutes(router fiber.Router, required fiber.Handler) {
	me := router.Group("/me", required)
	me.Get("/", h.HandleMe)
	me.Put("/", h.HandleUpdateMe)
	me.Get("/addresses", h.HandleListAddresses)
	me.Post("/addresses", h.HandleAddAddress)
	me.Delete("/addresses/:id", h.HandleDeleteAddress)
}

// RegisterAdminRoutes mounts user management. router must already require an admin.
func (h *ProfileHandler) RegisterAdminRoutes(router fiber.Router) {
	router.Get("/users", h.HandleListUsers)
	router.Patch("/users/:id/role", h.HandleChangeRole)
}

func (h *ProfileHandler) HandleMe(c *fiber.Ctx) error {
	user, err := h.service.Me(c.UserContext(), middleware.SessionFrom(c))
	if err != nil {
		return fail(c, h.log, "Could not retrieve profile", err)
	}
	return c.JSON(user)
}

func (h *ProfileHandler) HandleUpdateMe(c *fiber.Ctx) error {
	var upd services.ProfileUpdate
	if err := c.BodyParser(&upd); err != nil {
		return badBody(c, err)
	}
	user, err := h.service.UpdateMe(c.UserContext(), middleware.SessionFrom(c), upd)
	if err != nil {
		return fail(c, h.log, "Could not update profile", err)
	}
	return c.JSON(user)
}

func (h *ProfileHandler) HandleListAddresses(c *fiber.Ctx) error {
	addresses, err := h.service.ListAddresses(c.UserContext(), middleware.SessionFrom(c))
	if err != nil {
		return fail(c, h.log, "Could not retrieve addresses", err)
	}
	return c.JSON(addresses)
}

func (h *ProfileHandler) HandleAddAddress(c *fiber.Ctx) error {
	var in services.AddressInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	addr, err := h.service.AddAddress(c.UserContext(), middleware.SessionFrom(c), in)
	if err != nil {
		return fail(c, h.log, "Could not save address", err)
	}
	return c.Status(fiber.StatusCreated).JSON(addr)
}

func (h *ProfileHandler) HandleDeleteAddress(c *fiber.Ctx) error {
	if err := h.service.DeleteAddress(c.UserContext(), middleware.SessionFrom(c), c.Params("id")); err != nil {
		return fail(c, h.log, "Could not delete address", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ProfileHandler) HandleListUsers(c *fiber.Ctx) error {
	users, err := h.service.ListUsers(c.UserContext(), middleware.SessionFrom(c), c.Query("q"))
	if err != nil {
		return fail(c, h.log, "Could not retrieve users", err)
	}
	return c.JSON(users)
}

func (h *ProfileHandler) HandleChangeRole(c *fiber.Ctx) error {
	var req struct {
		Role string `json:"role"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	if err := h.service.ChangeRole(c.UserContext(), middleware.SessionFrom(c), c.Params("id"), req.Role); err != nil {
		return fail(c, h.log, "Could not change role", err)
	}
	return c.JSON(fiber.Map{"message": "Role updated"})
}
