package handlers

import (
	"tienda/internal/middleware"
	"tienda/internal/models"
	"tienda/internal/services"
	"tienda/internal/validation"
	"tienda/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// CatalogHandler serves categories, brands and add-on services.
type CatalogHandler struct {
	service  *services.CatalogService
	validate *validator.Validate
	log      *logger.Logger
}

func NewCatalogHandler(service *services.CatalogService, log *logger.Logger) *CatalogHandler {
	return &CatalogHandler{service: service, validate: validation.New(), log: log}
}

func (h *CatalogHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/categories", h.HandleListCategories)
	router.Get("/brands", h.HandleListBrands)
	router.Get("/add-ons", h.HandleListAddOns)
}

// RegisterAdminRoutes mounts catalog management. router must already require an admin.
func (h *CatalogHandler) RegisterAdminRoutes(router fiber.Router) {
	router.Post("/categories", h.HandleSaveCategory)
	router.Put("/categories/:id", h.HandleSaveCategory)
	router.Delete("/categories/:id", h.HandleDeleteCategory)
	router.Post("/brands", h.HandleSaveBrand)
	router.Put("/brands/:id", h.HandleSaveBrand)
	router.Delete("/brands/:id", h.HandleDeleteBrand)
	router.Get("/add-ons", h.HandleListAddOns)
	router.Post("/add-ons", h.HandleSaveAddOn)
	router.Put("/add-ons/:id", h.HandleSaveAddOn)
	router.Delete("/add-ons/:id", h.HandleDeleteAddOn)
}

func (h *CatalogHandler) HandleListCategories(c *fiber.Ctx) error {
	categories, err := h.service.ListCategories(c.UserContext())
	if err != nil {
		return fail(c, h.log, "Could not retrieve categories", err)
	}
	return c.JSON(categories)
}

func (h *CatalogHandler) HandleListBrands(c *fiber.Ctx) error {
	brands, err := h.service.ListBrands(c.UserContext())
	if err != nil {
		return fail(c, h.log, "Could not retrieve brands", err)
	}
	return c.JSON(brands)
}

func (h *CatalogHandler) HandleListAddOns(c *fiber.Ctx) error {
	addOns, err := h.service.ListAddOns(c.UserContext(), middleware.SessionFrom(c))
	if err != nil {
		return fail(c, h.log, "Could not retrieve add-on services", err)
	}
	return c.JSON(addOns)
}

func (h *CatalogHandler) HandleSaveCategory(c *fiber.Ctx) error {
	var category models.Category
	if err := c.BodyParser(&category); err != nil {
		return badBody(c, err)
	}
	if err := h.validate.Struct(category); err != nil {
		return validationFailed(c, err)
	}
	category.ID = c.Params("id")
	if err := h.service.SaveCategory(c.UserContext(), middleware.SessionFrom(c), &category); err != nil {
		return fail(c, h.log, "Could not save category", err)
	}
	return c.Status(savedStatus(c)).JSON(category)
}

func (h *CatalogHandler) HandleDeleteCategory(c *fiber.Ctx) error {
	if err := h.service.DeleteCategory(c.UserContext(), middleware.SessionFrom(c), c.Params("id")); err != nil {
		return fail(c, h.log, "Could not delete category", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *CatalogHandler) HandleSaveBrand(c *fiber.Ctx) error {
	var brand models.Brand
	if err := c.BodyParser(&brand); err != nil {
		return badBody(c, err)
	}
	if err := h.validate.Struct(brand); err != nil {
		return validationFailed(c, err)
	}
	brand.ID = c.Params("id")
	if err := h.service.SaveBrand(c.UserContext(), middleware.SessionFrom(c), &brand); err != nil {
		return fail(c, h.log, "Could not save brand", err)
	}
	return c.Status(savedStatus(c)).JSON(brand)
}

func (h *CatalogHandler) HandleDeleteBrand(c *fiber.Ctx) error {
	if err := h.service.DeleteBrand(c.UserContext(), middleware.SessionFrom(c), c.Params("id")); err != nil {
		return fail(c, h.log, "Could not delete brand", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *CatalogHandler) HandleSaveAddOn(c *fiber.Ctx) error {
	addOn := models.AddOnService{Active: true}
	if err := c.BodyParser(&addOn); err != nil {
		return badBody(c, err)
	}
	if err := h.validate.Struct(addOn); err != nil {
		return validationFailed(c, err)
	}
	addOn.ID = c.Params("id")
	if err := h.service.SaveAddOn(c.UserContext(), middleware.SessionFrom(c), &addOn); err != nil {
		return fail(c, h.log, "Could not save add-on service", err)
	}
	return c.Status(savedStatus(c)).JSON(addOn)
}

func (h *CatalogHandler) HandleDeleteAddOn(c *fiber.Ctx) error {
	if err := h.service.DeleteAddOn(c.UserContext(), middleware.SessionFrom(c), c.Params("id")); err != nil {
		return fail(c, h.log, "Could not delete add-on service", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func savedStatus(c *fiber.Ctx) int {
	if c.Params("id") == "" {
		return fiber.StatusCreated
	}
	return fiber.StatusOK
}
