package handlers

import (
	"tienda/internal/middleware"
	"tienda/internal/models"
	"tienda/internal/repositories"
	"tienda/internal/services"
	"tienda/internal/validation"
	"tienda/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type ProductHandler struct {
	service  *services.ProductService
	validate *validator.Validate
	log      *logger.Logger
}

func NewProductHandler(service *services.ProductService, log *logger.Logger) *ProductHandler {
	return &ProductHandler{service: service, validate: validation.New(), log: log}
}

// RegisterRoutes mounts the public catalog reads.
func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	products := router.Group("/products")
	products.Get("/", h.HandleList)
	products.Get("/:id", h.HandleGet)
}

// RegisterAdminRoutes mounts product management. router must already require an admin.
func (h *ProductHandler) RegisterAdminRoutes(router fiber.Router) {
	products := router.Group("/products")
	products.Get("/", h.HandleAdminList)
	products.Get("/:id", h.HandleGet)
	products.Post("/", h.HandleCreate)
	products.Put("/:id", h.HandleUpdate)
	products.Delete("/:id", h.HandleDelete)
}

func (h *ProductHandler) HandleList(c *fiber.Ctx) error {
	products, err := h.service.GetAllProducts(c.UserContext(), productFilter(c, true))
	if err != nil {
		return fail(c, h.log, "Could not retrieve products", err)
	}
	return c.JSON(products)
}

func (h *ProductHandler) HandleAdminList(c *fiber.Ctx) error {
	products, err := h.service.GetAllProducts(c.UserContext(), productFilter(c, false))
	if err != nil {
		return fail(c, h.log, "Could not retrieve products", err)
	}
	return c.JSON(products)
}

func productFilter(c *fiber.Ctx, activeOnly bool) repositories.ProductFilter {
	return repositories.ProductFilter{
		CategoryID: c.Query("category_id"),
		BrandID:    c.Query("brand_id"),
		Search:     c.Query("q"),
		ActiveOnly: activeOnly,
	}
}

func (h *ProductHandler) HandleGet(c *fiber.Ctx) error {
	product, err := h.service.GetProductByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, h.log, "Could not retrieve product", err)
	}
	if !product.Active && !middleware.SessionFrom(c).IsAdmin() {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Product not found"})
	}
	return c.JSON(product)
}

func (h *ProductHandler) HandleCreate(c *fiber.Ctx) error {
	product, ok, err := h.parse(c)
	if !ok {
		return err
	}
	if err := h.service.CreateProduct(c.UserContext(), middleware.SessionFrom(c), product); err != nil {
		return fail(c, h.log, "Could not create product", err)
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

func (h *ProductHandler) HandleUpdate(c *fiber.Ctx) error {
	product, ok, err := h.parse(c)
	if !ok {
		return err
	}
	product.ID = c.Params("id")
	if err := h.service.UpdateProduct(c.UserContext(), middleware.SessionFrom(c), product); err != nil {
		return fail(c, h.log, "Could not update product", err)
	}
	return c.JSON(product)
}

func (h *ProductHandler) HandleDelete(c *fiber.Ctx) error {
	if err := h.service.DeleteProduct(c.UserContext(), middleware.SessionFrom(c), c.Params("id")); err != nil {
		return fail(c, h.log, "Could not delete product", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// parse decodes and validates a product body. When ok is false the error response
// has been written and err is the result of writing it.
func (h *ProductHandler) parse(c *fiber.Ctx) (product *models.Product, ok bool, err error) {
	product = &models.Product{Active: true}
	if err := c.BodyParser(product); err != nil {
		return nil, false, badBody(c, err)
	}
	product.ID = ""
	if err := h.validate.Struct(product); err != nil {
		return nil, false, validationFailed(c, err)
	}
	return product, true, nil
}
