package handlers

import (
	"context"
	"errors"
	"io"
	"time"

	"tienda/internal/middleware"
	"tienda/internal/services"
	"tienda/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Deps is everything the HTTP layer needs.
type Deps struct {
	Auth     *services.AuthService
	Products *services.ProductService
	Catalog  *services.CatalogService
	Cart     *services.CartService
	Orders   *services.OrderService
	Payments *services.PaymentService
	Profile  *services.ProfileService
	Log      *logger.Logger

	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
	// Checks are run by /health, keyed by dependency name.
	Checks map[string]HealthCheck
	// AccessLog receives one line per request. Nil disables request logging.
	AccessLog io.Writer
}

// NewRouter builds the fiber app with every route mounted.
func NewRouter(d Deps) *fiber.App {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	app := fiber.New(fiber.Config{
		AppName:      "tienda",
		ErrorHandler: errorHandler(d.Log),
	})
	app.Use(recover.New())
	if d.AccessLog != nil {
		app.Use(fiberlogger.New(fiberlogger.Config{Output: d.AccessLog}))
	}

	app.Get("/health", healthHandler(d.Checks))
	if d.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	required := middleware.AuthRequired(d.Auth, d.Log)
	optional := middleware.OptionalAuth(d.Auth, d.Log)

	api := app.Group("/api/v1")
	NewAuthHandler(d.Auth, d.Log).RegisterRoutes(api)
	products := NewProductHandler(d.Products, d.Log)
	products.RegisterRoutes(api)
	catalog := NewCatalogHandler(d.Catalog, d.Log)
	catalog.RegisterRoutes(api)
	NewCartHandler(d.Cart, d.Log).RegisterRoutes(api, required)
	orders := NewOrderHandler(d.Orders, d.Log)
	orders.RegisterRoutes(api, optional, required)
	payments := NewPaymentHandler(d.Payments, d.Log)
	payments.RegisterRoutes(api, optional)
	profile := NewProfileHandler(d.Profile, d.Log)
	profile.RegisterRoutes(api, required)

	admin := api.Group("/admin", required, middleware.AdminOnly())
	products.RegisterAdminRoutes(admin)
	catalog.RegisterAdminRoutes(admin)
	orders.RegisterAdminRoutes(admin)
	payments.RegisterAdminRoutes(admin)
	profile.RegisterAdminRoutes(admin)

	return app
}

func healthHandler(checks map[string]HealthCheck) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		status := fiber.StatusOK
		results := make(fiber.Map, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = fiber.StatusServiceUnavailable
				results[name] = err.Error()
				continue
			}
			results[name] = "ok"
		}
		state := "healthy"
		if status != fiber.StatusOK {
			state = "unhealthy"
		}
		return c.Status(status).JSON(fiber.Map{
			"status": state,
			"time":   time.Now().Format(time.RFC3339),
			"checks": results,
		})
	}
}

func errorHandler(log *logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}
		if code >= fiber.StatusInternalServerError {
			log.Error(c.UserContext(), "unhandled request error", err)
		}
		return c.Status(code).JSON(fiber.Map{"message": err.Error()})
	}
}
