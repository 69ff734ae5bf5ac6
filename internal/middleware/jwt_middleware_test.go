package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"tienda/internal/middleware"
	"tienda/internal/models"
	"tienda/internal/repositories"
	"tienda/internal/services"
	"tienda/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(t *testing.T) (*fiber.App, *services.AuthService) {
	t.Helper()
	auth := services.NewAuthService(repositories.NewMockUserRepository(), "secret", nil)
	log := logger.Nop()

	app := fiber.New()
	whoami := func(c *fiber.Ctx) error {
		sess := middleware.SessionFrom(c)
		return c.JSON(fiber.Map{"user_id": sess.UserID, "role": sess.Role})
	}
	app.Get("/optional", middleware.OptionalAuth(auth, log), whoami)
	app.Get("/required", middleware.AuthRequired(auth, log), whoami)
	app.Get("/admin", middleware.AuthRequired(auth, log), middleware.AdminOnly(), whoami)
	return app, auth
}

func call(t *testing.T, app *fiber.App, path, authHeader string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestAuthMiddleware(t *testing.T) {
	app, auth := newApp(t)
	customer, err := auth.IssueToken(&models.User{ID: "u-1", Username: "ana", Role: models.RoleCustomer})
	require.NoError(t, err)
	admin, err := auth.IssueToken(&models.User{ID: "u-2", Username: "boss", Role: models.RoleAdmin})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, call(t, app, "/optional", ""))
	assert.Equal(t, http.StatusOK, call(t, app, "/optional", "Bearer "+customer))
	assert.Equal(t, http.StatusUnauthorized, call(t, app, "/optional", "Bearer broken"))
	assert.Equal(t, http.StatusUnauthorized, call(t, app, "/optional", "Token "+customer))

	assert.Equal(t, http.StatusUnauthorized, call(t, app, "/required", ""))
	assert.Equal(t, http.StatusOK, call(t, app, "/required", "Bearer "+customer))

	assert.Equal(t, http.StatusForbidden, call(t, app, "/admin", "Bearer "+customer))
	assert.Equal(t, http.StatusOK, call(t, app, "/admin", "Bearer "+admin))
}

func TestSessionFromDefaultsToGuest(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		assert.True(t, middleware.SessionFrom(c).IsGuest())
		return c.SendStatus(fiber.StatusNoContent)
	})
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}
