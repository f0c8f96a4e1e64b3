package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/agriconnect/marketplace-service/internal/api/http/handlers"
	"github.com/agriconnect/marketplace-service/internal/auth"
	"github.com/agriconnect/marketplace-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Accounts       *handlers.AccountsHandler
	Products       *handlers.ProductsHandler
	Orders         *handlers.OrdersHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/stats", cfg.Health.Stats)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Accounts.Register)
	authGroup.Post("/login", cfg.Accounts.Login)

	products := app.Group("/products", cfg.AuthMiddleware.Handle)
	products.Get("", cfg.Products.List)
	products.Get("/:id", cfg.Products.Get)
	products.Post("", auth.RequireRole(domain.RoleFarmer), cfg.Products.Create)
	products.Delete("/:id", auth.RequireRole(domain.RoleFarmer), cfg.Products.Delete)

	orders := app.Group("/orders", cfg.AuthMiddleware.Handle)
	orders.Get("", cfg.Orders.List)
	orders.Get("/:id", cfg.Orders.Get)
	orders.Post("", auth.RequireRole(domain.RoleClient), cfg.Orders.Place)
	orders.Patch("/:id", cfg.Orders.UpdateStatus)
}
