package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/honmoon-go-api/internal/config"
	"github.com/noah-isme/honmoon-go-api/internal/handler"
	"github.com/noah-isme/honmoon-go-api/internal/middleware"
	"github.com/noah-isme/honmoon-go-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	MissionHandler  *handler.MissionHandler
	ActivityHandler *handler.ActivityHandler
	PointHandler    *handler.PointHandler
	CatalogHandler  *handler.CatalogHandler
	UserHandler     *handler.UserHandler
	JWTMiddleware   fiber.Handler
	HealthCheckers  map[string]handler.HealthChecker
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthCheckers))

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	missions := api.Group("/missions", jwtMiddleware)
	if deps.MissionHandler != nil {
		deps.MissionHandler.Register(missions)
	}

	if deps.CatalogHandler != nil {
		deps.CatalogHandler.RegisterPlaces(api.Group("/mission-places"))
		deps.CatalogHandler.RegisterMissions(missions)
	}

	if deps.UserHandler != nil {
		deps.UserHandler.Register(api.Group("/users", jwtMiddleware))
	}

	if deps.ActivityHandler != nil {
		deps.ActivityHandler.Register(api.Group("/activities", jwtMiddleware))
	}

	if deps.PointHandler != nil {
		deps.PointHandler.Register(api.Group("/points", jwtMiddleware))

		admin := api.Group("/admin", jwtMiddleware, middleware.RequireRole(middleware.RoleAdmin))
		deps.PointHandler.RegisterAdmin(admin.Group("/points"))
	}
}
