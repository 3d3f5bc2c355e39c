package internal

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	v1 "cohortly/api/v1"
	"cohortly/internal/http"
)

// apiCORSConfig is shared by every public API route.
var apiCORSConfig = cors.Config{
	AllowOrigins: "*",
	AllowMethods: "POST,GET,OPTIONS",
	AllowHeaders: "Origin, Content-Type, Accept, Authorization",
}

// MountAppRoutes registers health, metrics and API routes.
func MountAppRoutes(app *Application) {
	srv := app.Server
	cfg := app.Config

	// Rate limiting only runs in production; it would interfere with tests.
	conditionalRateLimiter := func(l fiber.Handler) fiber.Handler {
		return func(c *fiber.Ctx) error {
			if cfg.IsProduction() {
				return l(c)
			}
			return c.Next()
		}
	}
	apiRateLimiter := conditionalRateLimiter(limiter.New(limiter.Config{
		Max:        30,
		Expiration: time.Minute,
	}))

	health := &http.HealthHandler{Version: Version, StartedAt: app.StartedAt}
	srv.Get("/_health", health.HealthIndexAction)
	srv.Head("/_health", health.HealthIndexAction)

	srv.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := &v1.API{
		Logger:              app.Logger,
		ExcludeEventPattern: cfg.ExcludeEventPattern,
	}
	group := srv.Group("/api/v1", cors.New(apiCORSConfig), apiRateLimiter)
	api.Register(group)
}
