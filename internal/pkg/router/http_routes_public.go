package router

import (
	"context"
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/smartcity/civicdash/app/controllers"
	"github.com/smartcity/civicdash/internal/pkg/constants"
)

const healthTimeout = 2 * time.Second

func (h HttpRouter) registerPublicRoutes(app *fiber.App, oauthController *controllers.OAuthController) {
	app.Get(constants.HealthRoute, h.handleHealth)

	// Social OAuth
	app.Get("/auth/:provider", oauthController.HandleOAuthBegin)
	app.Get("/auth/:provider/callback", oauthController.HandleOAuthCallback)

	// Locally stored issue photos
	if h.deps.UploadsDir != "" {
		app.Static(constants.UploadsRoute, h.deps.UploadsDir, fiber.Static{
			CacheDuration: 10 * time.Second,
			MaxAge:        604800, // 7 days
		})
	}
}

// handleHealth pings every backing service and answers 503 if any is down.
func (h HttpRouter) handleHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
	defer cancel()

	names := make([]string, 0, len(h.deps.HealthChecks))
	for name := range h.deps.HealthChecks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := fiber.StatusOK
	checks := fiber.Map{}
	for _, name := range names {
		if err := h.deps.HealthChecks[name](ctx); err != nil {
			checks[name] = err.Error()
			status = fiber.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	result := "ok"
	if status != fiber.StatusOK {
		result = "degraded"
	}
	return c.Status(status).JSON(fiber.Map{"status": result, "checks": checks})
}
