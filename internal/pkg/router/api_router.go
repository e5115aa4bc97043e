package router

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/smartcity/civicdash/app/controllers"
	"github.com/smartcity/civicdash/internal/pkg/constants"
)

const defaultAPIRateLimit = 120

type ApiRouter struct {
	deps Dependencies
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group(constants.APIPrefix, h.corsMiddleware(), h.limiterMiddleware())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	h.registerAuthRoutes(api, controllers.NewAuthController(h.deps.Identity))
	h.registerIssueRoutes(api, controllers.NewIssueController(h.deps.Issues, h.deps.IssueStats, h.deps.MaxImageBytes))
	h.registerChatRoutes(api, controllers.NewChatController(h.deps.Chats))
	h.registerUserRoutes(api, controllers.NewUserController(h.deps.Accounts))
	h.registerAdminRoutes(api, controllers.NewAdminController(h.deps.Accounts))
}

func NewApiRouter(deps Dependencies) *ApiRouter {
	return &ApiRouter{deps: deps}
}

func (h ApiRouter) corsMiddleware() fiber.Handler {
	origins := strings.TrimSpace(h.deps.AllowOrigins)
	if origins == "" {
		origins = "*"
	}
	return cors.New(cors.Config{
		AllowOrigins: origins,
		// Cookies are only sent cross-origin to an explicit allow list.
		AllowCredentials: origins != "*",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	})
}

// limiterMiddleware is the coarse per-IP limit over the whole /api group.
func (h ApiRouter) limiterMiddleware() fiber.Handler {
	max := h.deps.APIRateLimit
	if max <= 0 {
		max = defaultAPIRateLimit
	}
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: time.Minute,
		Storage:    h.deps.LimiterStorage,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":   "rate_limited",
				"message": "too many requests",
			})
		},
	})
}
