package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/smartcity/civicdash/app/controllers"
	"github.com/smartcity/civicdash/internal/pkg/middleware"
)

type HttpRouter struct {
	deps Dependencies
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware(h.deps.Identity))

	h.registerPublicRoutes(app, controllers.NewOAuthController(h.deps.Identity, h.deps.OAuthRedirectURL))
}

func NewHttpRouter(deps Dependencies) *HttpRouter {
	return &HttpRouter{deps: deps}
}
