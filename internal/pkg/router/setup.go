package router

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/smartcity/civicdash/app/controllers"
	"github.com/smartcity/civicdash/internal/pkg/accounts"
	"github.com/smartcity/civicdash/internal/pkg/chat"
	"github.com/smartcity/civicdash/internal/pkg/identity"
	"github.com/smartcity/civicdash/internal/pkg/issues"
	"github.com/smartcity/civicdash/internal/pkg/ratelimit"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

// HealthCheck reports whether one backing service is reachable.
type HealthCheck func(ctx context.Context) error

// Dependencies are the services and settings the routes are bound to.
type Dependencies struct {
	Identity *identity.Service
	Issues   *issues.Service
	Chats    *chat.Service
	Accounts *accounts.Service
	// IssueStats serves dashboard counts. Nil reads them from Issues.
	IssueStats controllers.StatsSource

	// IssueLimiter caps issue creation per user. Nil disables the cap.
	IssueLimiter ratelimit.Limiter
	// LimiterStorage backs the per-IP /api limiter. Nil keeps counters in memory.
	LimiterStorage fiber.Storage
	APIRateLimit   int

	MaxImageBytes    int64
	UploadsDir       string
	OAuthRedirectURL string
	AllowOrigins     string
	HealthChecks     map[string]HealthCheck
}

func InstallRouter(app *fiber.App, deps Dependencies) {
	// HttpRouter installs the global UserContext middleware, so it goes first.
	setup(app, NewHttpRouter(deps), NewApiRouter(deps))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
