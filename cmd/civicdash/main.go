package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/smartcity/civicdash/app/repository"
	"github.com/smartcity/civicdash/internal/pkg/accounts"
	"github.com/smartcity/civicdash/internal/pkg/cache"
	"github.com/smartcity/civicdash/internal/pkg/chat"
	"github.com/smartcity/civicdash/internal/pkg/constants"
	"github.com/smartcity/civicdash/internal/pkg/database"
	"github.com/smartcity/civicdash/internal/pkg/env"
	"github.com/smartcity/civicdash/internal/pkg/events"
	"github.com/smartcity/civicdash/internal/pkg/identity"
	"github.com/smartcity/civicdash/internal/pkg/imagestore"
	"github.com/smartcity/civicdash/internal/pkg/issues"
	"github.com/smartcity/civicdash/internal/pkg/jobqueue"
	"github.com/smartcity/civicdash/internal/pkg/mail"
	"github.com/smartcity/civicdash/internal/pkg/oauth"
	"github.com/smartcity/civicdash/internal/pkg/ratelimit"
	"github.com/smartcity/civicdash/internal/pkg/realtime"
	"github.com/smartcity/civicdash/internal/pkg/router"
	"github.com/smartcity/civicdash/internal/pkg/session"
	"github.com/smartcity/civicdash/internal/pkg/statistics"
)

// Application bundles the HTTP app and the background parts that need an
// orderly shutdown.
type Application struct {
	App        *fiber.App
	Realtime   *http.Server
	Subscriber *realtime.Subscriber
	Jobs       *jobqueue.Manager
}

func main() {
	application, err := NewApplication()
	if err != nil {
		log.Fatalf("[App] Startup failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application.Jobs.Start()
	go func() {
		if err := application.Subscriber.Run(ctx, nil); err != nil && !errors.Is(err, context.Canceled) {
			log.Errorf("[Realtime] Subscriber stopped: %v", err)
		}
	}()
	go func() {
		log.Infof("[Realtime] Listening on %s", application.Realtime.Addr)
		if err := application.Realtime.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("[Realtime] Server stopped: %v", err)
		}
	}()
	go func() {
		addr := fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000"))
		if err := application.App.Listen(addr); err != nil {
			log.Errorf("[App] Server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("[App] Shutting down")
	application.Shutdown(10 * time.Second)
}

// Shutdown stops accepting requests, then drains the job workers.
func (a *Application) Shutdown(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := a.App.ShutdownWithContext(ctx); err != nil {
		log.Warnf("[App] HTTP shutdown: %v", err)
	}
	if err := a.Realtime.Shutdown(ctx); err != nil {
		log.Warnf("[Realtime] Shutdown: %v", err)
	}
	a.Jobs.Stop()
}

func NewApplication() (*Application, error) {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	ctx := context.Background()
	db := database.GetDB()
	redisClient := cache.GetClient()

	repository.InitializeFactory(db)
	repos := repository.GetGlobalRepositories()

	identityCfg, err := identity.LoadConfig()
	if err != nil {
		return nil, err
	}
	identitySvc := identity.NewService(repos.Profile, repos.ProviderAccount, identity.NewRedisRefreshStore(redisClient), identityCfg)

	imageCfg, err := imagestore.LoadConfig()
	if err != nil {
		return nil, err
	}
	images, err := imagestore.New(ctx, imageCfg)
	if err != nil {
		return nil, err
	}

	dashboardURL := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", "http://localhost:"+env.GetEnv("APP_PORT", "4000")), "/")
	jobs := jobqueue.NewManager(redisClient, jobqueue.Dependencies{
		Issues:       repos.Issue,
		Profiles:     repos.Profile,
		Mailer:       mail.NewSender(mail.LoadConfig()),
		Images:       images,
		DashboardURL: dashboardURL,
	})
	notifier := jobqueue.NewNotifier(jobs.GetQueue())

	// The cached counts read through their own service instance, which publishes nothing.
	issueStats := statistics.NewIssueStats(issues.NewService(repos.Issue, repos.Profile), redisClient,
		env.GetDuration("STATS_CACHE_TTL", statistics.CacheExpiration))

	channel := env.GetEnv("EVENTS_CHANNEL", events.DefaultChannel)
	publisher := events.Fanout{events.NewRedisPublisher(redisClient, channel), notifier, issueStats}

	deps := router.Dependencies{
		Identity: identitySvc,
		Issues: issues.NewService(repos.Issue, repos.Profile,
			issues.WithImageStore(images, imageCfg.MaxBytes),
			issues.WithCleaner(notifier),
			issues.WithPublisher(publisher),
		),
		Chats:            chat.NewService(repos.Chat, repos.Message, repos.Profile, chat.WithPublisher(publisher)),
		Accounts:         accounts.NewService(repos.Profile),
		IssueStats:       issueStats,
		IssueLimiter:     ratelimit.NewRedisLimiter(redisClient, "civicdash:issues:daily", env.GetInt("ISSUE_DAILY_LIMIT", 10), 24*time.Hour),
		LimiterStorage:   session.NewRedisStorage(session.LimiterDB),
		APIRateLimit:     env.GetInt("API_RATE_LIMIT", 120),
		MaxImageBytes:    imageCfg.MaxBytes,
		OAuthRedirectURL: env.GetEnv("OAUTH_REDIRECT_URL", "/"),
		AllowOrigins:     env.GetEnv("CORS_ALLOW_ORIGINS", ""),
		HealthChecks: map[string]router.HealthCheck{
			"database": database.Ping,
			"cache":    cache.Ping,
		},
	}
	if imageCfg.Backend == imagestore.BackendLocal {
		deps.UploadsDir = imageCfg.LocalDir
	}

	if providers := oauth.Setup(); len(providers) > 0 {
		log.Infof("[OAuth] Enabled providers: %s", strings.Join(providers, ", "))
	}

	app := fiber.New(fiber.Config{
		BodyLimit: int(imageCfg.MaxBytes) + 1<<20,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get(constants.MetricsRoute, basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASSWORD", "change-me"),
		},
	}), monitor.New())

	// SWAGGER / OPENAPI
	app.Use(swagger.New(swagger.Config{
		BasePath: constants.DocsRoute + "/",
		FilePath: env.GetEnv("OPENAPI_FILE", "./public/docs/v1/openapi.yml"),
		Path:     "v1",
	}))

	// ROUTER
	router.InstallRouter(app, deps)

	hub := realtime.NewHub()
	wsHandler := &realtime.Handler{
		Hub:            hub,
		Verifier:       identitySvc,
		OriginPatterns: originPatterns(deps.AllowOrigins),
	}

	return &Application{
		App:        app,
		Realtime:   realtime.NewServer(":"+env.GetEnv("REALTIME_PORT", "4001"), wsHandler),
		Subscriber: realtime.NewSubscriber(redisClient, channel, hub),
		Jobs:       jobs,
	}, nil
}

// originPatterns turns the CORS allow list into websocket origin patterns.
func originPatterns(allow string) []string {
	var out []string
	for _, origin := range strings.Split(allow, ",") {
		origin = strings.TrimSpace(origin)
		if origin == "" || origin == "*" {
			continue
		}
		if i := strings.Index(origin, "://"); i >= 0 {
			origin = origin[i+3:]
		}
		out = append(out, origin)
	}
	return out
}
