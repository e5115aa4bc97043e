package session

import (
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/storage/redis"

	"github.com/smartcity/civicdash/internal/pkg/cache"
	"github.com/smartcity/civicdash/internal/pkg/env"
)

// Logical Redis databases on the cache server. The cache itself uses DB 0.
const (
	LimiterDB    = 1
	OAuthStateDB = 2
)

// NewRedisStorage returns a fiber storage on the cache server using the given
// logical database.
func NewRedisStorage(database int) *redis.Storage {
	host := "localhost"
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")
	username := ""
	if cacheClient := cache.GetClient(); cacheClient != nil {
		opts := cacheClient.Options()
		if h, p, err := net.SplitHostPort(opts.Addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		if opts.Password != "" {
			password = opts.Password
		}
		username = opts.Username
	}

	return redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
		Database: database,
		Reset:    false,
	})
}

// NewStore builds a cookie keyed session store kept in Redis.
func NewStore(cookieName string, database int, expiration time.Duration) *session.Store {
	return session.New(session.Config{
		Storage:        NewRedisStorage(database),
		KeyLookup:      "cookie:" + cookieName,
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
		CookieSecure:   !env.IsDev(),
		Expiration:     expiration,
	})
}
