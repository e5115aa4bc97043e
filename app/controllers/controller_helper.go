package controllers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/smartcity/civicdash/internal/pkg/apperror"
	"github.com/smartcity/civicdash/internal/pkg/identity"
	"github.com/smartcity/civicdash/internal/pkg/usercontext"
)

// respondError writes err as {"error","message"} with the status of its kind.
// Store failures are logged with their cause and reported generically.
func respondError(c *fiber.Ctx, err error) error {
	kind := apperror.KindOf(err)
	if kind == apperror.KindStoreFailure {
		log.Errorf("[API] %s %s: %v", c.Method(), c.Path(), err)
	}
	return c.Status(kind.HTTPStatus()).JSON(fiber.Map{
		"error":   kind.String(),
		"message": apperror.PublicMessage(err),
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return respondError(c, apperror.Validation("%s", msg))
}

// queryInt returns the integer query parameter, or 0 when absent or malformed.
func queryInt(c *fiber.Ctx, key string) int {
	v, err := strconv.Atoi(strings.TrimSpace(c.Query(key)))
	if err != nil {
		return 0
	}
	return v
}

func setSessionCookies(c *fiber.Ctx, s *identity.Session, cfg *identity.Config) {
	c.Cookie(&fiber.Cookie{
		Name:     usercontext.KeyAccessToken,
		Value:    s.AccessToken,
		Path:     "/",
		Expires:  s.ExpiresAt,
		HTTPOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	c.Cookie(&fiber.Cookie{
		Name:     usercontext.KeyRefresh,
		Value:    s.RefreshToken,
		Path:     "/api/auth",
		Expires:  time.Now().Add(cfg.RefreshTokenTTL),
		HTTPOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func clearSessionCookies(c *fiber.Ctx) {
	for name, path := range map[string]string{usercontext.KeyAccessToken: "/", usercontext.KeyRefresh: "/api/auth"} {
		c.Cookie(&fiber.Cookie{
			Name:     name,
			Value:    "",
			Path:     path,
			Expires:  time.Unix(0, 0),
			HTTPOnly: true,
		})
	}
}
