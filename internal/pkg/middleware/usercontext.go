package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/smartcity/civicdash/internal/pkg/apperror"
	"github.com/smartcity/civicdash/internal/pkg/usercontext"
)

// TokenVerifier resolves an access token to an identity.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (usercontext.UserContext, error)
}

// UserContextMiddleware resolves the caller for every request. Requests
// without a valid token continue as anonymous; RequireAuth rejects them later.
func UserContextMiddleware(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := ExtractAccessToken(c)
		if token == "" {
			usercontext.SetUserContext(c, usercontext.UserContext{})
			return c.Next()
		}

		identity, err := verifier.VerifyToken(c.UserContext(), token)
		if err != nil {
			if apperror.KindOf(err) == apperror.KindStoreFailure {
				log.Errorf("[Auth] Token verification failed: %v", err)
			}
			usercontext.SetUserContext(c, usercontext.UserContext{})
			return c.Next()
		}

		usercontext.SetUserContext(c, identity)
		return c.Next()
	}
}

// ExtractAccessToken reads a bearer token, falling back to the access_token cookie.
func ExtractAccessToken(c *fiber.Ctx) string {
	auth := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return c.Cookies(usercontext.KeyAccessToken)
}
