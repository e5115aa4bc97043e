package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcity/civicdash/app/models"
	"github.com/smartcity/civicdash/internal/pkg/apperror"
	"github.com/smartcity/civicdash/internal/pkg/ratelimit"
	icuser "github.com/smartcity/civicdash/internal/pkg/usercontext"
)

type staticVerifier map[string]icuser.UserContext

func (s staticVerifier) VerifyToken(_ context.Context, token string) (icuser.UserContext, error) {
	if u, ok := s[token]; ok {
		return u, nil
	}
	return icuser.UserContext{}, apperror.Unauthorized("invalid or expired token")
}

var verifier = staticVerifier{
	"citizen-token": {UserID: "c1", Role: models.ROLE_CITIZEN, IsLoggedIn: true},
	"admin-token":   {UserID: "a1", Role: models.ROLE_ADMIN, IsLoggedIn: true},
}

func newApp(handlers ...fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Use(UserContextMiddleware(verifier))
	handlers = append(handlers, func(c *fiber.Ctx) error {
		return c.JSON(icuser.GetUserContext(c))
	})
	app.Get("/", handlers...)
	return app
}

func decode(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestUserContextMiddlewareResolvesTokens(t *testing.T) {
	app := newApp()

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		userID string
	}{
		{name: "anonymous", setup: func(*http.Request) {}},
		{name: "bearer header", setup: func(r *http.Request) { r.Header.Set("Authorization", "Bearer citizen-token") }, userID: "c1"},
		{name: "lower-case scheme", setup: func(r *http.Request) { r.Header.Set("Authorization", "bearer admin-token") }, userID: "a1"},
		{name: "cookie", setup: func(r *http.Request) { r.AddCookie(&http.Cookie{Name: icuser.KeyAccessToken, Value: "citizen-token"}) }, userID: "c1"},
		{name: "invalid token stays anonymous", setup: func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tc.setup(req)
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			require.Equal(t, http.StatusOK, resp.StatusCode)

			body := decode(t, resp)
			assert.Equal(t, tc.userID, body["user_id"])
			assert.Equal(t, tc.userID != "", body["is_logged_in"])
		})
	}
}

func TestRequireAuthAndAdmin(t *testing.T) {
	authApp := newApp(RequireAuth)
	adminApp := newApp(RequireAdmin)

	tests := []struct {
		name  string
		app   *fiber.App
		token string
		want  int
	}{
		{"auth anonymous", authApp, "", http.StatusUnauthorized},
		{"auth citizen", authApp, "citizen-token", http.StatusOK},
		{"admin anonymous", adminApp, "", http.StatusUnauthorized},
		{"admin citizen", adminApp, "citizen-token", http.StatusForbidden},
		{"admin admin", adminApp, "admin-token", http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			resp, err := tc.app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}

func TestIssueRateLimit(t *testing.T) {
	app := newApp(RequireAuth, IssueRateLimit(ratelimit.NewMemoryLimiter(2, 24*time.Hour)))

	call := func() *http.Response {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer citizen-token")
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		return resp
	}

	assert.Equal(t, http.StatusOK, call().StatusCode)
	resp := call()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "0", resp.Header.Get("X-RateLimit-Remaining"))

	resp = call()
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "86400", resp.Header.Get(fiber.HeaderRetryAfter))
	body := decode(t, resp)
	assert.Equal(t, "rate_limited", body["error"])
	assert.EqualValues(t, 86400, body["retry_after"])
}
