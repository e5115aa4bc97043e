package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/smartcity/civicdash/internal/pkg/identity"
	"github.com/smartcity/civicdash/internal/pkg/oauth"
)

// OAuthController runs the provider login flow
type OAuthController struct {
	identity    *identity.Service
	redirectURL string
}

func NewOAuthController(id *identity.Service, redirectURL string) *OAuthController {
	if redirectURL == "" {
		redirectURL = "/"
	}
	return &OAuthController{identity: id, redirectURL: redirectURL}
}

// HandleOAuthBegin redirects to the provider named in the path
func (oc *OAuthController) HandleOAuthBegin(c *fiber.Ctx) error {
	if err := gothfiber.BeginAuthHandler(c); err != nil {
		return badRequest(c, "unknown or disabled provider")
	}
	return nil
}

// HandleOAuthCallback completes the provider flow, sets session cookies and
// sends the browser back to the dashboard
func (oc *OAuthController) HandleOAuthCallback(c *fiber.Ctx) error {
	u, err := gothfiber.CompleteUserAuth(c)
	if err != nil {
		log.Warnf("[OAuth] Callback for %s failed: %v", c.Params("provider"), err)
		return badRequest(c, "oauth login failed")
	}

	session, err := oc.identity.CompleteOAuth(c.UserContext(), oauth.ToIdentityUser(u))
	if err != nil {
		return respondError(c, err)
	}
	setSessionCookies(c, session, oc.identity.Config())
	return c.Redirect(oc.redirectURL, fiber.StatusSeeOther)
}
