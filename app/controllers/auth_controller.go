package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/smartcity/civicdash/internal/pkg/identity"
	"github.com/smartcity/civicdash/internal/pkg/usercontext"
)

// AuthController handles registration and token sessions
type AuthController struct {
	identity *identity.Service
}

func NewAuthController(id *identity.Service) *AuthController {
	return &AuthController{identity: id}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// HandleRegister creates an account. It does not log the caller in.
func (ac *AuthController) HandleRegister(c *fiber.Ctx) error {
	var in identity.RegisterInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid request body")
	}
	profile, err := ac.identity.Register(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user": profile})
}

func (ac *AuthController) HandleLogin(c *fiber.Ctx) error {
	var in loginRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid request body")
	}
	session, err := ac.identity.Authenticate(c.UserContext(), in.Email, in.Password)
	if err != nil {
		return respondError(c, err)
	}
	setSessionCookies(c, session, ac.identity.Config())
	return c.JSON(session)
}

// HandleRefresh rotates the refresh token from the body or the cookie.
func (ac *AuthController) HandleRefresh(c *fiber.Ctx) error {
	session, err := ac.identity.Refresh(c.UserContext(), refreshTokenFrom(c))
	if err != nil {
		clearSessionCookies(c)
		return respondError(c, err)
	}
	setSessionCookies(c, session, ac.identity.Config())
	return c.JSON(session)
}

func (ac *AuthController) HandleLogout(c *fiber.Ctx) error {
	if err := ac.identity.Logout(c.UserContext(), refreshTokenFrom(c)); err != nil {
		return respondError(c, err)
	}
	clearSessionCookies(c)
	return c.JSON(fiber.Map{"message": "logged out"})
}

// HandleSession returns the caller's identity.
func (ac *AuthController) HandleSession(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"user": usercontext.GetUserContext(c)})
}

func refreshTokenFrom(c *fiber.Ctx) string {
	var in refreshRequest
	if len(c.Body()) > 0 {
		_ = c.BodyParser(&in)
	}
	if in.RefreshToken != "" {
		return in.RefreshToken
	}
	return c.Cookies(usercontext.KeyRefresh)
}
