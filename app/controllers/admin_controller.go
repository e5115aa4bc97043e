package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/smartcity/civicdash/internal/pkg/accounts"
	"github.com/smartcity/civicdash/internal/pkg/usercontext"
)

// AdminController handles user administration. Routes are guarded by RequireAdmin.
type AdminController struct {
	accounts *accounts.Service
}

func NewAdminController(svc *accounts.Service) *AdminController {
	return &AdminController{accounts: svc}
}

func (ac *AdminController) HandleUsers(c *fiber.Ctx) error {
	page, err := ac.accounts.ListUsers(c.UserContext(), queryInt(c, "page"), queryInt(c, "limit"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

func (ac *AdminController) HandleStats(c *fiber.Ctx) error {
	stats, err := ac.accounts.Stats(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

type roleRequest struct {
	Role       string `json:"role"`
	Department string `json:"department"`
}

func (ac *AdminController) HandleUpdateRole(c *fiber.Ctx) error {
	var in roleRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid request body")
	}
	profile, err := ac.accounts.ChangeRole(c.UserContext(), c.Params("id"), in.Role, in.Department, usercontext.GetUserContext(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"user": profile})
}
