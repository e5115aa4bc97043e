package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/smartcity/civicdash/internal/pkg/accounts"
	"github.com/smartcity/civicdash/internal/pkg/usercontext"
)

// UserController serves profile lookups for logged-in users
type UserController struct {
	accounts *accounts.Service
}

func NewUserController(svc *accounts.Service) *UserController {
	return &UserController{accounts: svc}
}

// HandleSearch finds people to start a chat with.
func (uc *UserController) HandleSearch(c *fiber.Ctx) error {
	users, err := uc.accounts.Search(c.UserContext(), c.Query("q"), usercontext.GetUserContext(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"users": users})
}
