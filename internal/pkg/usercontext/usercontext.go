package usercontext

import (
	"github.com/gofiber/fiber/v2"

	"github.com/smartcity/civicdash/app/models"
)

// UserContext is the resolved identity of the caller. It is built once by the
// auth middleware and passed explicitly into every service call.
type UserContext struct {
	UserID     string `json:"user_id"`
	FullName   string `json:"full_name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	Department string `json:"department,omitempty"`
	AvatarURL  string `json:"avatar_url,omitempty"`
	IsLoggedIn bool   `json:"is_logged_in"`
}

// FromProfile builds the identity of a logged-in profile.
func FromProfile(p *models.Profile) UserContext {
	return UserContext{
		UserID:     p.ID,
		FullName:   p.FullName,
		Email:      p.Email,
		Role:       p.Role,
		Department: p.Department,
		AvatarURL:  p.AvatarURL,
		IsLoggedIn: true,
	}
}

func (u UserContext) IsAdmin() bool {
	return u.IsLoggedIn && u.Role == models.ROLE_ADMIN
}

func (u UserContext) IsOfficial() bool {
	return u.IsLoggedIn && u.Role == models.ROLE_OFFICIAL
}

// CanManageDepartment reports whether the caller may act on records of dept.
func (u UserContext) CanManageDepartment(dept models.Department) bool {
	if u.IsAdmin() {
		return true
	}
	return u.IsOfficial() && u.Department == string(dept)
}

// GetUserContext retrieves the user context from fiber context
// Returns a default anonymous context if none is set
func GetUserContext(c *fiber.Ctx) UserContext {
	if ctx, ok := c.Locals(KeyUserContext).(UserContext); ok {
		return ctx
	}
	return UserContext{IsLoggedIn: false}
}

// SetUserContext stores the resolved identity for downstream handlers
func SetUserContext(c *fiber.Ctx, u UserContext) {
	c.Locals(KeyUserContext, u)
}

// IsLoggedIn checks if the current user is logged in
func IsLoggedIn(c *fiber.Ctx) bool {
	return GetUserContext(c).IsLoggedIn
}

// GetUserID returns the current user's ID, or "" if not logged in
func GetUserID(c *fiber.Ctx) string {
	return GetUserContext(c).UserID
}
