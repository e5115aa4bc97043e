package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/smartcity/civicdash/app/controllers"
	"github.com/smartcity/civicdash/internal/pkg/middleware"
)

func (h ApiRouter) registerAuthRoutes(api fiber.Router, ac *controllers.AuthController) {
	auth := api.Group("/auth")
	auth.Post("/register", ac.HandleRegister)
	auth.Post("/login", ac.HandleLogin)
	auth.Post("/refresh", ac.HandleRefresh)
	auth.Post("/logout", ac.HandleLogout)
	auth.Get("/session", middleware.RequireAuth, ac.HandleSession)
}

func (h ApiRouter) registerIssueRoutes(api fiber.Router, ic *controllers.IssueController) {
	group := api.Group("/issues", middleware.RequireAuth)
	if h.deps.IssueLimiter != nil {
		group.Post("/", middleware.IssueRateLimit(h.deps.IssueLimiter), ic.HandleCreate)
	} else {
		group.Post("/", ic.HandleCreate)
	}
	group.Get("/", ic.HandleList)
	group.Get("/stats", ic.HandleStats)
	group.Get("/assigned", ic.HandleAssigned)
	group.Get("/:id", ic.HandleGet)
	group.Patch("/:id", ic.HandleUpdateStatus)
	group.Put("/:id/assign", ic.HandleAssign)
	group.Post("/:id/assign-self", ic.HandleAssignSelf)

	api.Get("/departments", ic.HandleDepartments)
	api.Get("/departments/:department/workers", middleware.RequireAuth, ic.HandleWorkers)
}

func (h ApiRouter) registerChatRoutes(api fiber.Router, cc *controllers.ChatController) {
	group := api.Group("/chats", middleware.RequireAuth)
	group.Get("/", cc.HandleListChats)
	group.Post("/", cc.HandleOpenChat)
	group.Get("/:id/messages", cc.HandleListMessages)
	group.Post("/:id/messages", cc.HandleSendMessage)
}

func (h ApiRouter) registerUserRoutes(api fiber.Router, uc *controllers.UserController) {
	api.Get("/users/search", middleware.RequireAuth, uc.HandleSearch)
}

func (h ApiRouter) registerAdminRoutes(api fiber.Router, ac *controllers.AdminController) {
	adminGroup := api.Group("/admin", middleware.RequireAdmin)
	adminGroup.Get("/users", ac.HandleUsers)
	adminGroup.Get("/stats", ac.HandleStats)
	adminGroup.Patch("/users/:id/role", ac.HandleUpdateRole)
}
