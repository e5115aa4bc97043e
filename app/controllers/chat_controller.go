package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/smartcity/civicdash/internal/pkg/chat"
	"github.com/smartcity/civicdash/internal/pkg/usercontext"
)

// ChatController serves one-to-one conversations
type ChatController struct {
	chats *chat.Service
}

func NewChatController(svc *chat.Service) *ChatController {
	return &ChatController{chats: svc}
}

type openChatRequest struct {
	OtherUserID string `json:"otherUserId"`
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

func (cc *ChatController) HandleListChats(c *fiber.Ctx) error {
	chats, err := cc.chats.ListChats(c.UserContext(), usercontext.GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"chats": chats})
}

// HandleOpenChat returns the chat with another user, creating it on first contact.
func (cc *ChatController) HandleOpenChat(c *fiber.Ctx) error {
	var in openChatRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid request body")
	}
	if in.OtherUserID == "" {
		return badRequest(c, "otherUserId is required")
	}
	ch, err := cc.chats.GetOrCreateChat(c.UserContext(), usercontext.GetUserID(c), in.OtherUserID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"chatId": ch.ID})
}

func (cc *ChatController) HandleListMessages(c *fiber.Ctx) error {
	msgs, err := cc.chats.ListMessages(c.UserContext(), c.Params("id"), usercontext.GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"messages": msgs})
}

func (cc *ChatController) HandleSendMessage(c *fiber.Ctx) error {
	var in sendMessageRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid request body")
	}
	msg, err := cc.chats.SendMessage(c.UserContext(), c.Params("id"), usercontext.GetUserID(c), in.Content)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": msg})
}
