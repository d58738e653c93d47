package rest

import (
	"github.com/gofiber/fiber/v2"

	domainChat "github.com/wabridge/wabridge/domains/chat"
	"github.com/wabridge/wabridge/pkg/utils"
)

type Chat struct {
	Service domainChat.IChatUsecase
}

func InitRestChat(app fiber.Router, service domainChat.IChatUsecase) Chat {
	rest := Chat{Service: service}
	app.Get("/api/chats", rest.ListChats)

	return rest
}

func (handler *Chat) ListChats(c *fiber.Ctx) error {
	response, err := handler.Service.ListChats(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(response)
}
