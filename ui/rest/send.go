package rest

import (
	"github.com/gofiber/fiber/v2"

	domainSend "github.com/wabridge/wabridge/domains/send"
	pkgError "github.com/wabridge/wabridge/pkg/error"
	"github.com/wabridge/wabridge/pkg/utils"
)

type Send struct {
	Service domainSend.ISendUsecase
}

func InitRestSend(app fiber.Router, service domainSend.ISendUsecase) Send {
	rest := Send{Service: service}
	app.Post("/api/send", rest.Send)

	return rest
}

func (handler *Send) Send(c *fiber.Ctx) error {
	var request domainSend.MessageRequest
	if err := c.BodyParser(&request); err != nil {
		utils.PanicIfNeeded(pkgError.ValidationError("invalid JSON body"))
	}

	response, err := handler.Service.Send(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.JSON(response)
}
