package rest

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	domainApp "github.com/wabridge/wabridge/domains/app"
	pkgError "github.com/wabridge/wabridge/pkg/error"
	"github.com/wabridge/wabridge/pkg/utils"
)

type App struct {
	Service domainApp.IAppUsecase
}

func InitRestApp(app fiber.Router, service domainApp.IAppUsecase) App {
	rest := App{Service: service}
	app.Get("/api/status", rest.Status)
	app.Get("/api/qr", rest.QR)
	app.Post("/api/pairing-code", rest.PairingCode)
	app.Post("/api/logout", rest.Logout)

	return rest
}

func (handler *App) Status(c *fiber.Ctx) error {
	response, err := handler.Service.Status(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(response)
}

// QR serves a minimal HTML page that renders the pairing artifact, meant to
// be opened in a browser and scanned from the phone.
func (handler *App) QR(c *fiber.Ctx) error {
	response, err := handler.Service.QR(c.UserContext())
	utils.PanicIfNeeded(err)

	var body string
	if response.DataURL != "" {
		body = fmt.Sprintf(`<img src="%s" alt="Scan this QR code with WhatsApp" width="256" height="256">`, response.DataURL)
	} else {
		body = fmt.Sprintf(`<p>%s</p>`, response.Message)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><title>WhatsApp Pairing</title><meta http-equiv="refresh" content="10"></head>
<body style="display:flex;justify-content:center;align-items:center;height:100vh;font-family:sans-serif">
%s
</body>
</html>`, body))
}

func (handler *App) PairingCode(c *fiber.Ctx) error {
	var request domainApp.PairingCodeRequest
	if err := c.BodyParser(&request); err != nil {
		utils.PanicIfNeeded(pkgError.ValidationError("invalid JSON body"))
	}

	response, err := handler.Service.PairingCode(c.UserContext(), request.Phone)
	utils.PanicIfNeeded(err)

	return c.JSON(response)
}

func (handler *App) Logout(c *fiber.Ctx) error {
	err := handler.Service.Logout(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(fiber.Map{"success": true})
}
