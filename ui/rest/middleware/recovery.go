package middleware

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	pkgError "github.com/wabridge/wabridge/pkg/error"
	"github.com/wabridge/wabridge/pkg/utils"
)

// Recovery turns handler panics into the {"error": message} envelope.
// Typed errors keep their status code; anything else is a 500.
func Recovery() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		defer func() {
			err := recover()
			if err != nil {
				var res utils.ResponseData
				res.Status = 500
				res.Code = "INTERNAL_SERVER_ERROR"
				res.Message = fmt.Sprintf("%v", err)

				logrus.Errorf("Panic recovered in middleware: %v", err)

				genericError, isGenericError := err.(pkgError.GenericError)
				if isGenericError {
					res.Status = genericError.StatusCode()
					res.Code = genericError.ErrCode()
					res.Message = genericError.Error()
				}

				_ = ctx.Status(res.Status).JSON(fiber.Map{"error": res.Message})
			}
		}()

		return ctx.Next()
	}
}
