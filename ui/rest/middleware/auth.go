package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"

	pkgError "github.com/wabridge/wabridge/pkg/error"
)

// BearerAuth guards the API with a single static token. The token is read
// from the Authorization header, or from the token query parameter for
// surfaces a browser opens directly (QR page, WebSocket).
func BearerAuth(token string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		provided := ""
		if auth := ctx.Get(fiber.HeaderAuthorization); strings.HasPrefix(auth, "Bearer ") {
			provided = strings.TrimPrefix(auth, "Bearer ")
		}
		if provided == "" {
			provided = ctx.Query("token")
		}

		if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			err := pkgError.UnauthorizedError("unauthorized")
			return ctx.Status(err.StatusCode()).JSON(fiber.Map{"error": err.Error()})
		}

		return ctx.Next()
	}
}
