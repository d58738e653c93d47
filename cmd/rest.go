package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	globalConfig "github.com/wabridge/wabridge/config"
	pkgError "github.com/wabridge/wabridge/pkg/error"
	"github.com/wabridge/wabridge/ui/rest"
	"github.com/wabridge/wabridge/ui/rest/middleware"
	uiWebsocket "github.com/wabridge/wabridge/ui/websocket"
)

var restCmd = &cobra.Command{
	Use:   "rest",
	Short: "Serve the WhatsApp bridge over HTTP",
	Run:   restServer,
}

func init() {
	rootCmd.AddCommand(restCmd)
}

func restServer(_ *cobra.Command, _ []string) {
	app := fiber.New(fiber.Config{
		Network:               "tcp",
		AppName:               "WaBridge",
		BodyLimit:             int(globalConfig.WhatsappMaxDownloadSize),
		DisableStartupMessage: false,
		ServerHeader:          "Hidden",
	})

	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.Recovery())
	app.Use(limiter.New(limiter.Config{
		Max:        1000,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
	}))

	if globalConfig.AppDebug {
		app.Use(logger.New())
	}

	// Everything under /api shares the bearer token guard; the WebSocket
	// route does its own token check during the handshake.
	app.Use("/api", middleware.BearerAuth(globalConfig.AppToken))

	// Graceful shutdown handler
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logrus.Info("[REST] Termination signal received, shutting down gracefully...")
		if err := app.Shutdown(); err != nil {
			logrus.Errorf("[REST] Error during Fiber shutdown: %v", err)
		}
		StopApp()
	}()

	rest.InitRestApp(app, appUsecase)
	rest.InitRestSend(app, sendUsecase)
	rest.InitRestChat(app, chatUsecase)

	uiWebsocket.RegisterRoutes(app, hub, globalConfig.AppToken)
	go hub.Run(runCtx)
	go coordinator.Run(runCtx)

	// Open the WhatsApp link right away; pairing artifacts start flowing
	// before the first HTTP request arrives.
	go coordinator.Connect(runCtx)

	app.All("/api/*", func(c *fiber.Ctx) error {
		err := pkgError.NotFoundError("endpoint not found")
		return c.Status(err.StatusCode()).JSON(fiber.Map{
			"error": err.Error(),
		})
	})

	if err := app.Listen(":" + globalConfig.AppPort); err != nil {
		logrus.Fatalln("Failed to start server:", err)
	}
}
