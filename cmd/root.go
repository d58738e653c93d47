package cmd

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.mau.fi/whatsmeow/store/sqlstore"

	globalConfig "github.com/wabridge/wabridge/config"
	domainApp "github.com/wabridge/wabridge/domains/app"
	domainChat "github.com/wabridge/wabridge/domains/chat"
	domainSend "github.com/wabridge/wabridge/domains/send"
	"github.com/wabridge/wabridge/infrastructure/chatstorage"
	"github.com/wabridge/wabridge/infrastructure/whatsapp"
	"github.com/wabridge/wabridge/pkg/msgworker"
	"github.com/wabridge/wabridge/pkg/utils"
	"github.com/wabridge/wabridge/session"
	uiWebsocket "github.com/wabridge/wabridge/ui/websocket"
	"github.com/wabridge/wabridge/usecase"
)

var (
	runCtx    context.Context
	runCancel context.CancelFunc

	waDB     *sqlstore.Container
	chatRepo *chatstorage.SQLiteRepository
	pool     *msgworker.Pool

	sessionState *session.State
	hub          *uiWebsocket.Hub
	coordinator  *session.Coordinator

	appUsecase  domainApp.IAppUsecase
	sendUsecase domainSend.ISendUsecase
	chatUsecase domainChat.IChatUsecase
)

var rootCmd = &cobra.Command{
	Use:   "wabridge",
	Short: "WhatsApp bridge with REST and WebSocket APIs",
	Long: `Bridges a single WhatsApp session to HTTP: REST endpoints for
sending messages and managing the session, a WebSocket stream for events.`,
}

func init() {
	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	time.Local = time.UTC

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	initFlags()
	cobra.OnInitialize(initEnvConfig, initApp)
}

// initEnvConfig loads configuration overrides from environment variables.
func initEnvConfig() {
	viper.AutomaticEnv()

	if envPort := viper.GetString("app_port"); envPort != "" {
		globalConfig.AppPort = envPort
	}
	if viper.IsSet("app_debug") {
		globalConfig.AppDebug = viper.GetBool("app_debug")
	}
	if envToken := viper.GetString("app_token"); envToken != "" {
		globalConfig.AppToken = envToken
	}
	if envDBURI := viper.GetString("db_uri"); envDBURI != "" {
		globalConfig.DBURI = envDBURI
	}
	if envChatURI := viper.GetString("chat_storage_uri"); envChatURI != "" {
		globalConfig.ChatStorageURI = envChatURI
	}
	if envLogLevel := viper.GetString("whatsapp_log_level"); envLogLevel != "" {
		globalConfig.WhatsappLogLevel = envLogLevel
	}
}

func initFlags() {
	rootCmd.PersistentFlags().StringVarP(
		&globalConfig.AppPort,
		"port", "p",
		globalConfig.AppPort,
		"change port number with --port <number> | example: --port=8080",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&globalConfig.AppDebug,
		"debug", "d",
		globalConfig.AppDebug,
		"hide or displaying log with --debug <true/false> | example: --debug=true",
	)
	rootCmd.PersistentFlags().StringVarP(
		&globalConfig.AppToken,
		"token", "t",
		globalConfig.AppToken,
		"bearer token protecting the API | example: --token=secret",
	)
	rootCmd.PersistentFlags().StringVarP(
		&globalConfig.DBURI,
		"db-uri", "",
		globalConfig.DBURI,
		`the database uri to store the connection data (by default sqlite3 under storages/whatsapp.db) | example: --db-uri="file:storages/whatsapp.db?_foreign_keys=on"`,
	)
	rootCmd.PersistentFlags().StringVarP(
		&globalConfig.WhatsappReconnectDelayRaw,
		"reconnect-delay", "",
		globalConfig.WhatsappReconnectDelayRaw,
		`delay between reconnect attempts | example: --reconnect-delay=5s`,
	)
}

func initApp() {
	if globalConfig.AppDebug {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}

	if globalConfig.AppToken == "" {
		logrus.Fatalln("APP_TOKEN is required. Nothing should be public; please set APP_TOKEN=<secret> and restart.")
	}

	if delay, err := time.ParseDuration(globalConfig.WhatsappReconnectDelayRaw); err == nil && delay > 0 {
		globalConfig.WhatsappReconnectDelay = delay
	}

	if err := utils.CreateFolder(globalConfig.PathStorages); err != nil {
		logrus.Fatalf("[APP] Failed to create storage folder: %v", err)
	}

	runCtx, runCancel = context.WithCancel(context.Background())

	var err error
	waDB, err = whatsapp.InitStore(runCtx)
	if err != nil {
		logrus.Fatalf("[APP] Failed to initialize WhatsApp store: %v", err)
	}

	chatRepo, err = chatstorage.Open(globalConfig.ChatStorageURI)
	if err != nil {
		logrus.Fatalf("[APP] Failed to initialize chat storage: %v", err)
	}

	pool = msgworker.NewPool(globalConfig.MessageWorkerPoolSize, globalConfig.MessageWorkerQueueSize)
	pool.Start(runCtx)

	sessionState = session.NewState()
	hub = uiWebsocket.NewHub(sessionState)
	coordinator = session.NewCoordinator(
		sessionState,
		hub,
		whatsapp.NewFactory(waDB),
		session.WithReconnectPolicy(session.FixedDelay{Delay: globalConfig.WhatsappReconnectDelay}),
		session.WithIndexer(chatRepo, pool),
	)

	appUsecase = usecase.NewAppService(sessionState, coordinator)
	sendUsecase = usecase.NewSendService(sessionState, coordinator)
	chatUsecase = usecase.NewChatService(sessionState, chatRepo)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// StopApp performs a clean shutdown of all subsystems.
func StopApp() {
	logrus.Info("[APP] Stopping application...")

	if runCancel != nil {
		runCancel()
	}
	if pool != nil {
		pool.Stop()
	}
	if chatRepo != nil {
		if err := chatRepo.Close(); err != nil {
			logrus.Errorf("[APP] Failed to close chat storage: %v", err)
		}
	}
	if waDB != nil {
		waDB.Close()
	}

	logrus.Info("[APP] Shutdown complete")
}
