package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

var (
	AppVersion = "v1.2.0"
	AppPort    = "3000"
	AppDebug   = false
	AppOs      = "WaBridge"

	// AppToken guards every REST call and the event stream. There is no
	// default: the server refuses to start without it.
	AppToken = ""

	PathStorages = "storages"

	DBURI          = "file:storages/whatsapp.db?_foreign_keys=on"
	ChatStorageURI = "file:storages/chats.db?_journal_mode=WAL&_foreign_keys=on"

	WhatsappLogLevel        = "ERROR"
	WhatsappTypeUser        = "@s.whatsapp.net"
	WhatsappTypeGroup       = "@g.us"
	WhatsappReconnectDelay  = 5 * time.Second
	// Raw flag value; parsed into WhatsappReconnectDelay at startup.
	WhatsappReconnectDelayRaw = "5s"
	WhatsappMaxDownloadSize   = int64(50_000_000) // media_url fetch cap

	MessageWorkerPoolSize  = 4
	MessageWorkerQueueSize = 250
)

func init() {
	if v := strings.TrimSpace(os.Getenv("APP_TOKEN")); v != "" {
		AppToken = v
	}
	if v := os.Getenv("WHATSAPP_RECONNECT_DELAY_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			WhatsappReconnectDelay = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("WHATSAPP_MAX_DOWNLOAD_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			WhatsappMaxDownloadSize = n
		}
	}
	if v := os.Getenv("MESSAGE_WORKER_POOL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			MessageWorkerPoolSize = n
		}
	}
	if v := os.Getenv("MESSAGE_WORKER_QUEUE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			MessageWorkerQueueSize = n
		}
	}
}
