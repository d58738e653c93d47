package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"

	"github.com/wabridge/wabridge/config"
	pkgError "github.com/wabridge/wabridge/pkg/error"
	"github.com/wabridge/wabridge/session"
)

// Client wraps a whatsmeow connection and translates its events into the
// coordinator's event vocabulary. One Client per connection attempt; the
// coordinator builds a fresh one after every disconnect.
type Client struct {
	wa     *whatsmeow.Client
	db     *sqlstore.Container
	events chan<- session.Event
}

var _ session.Client = (*Client)(nil)

// InitStore opens (and migrates) the whatsmeow device store. Shared across
// Client instances so credentials survive reconnects.
func InitStore(ctx context.Context) (*sqlstore.Container, error) {
	dbLog := waLog.Stdout("Database", config.WhatsappLogLevel, true)
	container, err := sqlstore.New(ctx, "sqlite3", config.DBURI, dbLog)
	if err != nil {
		return nil, pkgError.InternalServerError(fmt.Sprintf("database initialization error: %v", err))
	}
	return container, nil
}

// NewFactory returns a session.ClientFactory bound to the device store.
func NewFactory(db *sqlstore.Container) session.ClientFactory {
	return func(ctx context.Context, events chan<- session.Event) (session.Client, error) {
		return NewClient(ctx, db, events)
	}
}

func NewClient(ctx context.Context, db *sqlstore.Container, events chan<- session.Event) (*Client, error) {
	device, err := db.GetFirstDevice(ctx)
	if err != nil {
		return nil, pkgError.InternalServerError(fmt.Sprintf("failed to get device: %v", err))
	}

	osName := fmt.Sprintf("%s %s", config.AppOs, config.AppVersion)
	store.DeviceProps.Os = &osName

	wa := whatsmeow.NewClient(device, waLog.Stdout("Client", config.WhatsappLogLevel, true))
	// The coordinator owns the reconnect cycle.
	wa.EnableAutoReconnect = false
	wa.AutoTrustIdentity = true

	c := &Client{wa: wa, db: db, events: events}
	wa.AddEventHandler(c.handleEvent)
	return c, nil
}

// Connect opens the websocket. For an unpaired device it also starts the QR
// rotation, forwarding each code upstream until pairing succeeds or the
// codes run out.
func (c *Client) Connect() error {
	if c.wa.Store.ID == nil {
		ch, err := c.wa.GetQRChannel(context.Background())
		if err != nil && !errors.Is(err, whatsmeow.ErrQRStoreContainsID) {
			return pkgError.InternalServerError(fmt.Sprintf("failed to get QR channel: %v", err))
		}
		if err == nil {
			go func() {
				for evt := range ch {
					switch evt.Event {
					case whatsmeow.QRChannelEventCode:
						c.events <- session.Event{Type: session.EventQR, QRCode: evt.Code}
					case whatsmeow.QRChannelEventError:
						c.emit(session.Event{Type: session.EventAuthFailure, Reason: evt.Error.Error()})
					case "timeout":
						c.emit(session.Event{Type: session.EventDisconnected, Reason: "QR pairing timed out"})
					}
				}
			}()
		}
	}
	return c.wa.Connect()
}

func (c *Client) Disconnect() {
	c.wa.Disconnect()
}

func (c *Client) emit(ev session.Event) {
	select {
	case c.events <- ev:
	default:
		logrus.Warnf("[WA] Event queue full, dropping %s", ev.Type)
	}
}

func (c *Client) handleEvent(rawEvt any) {
	switch evt := rawEvt.(type) {
	case *events.PairSuccess:
		logrus.Infof("[WA] Paired with %s", evt.ID.String())
		c.emit(session.Event{Type: session.EventAuthenticated})

	case *events.PairError:
		c.emit(session.Event{Type: session.EventAuthFailure, Reason: evt.Error.Error()})

	case *events.Connected:
		if len(c.wa.Store.PushName) > 0 {
			c.wa.SendPresence(context.Background(), types.PresenceAvailable)
		}
		if c.wa.Store.ID == nil {
			return
		}
		c.emit(session.Event{Type: session.EventReady, Info: &session.Info{
			JID:      c.wa.Store.ID.String(),
			PushName: c.wa.Store.PushName,
		}})

	case *events.PushNameSetting:
		if len(c.wa.Store.PushName) > 0 {
			c.wa.SendPresence(context.Background(), types.PresenceAvailable)
		}

	case *events.LoggedOut:
		logrus.Info("[WA] Logged out remotely, clearing device store")
		if err := c.wa.Store.Delete(context.Background()); err != nil {
			logrus.WithError(err).Error("[WA] Failed to delete device store")
		}
		c.emit(session.Event{Type: session.EventDisconnected, Reason: "logged out"})

	case *events.StreamReplaced:
		c.emit(session.Event{Type: session.EventDisconnected, Reason: "stream replaced by another session"})

	case *events.Disconnected:
		c.emit(session.Event{Type: session.EventDisconnected, Reason: "connection closed"})

	case *events.Message:
		if msg := normalizeMessage(evt, c.selfJID(), c.contactName); msg != nil {
			c.emit(session.Event{Type: session.EventMessage, Message: msg})
		}

	case *events.Receipt:
		for _, ack := range normalizeReceipt(evt) {
			c.emit(session.Event{Type: session.EventMessageAck, Ack: ack})
		}
	}
}

func (c *Client) selfJID() string {
	if c.wa.Store.ID == nil {
		return ""
	}
	return c.wa.Store.ID.ToNonAD().String()
}

func (c *Client) contactName(jid types.JID) string {
	contact, err := c.wa.Store.Contacts.GetContact(context.Background(), jid)
	if err != nil || !contact.Found {
		return ""
	}
	if contact.FullName != "" {
		return contact.FullName
	}
	return contact.FirstName
}

// SendText delivers a plain text message and returns the server receipt.
func (c *Client) SendText(ctx context.Context, to string, body string) (session.SendReceipt, error) {
	jid, err := parseRecipient(to)
	if err != nil {
		return session.SendReceipt{}, err
	}
	resp, err := c.wa.SendMessage(ctx, jid, &waE2E.Message{Conversation: proto.String(body)})
	if err != nil {
		return session.SendReceipt{}, pkgError.ExternalError(err.Error())
	}
	return session.SendReceipt{MessageID: resp.ID, Timestamp: resp.Timestamp}, nil
}

// SendMedia uploads the payload and sends it as an image when the bytes
// sniff as one, as a document otherwise. caption rides along either way.
func (c *Client) SendMedia(ctx context.Context, to string, caption string, filename string, data []byte) (session.SendReceipt, error) {
	jid, err := parseRecipient(to)
	if err != nil {
		return session.SendReceipt{}, err
	}

	mimeType := http.DetectContentType(data)
	var message *waE2E.Message

	if strings.HasPrefix(mimeType, "image/") {
		uploaded, err := c.wa.Upload(ctx, data, whatsmeow.MediaImage)
		if err != nil {
			return session.SendReceipt{}, pkgError.ExternalError(fmt.Sprintf("failed to upload image: %v", err))
		}
		message = &waE2E.Message{ImageMessage: &waE2E.ImageMessage{
			Caption:       proto.String(caption),
			Mimetype:      proto.String(mimeType),
			URL:           proto.String(uploaded.URL),
			DirectPath:    proto.String(uploaded.DirectPath),
			MediaKey:      uploaded.MediaKey,
			FileEncSHA256: uploaded.FileEncSHA256,
			FileSHA256:    uploaded.FileSHA256,
			FileLength:    proto.Uint64(uploaded.FileLength),
		}}
	} else {
		uploaded, err := c.wa.Upload(ctx, data, whatsmeow.MediaDocument)
		if err != nil {
			return session.SendReceipt{}, pkgError.ExternalError(fmt.Sprintf("failed to upload document: %v", err))
		}
		message = &waE2E.Message{DocumentMessage: &waE2E.DocumentMessage{
			Caption:       proto.String(caption),
			FileName:      proto.String(filename),
			Mimetype:      proto.String(mimeType),
			URL:           proto.String(uploaded.URL),
			DirectPath:    proto.String(uploaded.DirectPath),
			MediaKey:      uploaded.MediaKey,
			FileEncSHA256: uploaded.FileEncSHA256,
			FileSHA256:    uploaded.FileSHA256,
			FileLength:    proto.Uint64(uploaded.FileLength),
		}}
	}

	resp, err := c.wa.SendMessage(ctx, jid, message)
	if err != nil {
		return session.SendReceipt{}, pkgError.ExternalError(err.Error())
	}
	return session.SendReceipt{MessageID: resp.ID, Timestamp: resp.Timestamp}, nil
}

// PairPhone requests a phone-number pairing code as an alternative to QR.
func (c *Client) PairPhone(ctx context.Context, phone string) (string, error) {
	code, err := c.wa.PairPhone(ctx, phone, true, whatsmeow.PairClientChrome, "Chrome (Linux)")
	if err != nil {
		return "", pkgError.ExternalError(fmt.Sprintf("failed to request pairing code: %v", err))
	}
	return code, nil
}

// Logout signs out and tears the connection down; the resulting events
// drive the session back to DISCONNECTED.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.wa.Logout(ctx); err != nil {
		return pkgError.ExternalError(fmt.Sprintf("failed to logout: %v", err))
	}
	return nil
}

func parseRecipient(to string) (types.JID, error) {
	jid, err := types.ParseJID(to)
	if err != nil {
		return types.EmptyJID, pkgError.ValidationError(fmt.Sprintf("invalid recipient %q: %v", to, err))
	}
	return jid, nil
}
