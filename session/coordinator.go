package session

import (
	"context"
	"encoding/base64"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/wabridge/wabridge/pkg/msgworker"
)

// SendReceipt is the server's acknowledgement of an outbound message.
type SendReceipt struct {
	MessageID string
	Timestamp time.Time
}

// Messenger is the sending surface of a connected client, consumed by the
// REST usecases.
type Messenger interface {
	SendText(ctx context.Context, to string, body string) (SendReceipt, error)
	SendMedia(ctx context.Context, to string, caption string, filename string, data []byte) (SendReceipt, error)
	PairPhone(ctx context.Context, phone string) (string, error)
	Logout(ctx context.Context) error
}

// Client is a live connection to WhatsApp. It pushes Events into the
// channel handed to its factory and exposes the Messenger surface.
type Client interface {
	Messenger
	Connect() error
	Disconnect()
}

// ClientFactory builds a fresh client wired to the coordinator's event
// channel. Called once per connection attempt.
type ClientFactory func(ctx context.Context, events chan<- Event) (Client, error)

// Broadcaster fans an event out to every connected WebSocket consumer.
type Broadcaster interface {
	Publish(event string, data any)
}

// MessageIndexer persists chat activity for the chat listing endpoint.
type MessageIndexer interface {
	RecordMessage(ctx context.Context, msg *MessageEvent) error
	RecordAck(ctx context.Context, ack *AckEvent) error
}

// QREncoder turns the raw pairing payload into a browser-renderable
// artifact (a PNG data URI).
type QREncoder func(payload string) (string, error)

// EncodeQRDataURL renders the pairing payload as a 256px PNG data URI.
func EncodeQRDataURL(payload string) (string, error) {
	png, err := qrcode.Encode(payload, qrcode.Medium, 256)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

// Coordinator owns the session lifecycle. It is the single writer of State,
// consumes client events from one channel, and schedules reconnects when
// the link drops.
type Coordinator struct {
	state       *State
	broadcaster Broadcaster
	factory     ClientFactory
	policy      ReconnectPolicy
	indexer     MessageIndexer
	pool        *msgworker.Pool
	encodeQR    QREncoder

	events  chan Event
	stopped int32

	mu      sync.Mutex
	client  Client
	attempt int
}

type Option func(*Coordinator)

func WithReconnectPolicy(p ReconnectPolicy) Option {
	return func(c *Coordinator) { c.policy = p }
}

func WithIndexer(indexer MessageIndexer, pool *msgworker.Pool) Option {
	return func(c *Coordinator) {
		c.indexer = indexer
		c.pool = pool
	}
}

func WithQREncoder(enc QREncoder) Option {
	return func(c *Coordinator) { c.encodeQR = enc }
}

func NewCoordinator(state *State, broadcaster Broadcaster, factory ClientFactory, opts ...Option) *Coordinator {
	c := &Coordinator{
		state:       state,
		broadcaster: broadcaster,
		factory:     factory,
		policy:      FixedDelay{Delay: 5 * time.Second},
		encodeQR:    EncodeQRDataURL,
		events:      make(chan Event, 64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run consumes client events until ctx is cancelled. Call Connect (or let
// a reconnect fire) to actually open the link.
func (c *Coordinator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			atomic.StoreInt32(&c.stopped, 1)
			c.teardown()
			return
		case ev := <-c.events:
			c.handle(ctx, ev)
		}
	}
}

// Connect starts a connection attempt. Errors are routed through the same
// disconnect path the event loop uses, so callers only see nil.
func (c *Coordinator) Connect(ctx context.Context) {
	c.transition(StatusInitializing)

	client, err := c.factory(ctx, c.events)
	if err != nil {
		logrus.WithError(err).Error("[SESSION] Client init failed")
		c.events <- Event{Type: EventDisconnected, Reason: err.Error()}
		return
	}

	c.mu.Lock()
	c.client = client
	c.mu.Unlock()

	if err := client.Connect(); err != nil {
		logrus.WithError(err).Error("[SESSION] Connect failed")
		c.events <- Event{Type: EventDisconnected, Reason: err.Error()}
	}
}

// Messenger returns the live client, or nil when no connection attempt has
// produced one yet. Readiness gating is the caller's job.
func (c *Coordinator) Messenger() Messenger {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil
	}
	return c.client
}

// Logout signs the account out. The client emits a disconnect event
// afterwards, which drives the state machine back through a fresh QR flow.
func (c *Coordinator) Logout(ctx context.Context) error {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()
	if client == nil {
		return nil
	}
	return client.Logout(ctx)
}

func (c *Coordinator) handle(ctx context.Context, ev Event) {
	switch ev.Type {
	case EventQR:
		dataURL, err := c.encodeQR(ev.QRCode)
		if err != nil {
			logrus.WithError(err).Error("[SESSION] QR encode failed")
			return
		}
		c.state.SetQR(dataURL)
		c.publishState()
		c.broadcaster.Publish("qr", map[string]any{"qr_data_url": dataURL})
		logrus.Info("[SESSION] QR code ready for pairing")

	case EventAuthenticated:
		c.transition(StatusAuthenticated)
		c.broadcaster.Publish("authenticated", map[string]any{})
		logrus.Info("[SESSION] Authenticated")

	case EventReady:
		c.state.SetInfo(ev.Info)
		c.transition(StatusReady)
		c.mu.Lock()
		c.attempt = 0
		c.mu.Unlock()
		c.broadcaster.Publish("ready", map[string]any{"info": ev.Info})
		logrus.Info("[SESSION] Session ready")

	case EventAuthFailure:
		c.transition(StatusAuthFailure)
		c.broadcaster.Publish("auth_failure", map[string]any{"message": ev.Reason})
		logrus.Errorf("[SESSION] Authentication failed: %s", ev.Reason)

	case EventDisconnected:
		// An auth failure is terminal; a later disconnect must not
		// restart the reconnect cycle behind it.
		if c.state.Status() == StatusAuthFailure {
			return
		}
		c.transition(StatusDisconnected)
		c.broadcaster.Publish("disconnected", map[string]any{"reason": ev.Reason})
		logrus.Warnf("[SESSION] Disconnected: %s", ev.Reason)
		c.scheduleReconnect(ctx)

	case EventMessage:
		if ev.Message == nil {
			return
		}
		name := "message"
		if ev.Message.FromMe {
			name = "message_sent"
		}
		c.broadcaster.Publish(name, ev.Message)
		c.index(ctx, ev.Message.ChatJID(), func(jobCtx context.Context) error {
			return c.indexer.RecordMessage(jobCtx, ev.Message)
		})

	case EventMessageAck:
		if ev.Ack == nil {
			return
		}
		c.broadcaster.Publish("message_ack", ev.Ack)
		c.index(ctx, ev.Ack.ChatJID, func(jobCtx context.Context) error {
			return c.indexer.RecordAck(jobCtx, ev.Ack)
		})
	}
}

func (c *Coordinator) index(ctx context.Context, chatJID string, handler func(ctx context.Context) error) {
	if c.indexer == nil {
		return
	}
	if c.pool != nil {
		c.pool.Dispatch(msgworker.Job{ChatJID: chatJID, Handler: handler})
		return
	}
	if err := handler(ctx); err != nil {
		logrus.WithError(err).Warn("[SESSION] Chat index write failed")
	}
}

func (c *Coordinator) transition(st Status) {
	c.state.SetStatus(st)
	c.publishState()
}

func (c *Coordinator) publishState() {
	c.broadcaster.Publish("state_change", map[string]any{"status": c.state.Status()})
}

func (c *Coordinator) scheduleReconnect(ctx context.Context) {
	c.mu.Lock()
	c.attempt++
	attempt := c.attempt
	c.mu.Unlock()

	delay := c.policy.NextDelay(attempt)
	logrus.Infof("[SESSION] Reconnecting in %s (attempt %d)", delay, attempt)

	time.AfterFunc(delay, func() {
		if atomic.LoadInt32(&c.stopped) == 1 || ctx.Err() != nil {
			return
		}
		c.Connect(ctx)
	})
}

func (c *Coordinator) teardown() {
	c.mu.Lock()
	client := c.client
	c.client = nil
	c.mu.Unlock()
	if client != nil {
		client.Disconnect()
	}
}
