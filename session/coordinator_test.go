package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []publishedEvent
}

type publishedEvent struct {
	Name string
	Data any
}

func (b *fakeBroadcaster) Publish(event string, data any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, publishedEvent{Name: event, Data: data})
}

func (b *fakeBroadcaster) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.events))
	for i, ev := range b.events {
		out[i] = ev.Name
	}
	return out
}

func (b *fakeBroadcaster) waitFor(t *testing.T, name string) publishedEvent {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		b.mu.Lock()
		for _, ev := range b.events {
			if ev.Name == name {
				b.mu.Unlock()
				return ev
			}
		}
		b.mu.Unlock()
		select {
		case <-deadline:
			t.Fatalf("event %q never published, got %v", name, b.names())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

type fakeClient struct {
	events     chan<- Event
	connectErr error

	mu          sync.Mutex
	connects    int
	disconnects int
	logouts     int
}

func (c *fakeClient) Connect() error {
	c.mu.Lock()
	c.connects++
	c.mu.Unlock()
	return c.connectErr
}

func (c *fakeClient) Disconnect() {
	c.mu.Lock()
	c.disconnects++
	c.mu.Unlock()
}

func (c *fakeClient) SendText(ctx context.Context, to, body string) (SendReceipt, error) {
	return SendReceipt{MessageID: "MSGID", Timestamp: time.Unix(1700000000, 0)}, nil
}

func (c *fakeClient) SendMedia(ctx context.Context, to, caption, filename string, data []byte) (SendReceipt, error) {
	return SendReceipt{MessageID: "MSGID", Timestamp: time.Unix(1700000000, 0)}, nil
}

func (c *fakeClient) PairPhone(ctx context.Context, phone string) (string, error) {
	return "ABCD-EFGH", nil
}

func (c *fakeClient) Logout(ctx context.Context) error {
	c.mu.Lock()
	c.logouts++
	c.mu.Unlock()
	c.events <- Event{Type: EventDisconnected, Reason: "logged out"}
	return nil
}

type fakeIndexer struct {
	mu   sync.Mutex
	msgs []*MessageEvent
	acks []*AckEvent
}

func (f *fakeIndexer) RecordMessage(ctx context.Context, msg *MessageEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakeIndexer) RecordAck(ctx context.Context, ack *AckEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acks = append(f.acks, ack)
	return nil
}

func newTestCoordinator(t *testing.T, opts ...Option) (*Coordinator, *State, *fakeBroadcaster, *fakeClient, context.CancelFunc) {
	t.Helper()
	state := NewState()
	broadcaster := &fakeBroadcaster{}
	client := &fakeClient{}
	factory := func(ctx context.Context, events chan<- Event) (Client, error) {
		client.events = events
		return client, nil
	}
	opts = append([]Option{WithQREncoder(func(payload string) (string, error) {
		return "data:image/png;base64," + payload, nil
	})}, opts...)
	coord := NewCoordinator(state, broadcaster, factory, opts...)
	ctx, cancel := context.WithCancel(context.Background())
	go coord.Run(ctx)
	t.Cleanup(cancel)
	return coord, state, broadcaster, client, cancel
}

func TestPairingFlow(t *testing.T) {
	coord, state, broadcaster, client, _ := newTestCoordinator(t)
	coord.Connect(context.Background())
	require.Eventually(t, func() bool { return client.events != nil }, time.Second, 5*time.Millisecond)

	client.events <- Event{Type: EventQR, QRCode: "pairing-payload"}
	qr := broadcaster.waitFor(t, "qr")
	assert.Equal(t, StatusQRReady, state.Status())
	assert.Equal(t, "data:image/png;base64,pairing-payload", state.QR())
	data := qr.Data.(map[string]any)
	assert.Equal(t, "data:image/png;base64,pairing-payload", data["qr_data_url"])

	client.events <- Event{Type: EventAuthenticated}
	broadcaster.waitFor(t, "authenticated")
	assert.Equal(t, StatusAuthenticated, state.Status())
	assert.Empty(t, state.QR())

	client.events <- Event{Type: EventReady, Info: &Info{JID: "1555@s.whatsapp.net", PushName: "Ada"}}
	broadcaster.waitFor(t, "ready")
	assert.Equal(t, StatusReady, state.Status())
	assert.Equal(t, "Ada", state.Info().PushName)
}

func TestDisconnectSchedulesReconnect(t *testing.T) {
	coord, state, broadcaster, client, _ := newTestCoordinator(t,
		WithReconnectPolicy(FixedDelay{Delay: 10 * time.Millisecond}))
	coord.Connect(context.Background())
	require.Eventually(t, func() bool { return client.events != nil }, time.Second, 5*time.Millisecond)

	client.events <- Event{Type: EventDisconnected, Reason: "stream closed"}
	ev := broadcaster.waitFor(t, "disconnected")
	assert.Equal(t, "stream closed", ev.Data.(map[string]any)["reason"])
	assert.Equal(t, StatusDisconnected, state.Status())

	// The reconnect fires after the policy delay and builds a new attempt.
	require.Eventually(t, func() bool {
		client.mu.Lock()
		defer client.mu.Unlock()
		return client.connects >= 2
	}, time.Second, 5*time.Millisecond)
}

func TestAuthFailureIsTerminal(t *testing.T) {
	coord, state, broadcaster, client, _ := newTestCoordinator(t,
		WithReconnectPolicy(FixedDelay{Delay: 10 * time.Millisecond}))
	coord.Connect(context.Background())
	require.Eventually(t, func() bool { return client.events != nil }, time.Second, 5*time.Millisecond)

	client.events <- Event{Type: EventAuthFailure, Reason: "pairing rejected"}
	ev := broadcaster.waitFor(t, "auth_failure")
	assert.Equal(t, "pairing rejected", ev.Data.(map[string]any)["message"])
	assert.Equal(t, StatusAuthFailure, state.Status())

	// A trailing disconnect from the dying client must not restart anything.
	client.events <- Event{Type: EventDisconnected, Reason: "stream closed"}
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, StatusAuthFailure, state.Status())
	client.mu.Lock()
	connects := client.connects
	client.mu.Unlock()
	assert.Equal(t, 1, connects)
}

func TestLogoutDrivesFreshPairing(t *testing.T) {
	coord, state, broadcaster, client, _ := newTestCoordinator(t,
		WithReconnectPolicy(FixedDelay{Delay: 10 * time.Millisecond}))
	coord.Connect(context.Background())
	require.Eventually(t, func() bool { return client.events != nil }, time.Second, 5*time.Millisecond)

	client.events <- Event{Type: EventReady, Info: &Info{JID: "1555@s.whatsapp.net"}}
	broadcaster.waitFor(t, "ready")

	require.NoError(t, coord.Logout(context.Background()))
	broadcaster.waitFor(t, "disconnected")
	assert.Equal(t, StatusDisconnected, state.Status())

	require.Eventually(t, func() bool {
		client.mu.Lock()
		defer client.mu.Unlock()
		return client.connects >= 2
	}, time.Second, 5*time.Millisecond)
}

func TestMessageEventsAreBroadcastAndIndexed(t *testing.T) {
	indexer := &fakeIndexer{}
	coord, _, broadcaster, client, _ := newTestCoordinator(t, WithIndexer(indexer, nil))
	coord.Connect(context.Background())
	require.Eventually(t, func() bool { return client.events != nil }, time.Second, 5*time.Millisecond)

	client.events <- Event{Type: EventMessage, Message: &MessageEvent{
		ID: "A1", From: "1555@s.whatsapp.net", Body: "hi", Type: "text", Timestamp: 1700000000,
	}}
	broadcaster.waitFor(t, "message")

	client.events <- Event{Type: EventMessage, Message: &MessageEvent{
		ID: "A2", From: "me@s.whatsapp.net", To: "1555@s.whatsapp.net", Body: "yo", FromMe: true,
	}}
	broadcaster.waitFor(t, "message_sent")

	client.events <- Event{Type: EventMessageAck, Ack: &AckEvent{MessageID: "A2", ChatJID: "1555@s.whatsapp.net", Ack: 3}}
	ack := broadcaster.waitFor(t, "message_ack")
	assert.Equal(t, 3, ack.Data.(*AckEvent).Ack)

	require.Eventually(t, func() bool {
		indexer.mu.Lock()
		defer indexer.mu.Unlock()
		return len(indexer.msgs) == 2 && len(indexer.acks) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "1555@s.whatsapp.net", indexer.msgs[1].ChatJID())
}

func TestReadyResetsReconnectAttempts(t *testing.T) {
	coord, _, broadcaster, client, _ := newTestCoordinator(t,
		WithReconnectPolicy(FixedDelay{Delay: 5 * time.Millisecond}))
	coord.Connect(context.Background())
	require.Eventually(t, func() bool { return client.events != nil }, time.Second, 5*time.Millisecond)

	client.events <- Event{Type: EventReady, Info: &Info{JID: "x@s.whatsapp.net"}}
	broadcaster.waitFor(t, "ready")

	coord.mu.Lock()
	attempt := coord.attempt
	coord.mu.Unlock()
	assert.Equal(t, 0, attempt)
}

func TestMessengerNilBeforeConnect(t *testing.T) {
	state := NewState()
	coord := NewCoordinator(state, &fakeBroadcaster{}, func(ctx context.Context, events chan<- Event) (Client, error) {
		return nil, nil
	})
	assert.Nil(t, coord.Messenger())
}
