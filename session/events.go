package session

// EventType tags the events a client pushes into the coordinator.
type EventType string

const (
	EventQR            EventType = "qr"
	EventAuthenticated EventType = "authenticated"
	EventAuthFailure   EventType = "auth_failure"
	EventReady         EventType = "ready"
	EventDisconnected  EventType = "disconnected"
	EventMessage       EventType = "message"
	EventMessageAck    EventType = "message_ack"
)

// Event is the single payload type flowing from the client into the
// coordinator. Which optional field is set depends on Type.
type Event struct {
	Type EventType

	// QR pairing payload, set for EventQR.
	QRCode string

	// Human-readable cause, set for EventDisconnected and EventAuthFailure.
	Reason string

	// Account info, set for EventReady.
	Info *Info

	Message *MessageEvent
	Ack     *AckEvent
}

// MessageEvent is an inbound or outbound chat message, already normalized
// away from the client library's wire types.
type MessageEvent struct {
	ID         string `json:"id"`
	From       string `json:"from"`
	To         string `json:"to,omitempty"`
	SenderName string `json:"sender_name,omitempty"`
	Body       string `json:"body"`
	Type       string `json:"type"`
	Timestamp  int64  `json:"timestamp"`
	FromMe     bool   `json:"from_me"`
	IsGroup    bool   `json:"is_group"`
	HasMedia   bool   `json:"has_media"`
	IsQuoted   bool   `json:"is_quoted"`
}

// ChatJID returns the chat this message belongs to: the remote side for
// inbound messages, the destination for our own.
func (m *MessageEvent) ChatJID() string {
	if m.FromMe && m.To != "" {
		return m.To
	}
	return m.From
}

// AckEvent reports a delivery-state change for a previously sent message.
// Ack levels: 1 sent, 2 delivered, 3 read, 4 played.
type AckEvent struct {
	MessageID string `json:"message_id"`
	ChatJID   string `json:"chat_jid"`
	Ack       int    `json:"ack"`
}
