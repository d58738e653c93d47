package whatsapp

import (
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"

	"github.com/wabridge/wabridge/session"
)

// contactNameFunc looks a sender up in the contact store, returning ""
// when nothing is known.
type contactNameFunc func(jid types.JID) string

// normalizeMessage flattens a whatsmeow message event into the bridge's
// wire shape. Returns nil for events with nothing to show (protocol
// messages, empty reactions and the like).
func normalizeMessage(evt *events.Message, selfJID string, contactName contactNameFunc) *session.MessageEvent {
	content := unwrapMessage(evt.Message)
	if content == nil {
		return nil
	}

	body, quoted := extractText(content)
	kind, caption, hasMedia := extractMediaKind(content)
	if body == "" && caption != "" {
		body = caption
	}
	if body == "" && !hasMedia {
		return nil
	}

	chat := evt.Info.Chat.String()
	from, to := chat, selfJID
	if evt.Info.IsFromMe {
		from, to = selfJID, chat
	}

	// Display name: push name, then contact store, then the raw number,
	// then the full identifier.
	senderName := evt.Info.PushName
	if senderName == "" && contactName != nil {
		senderName = contactName(evt.Info.Sender)
	}
	if senderName == "" {
		senderName = evt.Info.Sender.User
	}
	if senderName == "" {
		senderName = evt.Info.Sender.String()
	}

	return &session.MessageEvent{
		ID:         evt.Info.ID,
		From:       from,
		To:         to,
		SenderName: senderName,
		Body:       body,
		Type:       kind,
		Timestamp:  evt.Info.Timestamp.Unix(),
		FromMe:     evt.Info.IsFromMe,
		IsGroup:    evt.Info.IsGroup,
		HasMedia:   hasMedia,
		IsQuoted:   quoted,
	}
}

// unwrapMessage peels view-once and ephemeral wrappers, up to three deep.
func unwrapMessage(msg *waE2E.Message) *waE2E.Message {
	if msg == nil {
		return nil
	}
	unwrap := func(m *waE2E.Message) *waE2E.Message {
		if v := m.GetViewOnceMessage(); v != nil {
			return v.GetMessage()
		}
		if v := m.GetEphemeralMessage(); v != nil {
			return v.GetMessage()
		}
		if v := m.GetViewOnceMessageV2(); v != nil {
			return v.GetMessage()
		}
		return nil
	}
	for i := 0; i < 3; i++ {
		if next := unwrap(msg); next != nil {
			msg = next
		} else {
			break
		}
	}
	return msg
}

func extractText(msg *waE2E.Message) (body string, quoted bool) {
	if text := msg.GetConversation(); text != "" {
		return text, false
	}
	if ext := msg.GetExtendedTextMessage(); ext != nil {
		return ext.GetText(), ext.GetContextInfo().GetStanzaID() != ""
	}
	return "", false
}

func extractMediaKind(msg *waE2E.Message) (kind string, caption string, hasMedia bool) {
	switch {
	case msg.GetImageMessage() != nil:
		return "image", msg.GetImageMessage().GetCaption(), true
	case msg.GetVideoMessage() != nil:
		return "video", msg.GetVideoMessage().GetCaption(), true
	case msg.GetAudioMessage() != nil:
		return "audio", "", true
	case msg.GetDocumentMessage() != nil:
		return "document", msg.GetDocumentMessage().GetCaption(), true
	case msg.GetStickerMessage() != nil:
		return "sticker", "", true
	case msg.GetLocationMessage() != nil:
		return "location", msg.GetLocationMessage().GetName(), true
	case msg.GetContactMessage() != nil:
		return "contact", msg.GetContactMessage().GetDisplayName(), true
	default:
		return "text", "", false
	}
}

// normalizeReceipt maps a receipt to per-message ack levels:
// 2 delivered, 3 read, 4 played. Other receipt kinds are dropped.
func normalizeReceipt(evt *events.Receipt) []*session.AckEvent {
	var level int
	switch evt.Type {
	case types.ReceiptTypeDelivered:
		level = 2
	case types.ReceiptTypeRead, types.ReceiptTypeReadSelf:
		level = 3
	case types.ReceiptTypePlayed:
		level = 4
	default:
		return nil
	}

	acks := make([]*session.AckEvent, 0, len(evt.MessageIDs))
	for _, id := range evt.MessageIDs {
		acks = append(acks, &session.AckEvent{
			MessageID: id,
			ChatJID:   evt.Chat.String(),
			Ack:       level,
		})
	}
	return acks
}
