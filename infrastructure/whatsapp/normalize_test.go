package whatsapp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"
)

const selfJID = "15550001111@s.whatsapp.net"

func messageEvent(chat, sender string, fromMe bool, msg *waE2E.Message) *events.Message {
	chatJID, _ := types.ParseJID(chat)
	senderJID, _ := types.ParseJID(sender)
	return &events.Message{
		Info: types.MessageInfo{
			MessageSource: types.MessageSource{
				Chat:     chatJID,
				Sender:   senderJID,
				IsFromMe: fromMe,
				IsGroup:  chatJID.Server == types.GroupServer,
			},
			ID:        "3EB0ABC123",
			PushName:  "Ada",
			Timestamp: time.Unix(1700000000, 0),
		},
		Message: msg,
	}
}

func TestNormalizeTextMessage(t *testing.T) {
	evt := messageEvent("15551234567@s.whatsapp.net", "15551234567@s.whatsapp.net", false,
		&waE2E.Message{Conversation: proto.String("hello")})

	msg := normalizeMessage(evt, selfJID, nil)
	require.NotNil(t, msg)
	assert.Equal(t, "3EB0ABC123", msg.ID)
	assert.Equal(t, "15551234567@s.whatsapp.net", msg.From)
	assert.Equal(t, selfJID, msg.To)
	assert.Equal(t, "hello", msg.Body)
	assert.Equal(t, "text", msg.Type)
	assert.Equal(t, int64(1700000000), msg.Timestamp)
	assert.Equal(t, "Ada", msg.SenderName)
	assert.False(t, msg.FromMe)
	assert.False(t, msg.IsGroup)
	assert.False(t, msg.HasMedia)
	assert.False(t, msg.IsQuoted)
}

func TestNormalizeSenderNameFallbacks(t *testing.T) {
	evt := messageEvent("15551234567@s.whatsapp.net", "15551234567@s.whatsapp.net", false,
		&waE2E.Message{Conversation: proto.String("hello")})
	evt.Info.PushName = ""

	// No push name: the contact store wins.
	msg := normalizeMessage(evt, selfJID, func(jid types.JID) string { return "Ada Lovelace" })
	require.NotNil(t, msg)
	assert.Equal(t, "Ada Lovelace", msg.SenderName)

	// Unknown contact: the raw number.
	msg = normalizeMessage(evt, selfJID, func(jid types.JID) string { return "" })
	require.NotNil(t, msg)
	assert.Equal(t, "15551234567", msg.SenderName)

	// Push name always takes precedence.
	evt.Info.PushName = "Ada"
	msg = normalizeMessage(evt, selfJID, func(jid types.JID) string { return "Ada Lovelace" })
	require.NotNil(t, msg)
	assert.Equal(t, "Ada", msg.SenderName)
}

func TestNormalizeOwnMessageSwapsDirection(t *testing.T) {
	evt := messageEvent("15551234567@s.whatsapp.net", selfJID, true,
		&waE2E.Message{Conversation: proto.String("yo")})

	msg := normalizeMessage(evt, selfJID, nil)
	require.NotNil(t, msg)
	assert.True(t, msg.FromMe)
	assert.Equal(t, selfJID, msg.From)
	assert.Equal(t, "15551234567@s.whatsapp.net", msg.To)
}

func TestNormalizeQuotedReply(t *testing.T) {
	evt := messageEvent("15551234567@s.whatsapp.net", "15551234567@s.whatsapp.net", false,
		&waE2E.Message{ExtendedTextMessage: &waE2E.ExtendedTextMessage{
			Text:        proto.String("replying"),
			ContextInfo: &waE2E.ContextInfo{StanzaID: proto.String("3EB0PREV")},
		}})

	msg := normalizeMessage(evt, selfJID, nil)
	require.NotNil(t, msg)
	assert.Equal(t, "replying", msg.Body)
	assert.True(t, msg.IsQuoted)
}

func TestNormalizeImageUsesCaption(t *testing.T) {
	evt := messageEvent("12036302@g.us", "15551234567@s.whatsapp.net", false,
		&waE2E.Message{ImageMessage: &waE2E.ImageMessage{Caption: proto.String("look at this")}})

	msg := normalizeMessage(evt, selfJID, nil)
	require.NotNil(t, msg)
	assert.Equal(t, "image", msg.Type)
	assert.Equal(t, "look at this", msg.Body)
	assert.True(t, msg.HasMedia)
	assert.True(t, msg.IsGroup)
}

func TestNormalizeViewOnceIsUnwrapped(t *testing.T) {
	evt := messageEvent("15551234567@s.whatsapp.net", "15551234567@s.whatsapp.net", false,
		&waE2E.Message{ViewOnceMessage: &waE2E.FutureProofMessage{
			Message: &waE2E.Message{ImageMessage: &waE2E.ImageMessage{Caption: proto.String("secret")}},
		}})

	msg := normalizeMessage(evt, selfJID, nil)
	require.NotNil(t, msg)
	assert.Equal(t, "image", msg.Type)
	assert.Equal(t, "secret", msg.Body)
}

func TestNormalizeDropsEmptyProtocolMessage(t *testing.T) {
	evt := messageEvent("15551234567@s.whatsapp.net", "15551234567@s.whatsapp.net", false,
		&waE2E.Message{ProtocolMessage: &waE2E.ProtocolMessage{}})

	assert.Nil(t, normalizeMessage(evt, selfJID, nil))
}

func TestNormalizeReceiptLevels(t *testing.T) {
	chat, _ := types.ParseJID("15551234567@s.whatsapp.net")
	base := func(rt types.ReceiptType) *events.Receipt {
		return &events.Receipt{
			MessageSource: types.MessageSource{Chat: chat},
			MessageIDs:    []string{"A1", "A2"},
			Type:          rt,
		}
	}

	acks := normalizeReceipt(base(types.ReceiptTypeDelivered))
	require.Len(t, acks, 2)
	assert.Equal(t, 2, acks[0].Ack)
	assert.Equal(t, "A1", acks[0].MessageID)
	assert.Equal(t, "15551234567@s.whatsapp.net", acks[0].ChatJID)

	acks = normalizeReceipt(base(types.ReceiptTypeRead))
	require.Len(t, acks, 2)
	assert.Equal(t, 3, acks[1].Ack)

	acks = normalizeReceipt(base(types.ReceiptTypePlayed))
	require.Len(t, acks, 2)
	assert.Equal(t, 4, acks[0].Ack)

	assert.Nil(t, normalizeReceipt(base(types.ReceiptTypeSender)))
}
