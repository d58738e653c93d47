package utils

import (
	"regexp"
	"strings"

	"github.com/wabridge/wabridge/config"
)

var nonDigits = regexp.MustCompile(`[^0-9]+`)

// FormatRecipient resolves a REST destination into a chat JID. A bare
// number gets the individual-chat suffix; anything already carrying a
// domain suffix is used unchanged.
func FormatRecipient(to string) string {
	to = strings.TrimSpace(to)
	if strings.Contains(to, "@") {
		return to
	}
	return to + config.WhatsappTypeUser
}

// IsGroupJID reports whether the JID addresses a group chat.
func IsGroupJID(jid string) bool {
	return strings.HasSuffix(jid, config.WhatsappTypeGroup)
}

// DigitsOnly strips everything but 0-9, the format PairPhone expects.
func DigitsOnly(phone string) string {
	return nonDigits.ReplaceAllString(phone, "")
}
