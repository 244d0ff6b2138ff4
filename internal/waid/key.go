package waid

import (
	"fmt"
	"strings"
)

// MessageKey identifies one WhatsApp message within a chat.
type MessageKey struct {
	FromMe      bool
	ChatID      string
	ID          string
	Participant string
}

// Serialize renders the key in the serialized id format used on the wire:
// "fromMe_chatId_messageId" with an optional trailing participant.
func (k MessageKey) Serialize() string {
	parts := []string{fmt.Sprintf("%t", k.FromMe), k.ChatID, k.ID}
	if k.Participant != "" {
		parts = append(parts, k.Participant)
	}
	return strings.Join(parts, "_")
}

// ParseMessageKey parses a serialized message id. Message ids never contain
// underscores, so the split is unambiguous.
func ParseMessageKey(serialized string) (MessageKey, error) {
	parts := strings.SplitN(serialized, "_", 4)
	if len(parts) < 3 {
		return MessageKey{}, fmt.Errorf("invalid serialized message id: %q", serialized)
	}
	key := MessageKey{
		FromMe: parts[0] == "true",
		ChatID: parts[1],
		ID:     parts[2],
	}
	if len(parts) == 4 {
		key.Participant = parts[3]
	}
	return key, nil
}
