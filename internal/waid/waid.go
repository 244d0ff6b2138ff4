// Package waid provides WhatsApp chat and message identity helpers on top of
// the whatsmeow JID model.
package waid

import (
	"fmt"
	"strings"

	"go.mau.fi/whatsmeow/types"
)

// WAHA exposes user chats in the legacy "c.us" format.
const cusServer = "c.us"

// StatusBroadcastID is the chat id of the status broadcast pseudo-chat.
const StatusBroadcastID = "status@broadcast"

// Parse converts a chat id string into a JID.
func Parse(chatID string) (types.JID, error) {
	jid, err := types.ParseJID(chatID)
	if err != nil {
		return types.EmptyJID, fmt.Errorf("parse chat id %q: %w", chatID, err)
	}
	return jid, nil
}

// IsGroup reports whether the chat id is a group chat.
func IsGroup(chatID string) bool {
	jid, err := Parse(chatID)
	return err == nil && jid.Server == types.GroupServer
}

// IsLid reports whether the chat id is an alias (LID) identity.
func IsLid(chatID string) bool {
	jid, err := Parse(chatID)
	return err == nil && jid.Server == types.HiddenUserServer
}

// IsChannel reports whether the chat id is a newsletter channel.
func IsChannel(chatID string) bool {
	jid, err := Parse(chatID)
	return err == nil && jid.Server == types.NewsletterServer
}

// IsStatusBroadcast reports whether the chat id is the status broadcast chat.
func IsStatusBroadcast(chatID string) bool {
	return chatID == StatusBroadcastID
}

// IsDirect reports whether the chat id is a direct (phone-shaped) chat.
func IsDirect(chatID string) bool {
	jid, err := Parse(chatID)
	if err != nil {
		return false
	}
	return jid.Server == cusServer || jid.Server == types.DefaultUserServer
}

// PhoneNumber extracts the bare phone number from a phone-shaped chat id.
// Returns "" for non-direct chats.
func PhoneNumber(chatID string) string {
	if !IsDirect(chatID) {
		return ""
	}
	jid, err := Parse(chatID)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(jid.User, "+")
}

// ToJID normalizes a "c.us" chat id to the canonical JID format.
func ToJID(chatID string) string {
	jid, err := Parse(chatID)
	if err != nil {
		return chatID
	}
	if jid.Server == cusServer {
		return jid.User + "@" + types.DefaultUserServer
	}
	return jid.String()
}

// ToCus normalizes a JID-format chat id to the "c.us" format WAHA uses.
func ToCus(chatID string) string {
	jid, err := Parse(chatID)
	if err != nil {
		return chatID
	}
	if jid.Server == types.DefaultUserServer {
		return jid.User + "@" + cusServer
	}
	return jid.User + "@" + jid.Server
}
