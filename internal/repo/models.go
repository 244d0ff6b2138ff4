package repo

import (
	"encoding/json"
	"time"
)

// AppConfig is the per-installation Chatwoot configuration.
type AppConfig struct {
	URL             string `json:"url"`
	AccountID       int    `json:"account_id"`
	AccountToken    string `json:"account_token"`
	InboxID         int    `json:"inbox_id"`
	InboxIdentifier string `json:"inbox_identifier"`
	Locale          string `json:"locale"`
}

// App is an installed app instance bound to one WhatsApp session.
type App struct {
	ID        string
	Session   string
	Enabled   bool
	Config    AppConfig
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MarshalConfig serializes the app config for storage.
func (a *App) MarshalConfig() ([]byte, error) {
	return json.Marshal(a.Config)
}

// WhatsAppMessage identifies one message in a WhatsApp chat.
type WhatsAppMessage struct {
	Timestamp   time.Time
	ChatID      string
	MessageID   string
	FromMe      bool
	Participant *string
}

// ChatwootMessage identifies one message in a Chatwoot conversation.
type ChatwootMessage struct {
	Timestamp      time.Time
	ConversationID int
	MessageID      int
}
