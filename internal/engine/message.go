// Package engine normalizes WAHA payloads that differ per underlying
// WhatsApp engine (GOWS, NOWEB, WEBJS) into one canonical shape.
package engine

import (
	"encoding/json"
)

// Engine names as reported by WAHA.
const (
	GOWS  = "GOWS"
	NOWEB = "NOWEB"
	WEBJS = "WEBJS"
)

// Media describes a downloadable attachment of a message.
type Media struct {
	URL      string `json:"url"`
	Mimetype string `json:"mimetype"`
	Filename string `json:"filename"`
}

// ReplyTo references the message this one replies to.
type ReplyTo struct {
	ID string `json:"id"`
}

// Reaction is the payload of a message.reaction event.
type Reaction struct {
	Text      string `json:"text"`
	MessageID string `json:"messageId"`
}

// Location is an attached geo point.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Message is the canonical message event payload. The engine-specific raw
// body stays in Data for the proto-level converters.
type Message struct {
	ID              string          `json:"id"`
	Timestamp       int64           `json:"timestamp"`
	From            string          `json:"from"`
	To              string          `json:"to"`
	FromMe          bool            `json:"fromMe"`
	Source          string          `json:"source"`
	Participant     string          `json:"participant"`
	Body            string          `json:"body"`
	HasMedia        bool            `json:"hasMedia"`
	Media           *Media          `json:"media"`
	ReplyTo         *ReplyTo        `json:"replyTo"`
	Location        *Location       `json:"location"`
	VCards          []string        `json:"vCards"`
	EditedMessageID string          `json:"editedMessageId"`
	RevokedMessageID string         `json:"revokedMessageId"`
	Reaction        *Reaction       `json:"reaction"`
	Data            json.RawMessage `json:"_data"`
}

// Sources a message can originate from on the phone side.
const (
	SourceApp = "app"
	SourceAPI = "api"
)

// Event is the envelope WAHA posts to webhooks.
type Event struct {
	ID      string          `json:"id"`
	Event   string          `json:"event"`
	Session string          `json:"session"`
	Engine  string          `json:"engine"`
	Me      *Identity       `json:"me"`
	Payload json.RawMessage `json:"payload"`
}

// Identity is the account behind the session.
type Identity struct {
	ID       string `json:"id"`
	PushName string `json:"pushName"`
}

// SessionStatus is the payload of a session.status event.
type SessionStatus struct {
	Status string `json:"status"`
}
