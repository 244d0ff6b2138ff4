package waha

import "encoding/json"

// Session statuses reported by session.status events.
const (
	SessionStarting   = "STARTING"
	SessionScanQRCode = "SCAN_QR_CODE"
	SessionWorking    = "WORKING"
	SessionStopped    = "STOPPED"
	SessionFailed     = "FAILED"
)

// SessionInfo is the state of one gateway session.
type SessionInfo struct {
	Name   string     `json:"name"`
	Status string     `json:"status"`
	Me     *SessionMe `json:"me"`
}

// SessionMe is the WhatsApp account behind a session.
type SessionMe struct {
	ID       string `json:"id"`
	PushName string `json:"pushName"`
}

// Contact is a WhatsApp contact as returned by the gateway.
type Contact struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	PushName string `json:"pushname"`
}

// DisplayName returns the best human-readable name for the contact.
func (c *Contact) DisplayName() string {
	if c == nil {
		return ""
	}
	if c.Name != "" {
		return c.Name
	}
	return c.PushName
}

// Group is a WhatsApp group chat.
type Group struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	Name    string `json:"name"`
}

// Title returns the best human-readable name for the group.
func (g *Group) Title() string {
	if g == nil {
		return ""
	}
	if g.Subject != "" {
		return g.Subject
	}
	return g.Name
}

// Channel is a WhatsApp newsletter channel.
type Channel struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Picture     string `json:"picture"`
}

// ChatPicture is the profile picture of a chat.
type ChatPicture struct {
	URL string `json:"url"`
}

// QRCode is the pairing QR code of a session.
type QRCode struct {
	Mimetype string `json:"mimetype"`
	Data     string `json:"data"`
}

// ServerVersion describes the WAHA build.
type ServerVersion struct {
	Version string `json:"version"`
	Engine  string `json:"engine"`
	Tier    string `json:"tier"`
	Browser string `json:"browser"`
}

// ServerStatus describes the WAHA server uptime.
type ServerStatus struct {
	StartTimestamp int64 `json:"startTimestamp"`
	UptimeSeconds  int64 `json:"uptime"`
}

// SentMessage is the gateway response after sending a message.
type SentMessage struct {
	ID        string          `json:"id"`
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"_data"`
}

// TextRequest sends a text message.
type TextRequest struct {
	Session string `json:"session"`
	ChatID  string `json:"chatId"`
	Text    string `json:"text"`
	ReplyTo string `json:"reply_to,omitempty"`
}

// FileRequest sends a media message (image, video, voice or document).
type FileRequest struct {
	Session string    `json:"session"`
	ChatID  string    `json:"chatId"`
	Caption string    `json:"caption,omitempty"`
	ReplyTo string    `json:"reply_to,omitempty"`
	File    MediaFile `json:"file"`
}

// MediaFile is file content passed either by URL or as base64 data.
type MediaFile struct {
	Mimetype string `json:"mimetype,omitempty"`
	Filename string `json:"filename,omitempty"`
	URL      string `json:"url,omitempty"`
	Data     string `json:"data,omitempty"`
}
