package chatwoot

import (
	"encoding/json"
	"time"
)

// Webhook event names the bridge routes on.
const (
	EventMessageCreated = "message_created"
	EventMessageUpdated = "message_updated"
	EventMessageDeleted = "message_deleted"
)

// WebhookContentAttributes carries the message metadata relevant for
// routing. ExternalError keeps raw JSON so "present but null" (the retry
// signal Chatwoot sends) is distinguishable from absent.
type WebhookContentAttributes struct {
	InReplyTo     int             `json:"in_reply_to"`
	Deleted       bool            `json:"deleted"`
	ExternalError json.RawMessage `json:"external_error"`
}

// HasExternalError reports whether the external_error attribute is present
// at all, null included.
func (a *WebhookContentAttributes) HasExternalError() bool {
	return a != nil && a.ExternalError != nil
}

// WebhookConversation is the conversation context of a webhook event.
type WebhookConversation struct {
	ID   int `json:"id"`
	Meta struct {
		Sender *Contact `json:"sender"`
	} `json:"meta"`
}

// WebhookAttachment is a file attached to an outbound Chatwoot message.
type WebhookAttachment struct {
	DataURL  string `json:"data_url"`
	FileType string `json:"file_type"`
}

// WebhookEvent is the payload Chatwoot posts to the bridge webhook.
type WebhookEvent struct {
	Event             string                    `json:"event"`
	ID                int                       `json:"id"`
	Content           string                    `json:"content"`
	ContentType       string                    `json:"content_type"`
	MessageType       string                    `json:"message_type"`
	Private           bool                      `json:"private"`
	CreatedAt         json.RawMessage           `json:"created_at"`
	ContentAttributes *WebhookContentAttributes `json:"content_attributes"`
	Conversation      *WebhookConversation      `json:"conversation"`
	Attachments       []WebhookAttachment       `json:"attachments"`
	Sender            *Contact                  `json:"sender"`
}

// CreatedTime parses created_at, which Chatwoot sends either as a unix
// epoch or an ISO timestamp depending on the event.
func (e *WebhookEvent) CreatedTime() time.Time {
	if len(e.CreatedAt) == 0 {
		return time.Now().UTC()
	}
	var epoch float64
	if err := json.Unmarshal(e.CreatedAt, &epoch); err == nil {
		return time.Unix(int64(epoch), 0).UTC()
	}
	var iso string
	if err := json.Unmarshal(e.CreatedAt, &iso); err == nil {
		if t, err := time.Parse(time.RFC3339, iso); err == nil {
			return t.UTC()
		}
	}
	return time.Now().UTC()
}

// SenderChatID returns the WhatsApp chat id recorded on the conversation's
// contact, preferring the JID over the LID over the plain chat id.
func (e *WebhookEvent) SenderChatID() string {
	if e.Conversation == nil || e.Conversation.Meta.Sender == nil {
		return ""
	}
	return FindChatID(e.Conversation.Meta.Sender.CustomAttributes)
}

// FindChatID picks the best WhatsApp identity from contact attributes.
func FindChatID(attributes map[string]string) string {
	for _, key := range []string{AttrJID, AttrLID, AttrChatID} {
		if id := attributes[key]; id != "" {
			return id
		}
	}
	return ""
}
