package waha

import (
	"context"
	"fmt"
	"net/url"
)

// SessionAPI exposes the per-session endpoints of the WAHA gateway.
type SessionAPI struct {
	client  *Client
	session string
}

// Name returns the session name.
func (s *SessionAPI) Name() string {
	return s.session
}

func (s *SessionAPI) path(format string, args ...any) string {
	escaped := make([]any, 0, len(args)+1)
	escaped = append(escaped, url.PathEscape(s.session))
	for _, arg := range args {
		if str, ok := arg.(string); ok {
			escaped = append(escaped, url.PathEscape(str))
			continue
		}
		escaped = append(escaped, arg)
	}
	return fmt.Sprintf(format, escaped...)
}

// Get returns the session's current state.
func (s *SessionAPI) Get(ctx context.Context) (*SessionInfo, error) {
	var info SessionInfo
	if err := s.client.get(ctx, "session.get", s.path("/api/sessions/%s"), &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetContact returns the contact with the given chat id, or nil if unknown.
func (s *SessionAPI) GetContact(ctx context.Context, chatID string) (*Contact, error) {
	var contact Contact
	url := s.path("/api/%s/contacts?contactId=%s", chatID)
	if err := s.client.get(ctx, "contacts.get", url, &contact); err != nil {
		return nil, err
	}
	if contact.ID == "" {
		return nil, nil
	}
	return &contact, nil
}

// GetGroup returns group info.
func (s *SessionAPI) GetGroup(ctx context.Context, groupID string) (*Group, error) {
	var group Group
	if err := s.client.get(ctx, "groups.get", s.path("/api/%s/groups/%s", groupID), &group); err != nil {
		return nil, err
	}
	return &group, nil
}

// GetChannel returns newsletter channel info.
func (s *SessionAPI) GetChannel(ctx context.Context, channelID string) (*Channel, error) {
	var channel Channel
	if err := s.client.get(ctx, "channels.get", s.path("/api/%s/channels/%s", channelID), &channel); err != nil {
		return nil, err
	}
	return &channel, nil
}

// GetChatPicture returns the chat's picture URL, or "" when none is set.
func (s *SessionAPI) GetChatPicture(ctx context.Context, chatID string) (string, error) {
	var picture ChatPicture
	if err := s.client.get(ctx, "chats.picture", s.path("/api/%s/chats/%s/picture", chatID), &picture); err != nil {
		return "", err
	}
	return picture.URL, nil
}

// FindPNByLid resolves an alias (LID) identity to its phone-number identity.
// Returns "" when the gateway has no mapping.
func (s *SessionAPI) FindPNByLid(ctx context.Context, lid string) (string, error) {
	var result struct {
		PN string `json:"pn"`
	}
	if err := s.client.get(ctx, "lids.pn", s.path("/api/%s/lids/%s", lid), &result); err != nil {
		return "", err
	}
	return result.PN, nil
}

// FindLIDByPN resolves a phone-number identity to its alias (LID) identity.
// Returns "" when the gateway has no mapping.
func (s *SessionAPI) FindLIDByPN(ctx context.Context, phoneNumber string) (string, error) {
	var result struct {
		LID string `json:"lid"`
	}
	if err := s.client.get(ctx, "lids.lid", s.path("/api/%s/lids/pn/%s", phoneNumber), &result); err != nil {
		return "", err
	}
	return result.LID, nil
}

// SendText sends a text message to the chat.
func (s *SessionAPI) SendText(ctx context.Context, chatID, text, replyTo string) (*SentMessage, error) {
	req := TextRequest{Session: s.session, ChatID: chatID, Text: text, ReplyTo: replyTo}
	var sent SentMessage
	if err := s.client.post(ctx, "send.text", "/api/sendText", req, &sent); err != nil {
		return nil, err
	}
	return &sent, nil
}

// SendFile sends a media message routed by kind: "image", "video", "voice"
// or anything else as a generic file.
func (s *SessionAPI) SendFile(ctx context.Context, kind string, req FileRequest) (*SentMessage, error) {
	req.Session = s.session
	endpoint := "/api/sendFile"
	metric := "send.file"
	switch kind {
	case "image":
		endpoint, metric = "/api/sendImage", "send.image"
	case "video":
		endpoint, metric = "/api/sendVideo", "send.video"
	case "voice", "audio":
		endpoint, metric = "/api/sendVoice", "send.voice"
	}
	var sent SentMessage
	if err := s.client.post(ctx, metric, endpoint, req, &sent); err != nil {
		return nil, err
	}
	return &sent, nil
}

// MarkRead marks the chat's messages as read.
func (s *SessionAPI) MarkRead(ctx context.Context, chatID string) error {
	url := s.path("/api/%s/chats/%s/messages/read", chatID)
	return s.client.post(ctx, "chats.read", url, nil, nil)
}

// DeleteMessage revokes a previously sent message.
func (s *SessionAPI) DeleteMessage(ctx context.Context, chatID, messageID string) error {
	url := s.path("/api/%s/chats/%s/messages/%s", chatID, messageID)
	return s.client.delete(ctx, "chats.message.delete", url)
}

// Restart restarts the session.
func (s *SessionAPI) Restart(ctx context.Context) error {
	return s.client.post(ctx, "session.restart", s.path("/api/sessions/%s/restart"), nil, nil)
}

// Stop stops the session.
func (s *SessionAPI) Stop(ctx context.Context) error {
	return s.client.post(ctx, "session.stop", s.path("/api/sessions/%s/stop"), nil, nil)
}

// Logout logs the session out of WhatsApp.
func (s *SessionAPI) Logout(ctx context.Context) error {
	return s.client.post(ctx, "session.logout", s.path("/api/sessions/%s/logout"), nil, nil)
}

// GetQR returns the pairing QR code for the session.
func (s *SessionAPI) GetQR(ctx context.Context) (*QRCode, error) {
	var qr QRCode
	if err := s.client.get(ctx, "auth.qr", s.path("/api/%s/auth/qr?format=image"), &qr); err != nil {
		return nil, err
	}
	return &qr, nil
}
