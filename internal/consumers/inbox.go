package consumers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"strings"

	"waha-chatwoot/internal/chatwoot"
	"waha-chatwoot/internal/convert"
	"waha-chatwoot/internal/engine"
	"waha-chatwoot/internal/locale"
	"waha-chatwoot/internal/queue"
	"waha-chatwoot/internal/repo"
	"waha-chatwoot/internal/waha"
	"waha-chatwoot/internal/waid"
)

// inboxHandlers processes Chatwoot webhook events headed for WhatsApp.
type inboxHandlers struct{}

// inboxEvent decodes the Chatwoot webhook body from a job payload.
func inboxEvent(job *queue.Job) (*chatwoot.WebhookEvent, error) {
	var event chatwoot.WebhookEvent
	if err := json.Unmarshal(job.Payload, &event); err != nil {
		return nil, fmt.Errorf("decode %s event: %w", job.Event, err)
	}
	return &event, nil
}

// inboxChatKey locks on the contact's WhatsApp chat so inbox jobs serialize
// with gateway jobs for the same chat. Without a recorded chat id the
// conversation id still keeps jobs of one conversation in order.
func inboxChatKey(job *queue.Job) (string, error) {
	event, err := inboxEvent(job)
	if err != nil {
		return "", err
	}
	if chatID := event.SenderChatID(); chatID != "" {
		return waid.ToCus(chatID), nil
	}
	if event.Conversation != nil {
		return fmt.Sprintf("conversation:%d", event.Conversation.ID), nil
	}
	return "", fmt.Errorf("event %d has no conversation", event.ID)
}

// messageCreated sends an agent message to WhatsApp: the text part first when
// it cannot ride along as a caption, then one send per attachment, each part
// recorded in the mapping store.
func (h *inboxHandlers) messageCreated(ctx context.Context, s *Services, job *queue.Job, info *reportInfo) error {
	event, err := inboxEvent(job)
	if err != nil {
		return err
	}
	if event.Conversation == nil {
		return fmt.Errorf("event %d has no conversation", event.ID)
	}
	info.onConversation(event.Conversation.ID)
	info.onMessageType(chatwoot.MessageTypeOutgoing)

	chatID := event.SenderChatID()
	if chatID == "" {
		return fmt.Errorf("conversation %d contact has no whatsapp chat id", event.Conversation.ID)
	}
	chatID = waid.ToCus(chatID)

	if event.ContentType != "" && event.ContentType != "text" {
		s.Logger.Info("skipping unsupported content type", "content_type", event.ContentType, "message_id", event.ID)
		return nil
	}

	// A retried or duplicated delivery must not send twice.
	existing, err := s.Store.GetWhatsAppMessages(ctx, s.App.ID, event.Conversation.ID, event.ID)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		s.Logger.Info("message already sent to whatsapp",
			"chatwoot_message_id", event.ID, "parts", len(existing))
		return nil
	}

	replyTo := h.replyTarget(ctx, s, event)

	if err := s.Session.MarkRead(ctx, chatID); err != nil {
		s.Logger.Warn("failed marking chat read", "chat_id", chatID, "error", err)
	}

	content := convert.MarkdownToWhatsApp(event.Content)
	mapped := repo.ChatwootMessage{
		Timestamp:      event.CreatedTime(),
		ConversationID: event.Conversation.ID,
		MessageID:      event.ID,
	}

	part := 0
	// With exactly one attachment the text travels as its caption.
	if len(event.Attachments) != 1 && !convert.IsEmptyContent(content) {
		sent, err := s.Session.SendText(ctx, chatID, content, replyTo)
		if err != nil {
			return err
		}
		part++
		if err := h.saveSent(ctx, s, sent, mapped, part); err != nil {
			return err
		}
	}
	for _, attachment := range event.Attachments {
		caption := ""
		if len(event.Attachments) == 1 {
			caption = content
		}
		sent, err := s.Session.SendFile(ctx, attachment.FileType, waha.FileRequest{
			ChatID:  chatID,
			Caption: caption,
			ReplyTo: replyTo,
			File: waha.MediaFile{
				URL:      attachment.DataURL,
				Filename: attachmentFilename(attachment.DataURL),
			},
		})
		if err != nil {
			return err
		}
		part++
		if err := h.saveSent(ctx, s, sent, mapped, part); err != nil {
			return err
		}
	}
	return nil
}

// replyTarget resolves the in_reply_to reference to a serialized WhatsApp
// message id. Threading is best effort; a failed lookup never blocks the
// send.
func (h *inboxHandlers) replyTarget(ctx context.Context, s *Services, event *chatwoot.WebhookEvent) string {
	if event.ContentAttributes == nil || event.ContentAttributes.InReplyTo == 0 {
		return ""
	}
	messages, err := s.Store.GetWhatsAppMessages(ctx, s.App.ID, event.Conversation.ID, event.ContentAttributes.InReplyTo)
	if err != nil {
		s.Logger.Error("failed resolving reply target",
			"in_reply_to", event.ContentAttributes.InReplyTo, "error", err)
		return ""
	}
	if len(messages) == 0 {
		return ""
	}
	key := waid.MessageKey{
		FromMe: messages[0].FromMe,
		ChatID: messages[0].ChatID,
		ID:     messages[0].MessageID,
	}
	if messages[0].Participant != nil {
		key.Participant = *messages[0].Participant
	}
	return key.Serialize()
}

func (h *inboxHandlers) saveSent(ctx context.Context, s *Services, sent *waha.SentMessage, mapped repo.ChatwootMessage, part int) error {
	whatsapp, err := engine.SentMessageKeys(sent.ID, sent.Timestamp, sent.Data)
	if err != nil {
		return err
	}
	return s.Store.MapMessage(ctx, s.App.ID, whatsapp, mapped, part)
}

// attachmentFilename derives a filename from the attachment URL so WhatsApp
// shows something better than a hash.
func attachmentFilename(dataURL string) string {
	parsed, err := url.Parse(dataURL)
	if err != nil {
		return ""
	}
	name := path.Base(parsed.Path)
	if name == "." || name == "/" {
		return ""
	}
	return name
}

// messageDeleted revokes every WhatsApp part of a deleted Chatwoot message.
func (h *inboxHandlers) messageDeleted(ctx context.Context, s *Services, job *queue.Job, info *reportInfo) error {
	event, err := inboxEvent(job)
	if err != nil {
		return err
	}
	if event.Conversation == nil {
		return fmt.Errorf("event %d has no conversation", event.ID)
	}
	info.onConversation(event.Conversation.ID)
	info.onMessageType(chatwoot.MessageTypeOutgoing)

	messages, err := s.Store.GetWhatsAppMessages(ctx, s.App.ID, event.Conversation.ID, event.ID)
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		s.Logger.Info("deleted message was never sent to whatsapp", "chatwoot_message_id", event.ID)
		return nil
	}
	for _, message := range messages {
		key := waid.MessageKey{
			FromMe: message.FromMe,
			ChatID: message.ChatID,
			ID:     message.MessageID,
		}
		if message.Participant != nil {
			key.Participant = *message.Participant
		}
		if err := s.Session.DeleteMessage(ctx, message.ChatID, key.Serialize()); err != nil {
			return err
		}
	}
	return nil
}

// commands runs operator commands typed into the inbox notifications chat.
func (h *inboxHandlers) commands(ctx context.Context, s *Services, job *queue.Job, info *reportInfo) error {
	event, err := inboxEvent(job)
	if err != nil {
		return err
	}
	conversation, err := s.InboxConversation(ctx)
	if err != nil {
		return err
	}
	info.onConversation(conversation.ID())

	command := strings.ToLower(strings.TrimSpace(event.Content))
	s.Logger.Info("running command", "command", command)

	reply := func(key locale.TKey, data any) error {
		_, err := conversation.Incoming(ctx, s.Locale.Render(key, data))
		return err
	}

	switch command {
	case "status", "1":
		session, err := s.Session.Get(ctx)
		if err != nil {
			return err
		}
		name, id := "", ""
		if session.Me != nil {
			name = session.Me.PushName
			id = waid.PhoneNumber(session.Me.ID)
		}
		return reply(locale.SessionCurrentStatus, map[string]string{
			"Emoji":   locale.StatusEmoji(session.Status),
			"Session": s.App.Session,
			"Status":  session.Status,
			"Name":    name,
			"ID":      id,
		})
	case "restart", "2":
		if err := s.Session.Restart(ctx); err != nil {
			return err
		}
		return reply(locale.CommandRestarting, nil)
	case "stop", "4":
		if err := s.Session.Stop(ctx); err != nil {
			return err
		}
		return reply(locale.CommandStopping, nil)
	case "logout", "5":
		if err := s.Session.Logout(ctx); err != nil {
			return err
		}
		return reply(locale.LogoutSuccess, nil)
	case "qr", "6":
		return sendQR(ctx, s, conversation)
	case "help", "8":
		return reply(locale.CommandsList, nil)
	case "server status":
		version, err := s.WAHA.ServerVersion(ctx)
		if err != nil {
			return err
		}
		status, err := s.WAHA.ServerStatus(ctx)
		if err != nil {
			return err
		}
		return reply(locale.ServerVersionAndStatus, map[string]string{
			"Version": indentJSON(version),
			"Status":  indentJSON(status),
		})
	case "server reboot":
		if err := s.WAHA.ServerReboot(ctx); err != nil {
			return err
		}
		return reply(locale.ServerReboot, nil)
	default:
		return reply(locale.CommandsList, nil)
	}
}

func indentJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(data)
}

// events logs webhook events the bridge accepts but does not act on.
func (h *inboxHandlers) events(ctx context.Context, s *Services, job *queue.Job, info *reportInfo) error {
	event, err := inboxEvent(job)
	if err != nil {
		return err
	}
	s.Logger.Info("ignoring inbox event", "event", event.Event, "message_id", event.ID)
	return nil
}
