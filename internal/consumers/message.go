package consumers

import (
	"context"
	"time"

	"waha-chatwoot/internal/chatwoot"
	"waha-chatwoot/internal/convert"
	"waha-chatwoot/internal/engine"
	"waha-chatwoot/internal/locale"
	"waha-chatwoot/internal/repo"
	"waha-chatwoot/internal/waid"
)

// inbound is one WhatsApp message on its way into Chatwoot, after the
// event-specific handler produced its content and attachments.
type inbound struct {
	msg         *engine.Message
	content     string
	replyToID   string
	attachments []chatwoot.Attachment
	private     bool
}

// handleInbound is the shared delivery pipeline: idempotency check, chat
// resolution, content prefixes, reply threading, send, and mapping write.
func handleInbound(ctx context.Context, s *Services, info *reportInfo, in *inbound) error {
	msg := in.msg

	messageType := chatwoot.MessageTypeIncoming
	if msg.FromMe {
		messageType = chatwoot.MessageTypeOutgoing
	}
	info.onMessageType(messageType)

	// Messages sent through the Chatwoot side arrive back as fromMe/api
	// events before their mapping row is committed. Give the writer a
	// moment so the idempotency check below sees it.
	if msg.FromMe && msg.Source == engine.SourceAPI {
		select {
		case <-time.After(3 * time.Second):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	key, err := waid.ParseMessageKey(msg.ID)
	if err != nil {
		return err
	}
	chatID := waid.ToCus(key.ChatID)

	existing, err := s.Store.GetChatWootMessage(ctx, s.App.ID, chatID, key.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		s.Logger.Info("message already delivered",
			"message_id", msg.ID, "conversation_id", existing.ConversationID, "chatwoot_message_id", existing.MessageID)
		return nil
	}

	conversation, err := s.ChatConversation(ctx, msg.From)
	if err != nil {
		return err
	}
	info.onConversation(conversation.ID())

	content := in.content
	switch {
	case msg.FromMe && msg.Source == engine.SourceApp:
		content = s.Locale.Render(locale.MessageFromWhatsApp, map[string]string{"Text": content})
	case msg.FromMe && msg.Source == engine.SourceAPI:
		content = s.Locale.Render(locale.MessageFromAPI, map[string]string{"Text": content})
	}

	// Group and status messages name the sending participant.
	if !msg.FromMe && (waid.IsGroup(msg.From) || waid.IsStatusBroadcast(msg.From)) {
		participant := key.Participant
		if participant == "" {
			participant = msg.Participant
		}
		if participant != "" {
			display := waid.ToCus(participant)
			if contact, err := s.Session.GetContact(ctx, participant); err != nil {
				s.Logger.Warn("failed fetching participant contact", "participant", participant, "error", err)
			} else if name := contact.DisplayName(); name != "" {
				display = name + " (" + display + ")"
			}
			content = s.Locale.Render(locale.GroupMessage, map[string]string{
				"Text":        content,
				"Participant": display,
			})
		}
	}

	// Chatwoot renders an attachment-only message as a giant tile unless
	// content is non-empty.
	if convert.IsEmptyContent(content) && len(in.attachments) > 0 {
		content = " "
	}

	var contentAttrs *chatwoot.ContentAttributes
	if in.replyToID != "" {
		mapped, err := s.Store.GetChatWootMessage(ctx, s.App.ID, waid.ToCus(msg.From), in.replyToID)
		if err != nil {
			s.Logger.Error("failed resolving reply target", "reply_to", in.replyToID, "error", err)
		} else if mapped != nil {
			contentAttrs = &chatwoot.ContentAttributes{InReplyTo: mapped.MessageID}
		}
	}

	response, err := conversation.Send(ctx, chatwoot.CreateMessage{
		Content:           content,
		MessageType:       messageType,
		Private:           msg.FromMe || in.private,
		Attachments:       in.attachments,
		ContentAttributes: contentAttrs,
	})
	if err != nil {
		return err
	}
	s.Logger.Info("created chatwoot message",
		"message_type", messageType, "chatwoot_message_id", response.ID, "conversation_id", response.ConversationID)

	whatsapp := repo.WhatsAppMessage{
		Timestamp: time.Unix(msg.Timestamp, 0).UTC(),
		ChatID:    chatID,
		MessageID: key.ID,
		FromMe:    key.FromMe,
	}
	participant := key.Participant
	if participant == "" {
		participant = msg.Participant
	}
	if participant != "" {
		participant = waid.ToCus(participant)
		whatsapp.Participant = &participant
	}
	mapped := repo.ChatwootMessage{
		Timestamp:      time.Unix(response.CreatedAt, 0).UTC(),
		ConversationID: response.ConversationID,
		MessageID:      response.ID,
	}
	return s.Store.MapMessage(ctx, s.App.ID, whatsapp, mapped, 1)
}
