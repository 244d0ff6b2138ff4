package consumers

import (
	"context"
	"fmt"

	"waha-chatwoot/internal/chatwoot"
	"waha-chatwoot/internal/convert"
	"waha-chatwoot/internal/engine"
	"waha-chatwoot/internal/locale"
	"waha-chatwoot/internal/queue"
	"waha-chatwoot/internal/waha"
	"waha-chatwoot/internal/waid"
)

// wahaHandlers processes events arriving from the WhatsApp gateway.
type wahaHandlers struct {
	baseURL string
}

// bareMessageID strips the serialized key wrapper when present. Gateways are
// inconsistent about whether referenced ids come serialized or bare.
func bareMessageID(id string) string {
	if key, err := waid.ParseMessageKey(id); err == nil {
		return key.ID
	}
	return id
}

// messageAny runs the converter chain over an incoming message and delivers
// the result through the shared pipeline.
func (h *wahaHandlers) messageAny(ctx context.Context, s *Services, job *queue.Job, info *reportInfo) error {
	_, msg, err := wahaMessage(job)
	if err != nil {
		return err
	}

	proto := engine.ResolveProto(msg.Data)
	converters := []convert.Converter{
		&convert.FacebookAd{Locale: s.Locale},
		&convert.Text{Logger: s.Logger, WAHA: s.WAHA},
		&convert.Location{Locale: s.Locale},
		&convert.ShareContact{Locale: s.Locale},
		&convert.Poll{Locale: s.Locale},
		&convert.List{Locale: s.Locale},
		&convert.CalendarEvent{Locale: s.Locale},
		&convert.Pix{Locale: s.Locale, Logger: s.Logger},
	}
	fallback := &convert.Unsupported{Locale: s.Locale, Job: jobLink(h.baseURL, job)}

	partial, err := convert.Chain(ctx, msg, proto, converters, fallback)
	if err != nil {
		return err
	}

	replyTo := ""
	if msg.ReplyTo != nil {
		replyTo = bareMessageID(msg.ReplyTo.ID)
	}
	return handleInbound(ctx, s, info, &inbound{
		msg:         msg,
		content:     partial.Content,
		replyToID:   replyTo,
		attachments: partial.Attachments,
		private:     partial.Private,
	})
}

// messageReaction posts reactions as replies threaded to the reacted message.
func (h *wahaHandlers) messageReaction(ctx context.Context, s *Services, job *queue.Job, info *reportInfo) error {
	_, msg, err := wahaMessage(job)
	if err != nil {
		return err
	}
	if msg.Reaction == nil {
		s.Logger.Warn("reaction event without reaction payload", "message_id", msg.ID)
		return nil
	}

	content := s.Locale.Render(locale.ReactionRemoved, nil)
	if msg.Reaction.Text != "" {
		content = s.Locale.Render(locale.ReactionAdded, map[string]string{"Emoji": msg.Reaction.Text})
	}
	return handleInbound(ctx, s, info, &inbound{
		msg:       msg,
		content:   content,
		replyToID: bareMessageID(msg.Reaction.MessageID),
	})
}

// messageEdited posts the new text threaded to the original message.
func (h *wahaHandlers) messageEdited(ctx context.Context, s *Services, job *queue.Job, info *reportInfo) error {
	_, msg, err := wahaMessage(job)
	if err != nil {
		return err
	}
	content := s.Locale.Render(locale.MessageEdited, map[string]string{
		"Text": convert.WhatsAppToMarkdown(msg.Body),
	})
	return handleInbound(ctx, s, info, &inbound{
		msg:       msg,
		content:   content,
		replyToID: bareMessageID(msg.EditedMessageID),
	})
}

// messageRevoked marks the mapped Chatwoot message as removed. Without a
// mapping there is nothing to annotate.
func (h *wahaHandlers) messageRevoked(ctx context.Context, s *Services, job *queue.Job, info *reportInfo) error {
	_, msg, err := wahaMessage(job)
	if err != nil {
		return err
	}
	if msg.RevokedMessageID == "" {
		s.Logger.Warn("revoked event without revoked message id", "message_id", msg.ID)
		return nil
	}

	revokedID := bareMessageID(msg.RevokedMessageID)
	mapped, err := s.Store.GetChatWootMessage(ctx, s.App.ID, waid.ToCus(msg.From), revokedID)
	if err != nil {
		return err
	}
	if mapped == nil {
		s.Logger.Info("revoked message was never bridged", "revoked_id", revokedID)
		return nil
	}
	info.onConversation(mapped.ConversationID)

	conversation := s.Resolver.ConversationByID(mapped.ConversationID)
	_, err = conversation.Send(ctx, chatwoot.CreateMessage{
		Content:           s.Locale.Render(locale.MessageRemoved, nil),
		MessageType:       chatwoot.MessageTypeIncoming,
		Private:           true,
		ContentAttributes: &chatwoot.ContentAttributes{InReplyTo: mapped.MessageID},
	})
	return err
}

// sessionStatus reports gateway session transitions into the inbox
// notifications conversation.
func (h *wahaHandlers) sessionStatus(ctx context.Context, s *Services, job *queue.Job, info *reportInfo) error {
	event, err := wahaEvent(job)
	if err != nil {
		return err
	}
	var status engine.SessionStatus
	if err := unmarshalPayload(event, &status); err != nil {
		return err
	}

	conversation, err := s.InboxConversation(ctx)
	if err != nil {
		return err
	}
	info.onConversation(conversation.ID())

	activity := s.Locale.Render(locale.SessionStatusChange, map[string]string{
		"Emoji":   locale.StatusEmoji(status.Status),
		"Session": event.Session,
		"Status":  status.Status,
	})
	if _, err := conversation.Activity(ctx, activity); err != nil {
		return err
	}

	switch status.Status {
	case waha.SessionWorking:
		name, id := "", ""
		if event.Me != nil {
			name = event.Me.PushName
			id = waid.PhoneNumber(event.Me.ID)
		}
		_, err := conversation.Incoming(ctx, s.Locale.Render(locale.SessionWorking, map[string]string{
			"Name": name,
			"ID":   id,
		}))
		return err
	case waha.SessionStopped, waha.SessionFailed:
		content := s.Locale.Render(locale.SessionError, nil) +
			"\n\n" + s.Locale.Render(locale.HelpReminder, nil)
		_, err := conversation.Incoming(ctx, content)
		return err
	case waha.SessionScanQRCode:
		if _, err := conversation.Incoming(ctx, s.Locale.Render(locale.SessionScanQRCode, nil)); err != nil {
			return err
		}
		return sendQR(ctx, s, conversation)
	default:
		return nil
	}
}

// sendQR fetches the pairing QR code and posts it as an image attachment.
func sendQR(ctx context.Context, s *Services, conversation *chatwoot.Conversation) error {
	qr, err := s.Session.GetQR(ctx)
	if err != nil {
		return fmt.Errorf("fetch qr code: %w", err)
	}
	_, err = conversation.Send(ctx, chatwoot.CreateMessage{
		Content:     " ",
		MessageType: chatwoot.MessageTypeIncoming,
		Attachments: []chatwoot.Attachment{{
			Content:  qr.Data,
			Filename: "qr.png",
			Encoding: "base64",
		}},
	})
	return err
}
