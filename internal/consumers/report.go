package consumers

import (
	"context"
	"errors"
	"fmt"

	"waha-chatwoot/internal/chatwoot"
	"waha-chatwoot/internal/locale"
	"waha-chatwoot/internal/queue"
)

// reportInfo is the side channel a handler fills in as soon as it knows the
// conversation and direction, so failure reports land in the right place even
// when processing dies halfway.
type reportInfo struct {
	conversationID int
	messageType    string
}

func (i *reportInfo) onConversation(id int) {
	i.conversationID = id
}

func (i *reportInfo) onMessageType(messageType string) {
	i.messageType = messageType
}

func (i *reportInfo) typeOrDefault() string {
	if i.messageType == "" {
		return chatwoot.MessageTypeIncoming
	}
	return i.messageType
}

// renderError formats an error for the operator. API errors expand status
// and body; everything else is the plain message.
func renderError(err error) string {
	var apiErr *chatwoot.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("API Error: %s\nStatus: %d\nBody: %s", apiErr.Endpoint, apiErr.Status, apiErr.Body)
	}
	return err.Error()
}

// reporter posts private notes about job failures and recoveries into a
// conversation.
type reporter struct {
	services *Services
	job      *queue.Job
	baseURL  string
}

// conversation picks the best target: the one identified mid-processing, or
// the inbox-notifications conversation when the failure happened before any
// chat was resolved.
func (r *reporter) conversation(ctx context.Context, info *reportInfo) (*chatwoot.Conversation, error) {
	if info.conversationID != 0 {
		return r.services.Resolver.ConversationByID(info.conversationID), nil
	}
	return r.services.InboxConversation(ctx)
}

// reportError posts the failure note. The raw error detail is included only
// when no further retry is scheduled, so retries do not repeat the same
// noise; intermediate attempts still carry the header and the job link.
func (r *reporter) reportError(ctx context.Context, info *reportInfo, header string, err error) error {
	conversation, convErr := r.conversation(ctx, info)
	if convErr != nil {
		return fmt.Errorf("resolve report conversation: %w", convErr)
	}

	var nextDelaySeconds *int64
	detail := renderError(err)
	if delay, hasNext := queue.NextAttemptDelay(r.job); hasNext {
		seconds := int64(delay.Seconds())
		nextDelaySeconds = &seconds
		detail = ""
	}

	content := r.services.Locale.Render(locale.JobErrorReport, map[string]any{
		"Header":  header,
		"Error":   detail,
		"Details": jobLink(r.baseURL, r.job),
		"Attempts": locale.Attempts{
			Current:          r.job.AttemptNumber(),
			Max:              r.job.MaxAttempts,
			NextDelaySeconds: nextDelaySeconds,
		},
	})
	_, sendErr := conversation.Send(ctx, chatwoot.CreateMessage{
		Content:     content,
		MessageType: info.typeOrDefault(),
		Private:     true,
	})
	return sendErr
}

// reportRecovered posts the recovered note after a retried job succeeds.
func (r *reporter) reportRecovered(ctx context.Context, info *reportInfo) error {
	conversation, err := r.conversation(ctx, info)
	if err != nil {
		return fmt.Errorf("resolve report conversation: %w", err)
	}
	content := r.services.Locale.Render(locale.JobSucceededReport, map[string]any{
		"Details": jobLink(r.baseURL, r.job),
		"Attempts": locale.Attempts{
			Current: r.job.AttemptNumber(),
			Max:     r.job.MaxAttempts,
		},
	})
	_, err = conversation.Send(ctx, chatwoot.CreateMessage{
		Content:     content,
		MessageType: info.typeOrDefault(),
		Private:     true,
	})
	return err
}
