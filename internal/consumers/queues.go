// Package consumers implements the job pipeline: per-chat mutex dispatch,
// the WAHA and inbox event handlers, and retry/error reporting.
package consumers

import (
	"fmt"
	"net/url"

	"waha-chatwoot/internal/locale"
	"waha-chatwoot/internal/queue"
)

// Queue names, one per event type so failures back off independently.
const (
	QueueWAHAMessageAny      = "waha.message.any"
	QueueWAHAMessageReaction = "waha.message.reaction"
	QueueWAHAMessageEdited   = "waha.message.edited"
	QueueWAHAMessageRevoked  = "waha.message.revoked"
	QueueWAHASessionStatus   = "waha.session.status"

	QueueInboxMessageCreated = "inbox.message_created"
	QueueInboxMessageUpdated = "inbox.message_updated"
	QueueInboxMessageDeleted = "inbox.message_deleted"
	QueueInboxCommands       = "inbox.commands"
	QueueInboxEvents         = "inbox.events"
)

// QueueForWAHAEvent maps a WAHA event name to its queue, or "" for events
// the bridge does not consume.
func QueueForWAHAEvent(event string) string {
	switch event {
	case "message.any":
		return QueueWAHAMessageAny
	case "message.reaction":
		return QueueWAHAMessageReaction
	case "message.edited":
		return QueueWAHAMessageEdited
	case "message.revoked":
		return QueueWAHAMessageRevoked
	case "session.status":
		return QueueWAHASessionStatus
	default:
		return ""
	}
}

// SessionStatusChatKey is the sentinel chat key for session-level events, so
// they serialize with each other but not with any real chat.
const SessionStatusChatKey = "session.status"

// mutexKey derives the lock key serializing all processing for one chat of
// one app installation, across every queue.
func mutexKey(appID, chatID string) string {
	return "app:" + appID + ":chat:" + chatID
}

// jobLink builds the operator-facing deep link to a job.
func jobLink(baseURL string, job *queue.Job) locale.Link {
	return locale.Link{
		Text: fmt.Sprintf("%s => %s", job.Queue, job.ID),
		URL:  fmt.Sprintf("%s/jobs/queue/%s/%s", baseURL, url.PathEscape(job.Queue), job.ID),
	}
}
