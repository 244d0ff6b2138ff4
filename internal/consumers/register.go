package consumers

import (
	"log/slog"

	"waha-chatwoot/internal/locale"
	"waha-chatwoot/internal/metrics"
	"waha-chatwoot/internal/queue"
	"waha-chatwoot/internal/rmutex"
)

// RegisterAll binds every queue to its handler on the worker pool.
func RegisterAll(pool *queue.WorkerPool, factory *Factory, locker rmutex.Locker, meter *metrics.Metrics, logger *slog.Logger) {
	w := &wahaHandlers{baseURL: factory.BaseURL}
	inbox := &inboxHandlers{}

	register := func(queueName string, errorHeader locale.TKey, chatKey chatKeyFunc, process processFunc) {
		pool.Register(queueName, &consumer{
			factory:     factory,
			locker:      locker,
			meter:       meter,
			logger:      logger.With("queue", queueName),
			baseURL:     factory.BaseURL,
			errorHeader: errorHeader,
			chatKey:     chatKey,
			process:     process,
		})
	}

	sessionKey := func(*queue.Job) (string, error) { return SessionStatusChatKey, nil }

	register(QueueWAHAMessageAny, locale.ErrorReceivingMessage, wahaChatKey, w.messageAny)
	register(QueueWAHAMessageReaction, locale.ErrorReceivingMessage, wahaChatKey, w.messageReaction)
	register(QueueWAHAMessageEdited, locale.ErrorReceivingMessage, wahaChatKey, w.messageEdited)
	register(QueueWAHAMessageRevoked, locale.ErrorRemovingMessage, wahaChatKey, w.messageRevoked)
	register(QueueWAHASessionStatus, "", sessionKey, w.sessionStatus)

	register(QueueInboxMessageCreated, locale.ErrorSendingMessage, inboxChatKey, inbox.messageCreated)
	register(QueueInboxMessageUpdated, locale.ErrorSendingMessage, inboxChatKey, inbox.messageCreated)
	register(QueueInboxMessageDeleted, locale.ErrorRemovingMessage, inboxChatKey, inbox.messageDeleted)
	register(QueueInboxCommands, "", inboxChatKey, inbox.commands)
	register(QueueInboxEvents, "", inboxChatKey, inbox.events)
}
