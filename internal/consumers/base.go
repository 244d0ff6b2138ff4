package consumers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"waha-chatwoot/internal/engine"
	"waha-chatwoot/internal/locale"
	"waha-chatwoot/internal/metrics"
	"waha-chatwoot/internal/queue"
	"waha-chatwoot/internal/rmutex"
)

// processFunc runs one job with its resolved services, filling info for
// error reporting along the way.
type processFunc func(ctx context.Context, s *Services, job *queue.Job, info *reportInfo) error

// chatKeyFunc extracts the logical chat id a job belongs to.
type chatKeyFunc func(job *queue.Job) (string, error)

// consumer wraps a handler with the per-chat mutex and the retry/error
// reporting protocol shared by every queue.
type consumer struct {
	factory     *Factory
	locker      rmutex.Locker
	meter       *metrics.Metrics
	logger      *slog.Logger
	baseURL     string
	errorHeader locale.TKey
	chatKey     chatKeyFunc
	process     processFunc
}

func (c *consumer) Handle(ctx context.Context, job *queue.Job) error {
	chatID, err := c.chatKey(job)
	if err != nil {
		return fmt.Errorf("chat key for %s: %w", job.Queue, err)
	}

	key := mutexKey(job.App, chatID)
	started := time.Now()
	return c.locker.WithLock(ctx, key, func() error {
		c.meter.MutexWait.WithLabelValues(job.Queue).Observe(time.Since(started).Seconds())
		return c.run(ctx, job)
	})
}

func (c *consumer) run(ctx context.Context, job *queue.Job) error {
	services, err := c.factory.ForJob(ctx, job)
	if err != nil {
		return err
	}

	info := &reportInfo{}
	r := &reporter{services: services, job: job, baseURL: c.baseURL}

	if err := c.process(ctx, services, job, info); err != nil {
		header := renderError(err)
		if c.errorHeader != "" {
			header = services.Locale.Render(c.errorHeader, nil)
		}
		if reportErr := r.reportError(ctx, info, header, err); reportErr != nil {
			services.Logger.Error("failed reporting job error", "queue", job.Queue, "error", reportErr)
		}
		return err
	}

	// Stay silent on first-attempt success; a retried job that finally went
	// through gets exactly one recovered note.
	if job.HasBeenRetried() {
		if reportErr := r.reportRecovered(ctx, info); reportErr != nil {
			services.Logger.Error("failed reporting job recovery", "queue", job.Queue, "error", reportErr)
		}
	}
	return nil
}

// wahaEvent decodes the WAHA webhook envelope from a job payload.
func wahaEvent(job *queue.Job) (*engine.Event, error) {
	var event engine.Event
	if err := json.Unmarshal(job.Payload, &event); err != nil {
		return nil, fmt.Errorf("decode %s event: %w", job.Event, err)
	}
	return &event, nil
}

// wahaMessage decodes the envelope plus its canonical message payload.
func wahaMessage(job *queue.Job) (*engine.Event, *engine.Message, error) {
	event, err := wahaEvent(job)
	if err != nil {
		return nil, nil, err
	}
	var msg engine.Message
	if err := json.Unmarshal(event.Payload, &msg); err != nil {
		return nil, nil, fmt.Errorf("decode %s payload: %w", job.Event, err)
	}
	return event, &msg, nil
}

// unmarshalPayload decodes the event payload into the given shape.
func unmarshalPayload(event *engine.Event, v any) error {
	if err := json.Unmarshal(event.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", event.Event, err)
	}
	return nil
}

// wahaChatKey extracts the chat id from a message-carrying WAHA event.
func wahaChatKey(job *queue.Job) (string, error) {
	_, msg, err := wahaMessage(job)
	if err != nil {
		return "", err
	}
	return msg.From, nil
}
