package schedule

import (
	"context"
	"io/fs"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"waha-chatwoot/internal/repo"
)

type sweepCounter struct {
	calls atomic.Int64
	age   atomic.Int64
}

func (s *sweepCounter) Close()                         {}
func (s *sweepCounter) Ping(ctx context.Context) error { return nil }
func (s *sweepCounter) RunMigrations(ctx context.Context, filesystem fs.FS) error {
	return nil
}
func (s *sweepCounter) SaveApp(ctx context.Context, app repo.App) error { return nil }
func (s *sweepCounter) GetEnabledApp(ctx context.Context, id string) (*repo.App, error) {
	return nil, repo.ErrAppNotFound
}
func (s *sweepCounter) DeleteAppData(ctx context.Context, id string) error { return nil }
func (s *sweepCounter) MapMessage(ctx context.Context, appID string, whatsapp repo.WhatsAppMessage, chatwoot repo.ChatwootMessage, part int) error {
	return nil
}
func (s *sweepCounter) GetChatWootMessage(ctx context.Context, appID, chatID, messageID string) (*repo.ChatwootMessage, error) {
	return nil, nil
}
func (s *sweepCounter) GetWhatsAppMessages(ctx context.Context, appID string, conversationID, messageID int) ([]repo.WhatsAppMessage, error) {
	return nil, nil
}

func (s *sweepCounter) DeleteMappingsOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	s.calls.Add(1)
	s.age.Store(int64(age))
	return 1, nil
}

func TestCleanupSweepsImmediatelyAndOnTicks(t *testing.T) {
	store := &sweepCounter{}
	cleanup := NewCleanup(store, 30*24*time.Hour, 5*time.Millisecond, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		cleanup.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for store.calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("expected at least 3 sweeps, got %d", store.calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done

	if got := time.Duration(store.age.Load()); got != 30*24*time.Hour {
		t.Fatalf("unexpected retention passed to store: %v", got)
	}
}
