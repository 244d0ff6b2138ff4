package repo

import (
	"context"
	"errors"
	"io/fs"
	"time"
)

// ErrAppNotFound indicates the app id does not exist or is disabled.
var ErrAppNotFound = errors.New("app not found")

// Store defines the interface for data persistence.
type Store interface {
	// Lifecycle
	Close()
	Ping(ctx context.Context) error
	RunMigrations(ctx context.Context, filesystem fs.FS) error

	// Apps
	SaveApp(ctx context.Context, app App) error
	GetEnabledApp(ctx context.Context, id string) (*App, error)
	DeleteAppData(ctx context.Context, id string) error

	// Message mappings
	MapMessage(ctx context.Context, appID string, whatsapp WhatsAppMessage, chatwoot ChatwootMessage, part int) error
	GetChatWootMessage(ctx context.Context, appID, chatID, messageID string) (*ChatwootMessage, error)
	GetWhatsAppMessages(ctx context.Context, appID string, conversationID, messageID int) ([]WhatsAppMessage, error)
	DeleteMappingsOlderThan(ctx context.Context, age time.Duration) (int64, error)
}
