package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore provides access to a local SQLite database. It serves
// single-node deployments and tests; the schema mirrors the Postgres one.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLite opens a new connection to the SQLite database.
func NewSQLite(ctx context.Context, databasePath string, logger *slog.Logger) (*SQLiteStore, error) {
	path := strings.TrimSpace(databasePath)
	if path == "" {
		return nil, fmt.Errorf("sqlite database path is empty")
	}
	dsn := path
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	// Busy timeout and WAL mode are recommended for SQLite concurrency.
	dsn = fmt.Sprintf("%s%s_pragma=busy_timeout=10000&_pragma=journal_mode=WAL&_pragma=foreign_keys=ON", dsn, sep)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "repo_sqlite"),
	}, nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

// Ping ensures the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// RunMigrations applies the SQLite schema.
func (s *SQLiteStore) RunMigrations(ctx context.Context, filesystem fs.FS) error {
	sqlContent, err := fs.ReadFile(filesystem, "sqlite/001_init.sql")
	if err != nil {
		return fmt.Errorf("read migration: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, string(sqlContent)); err != nil {
		return fmt.Errorf("apply migration: %w", err)
	}
	return nil
}

// SaveApp stores or updates an app installation record.
func (s *SQLiteStore) SaveApp(ctx context.Context, app App) error {
	config, err := app.MarshalConfig()
	if err != nil {
		return fmt.Errorf("marshal app config: %w", err)
	}
	const q = `
INSERT INTO apps (id, session, enabled, config, updated_at)
VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT (id) DO UPDATE SET
    session = excluded.session,
    enabled = excluded.enabled,
    config = excluded.config,
    updated_at = CURRENT_TIMESTAMP;
`
	if _, err := s.db.ExecContext(ctx, q, app.ID, app.Session, app.Enabled, string(config)); err != nil {
		return fmt.Errorf("save app: %w", err)
	}
	return nil
}

// GetEnabledApp returns the enabled app with the given id.
func (s *SQLiteStore) GetEnabledApp(ctx context.Context, id string) (*App, error) {
	const q = `
SELECT id, session, enabled, config, created_at, updated_at
FROM apps
WHERE id = ? AND enabled = 1
LIMIT 1;
`
	row := s.db.QueryRowContext(ctx, q, id)
	var app App
	var config string
	if err := row.Scan(&app.ID, &app.Session, &app.Enabled, &config, &app.CreatedAt, &app.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrAppNotFound
		}
		return nil, fmt.Errorf("get enabled app: %w", err)
	}
	if err := json.Unmarshal([]byte(config), &app.Config); err != nil {
		return nil, fmt.Errorf("unmarshal app config: %w", err)
	}
	return &app, nil
}

// DeleteAppData removes the app record and cascades its message mappings.
func (s *SQLiteStore) DeleteAppData(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete app: %w", err)
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM message_mappings WHERE app_id = ?`, id); err != nil {
		return fmt.Errorf("delete app mappings: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM apps WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete app: %w", err)
	}
	return tx.Commit()
}

// MapMessage persists one WhatsApp-Chatwoot message pair.
func (s *SQLiteStore) MapMessage(ctx context.Context, appID string, whatsapp WhatsAppMessage, chatwoot ChatwootMessage, part int) error {
	const q = `
INSERT INTO message_mappings
    (app_id, part, wa_timestamp, wa_chat_id, wa_message_id, wa_from_me, wa_participant,
     cw_timestamp, cw_conversation_id, cw_message_id)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT DO NOTHING;
`
	_, err := s.db.ExecContext(ctx, q,
		appID, part,
		whatsapp.Timestamp.UTC(), whatsapp.ChatID, whatsapp.MessageID, whatsapp.FromMe, whatsapp.Participant,
		chatwoot.Timestamp.UTC(), chatwoot.ConversationID, chatwoot.MessageID,
	)
	if err != nil {
		return fmt.Errorf("map message: %w", err)
	}
	return nil
}

// GetChatWootMessage returns the canonical (part 1) Chatwoot message mapped to
// the WhatsApp message, or nil if no mapping exists.
func (s *SQLiteStore) GetChatWootMessage(ctx context.Context, appID, chatID, messageID string) (*ChatwootMessage, error) {
	const q = `
SELECT cw_timestamp, cw_conversation_id, cw_message_id
FROM message_mappings
WHERE app_id = ? AND wa_chat_id = ? AND wa_message_id = ?
ORDER BY part ASC
LIMIT 1;
`
	row := s.db.QueryRowContext(ctx, q, appID, chatID, messageID)
	var msg ChatwootMessage
	if err := row.Scan(&msg.Timestamp, &msg.ConversationID, &msg.MessageID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get chatwoot message: %w", err)
	}
	return &msg, nil
}

// GetWhatsAppMessages returns the WhatsApp messages mapped to the Chatwoot
// message, or nil if no mapping exists.
func (s *SQLiteStore) GetWhatsAppMessages(ctx context.Context, appID string, conversationID, messageID int) ([]WhatsAppMessage, error) {
	const q = `
SELECT wa_timestamp, wa_chat_id, wa_message_id, wa_from_me, wa_participant
FROM message_mappings
WHERE app_id = ? AND cw_conversation_id = ? AND cw_message_id = ?
ORDER BY part ASC;
`
	rows, err := s.db.QueryContext(ctx, q, appID, conversationID, messageID)
	if err != nil {
		return nil, fmt.Errorf("get whatsapp messages: %w", err)
	}
	defer rows.Close()

	var messages []WhatsAppMessage
	for rows.Next() {
		var msg WhatsAppMessage
		if err := rows.Scan(&msg.Timestamp, &msg.ChatID, &msg.MessageID, &msg.FromMe, &msg.Participant); err != nil {
			return nil, fmt.Errorf("scan whatsapp message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate whatsapp messages: %w", err)
	}
	return messages, nil
}

// DeleteMappingsOlderThan removes mappings past the retention age.
func (s *SQLiteStore) DeleteMappingsOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	cutoff := time.Now().Add(-age).UTC()
	res, err := s.db.ExecContext(ctx, `DELETE FROM message_mappings WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old mappings: %w", err)
	}
	return res.RowsAffected()
}
