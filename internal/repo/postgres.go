package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore provides typed access to Postgres resources.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgres opens a new connection pool to the database.
func NewPostgres(ctx context.Context, databaseURL string, logger *slog.Logger) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	s := &PostgresStore{
		pool:   pool,
		logger: logger.With("component", "repo"),
	}

	if err := s.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping ensures the database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// RunMigrations applies schema migrations on the connected database.
func (s *PostgresStore) RunMigrations(ctx context.Context, filesystem fs.FS) error {
	return applyMigrations(ctx, s.pool, filesystem)
}

// SaveApp stores or updates an app installation record.
func (s *PostgresStore) SaveApp(ctx context.Context, app App) error {
	config, err := app.MarshalConfig()
	if err != nil {
		return fmt.Errorf("marshal app config: %w", err)
	}
	const q = `
INSERT INTO apps (id, session, enabled, config, updated_at)
VALUES ($1, $2, $3, $4, NOW())
ON CONFLICT (id) DO UPDATE SET
    session = EXCLUDED.session,
    enabled = EXCLUDED.enabled,
    config = EXCLUDED.config,
    updated_at = NOW();
`
	if _, err := s.pool.Exec(ctx, q, app.ID, app.Session, app.Enabled, config); err != nil {
		return fmt.Errorf("save app: %w", err)
	}
	return nil
}

// GetEnabledApp returns the enabled app with the given id.
func (s *PostgresStore) GetEnabledApp(ctx context.Context, id string) (*App, error) {
	const q = `
SELECT id, session, enabled, config, created_at, updated_at
FROM apps
WHERE id = $1 AND enabled = TRUE
LIMIT 1;
`
	row := s.pool.QueryRow(ctx, q, id)
	var app App
	var config []byte
	if err := row.Scan(&app.ID, &app.Session, &app.Enabled, &config, &app.CreatedAt, &app.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAppNotFound
		}
		return nil, fmt.Errorf("get enabled app: %w", err)
	}
	if err := json.Unmarshal(config, &app.Config); err != nil {
		return nil, fmt.Errorf("unmarshal app config: %w", err)
	}
	return &app, nil
}

// DeleteAppData removes the app record and cascades its message mappings.
func (s *PostgresStore) DeleteAppData(ctx context.Context, id string) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM message_mappings WHERE app_id = $1`, id); err != nil {
			return fmt.Errorf("delete app mappings: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM apps WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete app: %w", err)
		}
		return nil
	})
}

// MapMessage persists one WhatsApp-Chatwoot message pair. Conflicting inserts
// are ignored so retried jobs never create ambiguous duplicate rows.
func (s *PostgresStore) MapMessage(ctx context.Context, appID string, whatsapp WhatsAppMessage, chatwoot ChatwootMessage, part int) error {
	const q = `
INSERT INTO message_mappings
    (app_id, part, wa_timestamp, wa_chat_id, wa_message_id, wa_from_me, wa_participant,
     cw_timestamp, cw_conversation_id, cw_message_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT DO NOTHING;
`
	_, err := s.pool.Exec(ctx, q,
		appID, part,
		whatsapp.Timestamp, whatsapp.ChatID, whatsapp.MessageID, whatsapp.FromMe, whatsapp.Participant,
		chatwoot.Timestamp, chatwoot.ConversationID, chatwoot.MessageID,
	)
	if err != nil {
		return fmt.Errorf("map message: %w", err)
	}
	return nil
}

// GetChatWootMessage returns the canonical (part 1) Chatwoot message mapped to
// the WhatsApp message, or nil if no mapping exists.
func (s *PostgresStore) GetChatWootMessage(ctx context.Context, appID, chatID, messageID string) (*ChatwootMessage, error) {
	const q = `
SELECT cw_timestamp, cw_conversation_id, cw_message_id
FROM message_mappings
WHERE app_id = $1 AND wa_chat_id = $2 AND wa_message_id = $3
ORDER BY part ASC
LIMIT 1;
`
	row := s.pool.QueryRow(ctx, q, appID, chatID, messageID)
	var msg ChatwootMessage
	if err := row.Scan(&msg.Timestamp, &msg.ConversationID, &msg.MessageID); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get chatwoot message: %w", err)
	}
	return &msg, nil
}

// GetWhatsAppMessages returns the WhatsApp messages mapped to the Chatwoot
// message, or nil if no mapping exists.
func (s *PostgresStore) GetWhatsAppMessages(ctx context.Context, appID string, conversationID, messageID int) ([]WhatsAppMessage, error) {
	const q = `
SELECT wa_timestamp, wa_chat_id, wa_message_id, wa_from_me, wa_participant
FROM message_mappings
WHERE app_id = $1 AND cw_conversation_id = $2 AND cw_message_id = $3
ORDER BY part ASC;
`
	rows, err := s.pool.Query(ctx, q, appID, conversationID, messageID)
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
func (s *PostgresStore) DeleteMappingsOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	cutoff := time.Now().Add(-age)
	ct, err := s.pool.Exec(ctx, `DELETE FROM message_mappings WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old mappings: %w", err)
	}
	return ct.RowsAffected(), nil
}
