package repo

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"waha-chatwoot/migrations"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	ctx := context.Background()
	store, err := NewSQLite(ctx, filepath.Join(t.TempDir(), "test.db"), slog.Default())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.RunMigrations(ctx, migrations.Files); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return store
}

func saveTestApp(t *testing.T, store *SQLiteStore, id string) {
	t.Helper()
	err := store.SaveApp(context.Background(), App{
		ID:      id,
		Session: "default",
		Enabled: true,
		Config: AppConfig{
			URL:       "https://chatwoot.example",
			AccountID: 1,
			InboxID:   2,
			Locale:    "en-US",
		},
	})
	if err != nil {
		t.Fatalf("save app: %v", err)
	}
}

func TestSaveAndGetEnabledApp(t *testing.T) {
	store := newTestStore(t)
	saveTestApp(t, store, "app-1")

	app, err := store.GetEnabledApp(context.Background(), "app-1")
	if err != nil {
		t.Fatalf("get app: %v", err)
	}
	if app.Session != "default" || app.Config.InboxID != 2 {
		t.Fatalf("unexpected app: %+v", app)
	}

	if _, err := store.GetEnabledApp(context.Background(), "missing"); err != ErrAppNotFound {
		t.Fatalf("expected ErrAppNotFound, got %v", err)
	}
}

func TestDisabledAppIsNotFound(t *testing.T) {
	store := newTestStore(t)
	err := store.SaveApp(context.Background(), App{ID: "app-1", Session: "default", Enabled: false})
	if err != nil {
		t.Fatalf("save app: %v", err)
	}
	if _, err := store.GetEnabledApp(context.Background(), "app-1"); err != ErrAppNotFound {
		t.Fatalf("expected ErrAppNotFound for disabled app, got %v", err)
	}
}

func TestMappingBidirectionalLookup(t *testing.T) {
	store := newTestStore(t)
	saveTestApp(t, store, "app-1")
	ctx := context.Background()

	whatsapp := WhatsAppMessage{
		Timestamp: time.Now().UTC().Truncate(time.Second),
		ChatID:    "1111@c.us",
		MessageID: "ABC",
		FromMe:    false,
	}
	mapped := ChatwootMessage{
		Timestamp:      time.Now().UTC().Truncate(time.Second),
		ConversationID: 7,
		MessageID:      99,
	}
	if err := store.MapMessage(ctx, "app-1", whatsapp, mapped, 1); err != nil {
		t.Fatalf("map message: %v", err)
	}

	got, err := store.GetChatWootMessage(ctx, "app-1", "1111@c.us", "ABC")
	if err != nil {
		t.Fatalf("get chatwoot message: %v", err)
	}
	if got == nil {
		t.Fatal("expected mapping")
	}
	if got.ConversationID != 7 || got.MessageID != 99 {
		t.Fatalf("unexpected mapping: %+v", got)
	}

	// A Chatwoot reply with in_reply_to=99 must thread back to ABC.
	messages, err := store.GetWhatsAppMessages(ctx, "app-1", 7, 99)
	if err != nil {
		t.Fatalf("get whatsapp messages: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("expected one message, got %d", len(messages))
	}
	if messages[0].MessageID != "ABC" || messages[0].ChatID != "1111@c.us" || messages[0].FromMe {
		t.Fatalf("unexpected message: %+v", messages[0])
	}
}

func TestMappingDuplicateInsertIsDeterministic(t *testing.T) {
	store := newTestStore(t)
	saveTestApp(t, store, "app-1")
	ctx := context.Background()

	whatsapp := WhatsAppMessage{Timestamp: time.Now().UTC(), ChatID: "1111@c.us", MessageID: "ABC"}
	mapped := ChatwootMessage{Timestamp: time.Now().UTC(), ConversationID: 7, MessageID: 99}

	if err := store.MapMessage(ctx, "app-1", whatsapp, mapped, 1); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := store.MapMessage(ctx, "app-1", whatsapp, mapped, 1); err != nil {
		t.Fatalf("duplicate insert must no-op: %v", err)
	}

	got, err := store.GetChatWootMessage(ctx, "app-1", "1111@c.us", "ABC")
	if err != nil {
		t.Fatalf("get chatwoot message: %v", err)
	}
	if got.MessageID != 99 {
		t.Fatalf("expected message 99, got %d", got.MessageID)
	}
}

func TestMappingMultipleParts(t *testing.T) {
	store := newTestStore(t)
	saveTestApp(t, store, "app-1")
	ctx := context.Background()

	// One Chatwoot message sent as a text part plus an attachment part.
	mapped := ChatwootMessage{Timestamp: time.Now().UTC(), ConversationID: 7, MessageID: 100}
	for part, id := range map[int]string{1: "M1", 2: "M2"} {
		whatsapp := WhatsAppMessage{Timestamp: time.Now().UTC(), ChatID: "1111@c.us", MessageID: id, FromMe: true}
		if err := store.MapMessage(ctx, "app-1", whatsapp, mapped, part); err != nil {
			t.Fatalf("map part %d: %v", part, err)
		}
	}

	messages, err := store.GetWhatsAppMessages(ctx, "app-1", 7, 100)
	if err != nil {
		t.Fatalf("get whatsapp messages: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected both parts, got %d", len(messages))
	}
	if messages[0].MessageID != "M1" || messages[1].MessageID != "M2" {
		t.Fatalf("expected part order M1,M2: %+v", messages)
	}
}

func TestMappingScopedPerApp(t *testing.T) {
	store := newTestStore(t)
	saveTestApp(t, store, "app-1")
	saveTestApp(t, store, "app-2")
	ctx := context.Background()

	whatsapp := WhatsAppMessage{Timestamp: time.Now().UTC(), ChatID: "1111@c.us", MessageID: "ABC"}
	mapped := ChatwootMessage{Timestamp: time.Now().UTC(), ConversationID: 7, MessageID: 99}
	if err := store.MapMessage(ctx, "app-1", whatsapp, mapped, 1); err != nil {
		t.Fatalf("map message: %v", err)
	}

	got, err := store.GetChatWootMessage(ctx, "app-2", "1111@c.us", "ABC")
	if err != nil {
		t.Fatalf("get chatwoot message: %v", err)
	}
	if got != nil {
		t.Fatalf("mapping must not leak across apps: %+v", got)
	}
}

func TestDeleteAppDataCascades(t *testing.T) {
	store := newTestStore(t)
	saveTestApp(t, store, "app-1")
	ctx := context.Background()

	whatsapp := WhatsAppMessage{Timestamp: time.Now().UTC(), ChatID: "1111@c.us", MessageID: "ABC"}
	mapped := ChatwootMessage{Timestamp: time.Now().UTC(), ConversationID: 7, MessageID: 99}
	if err := store.MapMessage(ctx, "app-1", whatsapp, mapped, 1); err != nil {
		t.Fatalf("map message: %v", err)
	}

	if err := store.DeleteAppData(ctx, "app-1"); err != nil {
		t.Fatalf("delete app data: %v", err)
	}

	if _, err := store.GetEnabledApp(ctx, "app-1"); err != ErrAppNotFound {
		t.Fatalf("expected app gone, got %v", err)
	}
	got, err := store.GetChatWootMessage(ctx, "app-1", "1111@c.us", "ABC")
	if err != nil {
		t.Fatalf("get chatwoot message: %v", err)
	}
	if got != nil {
		t.Fatalf("expected mappings cascaded, got %+v", got)
	}
}

func TestDeleteMappingsOlderThan(t *testing.T) {
	store := newTestStore(t)
	saveTestApp(t, store, "app-1")
	ctx := context.Background()

	whatsapp := WhatsAppMessage{Timestamp: time.Now().UTC(), ChatID: "1111@c.us", MessageID: "ABC"}
	mapped := ChatwootMessage{Timestamp: time.Now().UTC(), ConversationID: 7, MessageID: 99}
	if err := store.MapMessage(ctx, "app-1", whatsapp, mapped, 1); err != nil {
		t.Fatalf("map message: %v", err)
	}

	deleted, err := store.DeleteMappingsOlderThan(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("delete old mappings: %v", err)
	}
	if deleted != 0 {
		t.Fatalf("fresh mapping must survive, deleted %d", deleted)
	}

	deleted, err = store.DeleteMappingsOlderThan(ctx, -time.Hour)
	if err != nil {
		t.Fatalf("delete old mappings: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected one deletion, got %d", deleted)
	}
}
