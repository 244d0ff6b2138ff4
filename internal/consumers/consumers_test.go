package consumers

import (
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"waha-chatwoot/internal/cache"
	"waha-chatwoot/internal/chatwoot"
	"waha-chatwoot/internal/engine"
	"waha-chatwoot/internal/locale"
	"waha-chatwoot/internal/queue"
	"waha-chatwoot/internal/repo"
	"waha-chatwoot/migrations"
)

func TestQueueForWAHAEvent(t *testing.T) {
	cases := map[string]string{
		"message.any":      QueueWAHAMessageAny,
		"message.reaction": QueueWAHAMessageReaction,
		"message.edited":   QueueWAHAMessageEdited,
		"message.revoked":  QueueWAHAMessageRevoked,
		"session.status":   QueueWAHASessionStatus,
		"message.ack":      "",
		"presence.update":  "",
		"":                 "",
	}
	for event, want := range cases {
		if got := QueueForWAHAEvent(event); got != want {
			t.Fatalf("event %q: expected %q, got %q", event, want, got)
		}
	}
}

func TestMutexKeyScopesAppAndChat(t *testing.T) {
	if got := mutexKey("app-1", "1111@c.us"); got != "app:app-1:chat:1111@c.us" {
		t.Fatalf("unexpected mutex key: %s", got)
	}
	if mutexKey("app-1", "1111@c.us") == mutexKey("app-2", "1111@c.us") {
		t.Fatal("same chat under different apps must not share a lock")
	}
}

func TestJobLink(t *testing.T) {
	job := &queue.Job{ID: "42", Queue: QueueWAHAMessageAny}
	link := jobLink("https://bridge.example", job)
	if link.Text != "waha.message.any => 42" {
		t.Fatalf("unexpected link text: %s", link.Text)
	}
	if link.URL != "https://bridge.example/jobs/queue/waha.message.any/42" {
		t.Fatalf("unexpected link url: %s", link.URL)
	}
}

func TestBareMessageID(t *testing.T) {
	if got := bareMessageID("false_1111@c.us_ABC"); got != "ABC" {
		t.Fatalf("expected bare id from serialized key, got %s", got)
	}
	if got := bareMessageID("ABC"); got != "ABC" {
		t.Fatalf("bare id must pass through, got %s", got)
	}
}

func TestWahaChatKey(t *testing.T) {
	payload := `{"event":"message.any","session":"default","payload":{"id":"false_1111@c.us_ABC","from":"1111@c.us"}}`
	job := &queue.Job{Queue: QueueWAHAMessageAny, Event: "message.any", Payload: json.RawMessage(payload)}

	chatID, err := wahaChatKey(job)
	if err != nil {
		t.Fatalf("waha chat key: %v", err)
	}
	if chatID != "1111@c.us" {
		t.Fatalf("expected 1111@c.us, got %s", chatID)
	}

	if _, err := wahaChatKey(&queue.Job{Payload: json.RawMessage(`garbage`)}); err == nil {
		t.Fatal("expected error for undecodable payload")
	}
}

func TestInboxChatKey(t *testing.T) {
	withSender := `{"event":"message_created","conversation":{"id":7,"meta":{"sender":{"custom_attributes":{"waha_whatsapp_chat_id":"1111@s.whatsapp.net"}}}}}`
	job := &queue.Job{Payload: json.RawMessage(withSender)}
	chatID, err := inboxChatKey(job)
	if err != nil {
		t.Fatalf("inbox chat key: %v", err)
	}
	// Normalized so inbox jobs serialize with gateway jobs for the same chat.
	if chatID != "1111@c.us" {
		t.Fatalf("expected normalized chat id, got %s", chatID)
	}

	withoutSender := `{"event":"message_created","conversation":{"id":7}}`
	chatID, err = inboxChatKey(&queue.Job{Payload: json.RawMessage(withoutSender)})
	if err != nil {
		t.Fatalf("inbox chat key: %v", err)
	}
	if chatID != "conversation:7" {
		t.Fatalf("expected conversation fallback, got %s", chatID)
	}

	if _, err := inboxChatKey(&queue.Job{Payload: json.RawMessage(`{"event":"x"}`)}); err == nil {
		t.Fatal("expected error without conversation")
	}
}

func TestAttachmentFilename(t *testing.T) {
	cases := map[string]string{
		"https://cdn.example/uploads/invoice.pdf":      "invoice.pdf",
		"https://cdn.example/uploads/photo.jpg?sig=xx": "photo.jpg",
		"https://cdn.example/":                         "",
	}
	for dataURL, want := range cases {
		if got := attachmentFilename(dataURL); got != want {
			t.Fatalf("%s: expected %q, got %q", dataURL, want, got)
		}
	}
}

func newConsumerTestStore(t *testing.T) repo.Store {
	t.Helper()
	ctx := context.Background()
	store, err := repo.NewSQLite(ctx, filepath.Join(t.TempDir(), "test.db"), slog.Default())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.RunMigrations(ctx, migrations.Files); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return store
}

func TestHandleInboundSkipsAlreadyDeliveredMessage(t *testing.T) {
	ctx := context.Background()
	store := newConsumerTestStore(t)

	whatsapp := repo.WhatsAppMessage{Timestamp: time.Now().UTC(), ChatID: "1111@c.us", MessageID: "ABC"}
	mapped := repo.ChatwootMessage{Timestamp: time.Now().UTC(), ConversationID: 7, MessageID: 99}
	if err := store.MapMessage(ctx, "app-1", whatsapp, mapped, 1); err != nil {
		t.Fatalf("map message: %v", err)
	}

	// Resolver stays nil: a duplicate must return before any chat resolution.
	services := &Services{
		App:    &repo.App{ID: "app-1"},
		Store:  store,
		Logger: slog.Default(),
	}
	info := &reportInfo{}
	err := handleInbound(ctx, services, info, &inbound{
		msg:     &engine.Message{ID: "false_1111@c.us_ABC", From: "1111@c.us"},
		content: "hello again",
	})
	if err != nil {
		t.Fatalf("duplicate delivery must no-op: %v", err)
	}
	if info.messageType != chatwoot.MessageTypeIncoming {
		t.Fatalf("expected incoming message type, got %q", info.messageType)
	}
}

func TestHandleInboundRejectsBareMessageID(t *testing.T) {
	services := &Services{Logger: slog.Default()}
	err := handleInbound(context.Background(), services, &reportInfo{}, &inbound{
		msg: &engine.Message{ID: "ABC", From: "1111@c.us"},
	})
	if err == nil {
		t.Fatal("expected error for unserialized message id")
	}
}

// fakeChatwootAPI satisfies the resolver's API surface in memory.
type fakeChatwootAPI struct {
	sent          []chatwoot.CreateMessage
	conversations []int
}

func (f *fakeChatwootAPI) CreateMessage(ctx context.Context, conversationID int, message chatwoot.CreateMessage) (*chatwoot.Message, error) {
	f.sent = append(f.sent, message)
	f.conversations = append(f.conversations, conversationID)
	return &chatwoot.Message{ID: len(f.sent), ConversationID: conversationID, CreatedAt: time.Now().Unix()}, nil
}

func (f *fakeChatwootAPI) SearchByAnyID(ctx context.Context, chatID string) (*chatwoot.ContactResult, error) {
	return &chatwoot.ContactResult{Contact: chatwoot.Contact{ID: 1, Thumbnail: "set"}, SourceID: "source-1"}, nil
}

func (f *fakeChatwootAPI) CreateContact(ctx context.Context, chatID string, payload chatwoot.ContactCreate) (*chatwoot.ContactResult, error) {
	return &chatwoot.ContactResult{Contact: chatwoot.Contact{ID: 1}, SourceID: "source-1"}, nil
}

func (f *fakeChatwootAPI) UpdateCustomAttributes(ctx context.Context, contact chatwoot.Contact, attributes map[string]string) error {
	return nil
}

func (f *fakeChatwootAPI) UpdateAvatarSafe(ctx context.Context, contactID int, avatarURL string) {}

func (f *fakeChatwootAPI) UpsertConversation(ctx context.Context, sourceID string) (int, error) {
	return 7, nil
}

func reporterServices(api *fakeChatwootAPI) *Services {
	conversations := cache.NewConversationCache(cache.NewConversationStore(), "https://chatwoot.example", 2)
	return &Services{
		App:      &repo.App{ID: "app-1", Session: "default"},
		Resolver: chatwoot.NewResolver(api, conversations, slog.Default()),
		Locale:   locale.New("en-US"),
		Logger:   slog.Default(),
	}
}

func TestReportErrorHidesDetailWhileRetriesRemain(t *testing.T) {
	api := &fakeChatwootAPI{}
	r := &reporter{
		services: reporterServices(api),
		job: &queue.Job{
			ID: "42", Queue: QueueWAHAMessageAny,
			AttemptsMade: 0, MaxAttempts: 5,
			Backoff: queue.Backoff{Type: queue.BackoffExponential, Delay: 5 * time.Second},
		},
		baseURL: "https://bridge.example",
	}

	info := &reportInfo{}
	info.onConversation(7)
	if err := r.reportError(context.Background(), info, "header", context.DeadlineExceeded); err != nil {
		t.Fatalf("report error: %v", err)
	}

	if len(api.sent) != 1 {
		t.Fatalf("expected one note, got %d", len(api.sent))
	}
	note := api.sent[0]
	if !note.Private {
		t.Fatal("failure notes must be private")
	}
	if note.MessageType != chatwoot.MessageTypeIncoming {
		t.Fatalf("expected incoming default, got %q", note.MessageType)
	}
	if api.conversations[0] != 7 {
		t.Fatalf("note must land in the identified conversation, got %d", api.conversations[0])
	}
	if strings.Contains(note.Content, "deadline exceeded") {
		t.Fatalf("detail must wait for the final attempt: %q", note.Content)
	}
	if !strings.Contains(note.Content, "Attempt: 1/5") {
		t.Fatalf("missing attempt counter: %q", note.Content)
	}
	if !strings.Contains(note.Content, "Next retry in 5s") {
		t.Fatalf("missing retry schedule: %q", note.Content)
	}
}

func TestReportErrorShowsDetailOnFinalAttempt(t *testing.T) {
	api := &fakeChatwootAPI{}
	r := &reporter{
		services: reporterServices(api),
		job: &queue.Job{
			ID: "42", Queue: QueueWAHAMessageAny,
			AttemptsMade: 4, MaxAttempts: 5,
			Backoff: queue.Backoff{Type: queue.BackoffExponential, Delay: 5 * time.Second},
		},
		baseURL: "https://bridge.example",
	}

	info := &reportInfo{}
	info.onConversation(7)
	if err := r.reportError(context.Background(), info, "header", context.DeadlineExceeded); err != nil {
		t.Fatalf("report error: %v", err)
	}

	note := api.sent[0]
	if !strings.Contains(note.Content, "deadline exceeded") {
		t.Fatalf("final attempt must include the detail: %q", note.Content)
	}
	if strings.Contains(note.Content, "Next retry") {
		t.Fatalf("final attempt must not promise a retry: %q", note.Content)
	}
}

func TestReportRecovered(t *testing.T) {
	api := &fakeChatwootAPI{}
	r := &reporter{
		services: reporterServices(api),
		job:      &queue.Job{ID: "42", Queue: QueueWAHAMessageAny, AttemptsMade: 2, MaxAttempts: 5},
		baseURL:  "https://bridge.example",
	}

	info := &reportInfo{}
	info.onConversation(7)
	info.onMessageType(chatwoot.MessageTypeOutgoing)
	if err := r.reportRecovered(context.Background(), info); err != nil {
		t.Fatalf("report recovered: %v", err)
	}

	note := api.sent[0]
	if !note.Private {
		t.Fatal("recovery notes must be private")
	}
	if note.MessageType != chatwoot.MessageTypeOutgoing {
		t.Fatalf("expected outgoing type from info, got %q", note.MessageType)
	}
	if !strings.Contains(note.Content, "Recovered after 3 attempts") {
		t.Fatalf("unexpected recovery note: %q", note.Content)
	}
}

func TestRenderError(t *testing.T) {
	apiErr := &chatwoot.APIError{Endpoint: "messages", Status: 422, Body: "unprocessable"}
	got := renderError(apiErr)
	if !strings.Contains(got, "messages") || !strings.Contains(got, "422") || !strings.Contains(got, "unprocessable") {
		t.Fatalf("api error must expand endpoint, status and body: %q", got)
	}
	if got := renderError(context.Canceled); got != "context canceled" {
		t.Fatalf("plain errors render their message, got %q", got)
	}
}
