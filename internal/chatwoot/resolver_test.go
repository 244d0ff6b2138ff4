package chatwoot

import (
	"context"
	"log/slog"
	"testing"

	"waha-chatwoot/internal/cache"
)

type fakeAPI struct {
	contacts map[string]*ContactResult

	searches        int
	created         int
	attributeCalls  int
	conversationID  int
	messages        []CreateMessage
	messageErr      error
	conversationErr error
}

func (f *fakeAPI) SearchByAnyID(ctx context.Context, chatID string) (*ContactResult, error) {
	f.searches++
	return f.contacts[chatID], nil
}

func (f *fakeAPI) CreateContact(ctx context.Context, chatID string, payload ContactCreate) (*ContactResult, error) {
	f.created++
	result := &ContactResult{
		Contact:  Contact{ID: 42, Name: payload.Name, CustomAttributes: payload.CustomAttributes},
		SourceID: "src-" + chatID,
	}
	f.contacts[chatID] = result
	return result, nil
}

func (f *fakeAPI) UpdateCustomAttributes(ctx context.Context, contact Contact, attributes map[string]string) error {
	f.attributeCalls++
	return nil
}

func (f *fakeAPI) UpdateAvatarSafe(ctx context.Context, contactID int, avatarURL string) {}

func (f *fakeAPI) UpsertConversation(ctx context.Context, sourceID string) (int, error) {
	if f.conversationErr != nil {
		return 0, f.conversationErr
	}
	return f.conversationID, nil
}

func (f *fakeAPI) CreateMessage(ctx context.Context, conversationID int, message CreateMessage) (*Message, error) {
	if f.messageErr != nil {
		return nil, f.messageErr
	}
	f.messages = append(f.messages, message)
	return &Message{ID: 99, ConversationID: conversationID, CreatedAt: 1700000000}, nil
}

type stubInfo struct {
	chatID string
}

func (s *stubInfo) ChatID() string { return s.chatID }

func (s *stubInfo) AvatarURL(ctx context.Context) (string, error) { return "", nil }

func (s *stubInfo) Attributes(ctx context.Context) (map[string]string, error) {
	return map[string]string{AttrChatID: s.chatID}, nil
}

func (s *stubInfo) ContactCreate(ctx context.Context) (ContactCreate, error) {
	return ContactCreate{Name: "Test", Identifier: s.chatID}, nil
}

func newTestResolver(api *fakeAPI) (*Resolver, *cache.ConversationCache) {
	conversations := cache.NewConversationCache(cache.NewConversationStore(), "https://chatwoot.example", 1)
	return NewResolver(api, conversations, slog.Default()), conversations
}

func TestResolveCreatesContactAndConversation(t *testing.T) {
	api := &fakeAPI{contacts: map[string]*ContactResult{}, conversationID: 7}
	resolver, conversations := newTestResolver(api)

	conversation, err := resolver.ResolveConversation(context.Background(), &stubInfo{chatID: "1111@c.us"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if conversation.ID() != 7 {
		t.Fatalf("expected conversation 7, got %d", conversation.ID())
	}
	if api.created != 1 {
		t.Fatalf("expected one contact creation, got %d", api.created)
	}
	if api.attributeCalls != 1 {
		t.Fatalf("expected attributes refresh, got %d calls", api.attributeCalls)
	}
	if !conversations.Has("1111@c.us") {
		t.Fatal("expected resolution cached")
	}
}

func TestResolveUsesCacheOnSecondCall(t *testing.T) {
	api := &fakeAPI{contacts: map[string]*ContactResult{}, conversationID: 7}
	resolver, _ := newTestResolver(api)

	info := &stubInfo{chatID: "1111@c.us"}
	if _, err := resolver.ResolveConversation(context.Background(), info); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, err := resolver.ResolveConversation(context.Background(), info); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if api.searches != 1 {
		t.Fatalf("cached resolution must not search again, got %d searches", api.searches)
	}
}

func TestResolveExistingContactSkipsCreate(t *testing.T) {
	api := &fakeAPI{
		contacts: map[string]*ContactResult{
			"1111@c.us": {Contact: Contact{ID: 5, Thumbnail: "set"}, SourceID: "src"},
		},
		conversationID: 7,
	}
	resolver, _ := newTestResolver(api)

	if _, err := resolver.ResolveConversation(context.Background(), &stubInfo{chatID: "1111@c.us"}); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if api.created != 0 {
		t.Fatalf("existing contact must not be re-created, got %d creations", api.created)
	}
	if api.attributeCalls != 1 {
		t.Fatal("attributes must refresh even on contact hits")
	}
}

func TestSendAPIErrorInvalidatesCache(t *testing.T) {
	api := &fakeAPI{contacts: map[string]*ContactResult{}, conversationID: 7}
	resolver, conversations := newTestResolver(api)

	conversation, err := resolver.ResolveConversation(context.Background(), &stubInfo{chatID: "1111@c.us"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !conversations.Has("1111@c.us") {
		t.Fatal("expected cached entry before failure")
	}

	api.messageErr = &APIError{Endpoint: "messages.create", Status: 404, Body: "not found"}
	if _, err := conversation.Send(context.Background(), CreateMessage{Content: "x"}); err == nil {
		t.Fatal("expected send error")
	}
	if conversations.Has("1111@c.us") {
		t.Fatal("api error must evict the cached conversation")
	}
}

func TestSendPlainErrorKeepsCache(t *testing.T) {
	api := &fakeAPI{contacts: map[string]*ContactResult{}, conversationID: 7}
	resolver, conversations := newTestResolver(api)

	conversation, err := resolver.ResolveConversation(context.Background(), &stubInfo{chatID: "1111@c.us"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	api.messageErr = context.DeadlineExceeded
	if _, err := conversation.Send(context.Background(), CreateMessage{Content: "x"}); err == nil {
		t.Fatal("expected send error")
	}
	if !conversations.Has("1111@c.us") {
		t.Fatal("transport errors must not evict the cache")
	}
}
