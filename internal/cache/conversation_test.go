package cache

import "testing"

func TestConversationCacheRoundTrip(t *testing.T) {
	store := NewConversationStore()
	c := NewConversationCache(store, "https://chatwoot.example", 1)

	if c.Has("1111@c.us") {
		t.Fatal("fresh cache must be empty")
	}

	handle := ConversationHandle{ConversationID: 7, SourceID: "src-1"}
	c.Set("1111@c.us", handle)

	got, ok := c.Get("1111@c.us")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got != handle {
		t.Fatalf("got %+v, want %+v", got, handle)
	}

	c.Delete("1111@c.us")
	if c.Has("1111@c.us") {
		t.Fatal("expected entry evicted")
	}
}

func TestConversationCacheNamespacing(t *testing.T) {
	store := NewConversationStore()
	first := NewConversationCache(store, "https://chatwoot.example", 1)
	second := NewConversationCache(store, "https://chatwoot.example", 2)

	first.Set("1111@c.us", ConversationHandle{ConversationID: 7})
	if second.Has("1111@c.us") {
		t.Fatal("caches for different inboxes must not collide")
	}
}

func TestConversationCacheClean(t *testing.T) {
	store := NewConversationStore()
	mine := NewConversationCache(store, "https://chatwoot.example", 1)
	other := NewConversationCache(store, "https://chatwoot.example", 2)

	mine.Set("1111@c.us", ConversationHandle{ConversationID: 7})
	mine.Set("2222@c.us", ConversationHandle{ConversationID: 8})
	other.Set("1111@c.us", ConversationHandle{ConversationID: 9})

	mine.Clean()

	if mine.Has("1111@c.us") || mine.Has("2222@c.us") {
		t.Fatal("clean must evict the whole namespace")
	}
	if !other.Has("1111@c.us") {
		t.Fatal("clean must not touch other namespaces")
	}
}
