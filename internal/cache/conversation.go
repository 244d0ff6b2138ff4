package cache

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const conversationTTL = 24 * time.Hour

// ConversationHandle is the resolved Chatwoot conversation for a chat:
// the conversation id plus the bound contact's source id.
type ConversationHandle struct {
	ConversationID int    `json:"conversation_id"`
	SourceID       string `json:"source_id"`
}

// NewConversationStore builds the in-process TTL store shared by all
// conversation caches. It is an optimization only; resolution must stay
// correct with an always-empty store.
func NewConversationStore() *gocache.Cache {
	return gocache.New(conversationTTL, 30*time.Minute)
}

// ConversationCache maps chat ids to resolved conversations, namespaced per
// app configuration so multiple installed instances never collide.
type ConversationCache struct {
	store  *gocache.Cache
	prefix string
}

// NewConversationCache creates a cache view namespaced by the Chatwoot
// endpoint URL and inbox id.
func NewConversationCache(store *gocache.Cache, url string, inboxID int) *ConversationCache {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s+%d", url, inboxID)
	return &ConversationCache{
		store:  store,
		prefix: fmt.Sprintf("%x", h.Sum64()),
	}
}

func (c *ConversationCache) fullKey(key string) string {
	return c.prefix + "." + key
}

// Get returns the cached conversation for the chat id, if present.
func (c *ConversationCache) Get(key string) (ConversationHandle, bool) {
	val, ok := c.store.Get(c.fullKey(key))
	if !ok {
		return ConversationHandle{}, false
	}
	handle, ok := val.(ConversationHandle)
	return handle, ok
}

// Set stores the conversation for the chat id with the default TTL.
func (c *ConversationCache) Set(key string, handle ConversationHandle) {
	c.store.Set(c.fullKey(key), handle, gocache.DefaultExpiration)
}

// Has reports whether the chat id is cached.
func (c *ConversationCache) Has(key string) bool {
	_, ok := c.store.Get(c.fullKey(key))
	return ok
}

// Delete evicts a single chat id. Called when a remote API error implicates
// the cached conversation.
func (c *ConversationCache) Delete(key string) {
	c.store.Delete(c.fullKey(key))
}

// Clean evicts every entry under this cache's namespace. Used on app deletion.
func (c *ConversationCache) Clean() {
	for key := range c.store.Items() {
		if strings.HasPrefix(key, c.prefix+".") {
			c.store.Delete(key)
		}
	}
}
