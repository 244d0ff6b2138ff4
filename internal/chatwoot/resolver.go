package chatwoot

import (
	"context"
	"errors"
	"log/slog"

	"waha-chatwoot/internal/cache"
)

// ContactInfo describes a WhatsApp chat well enough to resolve or create its
// Chatwoot contact. Implemented by the contact descriptor variants.
type ContactInfo interface {
	ChatID() string
	AvatarURL(ctx context.Context) (string, error)
	Attributes(ctx context.Context) (map[string]string, error)
	ContactCreate(ctx context.Context) (ContactCreate, error)
}

// resolverAPI is the slice of the Chatwoot client the resolver needs.
type resolverAPI interface {
	messageCreator
	SearchByAnyID(ctx context.Context, chatID string) (*ContactResult, error)
	CreateContact(ctx context.Context, chatID string, payload ContactCreate) (*ContactResult, error)
	UpdateCustomAttributes(ctx context.Context, contact Contact, attributes map[string]string) error
	UpdateAvatarSafe(ctx context.Context, contactID int, avatarURL string)
	UpsertConversation(ctx context.Context, sourceID string) (int, error)
}

// Resolver finds or creates the Chatwoot contact and conversation for a chat.
// It is not internally locked: the per-chat mutex serializes all access per
// chat, so no two resolutions for the same chat run concurrently.
type Resolver struct {
	api    resolverAPI
	cache  *cache.ConversationCache
	logger *slog.Logger
}

// NewResolver creates a resolver on top of the client and conversation cache.
func NewResolver(api resolverAPI, conversations *cache.ConversationCache, logger *slog.Logger) *Resolver {
	return &Resolver{
		api:    api,
		cache:  conversations,
		logger: logger.With("component", "resolver"),
	}
}

// ResolveConversation returns a conversation handle for the chat described by
// info, resolving contact and conversation remotely on cache miss. Any API
// error surfaced through the returned handle invalidates the cache entry for
// this chat before propagating.
func (r *Resolver) ResolveConversation(ctx context.Context, info ContactInfo) (*Conversation, error) {
	chatID := info.ChatID()
	handle, err := r.upsert(ctx, info)
	if err != nil {
		return nil, err
	}

	conversation := NewConversation(r.api, handle.ConversationID)
	conversation.onError = func(err error) {
		if IsAPIError(err) {
			r.cache.Delete(chatID)
			r.logger.Error("api error, invalidating conversation cache",
				"chat_id", chatID, "conversation_id", handle.ConversationID, "error", err)
		}
	}
	return conversation, nil
}

// ConversationByID returns a bare handle for a known conversation id.
func (r *Resolver) ConversationByID(id int) *Conversation {
	return NewConversation(r.api, id)
}

func (r *Resolver) upsert(ctx context.Context, info ContactInfo) (cache.ConversationHandle, error) {
	chatID := info.ChatID()

	if handle, ok := r.cache.Get(chatID); ok {
		return handle, nil
	}

	// Find or create the contact.
	contact, err := r.api.SearchByAnyID(ctx, chatID)
	if err != nil {
		return cache.ConversationHandle{}, err
	}
	if contact == nil {
		payload, err := info.ContactCreate(ctx)
		if err != nil {
			return cache.ConversationHandle{}, err
		}
		contact, err = r.api.CreateContact(ctx, chatID, payload)
		if err != nil {
			return cache.ConversationHandle{}, err
		}
	}

	// Refresh custom attributes even on contact hits so metadata stays
	// current.
	attributes, err := info.Attributes(ctx)
	if err != nil {
		return cache.ConversationHandle{}, err
	}
	r.logger.Info("updating contact custom attributes", "chat_id", chatID, "contact_id", contact.Contact.ID)
	if err := r.api.UpdateCustomAttributes(ctx, contact.Contact, attributes); err != nil {
		return cache.ConversationHandle{}, err
	}

	// Set an avatar only when the contact has none; keep the original
	// otherwise. Avatar failures are non-critical.
	if contact.Contact.Thumbnail == "" {
		avatarURL, err := info.AvatarURL(ctx)
		if err != nil {
			r.logger.Warn("failed fetching avatar url", "chat_id", chatID, "error", err)
		} else if avatarURL != "" {
			r.api.UpdateAvatarSafe(ctx, contact.Contact.ID, avatarURL)
		}
	}

	conversationID, err := r.api.UpsertConversation(ctx, contact.SourceID)
	if err != nil {
		return cache.ConversationHandle{}, err
	}
	r.logger.Info("resolved conversation",
		"chat_id", chatID, "conversation_id", conversationID, "source_id", contact.SourceID)

	handle := cache.ConversationHandle{ConversationID: conversationID, SourceID: contact.SourceID}
	r.cache.Set(chatID, handle)
	return handle, nil
}

// ErrNoConversation indicates a chat has no resolvable conversation.
var ErrNoConversation = errors.New("no conversation resolved")
