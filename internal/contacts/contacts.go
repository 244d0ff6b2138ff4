// Package contacts maps WhatsApp chat kinds (direct, alias, group, channel,
// status broadcast) to contact descriptors the Chatwoot resolver consumes.
package contacts

import (
	"context"
	"sync"

	"waha-chatwoot/internal/chatwoot"
	"waha-chatwoot/internal/waha"
	"waha-chatwoot/internal/waid"
)

// gateway is the slice of the WAHA session API the descriptors need.
type gateway interface {
	GetContact(ctx context.Context, chatID string) (*waha.Contact, error)
	GetGroup(ctx context.Context, groupID string) (*waha.Group, error)
	GetChannel(ctx context.Context, channelID string) (*waha.Channel, error)
	GetChatPicture(ctx context.Context, chatID string) (string, error)
	FindPNByLid(ctx context.Context, lid string) (string, error)
}

// Describe returns the descriptor variant matching the chat id kind.
func Describe(api gateway, chatID string) chatwoot.ContactInfo {
	switch {
	case waid.IsStatusBroadcast(chatID):
		return &statusChat{}
	case waid.IsGroup(chatID):
		return &groupChat{api: api, chatID: chatID}
	case waid.IsChannel(chatID):
		return &channelChat{api: api, chatID: chatID}
	case waid.IsLid(chatID):
		return &aliasChat{api: api, chatID: chatID}
	default:
		return &directChat{api: api, chatID: chatID}
	}
}

// Inbox returns the descriptor for the synthetic inbox-notifications contact
// of a session.
func Inbox(session string) chatwoot.ContactInfo {
	return &inboxChat{session: session}
}

// memo caches the first result of a lookup, error included, so each remote
// call happens at most once per descriptor lifetime (one job).
type memo[T any] struct {
	once  sync.Once
	value T
	err   error
}

func (m *memo[T]) get(fn func() (T, error)) (T, error) {
	m.once.Do(func() {
		m.value, m.err = fn()
	})
	return m.value, m.err
}
