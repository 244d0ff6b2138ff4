package chatwoot

import "context"

// messageCreator is the slice of the API a conversation handle needs.
type messageCreator interface {
	CreateMessage(ctx context.Context, conversationID int, message CreateMessage) (*Message, error)
}

// Conversation is a handle to a resolved Chatwoot conversation. A send error
// runs the onError hook (cache invalidation) before propagating.
type Conversation struct {
	api     messageCreator
	id      int
	onError func(err error)
}

// NewConversation builds a conversation handle around the raw id.
func NewConversation(api messageCreator, id int) *Conversation {
	return &Conversation{api: api, id: id}
}

// ID returns the conversation id.
func (c *Conversation) ID() int {
	return c.id
}

// Send creates a message in the conversation.
func (c *Conversation) Send(ctx context.Context, message CreateMessage) (*Message, error) {
	msg, err := c.api.CreateMessage(ctx, c.id, message)
	if err != nil {
		if c.onError != nil {
			c.onError(err)
		}
		return nil, err
	}
	return msg, nil
}

// Incoming posts a plain incoming message.
func (c *Conversation) Incoming(ctx context.Context, content string) (*Message, error) {
	return c.Send(ctx, CreateMessage{Content: content, MessageType: MessageTypeIncoming})
}

// Activity posts an activity line (the grey system text in the timeline).
func (c *Conversation) Activity(ctx context.Context, content string) (*Message, error) {
	return c.Send(ctx, CreateMessage{Content: content, MessageType: MessageTypeActivity})
}
