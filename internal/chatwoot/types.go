package chatwoot

// Custom attribute keys synced onto Chatwoot contacts. They carry every known
// WhatsApp identity of the contact so lookups work from either id space.
const (
	AttrChatID = "waha_whatsapp_chat_id"
	AttrJID    = "waha_whatsapp_jid"
	AttrLID    = "waha_whatsapp_lid"
)

// InboxContactChatID is the chat id of the synthetic contact used for inbox
// notifications and operator commands.
const InboxContactChatID = "inbox.waha"

// Message types understood by the Chatwoot message create API.
const (
	MessageTypeIncoming = "incoming"
	MessageTypeOutgoing = "outgoing"
	MessageTypeActivity = "activity"
)

// Contact is a Chatwoot contact.
type Contact struct {
	ID               int               `json:"id"`
	Name             string            `json:"name"`
	PhoneNumber      string            `json:"phone_number"`
	Identifier       string            `json:"identifier"`
	Thumbnail        string            `json:"thumbnail"`
	CustomAttributes map[string]string `json:"custom_attributes"`
	ContactInboxes   []ContactInbox    `json:"contact_inboxes"`
}

// ContactInbox binds a contact to an inbox via a source id.
type ContactInbox struct {
	SourceID string `json:"source_id"`
	Inbox    Inbox  `json:"inbox"`
}

// Inbox is a Chatwoot inbox.
type Inbox struct {
	ID int `json:"id"`
}

// ContactResult is a resolved contact together with its source id bound to
// the configured inbox.
type ContactResult struct {
	Contact  Contact
	SourceID string
}

// ContactCreate is the payload to create a contact via the public inbox API.
type ContactCreate struct {
	Name             string            `json:"name,omitempty"`
	PhoneNumber      string            `json:"phone_number,omitempty"`
	Identifier       string            `json:"identifier,omitempty"`
	CustomAttributes map[string]string `json:"custom_attributes,omitempty"`
}

// PublicConversation is a conversation as returned by the public inbox API.
type PublicConversation struct {
	ID int `json:"id"`
}

// Attachment is a base64-encoded file attached to an outbound message.
type Attachment struct {
	Content  string `json:"content"`
	Filename string `json:"filename"`
	Encoding string `json:"encoding"`
}

// ContentAttributes carries message metadata such as reply threading.
type ContentAttributes struct {
	InReplyTo int `json:"in_reply_to,omitempty"`
}

// CreateMessage is the payload to create a conversation message.
type CreateMessage struct {
	Content           string             `json:"content"`
	MessageType       string             `json:"message_type"`
	Private           bool               `json:"private"`
	Attachments       []Attachment       `json:"attachments,omitempty"`
	ContentAttributes *ContentAttributes `json:"content_attributes,omitempty"`
}

// Message is a created conversation message.
type Message struct {
	ID             int    `json:"id"`
	ConversationID int    `json:"conversation_id"`
	Content        string `json:"content"`
	CreatedAt      int64  `json:"created_at"`
}

// filterCondition is one clause of the contacts filter API payload.
type filterCondition struct {
	AttributeKey   string   `json:"attribute_key"`
	FilterOperator string   `json:"filter_operator"`
	Values         []string `json:"values"`
	QueryOperator  string   `json:"query_operator,omitempty"`
}
