// Package chatwoot is a client for the Chatwoot helpdesk API, plus the
// contact/conversation resolution used by the bridge.
package chatwoot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"waha-chatwoot/internal/metrics"
	"waha-chatwoot/internal/repo"
	"waha-chatwoot/internal/waid"
)

// Client provides typed access to the Chatwoot account API and the public
// inbox API for one app installation.
type Client struct {
	http   *resty.Client
	config repo.AppConfig
	logger *slog.Logger
	meter  *metrics.Metrics
}

// NewClient creates a Chatwoot client for the given installation config.
func NewClient(config repo.AppConfig, logger *slog.Logger, meter *metrics.Metrics) *Client {
	http := resty.New().
		SetBaseURL(config.URL).
		SetHeader("api_access_token", config.AccountToken).
		SetTimeout(15 * time.Second)
	return &Client{
		http:   http,
		config: config,
		logger: logger.With("component", "chatwoot"),
		meter:  meter,
	}
}

func (c *Client) observe(endpoint string, started time.Time, resp *resty.Response, err error) {
	status := "error"
	if err == nil && resp != nil {
		status = strconv.Itoa(resp.StatusCode())
	}
	c.meter.ChatwootRequests.WithLabelValues(endpoint, status).Inc()
	c.meter.ChatwootLatency.WithLabelValues(endpoint, status).Observe(time.Since(started).Seconds())
}

func (c *Client) check(endpoint string, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("chatwoot %s: %w", endpoint, err)
	}
	if resp.IsError() {
		return &APIError{Endpoint: endpoint, Status: resp.StatusCode(), Body: resp.String()}
	}
	return nil
}

// SearchByAnyID finds the contact holding any known WhatsApp identity
// attribute equal to chatID (chat id, JID, LID, identifier, and the bare
// phone number for phone-shaped ids). Only contacts bound to the
// configured inbox count; returns nil when nothing matches.
func (c *Client) SearchByAnyID(ctx context.Context, chatID string) (*ContactResult, error) {
	payload := []filterCondition{
		{AttributeKey: AttrChatID, FilterOperator: "equal_to", Values: []string{chatID}, QueryOperator: "OR"},
		{AttributeKey: AttrJID, FilterOperator: "equal_to", Values: []string{chatID}, QueryOperator: "OR"},
		{AttributeKey: AttrLID, FilterOperator: "equal_to", Values: []string{chatID}, QueryOperator: "OR"},
		{AttributeKey: "identifier", FilterOperator: "equal_to", Values: []string{chatID}},
	}
	if phone := waid.PhoneNumber(chatID); phone != "" {
		payload[len(payload)-1].QueryOperator = "OR"
		payload = append(payload, filterCondition{
			AttributeKey: "phone_number", FilterOperator: "equal_to", Values: []string{phone},
		})
	}

	var result struct {
		Payload []Contact `json:"payload"`
	}
	started := time.Now()
	resp, err := c.http.R().SetContext(ctx).
		SetBody(map[string]any{"payload": payload}).
		SetResult(&result).
		Post(fmt.Sprintf("/api/v1/accounts/%d/contacts/filter", c.config.AccountID))
	c.observe("contacts.filter", started, resp, err)
	if err := c.check("contacts.filter", resp, err); err != nil {
		return nil, err
	}

	if len(result.Payload) == 0 {
		return nil, nil
	}
	contact := result.Payload[0]
	for _, binding := range contact.ContactInboxes {
		if binding.Inbox.ID == c.config.InboxID {
			return &ContactResult{Contact: contact, SourceID: binding.SourceID}, nil
		}
	}
	return nil, nil
}

// CreateContact creates a contact through the public inbox API and returns it
// with its inbox source id.
func (c *Client) CreateContact(ctx context.Context, chatID string, payload ContactCreate) (*ContactResult, error) {
	var created struct {
		ID       int    `json:"id"`
		SourceID string `json:"source_id"`
	}
	started := time.Now()
	resp, err := c.http.R().SetContext(ctx).
		SetBody(payload).
		SetResult(&created).
		Post(fmt.Sprintf("/public/api/v1/inboxes/%s/contacts", c.config.InboxIdentifier))
	c.observe("contacts.create", started, resp, err)
	if err := c.check("contacts.create", resp, err); err != nil {
		return nil, err
	}
	c.logger.Info("created contact", "chat_id", chatID, "source_id", created.SourceID)

	var fetched struct {
		Payload Contact `json:"payload"`
	}
	started = time.Now()
	resp, err = c.http.R().SetContext(ctx).
		SetResult(&fetched).
		Get(fmt.Sprintf("/api/v1/accounts/%d/contacts/%d", c.config.AccountID, created.ID))
	c.observe("contacts.get", started, resp, err)
	if err := c.check("contacts.get", resp, err); err != nil {
		return nil, err
	}
	return &ContactResult{Contact: fetched.Payload, SourceID: created.SourceID}, nil
}

// UpdateCustomAttributes merges the attributes onto the contact.
func (c *Client) UpdateCustomAttributes(ctx context.Context, contact Contact, attributes map[string]string) error {
	merged := make(map[string]string, len(contact.CustomAttributes)+len(attributes))
	for k, v := range contact.CustomAttributes {
		merged[k] = v
	}
	for k, v := range attributes {
		merged[k] = v
	}
	started := time.Now()
	resp, err := c.http.R().SetContext(ctx).
		SetBody(map[string]any{"custom_attributes": merged}).
		Put(fmt.Sprintf("/api/v1/accounts/%d/contacts/%d", c.config.AccountID, contact.ID))
	c.observe("contacts.update", started, resp, err)
	return c.check("contacts.update", resp, err)
}

// UpdateAvatarSafe sets the contact's avatar from a URL. Failures are logged
// and swallowed; the avatar is not critical.
func (c *Client) UpdateAvatarSafe(ctx context.Context, contactID int, avatarURL string) {
	started := time.Now()
	resp, err := c.http.R().SetContext(ctx).
		SetBody(map[string]any{"avatar_url": avatarURL}).
		Put(fmt.Sprintf("/api/v1/accounts/%d/contacts/%d", c.config.AccountID, contactID))
	c.observe("contacts.avatar", started, resp, err)
	if err := c.check("contacts.avatar", resp, err); err != nil {
		c.logger.Warn("failed updating contact avatar", "contact_id", contactID, "error", err)
	}
}

// UpsertConversation returns the id of an open conversation for the contact
// in the configured inbox, creating one if none exists.
func (c *Client) UpsertConversation(ctx context.Context, sourceID string) (int, error) {
	var listed struct {
		Payload []PublicConversation `json:"payload"`
	}
	started := time.Now()
	url := fmt.Sprintf("/public/api/v1/inboxes/%s/contacts/%s/conversations", c.config.InboxIdentifier, sourceID)
	resp, err := c.http.R().SetContext(ctx).SetResult(&listed).Get(url)
	c.observe("conversations.list", started, resp, err)
	if err := c.check("conversations.list", resp, err); err != nil {
		return 0, err
	}
	if len(listed.Payload) > 0 {
		return listed.Payload[0].ID, nil
	}

	var created PublicConversation
	started = time.Now()
	resp, err = c.http.R().SetContext(ctx).SetResult(&created).Post(url)
	c.observe("conversations.create", started, resp, err)
	if err := c.check("conversations.create", resp, err); err != nil {
		return 0, err
	}
	return created.ID, nil
}

// CreateMessage posts a message into the conversation.
func (c *Client) CreateMessage(ctx context.Context, conversationID int, message CreateMessage) (*Message, error) {
	var result Message
	started := time.Now()
	resp, err := c.http.R().SetContext(ctx).
		SetBody(message).
		SetResult(&result).
		Post(fmt.Sprintf("/api/v1/accounts/%d/conversations/%d/messages", c.config.AccountID, conversationID))
	c.observe("messages.create", started, resp, err)
	if err := c.check("messages.create", resp, err); err != nil {
		return nil, err
	}
	return &result, nil
}
