package contacts

import (
	"context"
	"fmt"
	"strings"

	"waha-chatwoot/internal/chatwoot"
	"waha-chatwoot/internal/waha"
	"waha-chatwoot/internal/waid"
)

// directChat is a phone-number chat. Name comes from the WhatsApp contact,
// falling back to the dialable number.
type directChat struct {
	api     gateway
	chatID  string
	contact memo[*waha.Contact]
}

func (d *directChat) ChatID() string {
	return d.chatID
}

func (d *directChat) lookup(ctx context.Context) (*waha.Contact, error) {
	return d.contact.get(func() (*waha.Contact, error) {
		return d.api.GetContact(ctx, d.chatID)
	})
}

func (d *directChat) name(ctx context.Context) (string, error) {
	contact, err := d.lookup(ctx)
	if err != nil {
		return "", err
	}
	if name := contact.DisplayName(); name != "" {
		return name, nil
	}
	return "+" + waid.PhoneNumber(d.chatID), nil
}

func (d *directChat) AvatarURL(ctx context.Context) (string, error) {
	return d.api.GetChatPicture(ctx, d.chatID)
}

func (d *directChat) Attributes(ctx context.Context) (map[string]string, error) {
	return map[string]string{
		chatwoot.AttrChatID: waid.ToCus(d.chatID),
		chatwoot.AttrJID:    waid.ToJID(d.chatID),
	}, nil
}

func (d *directChat) ContactCreate(ctx context.Context) (chatwoot.ContactCreate, error) {
	name, err := d.name(ctx)
	if err != nil {
		return chatwoot.ContactCreate{}, err
	}
	attributes, _ := d.Attributes(ctx)
	return chatwoot.ContactCreate{
		Name:             name,
		PhoneNumber:      "+" + waid.PhoneNumber(d.chatID),
		Identifier:       waid.ToCus(d.chatID),
		CustomAttributes: attributes,
	}, nil
}

// aliasChat is an alias-identity (LID) chat. It resolves the primary
// phone-number identity once and delegates to the direct behavior when the
// gateway knows the mapping, keeping the alias id in the attributes either
// way.
type aliasChat struct {
	api     gateway
	chatID  string
	primary memo[*directChat]
	contact memo[*waha.Contact]
}

func (a *aliasChat) ChatID() string {
	return a.chatID
}

func (a *aliasChat) resolve(ctx context.Context) (*directChat, error) {
	return a.primary.get(func() (*directChat, error) {
		pn, err := a.api.FindPNByLid(ctx, a.chatID)
		if err != nil {
			return nil, err
		}
		if pn == "" {
			return nil, nil
		}
		if !strings.Contains(pn, "@") {
			pn += "@c.us"
		}
		return &directChat{api: a.api, chatID: waid.ToCus(pn)}, nil
	})
}

func (a *aliasChat) AvatarURL(ctx context.Context) (string, error) {
	if primary, err := a.resolve(ctx); err != nil {
		return "", err
	} else if primary != nil {
		return primary.AvatarURL(ctx)
	}
	return a.api.GetChatPicture(ctx, a.chatID)
}

func (a *aliasChat) Attributes(ctx context.Context) (map[string]string, error) {
	attributes := map[string]string{chatwoot.AttrLID: a.chatID}
	primary, err := a.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if primary != nil {
		direct, _ := primary.Attributes(ctx)
		for k, v := range direct {
			attributes[k] = v
		}
	}
	return attributes, nil
}

func (a *aliasChat) ContactCreate(ctx context.Context) (chatwoot.ContactCreate, error) {
	attributes, err := a.Attributes(ctx)
	if err != nil {
		return chatwoot.ContactCreate{}, err
	}
	primary, err := a.resolve(ctx)
	if err != nil {
		return chatwoot.ContactCreate{}, err
	}
	if primary != nil {
		payload, err := primary.ContactCreate(ctx)
		if err != nil {
			return chatwoot.ContactCreate{}, err
		}
		payload.CustomAttributes = attributes
		return payload, nil
	}

	// No phone mapping known; create the contact on the alias id alone.
	contact, err := a.contact.get(func() (*waha.Contact, error) {
		return a.api.GetContact(ctx, a.chatID)
	})
	if err != nil {
		return chatwoot.ContactCreate{}, err
	}
	name := contact.DisplayName()
	if name == "" {
		name = strings.SplitN(a.chatID, "@", 2)[0]
	}
	return chatwoot.ContactCreate{
		Name:             name,
		Identifier:       a.chatID,
		CustomAttributes: attributes,
	}, nil
}

// groupChat is a group. Name is the group subject.
type groupChat struct {
	api    gateway
	chatID string
	group  memo[*waha.Group]
}

func (g *groupChat) ChatID() string {
	return g.chatID
}

func (g *groupChat) AvatarURL(ctx context.Context) (string, error) {
	return g.api.GetChatPicture(ctx, g.chatID)
}

func (g *groupChat) Attributes(ctx context.Context) (map[string]string, error) {
	return map[string]string{chatwoot.AttrChatID: g.chatID}, nil
}

func (g *groupChat) ContactCreate(ctx context.Context) (chatwoot.ContactCreate, error) {
	group, err := g.group.get(func() (*waha.Group, error) {
		return g.api.GetGroup(ctx, g.chatID)
	})
	if err != nil {
		return chatwoot.ContactCreate{}, err
	}
	name := group.Title()
	if name == "" {
		name = strings.SplitN(g.chatID, "@", 2)[0]
	}
	attributes, _ := g.Attributes(ctx)
	return chatwoot.ContactCreate{
		Name:             name,
		Identifier:       g.chatID,
		CustomAttributes: attributes,
	}, nil
}

// channelChat is a newsletter channel.
type channelChat struct {
	api     gateway
	chatID  string
	channel memo[*waha.Channel]
}

func (c *channelChat) ChatID() string {
	return c.chatID
}

func (c *channelChat) lookup(ctx context.Context) (*waha.Channel, error) {
	return c.channel.get(func() (*waha.Channel, error) {
		return c.api.GetChannel(ctx, c.chatID)
	})
}

func (c *channelChat) AvatarURL(ctx context.Context) (string, error) {
	channel, err := c.lookup(ctx)
	if err != nil {
		return "", err
	}
	return channel.Picture, nil
}

func (c *channelChat) Attributes(ctx context.Context) (map[string]string, error) {
	return map[string]string{chatwoot.AttrChatID: c.chatID}, nil
}

func (c *channelChat) ContactCreate(ctx context.Context) (chatwoot.ContactCreate, error) {
	channel, err := c.lookup(ctx)
	if err != nil {
		return chatwoot.ContactCreate{}, err
	}
	name := channel.Name
	if name == "" {
		name = strings.SplitN(c.chatID, "@", 2)[0]
	}
	attributes, _ := c.Attributes(ctx)
	return chatwoot.ContactCreate{
		Name:             name,
		Identifier:       c.chatID,
		CustomAttributes: attributes,
	}, nil
}

// statusChat is the status broadcast pseudo-chat.
type statusChat struct{}

func (s *statusChat) ChatID() string {
	return waid.StatusBroadcastID
}

func (s *statusChat) AvatarURL(ctx context.Context) (string, error) {
	return "", nil
}

func (s *statusChat) Attributes(ctx context.Context) (map[string]string, error) {
	return map[string]string{chatwoot.AttrChatID: waid.StatusBroadcastID}, nil
}

func (s *statusChat) ContactCreate(ctx context.Context) (chatwoot.ContactCreate, error) {
	attributes, _ := s.Attributes(ctx)
	return chatwoot.ContactCreate{
		Name:             "Status (Broadcast)",
		Identifier:       waid.StatusBroadcastID,
		CustomAttributes: attributes,
	}, nil
}

// inboxChat is the synthetic contact that receives session notifications and
// operator commands.
type inboxChat struct {
	session string
}

func (i *inboxChat) ChatID() string {
	return chatwoot.InboxContactChatID
}

func (i *inboxChat) AvatarURL(ctx context.Context) (string, error) {
	return "", nil
}

func (i *inboxChat) Attributes(ctx context.Context) (map[string]string, error) {
	return map[string]string{chatwoot.AttrChatID: chatwoot.InboxContactChatID}, nil
}

func (i *inboxChat) ContactCreate(ctx context.Context) (chatwoot.ContactCreate, error) {
	attributes, _ := i.Attributes(ctx)
	return chatwoot.ContactCreate{
		Name:             fmt.Sprintf("WAHA (%s)", i.session),
		Identifier:       chatwoot.InboxContactChatID,
		CustomAttributes: attributes,
	}, nil
}
