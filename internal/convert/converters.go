package convert

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"regexp"
	"strings"
	"time"

	"waha-chatwoot/internal/chatwoot"
	"waha-chatwoot/internal/engine"
	"waha-chatwoot/internal/locale"
)

// mediaFetcher downloads message media from the gateway.
type mediaFetcher interface {
	FetchMedia(ctx context.Context, url string) ([]byte, error)
}

// FacebookAd detects promotional messages carrying an external ad reply and
// renders the ad context above the message text.
type FacebookAd struct {
	Locale *locale.Locale
}

func (c *FacebookAd) Convert(ctx context.Context, msg *engine.Message, proto map[string]any) (*Partial, error) {
	ad := engine.DigMap(proto, "extendedTextMessage", "contextInfo", "externalAdReply")
	if ad == nil {
		return nil, nil
	}
	content := c.Locale.Render(locale.MessageAd, map[string]string{
		"Title":     engine.DigString(ad, "title"),
		"Body":      engine.DigString(ad, "body"),
		"SourceURL": engine.DigString(ad, "sourceUrl"),
		"Text":      WhatsAppToMarkdown(msg.Body),
	})
	return &Partial{Content: content}, nil
}

// Text handles plain text and media messages, downloading media into a
// base64 attachment.
type Text struct {
	Logger *slog.Logger
	WAHA   mediaFetcher
}

func (c *Text) Convert(ctx context.Context, msg *engine.Message, proto map[string]any) (*Partial, error) {
	attachments, err := c.attachments(ctx, msg)
	if err != nil {
		return nil, err
	}
	if IsEmptyContent(msg.Body) && len(attachments) == 0 {
		return nil, nil
	}
	return &Partial{
		Content:     WhatsAppToMarkdown(msg.Body),
		Attachments: attachments,
	}, nil
}

func (c *Text) attachments(ctx context.Context, msg *engine.Message) ([]chatwoot.Attachment, error) {
	if msg.Media == nil || msg.Media.URL == "" {
		return nil, nil
	}
	media := msg.Media
	c.Logger.Info("downloading media", "url", media.URL)
	data, err := c.WAHA.FetchMedia(ctx, media.URL)
	if err != nil {
		return nil, fmt.Errorf("download media: %w", err)
	}
	filename := media.Filename
	if filename == "" {
		extension := ".bin"
		if exts, _ := mime.ExtensionsByType(media.Mimetype); len(exts) > 0 {
			extension = exts[0]
		}
		filename = "no-filename" + extension
	}
	return []chatwoot.Attachment{{
		Content:  base64.StdEncoding.EncodeToString(data),
		Filename: filename,
		Encoding: "base64",
	}}, nil
}

// Location renders a shared location as a maps link.
type Location struct {
	Locale *locale.Locale
}

func (c *Location) Convert(ctx context.Context, msg *engine.Message, proto map[string]any) (*Partial, error) {
	data := map[string]any{}
	switch {
	case msg.Location != nil:
		data["Latitude"] = msg.Location.Latitude
		data["Longitude"] = msg.Location.Longitude
	default:
		loc := engine.DigMap(proto, "locationMessage")
		if loc == nil {
			return nil, nil
		}
		data["Latitude"], _ = engine.Dig(loc, "degreesLatitude").(float64)
		data["Longitude"], _ = engine.Dig(loc, "degreesLongitude").(float64)
		data["Name"] = engine.DigString(loc, "name")
		data["Address"] = engine.DigString(loc, "address")
	}
	return &Partial{Content: c.Locale.Render(locale.MessageLocation, data)}, nil
}

var vcardPhone = regexp.MustCompile(`(?m)^TEL[^:]*:(.+)$`)
var vcardName = regexp.MustCompile(`(?m)^FN:(.+)$`)

// ShareContact renders shared contact cards.
type ShareContact struct {
	Locale *locale.Locale
}

func (c *ShareContact) Convert(ctx context.Context, msg *engine.Message, proto map[string]any) (*Partial, error) {
	vcards := msg.VCards
	if contact := engine.DigMap(proto, "contactMessage"); contact != nil {
		if vcard := engine.DigString(contact, "vcard"); vcard != "" {
			vcards = append(vcards, vcard)
		}
	}
	if array, ok := engine.Dig(proto, "contactsArrayMessage", "contacts").([]any); ok {
		for _, entry := range array {
			contact, _ := entry.(map[string]any)
			if vcard := engine.DigString(contact, "vcard"); vcard != "" {
				vcards = append(vcards, vcard)
			}
		}
	}
	if len(vcards) == 0 {
		return nil, nil
	}

	lines := make([]string, 0, len(vcards))
	for _, vcard := range vcards {
		name := ""
		if m := vcardName.FindStringSubmatch(vcard); m != nil {
			name = strings.TrimSpace(m[1])
		}
		phone := ""
		if m := vcardPhone.FindStringSubmatch(vcard); m != nil {
			phone = strings.TrimSpace(m[1])
		}
		lines = append(lines, c.Locale.Render(locale.MessageContactCard, map[string]string{
			"Name":  name,
			"Phone": phone,
		}))
	}
	return &Partial{Content: strings.Join(lines, "\n")}, nil
}

// Poll renders poll creation messages.
type Poll struct {
	Locale *locale.Locale
}

func (c *Poll) Convert(ctx context.Context, msg *engine.Message, proto map[string]any) (*Partial, error) {
	var poll map[string]any
	for _, key := range []string{"pollCreationMessage", "pollCreationMessageV2", "pollCreationMessageV3"} {
		if poll = engine.DigMap(proto, key); poll != nil {
			break
		}
	}
	if poll == nil {
		return nil, nil
	}
	options := []string{}
	if raw, ok := engine.Dig(poll, "options").([]any); ok {
		for _, entry := range raw {
			option, _ := entry.(map[string]any)
			if name := engine.DigString(option, "optionName"); name != "" {
				options = append(options, name)
			}
		}
	}
	content := c.Locale.Render(locale.MessagePoll, map[string]any{
		"Name":    engine.DigString(poll, "name"),
		"Options": options,
	})
	return &Partial{Content: content}, nil
}

// List renders interactive list messages.
type List struct {
	Locale *locale.Locale
}

type listSection struct {
	Title string
	Rows  []string
}

func (c *List) Convert(ctx context.Context, msg *engine.Message, proto map[string]any) (*Partial, error) {
	list := engine.DigMap(proto, "listMessage")
	if list == nil {
		return nil, nil
	}
	sections := []listSection{}
	if raw, ok := engine.Dig(list, "sections").([]any); ok {
		for _, entry := range raw {
			section, _ := entry.(map[string]any)
			parsed := listSection{Title: engine.DigString(section, "title")}
			if rows, ok := engine.Dig(section, "rows").([]any); ok {
				for _, r := range rows {
					row, _ := r.(map[string]any)
					if title := engine.DigString(row, "title"); title != "" {
						parsed.Rows = append(parsed.Rows, title)
					}
				}
			}
			sections = append(sections, parsed)
		}
	}
	content := c.Locale.Render(locale.MessageList, map[string]any{
		"Title":       engine.DigString(list, "title"),
		"Description": engine.DigString(list, "description"),
		"Sections":    sections,
	})
	return &Partial{Content: content}, nil
}

// CalendarEvent renders event invitations.
type CalendarEvent struct {
	Locale *locale.Locale
}

func (c *CalendarEvent) Convert(ctx context.Context, msg *engine.Message, proto map[string]any) (*Partial, error) {
	event := engine.DigMap(proto, "eventMessage")
	if event == nil {
		return nil, nil
	}
	start := ""
	if ts, ok := engine.Dig(event, "startTime").(float64); ok && ts > 0 {
		start = time.Unix(int64(ts), 0).UTC().Format("2006-01-02 15:04 MST")
	}
	content := c.Locale.Render(locale.MessageEvent, map[string]string{
		"Name":        engine.DigString(event, "name"),
		"Description": engine.DigString(event, "description"),
		"StartTime":   start,
		"Location":    engine.DigString(event, "location", "name"),
	})
	return &Partial{Content: content}, nil
}

// Pix renders Brazilian PIX payment requests carried as interactive
// payment_info buttons.
type Pix struct {
	Locale *locale.Locale
	Logger *slog.Logger
}

type pixParams struct {
	Currency    string `json:"currency"`
	ReferenceID string `json:"reference_id"`
	TotalAmount struct {
		Value  int64 `json:"value"`
		Offset int64 `json:"offset"`
	} `json:"total_amount"`
	PaymentSettings []struct {
		Type          string `json:"type"`
		PixStaticCode struct {
			MerchantName string `json:"merchant_name"`
			Key          string `json:"key"`
			KeyType      string `json:"key_type"`
		} `json:"pix_static_code"`
	} `json:"payment_settings"`
}

func (c *Pix) Convert(ctx context.Context, msg *engine.Message, proto map[string]any) (*Partial, error) {
	interactive := engine.DigMap(proto, "interactiveMessage")
	if nested := engine.DigMap(interactive, "interactiveMessage"); nested != nil {
		interactive = nested
	}
	buttons, ok := engine.Dig(interactive, "nativeFlowMessage", "buttons").([]any)
	if !ok {
		return nil, nil
	}
	for _, entry := range buttons {
		button, _ := entry.(map[string]any)
		if engine.DigString(button, "name") != "payment_info" {
			continue
		}
		raw := engine.DigString(button, "buttonParamsJson")
		var params pixParams
		if err := json.Unmarshal([]byte(raw), &params); err != nil {
			c.Logger.Warn("failed parsing payment params", "error", err)
			return nil, nil
		}
		for _, setting := range params.PaymentSettings {
			if setting.Type != "pix_static_code" {
				continue
			}
			amount := ""
			if params.TotalAmount.Value > 0 && params.TotalAmount.Offset > 0 {
				amount = fmt.Sprintf("%.2f %s",
					float64(params.TotalAmount.Value)/float64(params.TotalAmount.Offset),
					params.Currency)
			}
			content := c.Locale.Render(locale.MessagePix, map[string]string{
				"MerchantName": setting.PixStaticCode.MerchantName,
				"Key":          setting.PixStaticCode.Key,
				"KeyType":      setting.PixStaticCode.KeyType,
				"Amount":       amount,
				"ReferenceID":  params.ReferenceID,
			})
			return &Partial{Content: content}, nil
		}
	}
	return nil, nil
}

// Unsupported is the terminal fallback: a private note linking the operator
// to the job for diagnosis.
type Unsupported struct {
	Locale *locale.Locale
	Job    locale.Link
}

func (c *Unsupported) Convert(ctx context.Context, msg *engine.Message, proto map[string]any) (*Partial, error) {
	content := c.Locale.Render(locale.MessageUnsupported, map[string]any{
		"Details": c.Job,
	})
	return &Partial{Content: content, Private: true}, nil
}
