// Package convert turns canonical WhatsApp message payloads into Chatwoot
// message parts via a fixed-order chain of converters.
package convert

import (
	"context"

	"waha-chatwoot/internal/chatwoot"
	"waha-chatwoot/internal/engine"
)

// Partial is the outbound message produced by a converter before the
// pipeline adds prefixes, reply threading and message type.
type Partial struct {
	Content     string
	Attachments []chatwoot.Attachment
	Private     bool
}

// Converter inspects a payload and produces a partial message, or nil when
// the payload is not its kind.
type Converter interface {
	Convert(ctx context.Context, msg *engine.Message, proto map[string]any) (*Partial, error)
}

// Chain tries converters in order and returns the first non-nil result,
// falling back to the final converter which always produces one. The order
// is product-visible prioritization: ad detection runs before generic text
// so promotional context is not flattened into a plain message.
func Chain(ctx context.Context, msg *engine.Message, proto map[string]any, converters []Converter, fallback Converter) (*Partial, error) {
	for _, converter := range converters {
		partial, err := converter.Convert(ctx, msg, proto)
		if err != nil {
			return nil, err
		}
		if partial != nil {
			return partial, nil
		}
	}
	return fallback.Convert(ctx, msg, proto)
}
