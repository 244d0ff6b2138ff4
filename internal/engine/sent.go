package engine

import (
	"encoding/json"
	"fmt"
	"time"

	"waha-chatwoot/internal/repo"
	"waha-chatwoot/internal/waid"
)

// gowsSent is the raw data GOWS returns after sending a message.
type gowsSent struct {
	Info struct {
		ID        string    `json:"ID"`
		Chat      string    `json:"Chat"`
		Sender    string    `json:"Sender"`
		IsFromMe  bool      `json:"IsFromMe"`
		Timestamp time.Time `json:"Timestamp"`
	} `json:"Info"`
}

// nowebSent is the raw data NOWEB returns after sending a message.
type nowebSent struct {
	Key struct {
		ID          string `json:"id"`
		RemoteJID   string `json:"remoteJid"`
		FromMe      bool   `json:"fromMe"`
		Participant string `json:"participant"`
	} `json:"key"`
	MessageTimestamp json.Number `json:"messageTimestamp"`
}

// SentMessageKeys extracts the WhatsApp message identity from a send
// response. The raw shape differs per engine; when none matches, the
// serialized message id alone still identifies the message.
func SentMessageKeys(id string, timestamp int64, data json.RawMessage) (repo.WhatsAppMessage, error) {
	if len(data) > 0 {
		var gows gowsSent
		if err := json.Unmarshal(data, &gows); err == nil && gows.Info.ID != "" {
			msg := repo.WhatsAppMessage{
				Timestamp: gows.Info.Timestamp.UTC(),
				ChatID:    waid.ToCus(gows.Info.Chat),
				MessageID: gows.Info.ID,
				FromMe:    gows.Info.IsFromMe,
			}
			if gows.Info.Sender != "" {
				participant := waid.ToCus(gows.Info.Sender)
				msg.Participant = &participant
			}
			return msg, nil
		}

		var noweb nowebSent
		if err := json.Unmarshal(data, &noweb); err == nil && noweb.Key.ID != "" {
			ts, _ := noweb.MessageTimestamp.Int64()
			msg := repo.WhatsAppMessage{
				Timestamp: time.Unix(ts, 0).UTC(),
				ChatID:    waid.ToCus(noweb.Key.RemoteJID),
				MessageID: noweb.Key.ID,
				FromMe:    noweb.Key.FromMe,
			}
			if noweb.Key.Participant != "" {
				participant := noweb.Key.Participant
				msg.Participant = &participant
			}
			return msg, nil
		}
	}

	key, err := waid.ParseMessageKey(id)
	if err != nil {
		return repo.WhatsAppMessage{}, fmt.Errorf("sent message keys: %w", err)
	}
	msg := repo.WhatsAppMessage{
		Timestamp: time.Unix(timestamp, 0).UTC(),
		ChatID:    waid.ToCus(key.ChatID),
		MessageID: key.ID,
		FromMe:    key.FromMe,
	}
	if key.Participant != "" {
		participant := key.Participant
		msg.Participant = &participant
	}
	return msg, nil
}
