package engine

import (
	"encoding/json"
	"testing"
)

func TestResolveProtoGOWS(t *testing.T) {
	data := json.RawMessage(`{
		"Message": {
			"ExtendedTextMessage": {
				"Text": "hi",
				"ContextInfo": {"ExternalAdReply": {"Title": "ad"}}
			},
			"InteractiveMessage": {
				"NativeFlowMessage": {
					"Buttons": [{"Name": "payment_info", "ButtonParamsJSON": "{}"}]
				}
			}
		}
	}`)
	proto := ResolveProto(data)
	if proto == nil {
		t.Fatal("expected proto body")
	}
	if got := DigString(proto, "extendedTextMessage", "contextInfo", "externalAdReply", "title"); got != "ad" {
		t.Fatalf("expected ad title, got %q", got)
	}
	buttons, ok := Dig(proto, "interactiveMessage", "nativeFlowMessage", "buttons").([]any)
	if !ok || len(buttons) != 1 {
		t.Fatalf("expected one button, got %#v", buttons)
	}
	button := buttons[0].(map[string]any)
	if _, ok := button["buttonParamsJson"]; !ok {
		t.Fatalf("expected camel-cased buttonParamsJson key, got %#v", button)
	}
}

func TestResolveProtoNOWEB(t *testing.T) {
	data := json.RawMessage(`{"message": {"locationMessage": {"degreesLatitude": 1.5}}}`)
	proto := ResolveProto(data)
	if proto == nil {
		t.Fatal("expected proto body")
	}
	lat, ok := Dig(proto, "locationMessage", "degreesLatitude").(float64)
	if !ok || lat != 1.5 {
		t.Fatalf("expected latitude 1.5, got %v", lat)
	}
}

func TestResolveProtoWEBJS(t *testing.T) {
	if proto := ResolveProto(json.RawMessage(`{"somethingElse": true}`)); proto != nil {
		t.Fatalf("expected nil proto, got %#v", proto)
	}
	if proto := ResolveProto(nil); proto != nil {
		t.Fatalf("expected nil proto for empty data, got %#v", proto)
	}
}

func TestCamelCase(t *testing.T) {
	cases := map[string]string{
		"ID":               "id",
		"MediaURL":         "mediaUrl",
		"buttonParamsJSON": "buttonParamsJson",
		"Message":          "message",
		"ExtendedText":     "extendedText",
		"already":          "already",
	}
	for in, want := range cases {
		if got := camelCase(in); got != want {
			t.Fatalf("camelCase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSentMessageKeysGOWS(t *testing.T) {
	data := json.RawMessage(`{
		"Info": {
			"ID": "ABC",
			"Chat": "1111@s.whatsapp.net",
			"IsFromMe": true,
			"Timestamp": "2026-01-02T15:04:05Z"
		}
	}`)
	msg, err := SentMessageKeys("true_1111@c.us_ABC", 0, data)
	if err != nil {
		t.Fatalf("sent keys: %v", err)
	}
	if msg.MessageID != "ABC" || msg.ChatID != "1111@c.us" || !msg.FromMe {
		t.Fatalf("unexpected identity: %+v", msg)
	}
}

func TestSentMessageKeysNOWEB(t *testing.T) {
	data := json.RawMessage(`{
		"key": {"id": "XYZ", "remoteJid": "1111@s.whatsapp.net", "fromMe": true},
		"messageTimestamp": 1700000000
	}`)
	msg, err := SentMessageKeys("", 0, data)
	if err != nil {
		t.Fatalf("sent keys: %v", err)
	}
	if msg.MessageID != "XYZ" || msg.ChatID != "1111@c.us" {
		t.Fatalf("unexpected identity: %+v", msg)
	}
	if msg.Timestamp.Unix() != 1700000000 {
		t.Fatalf("unexpected timestamp: %v", msg.Timestamp)
	}
}

func TestSentMessageKeysFallbackToSerializedID(t *testing.T) {
	msg, err := SentMessageKeys("true_1111@c.us_ABC", 1700000000, nil)
	if err != nil {
		t.Fatalf("sent keys: %v", err)
	}
	if msg.MessageID != "ABC" || msg.ChatID != "1111@c.us" || !msg.FromMe {
		t.Fatalf("unexpected identity: %+v", msg)
	}
}
