package waid

import "testing"

func TestChatKindDetection(t *testing.T) {
	if !IsGroup("123456789-987654@g.us") {
		t.Fatal("expected group chat")
	}
	if !IsLid("987654321@lid") {
		t.Fatal("expected lid chat")
	}
	if !IsChannel("12036304@newsletter") {
		t.Fatal("expected channel chat")
	}
	if !IsStatusBroadcast("status@broadcast") {
		t.Fatal("expected status broadcast")
	}
	if !IsDirect("1111@c.us") {
		t.Fatal("expected direct chat for c.us")
	}
	if !IsDirect("1111@s.whatsapp.net") {
		t.Fatal("expected direct chat for s.whatsapp.net")
	}
	if IsGroup("1111@c.us") {
		t.Fatal("direct chat must not be a group")
	}
}

func TestToCusAndToJID(t *testing.T) {
	if got := ToCus("1111@s.whatsapp.net"); got != "1111@c.us" {
		t.Fatalf("expected 1111@c.us, got %s", got)
	}
	if got := ToJID("1111@c.us"); got != "1111@s.whatsapp.net" {
		t.Fatalf("expected 1111@s.whatsapp.net, got %s", got)
	}
	if got := ToCus("123-456@g.us"); got != "123-456@g.us" {
		t.Fatalf("group id must pass through, got %s", got)
	}
}

func TestPhoneNumber(t *testing.T) {
	if got := PhoneNumber("628123456@c.us"); got != "628123456" {
		t.Fatalf("expected 628123456, got %s", got)
	}
	if got := PhoneNumber("123-456@g.us"); got != "" {
		t.Fatalf("expected empty phone for group, got %s", got)
	}
}

func TestMessageKeyRoundTrip(t *testing.T) {
	key := MessageKey{FromMe: false, ChatID: "1111@c.us", ID: "ABC"}
	serialized := key.Serialize()
	if serialized != "false_1111@c.us_ABC" {
		t.Fatalf("unexpected serialized key: %s", serialized)
	}

	parsed, err := ParseMessageKey(serialized)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed != key {
		t.Fatalf("round trip mismatch: %+v != %+v", parsed, key)
	}
}

func TestMessageKeyWithParticipant(t *testing.T) {
	key := MessageKey{FromMe: true, ChatID: "123-456@g.us", ID: "XYZ", Participant: "2222@c.us"}
	parsed, err := ParseMessageKey(key.Serialize())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Participant != "2222@c.us" {
		t.Fatalf("expected participant, got %q", parsed.Participant)
	}
}

func TestParseMessageKeyRejectsBareID(t *testing.T) {
	if _, err := ParseMessageKey("ABC"); err == nil {
		t.Fatal("expected error for bare message id")
	}
}
