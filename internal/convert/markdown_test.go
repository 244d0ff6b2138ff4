package convert

import "testing"

func TestWhatsAppToMarkdown(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"*bold*", "**bold**"},
		{"~strike~", "~~strike~~"},
		{"_italic_", "*italic*"},
		{"*bold* and _italic_", "**bold** and *italic*"},
		{"plain text", "plain text"},
		{"", ""},
	}
	for _, c := range cases {
		if got := WhatsAppToMarkdown(c.in); got != c.want {
			t.Fatalf("WhatsAppToMarkdown(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestMarkdownToWhatsApp(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"**bold**", "*bold*"},
		{"~~strike~~", "~strike~"},
		{"*italic*", "_italic_"},
		{"**bold** and *italic*", "*bold* and _italic_"},
		{"[link](https://example.com)", "link (https://example.com)"},
		{"- item one\n- item two", "* item one\n* item two"},
		{"plain text", "plain text"},
		{"", ""},
	}
	for _, c := range cases {
		if got := MarkdownToWhatsApp(c.in); got != c.want {
			t.Fatalf("MarkdownToWhatsApp(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestIsEmptyContent(t *testing.T) {
	if !IsEmptyContent("") {
		t.Fatal("empty string is empty content")
	}
	if !IsEmptyContent("\n") {
		t.Fatal("single newline is empty content")
	}
	if IsEmptyContent(" ") {
		t.Fatal("a space is not empty content")
	}
}
