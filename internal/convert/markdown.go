package convert

import "regexp"

var (
	waBold   = regexp.MustCompile(`\*(.*?)\*`)
	waStrike = regexp.MustCompile(`~(.*?)~`)
	waItalic = regexp.MustCompile(`_(.*?)_`)

	mdBold   = regexp.MustCompile(`\*\*(.*?)\*\*`)
	mdStrike = regexp.MustCompile(`~~(.*?)~~`)
	mdItalic = regexp.MustCompile(`(^|[^*])\*([^*]+?)\*`)
	mdLink   = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	mdBullet = regexp.MustCompile(`(?m)^- `)
)

// WhatsAppToMarkdown converts WhatsApp emphasis syntax into the markdown
// dialect Chatwoot renders.
func WhatsAppToMarkdown(text string) string {
	if text == "" {
		return text
	}
	text = waBold.ReplaceAllString(text, "**$1**")
	text = waStrike.ReplaceAllString(text, "~~$1~~")
	text = waItalic.ReplaceAllString(text, "*$1*")
	return text
}

// MarkdownToWhatsApp converts Chatwoot markdown into WhatsApp emphasis
// syntax. Order matters: double markers shrink before single ones convert.
func MarkdownToWhatsApp(text string) string {
	if text == "" {
		return text
	}
	text = mdItalic.ReplaceAllString(text, "${1}\x00$2\x00")
	text = mdBold.ReplaceAllString(text, "*$1*")
	text = mdStrike.ReplaceAllString(text, "~$1~")
	text = mdLink.ReplaceAllString(text, "$1 ($2)")
	text = mdBullet.ReplaceAllString(text, "* ")

	// Italic placeholders become underscores after bold is done.
	out := []byte(text)
	for i := range out {
		if out[i] == 0 {
			out[i] = '_'
		}
	}
	return string(out)
}

// IsEmptyContent reports whether content renders as nothing. The single
// newline shows up as an artifact of protocol-to-text conversion and counts
// as empty.
func IsEmptyContent(content string) bool {
	return content == "" || content == "\n"
}
