package locale

// locales maps a locale code to its template strings. en-US is the complete
// reference set; other locales fall back to it per key.
var locales = map[string]map[TKey]string{
	"en-US": {
		ErrorSendingMessage:   "❌ Failed to send the message to WhatsApp",
		ErrorReceivingMessage: "❌ Failed to receive a message from WhatsApp",
		ErrorRemovingMessage:  "❌ Failed to remove the message in WhatsApp",

		JobErrorReport: "{{.Header}}\n" +
			"{{if .Error}}\n```\n{{.Error}}\n```\n{{end}}" +
			"\nJob: [{{.Details.Text}}]({{.Details.URL}})\n" +
			"Attempt: {{.Attempts.Current}}/{{.Attempts.Max}}" +
			"{{if .Attempts.NextDelaySeconds}}\nNext retry in {{.Attempts.NextDelaySeconds}}s{{end}}",
		JobSucceededReport: "✅ Recovered after {{.Attempts.Current}} attempts\n" +
			"Job: [{{.Details.Text}}]({{.Details.URL}})",

		MessageFromWhatsApp: "📱 Sent from the phone\n{{.Text}}",
		MessageFromAPI:      "🤖 Sent via API\n{{.Text}}",
		MessageRemoved:      "🗑️ The message was removed in WhatsApp",
		MessageEdited:       "✏️ The message was edited in WhatsApp\n{{.Text}}",
		GroupMessage:        "**{{.Participant}}**:\n{{.Text}}",
		ReactionAdded:       "Reacted with {{.Emoji}}",
		ReactionRemoved:     "Removed the reaction",
		MessageUnsupported: "⚠️ The message type is not supported yet.\n" +
			"Check the job for details: [{{.Details.Text}}]({{.Details.URL}})",

		MessageLocation: "📍 Location\n" +
			"{{if .Name}}**{{.Name}}**\n{{end}}" +
			"{{if .Address}}{{.Address}}\n{{end}}" +
			"https://maps.google.com/?q={{.Latitude}},{{.Longitude}}",
		MessageContactCard: "👤 Contact: **{{.Name}}**{{if .Phone}} ({{.Phone}}){{end}}",
		MessagePoll: "📊 Poll: **{{.Name}}**\n{{range .Options}}- {{.}}\n{{end}}",
		MessageList: "📋 **{{.Title}}**{{if .Description}}\n{{.Description}}{{end}}" +
			"{{range .Sections}}\n**{{.Title}}**{{range .Rows}}\n- {{.}}{{end}}{{end}}",
		MessageEvent: "📅 Event: **{{.Name}}**\n" +
			"{{if .Description}}{{.Description}}\n{{end}}" +
			"{{if .StartTime}}Starts: {{.StartTime}}\n{{end}}" +
			"{{if .Location}}Where: {{.Location}}{{end}}",
		MessagePix: "💳 **PIX**\n\n" +
			"**{{.MerchantName}}**\n\n" +
			"**Key:** {{.Key}}\n" +
			"**Type:** {{.KeyType}}\n" +
			"{{if .Amount}}**Amount:** {{.Amount}}\n{{end}}" +
			"{{if .ReferenceID}}**Reference:** {{.ReferenceID}}{{end}}",
		MessageAd: "📢 Ad\n**{{.Title}}**\n{{if .Body}}{{.Body}}\n{{end}}{{if .SourceURL}}{{.SourceURL}}\n{{end}}{{if .Text}}\n{{.Text}}{{end}}",

		SessionStatusChange: "{{.Emoji}} Session '{{.Session}}' is {{.Status}}",
		SessionCurrentStatus: "{{.Emoji}} Session '{{.Session}}' is {{.Status}}\n" +
			"Name: {{.Name}}\nPhone: {{.ID}}",
		SessionWorking:    "🟢 WhatsApp is connected as **{{.Name}}** ({{.ID}})",
		SessionError:      "🛑 The session is not running, messages are not being delivered.",
		SessionScanQRCode: "⚠️ Link the device: open WhatsApp on your phone and scan the QR code below.",

		CommandsList: "Available commands:\n" +
			"- status (1): session status\n" +
			"- restart (2): restart the session\n" +
			"- stop (4): stop the session\n" +
			"- logout (5): log out of WhatsApp\n" +
			"- qr (6): get the pairing QR code\n" +
			"- help (8): this message\n" +
			"- server status\n" +
			"- server reboot",
		CommandRestarting:      "♻️ Restarting the session...",
		CommandStopping:        "🛑 Stopping the session...",
		HelpReminder:           "Send 'help' to this chat to see the available commands.",
		ServerVersionAndStatus: "Version:\n```\n{{.Version}}\n```\nStatus:\n```\n{{.Status}}\n```",
		ServerReboot:           "♻️ Rebooting the server...",
		LogoutSuccess:          "👋 Logged out. Scan the QR code to link the device again.",
	},
}

// StatusEmoji returns the emoji shown next to a session status.
func StatusEmoji(status string) string {
	switch status {
	case "STOPPED":
		return "⚠️"
	case "STARTING":
		return "⏳"
	case "SCAN_QR_CODE":
		return "⚠️"
	case "WORKING":
		return "🟢"
	case "FAILED":
		return "🛑"
	default:
		return "❓"
	}
}
