// Package locale renders the operator-facing texts the bridge posts into
// Chatwoot. Templates use text/template; unknown locales fall back to en-US.
package locale

import (
	"bytes"
	"text/template"
)

// TKey identifies a template string.
type TKey string

const (
	ErrorSendingMessage   TKey = "WHATSAPP_ERROR_SENDING_MESSAGE"
	ErrorReceivingMessage TKey = "WHATSAPP_ERROR_RECEIVING_MESSAGE"
	ErrorRemovingMessage  TKey = "WHATSAPP_ERROR_REMOVING_MESSAGE"

	JobErrorReport     TKey = "JOB_ERROR_REPORT"
	JobSucceededReport TKey = "JOB_SUCCEEDED_REPORT"

	MessageFromWhatsApp TKey = "MESSAGE_FROM_WHATSAPP"
	MessageFromAPI      TKey = "MESSAGE_FROM_API"
	MessageRemoved      TKey = "MESSAGE_REMOVED_IN_WHATSAPP"
	MessageEdited       TKey = "MESSAGE_EDITED_IN_WHATSAPP"
	GroupMessage        TKey = "WHATSAPP_GROUP_MESSAGE"
	ReactionAdded       TKey = "WHATSAPP_REACTION_ADDED"
	ReactionRemoved     TKey = "WHATSAPP_REACTION_REMOVED"
	MessageUnsupported  TKey = "WHATSAPP_MESSAGE_UNSUPPORTED"

	MessageLocation     TKey = "WHATSAPP_MESSAGE_LOCATION"
	MessageContactCard  TKey = "WHATSAPP_MESSAGE_CONTACT_CARD"
	MessagePoll         TKey = "WHATSAPP_MESSAGE_POLL"
	MessageList         TKey = "WHATSAPP_MESSAGE_LIST"
	MessageEvent        TKey = "WHATSAPP_MESSAGE_EVENT"
	MessagePix          TKey = "WHATSAPP_MESSAGE_PIX"
	MessageAd           TKey = "WHATSAPP_MESSAGE_AD"

	SessionStatusChange  TKey = "APP_SESSION_STATUS_CHANGE"
	SessionCurrentStatus TKey = "APP_SESSION_CURRENT_STATUS"
	SessionWorking       TKey = "APP_SESSION_STATUS_WORKING"
	SessionError         TKey = "APP_SESSION_STATUS_ERROR"
	SessionScanQRCode    TKey = "APP_SESSION_SCAN_QR_CODE"

	CommandsList           TKey = "APP_COMMANDS_LIST"
	CommandRestarting      TKey = "APP_COMMAND_RESTARTING"
	CommandStopping        TKey = "APP_COMMAND_STOPPING"
	HelpReminder           TKey = "APP_HELP_REMINDER"
	ServerVersionAndStatus TKey = "APP_SERVER_VERSION_AND_STATUS"
	ServerReboot           TKey = "APP_SERVER_REBOOT"
	LogoutSuccess          TKey = "APP_LOGOUT_SUCCESS"
)

// Link is a markdown link rendered inside reports.
type Link struct {
	Text string
	URL  string
}

// Attempts describes retry progress for job reports. NextDelaySeconds is nil
// when no further attempt is scheduled.
type Attempts struct {
	Current          int
	Max              int
	NextDelaySeconds *int64
}

// Locale renders template strings for one language.
type Locale struct {
	strings map[TKey]string
}

// New returns the locale for the given code, falling back to en-US.
func New(code string) *Locale {
	strings, ok := locales[code]
	if !ok {
		strings = locales["en-US"]
	}
	return &Locale{strings: strings}
}

// Render executes the template for key with the given data. Malformed
// templates and missing keys degrade to the key name so a broken translation
// never fails a job.
func (l *Locale) Render(key TKey, data any) string {
	text, ok := l.strings[key]
	if !ok {
		text, ok = locales["en-US"][key]
		if !ok {
			return string(key)
		}
	}
	tmpl, err := template.New(string(key)).Parse(text)
	if err != nil {
		return string(key)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return string(key)
	}
	return buf.String()
}
