package form

import "strings"

type EventKind int

const (
	EventCommand EventKind = iota
	EventText
	EventButton
)

func (k EventKind) String() string {
	switch k {
	case EventCommand:
		return "command"
	case EventText:
		return "text"
	case EventButton:
		return "button"
	default:
		return "unknown"
	}
}

// Sender identifies the chat a message came from.
type Sender struct {
	ExternalID  string
	DisplayName string
}

// Event is one inbound chat interaction.
type Event struct {
	Kind          EventKind
	Command       string // without the leading slash, lower case
	Args          string
	Text          string
	Token         string
	Sender        Sender
	CorrelationID string
}

func CommandEvent(sender Sender, name, args string) Event {
	return Event{
		Kind:    EventCommand,
		Command: strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "/")),
		Args:    strings.TrimSpace(args),
		Sender:  sender,
	}
}

func TextEvent(sender Sender, text string) Event {
	return Event{Kind: EventText, Text: text, Sender: sender}
}

func ButtonEvent(sender Sender, token string) Event {
	return Event{Kind: EventButton, Token: token, Sender: sender}
}

// Input is what the user supplied: the typed text, the button token, or
// "/command" for commands.
func (e Event) Input() string {
	switch e.Kind {
	case EventButton:
		return e.Token
	case EventCommand:
		return "/" + e.Command
	default:
		return e.Text
	}
}

var cancelWords = map[string]bool{
	"/cancel":   true,
	"/cancelar": true,
	"cancel":    true,
	"cancelar":  true,
}

// CancelToken is the button token that aborts any form.
const CancelToken = "cancel"

// IsCancel reports whether the event asks to abandon the current form.
func (e Event) IsCancel() bool {
	if e.Kind == EventButton {
		return strings.EqualFold(strings.TrimSpace(e.Token), CancelToken)
	}
	return cancelWords[strings.ToLower(strings.TrimSpace(e.Input()))]
}
