package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type routeKind int

const (
	routeIgnore routeKind = iota
	routeStart
	routeReset
	routeText
)

func (k routeKind) String() string {
	switch k {
	case routeStart:
		return "start"
	case routeReset:
		return "reset"
	case routeText:
		return "text"
	default:
		return "ignore"
	}
}

type routed struct {
	kind   routeKind
	chatID int64
	text   string
}

// route maps an update to a handler. Unknown commands and non-text messages
// are ignored.
func route(upd tgbotapi.Update) routed {
	m := upd.Message
	if m == nil || m.Chat == nil {
		return routed{kind: routeIgnore}
	}

	if m.IsCommand() {
		switch strings.ToLower(m.Command()) {
		case "start", "help":
			return routed{kind: routeStart, chatID: m.Chat.ID}
		case "reset":
			return routed{kind: routeReset, chatID: m.Chat.ID}
		default:
			return routed{kind: routeIgnore}
		}
	}

	if m.Text == "" {
		return routed{kind: routeIgnore}
	}
	return routed{kind: routeText, chatID: m.Chat.ID, text: m.Text}
}

// splitText cuts s into pieces of at most limit runes, preferring to break
// after a newline in the second half of a piece.
func splitText(s string, limit int) []string {
	runes := []rune(s)
	if len(runes) <= limit {
		return []string{s}
	}

	var parts []string
	for len(runes) > limit {
		cut := limit
		for i := limit - 1; i >= limit/2; i-- {
			if runes[i] == '\n' {
				cut = i + 1
				break
			}
		}
		parts = append(parts, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}
