package history

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

var ErrMalformedHistory = errors.New("history: malformed stored value")

// Message is one entry of a conversation. Entries are appended, never edited.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

func (m Message) Validate() error {
	switch m.Role {
	case RoleUser, RoleAssistant:
		return nil
	default:
		return fmt.Errorf("unknown role %q", m.Role)
	}
}

// Encode serializes the whole sequence. A nil sequence encodes as [].
func Encode(msgs []Message) ([]byte, error) {
	if msgs == nil {
		msgs = []Message{}
	}
	return json.Marshal(msgs)
}

// Decode parses a stored value. A JSON string holding the array is unwrapped
// once and reported through unwrapped.
func Decode(raw []byte) (msgs []Message, unwrapped bool, err error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, false, fmt.Errorf("%w: %v", ErrMalformedHistory, err)
		}
		raw = bytes.TrimSpace([]byte(s))
		unwrapped = true
	}
	if len(raw) == 0 || raw[0] != '[' {
		return nil, unwrapped, fmt.Errorf("%w: not a list", ErrMalformedHistory)
	}

	var items []Message
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, unwrapped, fmt.Errorf("%w: %v", ErrMalformedHistory, err)
	}
	for i, m := range items {
		if err := m.Validate(); err != nil {
			return nil, unwrapped, fmt.Errorf("%w: item %d: %v", ErrMalformedHistory, i, err)
		}
	}
	if items == nil {
		items = []Message{}
	}
	return items, unwrapped, nil
}
