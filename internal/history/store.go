package history

import (
	"context"

	"go.uber.org/zap"
)

// Store persists one ordered message list per conversation.
type Store interface {
	// EnsureSchema prepares the backing storage. It is safe to call repeatedly.
	EnsureSchema(ctx context.Context) error
	// Get never fails: any problem yields an empty list plus a diagnostic.
	Get(ctx context.Context, chatID int64) Lookup
	// Save replaces the whole list atomically.
	Save(ctx context.Context, chatID int64, msgs []Message) error
	// Delete removes the list; a missing list is not an error.
	Delete(ctx context.Context, chatID int64) error
}

// Lookup is the result of a history read. Err is nil when the history was
// read cleanly or simply does not exist yet.
type Lookup struct {
	Messages []Message
	Err      error
}

func empty() Lookup {
	return Lookup{Messages: []Message{}}
}

func degraded(log *zap.SugaredLogger, chatID int64, err error) Lookup {
	log.Errorw("history unavailable, starting with empty context", "chat_id", chatID, "err", err)
	return Lookup{Messages: []Message{}, Err: err}
}

// decodeLookup turns a raw stored value into a Lookup, logging every anomaly.
func decodeLookup(log *zap.SugaredLogger, chatID int64, raw []byte) Lookup {
	msgs, unwrapped, err := Decode(raw)
	if err != nil {
		return degraded(log, chatID, err)
	}
	if unwrapped {
		log.Warnw("history was stored as a JSON string, decoded it", "chat_id", chatID)
	}
	return Lookup{Messages: msgs}
}
