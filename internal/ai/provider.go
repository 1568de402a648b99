package ai

import "context"

// Message is a role-tagged prompt entry as sent to a provider, oldest first.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider returns the whole reply in one call.
type Provider interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

// StreamProvider emits reply fragments in order. The error channel carries at most
// one value and is closed before the fragment channel.
type StreamProvider interface {
	StreamChat(ctx context.Context, messages []Message) (<-chan string, <-chan error)
}

// chatStreamer presents a Chat-only provider as a single-fragment stream.
type chatStreamer struct {
	p Provider
}

func (s chatStreamer) StreamChat(ctx context.Context, messages []Message) (<-chan string, <-chan error) {
	chunks := make(chan string, 1)
	errs := make(chan error, 1)

	go func() {
		defer close(chunks)
		defer close(errs)

		reply, err := s.p.Chat(ctx, messages)
		if err != nil {
			errs <- err
			return
		}
		if reply != "" {
			chunks <- reply
		}
	}()

	return chunks, errs
}
