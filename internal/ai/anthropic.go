package ai

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	DefaultAnthropicModel = "claude-3-5-haiku-latest"
	// AnthropicMaxTokens bounds a single reply.
	AnthropicMaxTokens = 4096
)

type AnthropicProvider struct {
	client anthropic.Client
	Model  string
}

func NewAnthropicProvider(apiKey, model string, opts ...option.RequestOption) *AnthropicProvider {
	if model == "" {
		model = DefaultAnthropicModel
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &AnthropicProvider{
		client: anthropic.NewClient(opts...),
		Model:  model,
	}
}

func (p *AnthropicProvider) params(messages []Message) anthropic.MessageNewParams {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		block := anthropic.NewTextBlock(m.Content)
		switch m.Role {
		case "assistant":
			out = append(out, anthropic.NewAssistantMessage(block))
		default:
			out = append(out, anthropic.NewUserMessage(block))
		}
	}
	return anthropic.MessageNewParams{
		Model:     anthropic.Model(p.Model),
		MaxTokens: AnthropicMaxTokens,
		Messages:  out,
	}
}

func (p *AnthropicProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	msg, err := p.client.Messages.New(ctx, p.params(messages))
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, block := range msg.Content {
		switch tb := block.AsAny().(type) {
		case anthropic.TextBlock:
			b.WriteString(tb.Text)
		}
	}
	return b.String(), nil
}

// StreamChat forwards text deltas from the message event stream.
func (p *AnthropicProvider) StreamChat(ctx context.Context, messages []Message) (<-chan string, <-chan error) {
	chunks := make(chan string, 16)
	errs := make(chan error, 1)

	go func() {
		defer close(chunks)
		defer close(errs)

		stream := p.client.Messages.NewStreaming(ctx, p.params(messages))
		defer stream.Close()

		for stream.Next() {
			event := stream.Current()
			switch ev := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				switch delta := ev.Delta.AsAny().(type) {
				case anthropic.TextDelta:
					if delta.Text != "" {
						chunks <- delta.Text
					}
				}
			}
		}
		if err := stream.Err(); err != nil {
			errs <- err
		}
	}()

	return chunks, errs
}
