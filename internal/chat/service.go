package chat

import (
	"context"

	"go.uber.org/zap"

	"github.com/suPer8Hu/tg-gpt-bridge/internal/ai"
	"github.com/suPer8Hu/tg-gpt-bridge/internal/history"
)

const (
	GreetingText    = "👋 Hi!\n\nSend me a message and I will answer it.\nTo clear the history, use /reset."
	ResetText       = "🗑️ Chat history cleared. You can start a new topic."
	ResetFailedText = "⚠️ Could not clear the chat history, please try again later."
)

// Replier delivers outbound messages to the platform.
type Replier interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendTyping(ctx context.Context, chatID int64) error
}

type Completer interface {
	Complete(ctx context.Context, messages []ai.Message) ai.Result
}

// Service runs one conversation turn per inbound message.
type Service struct {
	store     history.Store
	completer Completer
	replier   Replier
	log       *zap.SugaredLogger
}

func NewService(store history.Store, completer Completer, replier Replier, log *zap.SugaredLogger) *Service {
	return &Service{store: store, completer: completer, replier: replier, log: log}
}

func (s *Service) Start(ctx context.Context, chatID int64) error {
	return s.replier.SendText(ctx, chatID, GreetingText)
}

func (s *Service) Reset(ctx context.Context, chatID int64) error {
	if err := s.store.Delete(ctx, chatID); err != nil {
		s.log.Errorw("clear history failed", "chat_id", chatID, "err", err)
		return s.replier.SendText(ctx, chatID, ResetFailedText)
	}
	s.log.Infow("history cleared", "chat_id", chatID)
	return s.replier.SendText(ctx, chatID, ResetText)
}

// HandleText sends exactly one reply: the model's answer or an error text.
// The returned error is only the failure to deliver that reply.
func (s *Service) HandleText(ctx context.Context, chatID int64, text string) error {
	s.log.Infow("message received", "chat_id", chatID, "chars", len(text))

	loaded := s.store.Get(ctx, chatID)

	// the user message lives only in prompt until the reply succeeds
	prompt := append(loaded.Messages, history.UserMessage(text))

	s.typing(ctx, chatID)

	res := s.completer.Complete(ctx, toAIMessages(prompt))
	if !res.OK() {
		s.log.Warnw("completion failed, user message not kept in history", "chat_id", chatID, "err", res.Err)
		return s.replier.SendText(ctx, chatID, res.ErrorText())
	}

	updated := append(prompt, history.AssistantMessage(res.Text))
	if err := s.store.Save(ctx, chatID, updated); err != nil {
		s.log.Errorw("save history failed", "chat_id", chatID, "messages", len(updated), "err", err)
	}

	if err := s.replier.SendText(ctx, chatID, res.Text); err != nil {
		return err
	}
	s.log.Infow("reply sent", "chat_id", chatID, "chars", len(res.Text))
	return nil
}

// typing is best effort; neither an error nor a panic may abort the turn.
func (s *Service) typing(ctx context.Context, chatID int64) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Warnw("typing indicator panicked", "chat_id", chatID, "panic", r)
		}
	}()
	if err := s.replier.SendTyping(ctx, chatID); err != nil {
		s.log.Warnw("typing indicator failed", "chat_id", chatID, "err", err)
	}
}

func toAIMessages(msgs []history.Message) []ai.Message {
	out := make([]ai.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, ai.Message{Role: string(m.Role), Content: m.Content})
	}
	return out
}
