// Package telegram connects the bot to the Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// MaxMessageLength is Telegram's limit for one text message, in characters.
const MaxMessageLength = 4096

// Handler receives routed updates.
type Handler interface {
	Start(ctx context.Context, chatID int64) error
	Reset(ctx context.Context, chatID int64) error
	HandleText(ctx context.Context, chatID int64, text string) error
}

type Options struct {
	Token string
	// APIEndpoint overrides tgbotapi.APIEndpoint, mostly for tests.
	APIEndpoint string
	Concurrency int
	PollTimeout int
}

type Bot struct {
	api         *tgbotapi.BotAPI
	log         *zap.SugaredLogger
	concurrency int
	pollTimeout int
}

// New authenticates against the Bot API (getMe).
func New(opts Options, log *zap.SugaredLogger) (*Bot, error) {
	endpoint := opts.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	api, err := tgbotapi.NewBotAPIWithAPIEndpoint(opts.Token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate with telegram: %w", err)
	}
	log.Infow("authorized on telegram", "username", api.Self.UserName)
	return newBot(api, opts, log), nil
}

func newBot(api *tgbotapi.BotAPI, opts Options, log *zap.SugaredLogger) *Bot {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 60
	}
	return &Bot{
		api:         api,
		log:         log,
		concurrency: opts.Concurrency,
		pollTimeout: opts.PollTimeout,
	}
}

// SendText delivers text, split into several messages when it exceeds the limit.
func (b *Bot) SendText(ctx context.Context, chatID int64, text string) error {
	for _, part := range splitText(text, MaxMessageLength) {
		if _, err := b.api.Send(tgbotapi.NewMessage(chatID, part)); err != nil {
			return fmt.Errorf("telegram sendMessage: %w", err)
		}
	}
	return nil
}

func (b *Bot) SendTyping(ctx context.Context, chatID int64) error {
	if _, err := b.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		return fmt.Errorf("telegram sendChatAction: %w", err)
	}
	return nil
}

// Run long-polls updates and feeds them to h until ctx is cancelled.
func (b *Bot) Run(ctx context.Context, h Handler) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.pollTimeout
	updates := b.api.GetUpdatesChan(u)

	b.log.Infow("telegram bot started", "concurrency", b.concurrency)
	err := b.serve(ctx, updates, h)
	b.api.StopReceivingUpdates()
	return err
}

// serve dispatches updates to a fixed pool of workers. Handler calls are detached
// from ctx so a turn in progress at shutdown still finishes.
func (b *Bot) serve(ctx context.Context, updates <-chan tgbotapi.Update, h Handler) error {
	jobs := make(chan tgbotapi.Update, b.concurrency*2)
	workCtx := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	wg.Add(b.concurrency)
	for i := 0; i < b.concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for upd := range jobs {
				b.dispatch(workCtx, h, upd, workerID)
			}
		}(i)
	}

	stop := func() {
		close(jobs)
		wg.Wait()
	}

	for {
		select {
		case <-ctx.Done():
			b.log.Infow("telegram bot shutting down")
			stop()
			return nil

		case upd, ok := <-updates:
			if !ok {
				stop()
				return errors.New("telegram: update channel closed")
			}
			select {
			case jobs <- upd:
			case <-ctx.Done():
				b.log.Infow("telegram bot shutting down, update dropped", "update_id", upd.UpdateID)
				stop()
				return nil
			}
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, h Handler, upd tgbotapi.Update, workerID int) {
	r := route(upd)
	if r.kind == routeIgnore {
		return
	}

	log := b.log.With(
		"req_id", ulid.Make().String(),
		"update_id", upd.UpdateID,
		"chat_id", r.chatID,
		"worker", workerID,
	)
	defer func() {
		if p := recover(); p != nil {
			log.Errorw("handler panicked", "panic", p)
		}
	}()

	start := time.Now()
	var err error
	switch r.kind {
	case routeStart:
		err = h.Start(ctx, r.chatID)
	case routeReset:
		err = h.Reset(ctx, r.chatID)
	case routeText:
		err = h.HandleText(ctx, r.chatID, r.text)
	}
	if err != nil {
		log.Errorw("failed to handle update", "route", r.kind.String(), "cost", time.Since(start), "err", err)
		return
	}
	log.Debugw("update handled", "route", r.kind.String(), "cost", time.Since(start))
}
