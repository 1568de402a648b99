package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/suPer8Hu/tg-gpt-bridge/internal/ai"
	"github.com/suPer8Hu/tg-gpt-bridge/internal/chat"
	"github.com/suPer8Hu/tg-gpt-bridge/internal/config"
	"github.com/suPer8Hu/tg-gpt-bridge/internal/httpapi"
	"github.com/suPer8Hu/tg-gpt-bridge/internal/logging"
	"github.com/suPer8Hu/tg-gpt-bridge/internal/telegram"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:   "tg-gpt-bridge",
		Usage:  "Telegram bot that answers messages with a language model",
		Action: runBot,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "poll Telegram and answer messages (default)",
				Action: runBot,
			},
			{
				Name:   "migrate",
				Usage:  "create the chat_history table and exit",
				Action: migrate,
			},
			{
				Name:  "env",
				Usage: "list the recognised environment variables",
				Action: func(*cli.Context) error {
					return config.Usage()
				},
			},
		},
	}
}

func setup(load func() (config.Config, error)) (config.Config, *zap.SugaredLogger, error) {
	cfg, err := load()
	if err != nil {
		return config.Config{}, nil, err
	}
	log, err := logging.New(cfg.LogLevel, cfg.Develop)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, log, nil
}

func migrate(c *cli.Context) error {
	cfg, log, err := setup(config.LoadStorage)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	_, closeStore, err := openStore(c.Context, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	log.Infow("history storage ready", "backend", cfg.HistoryBackend)
	return nil
}

func runBot(c *cli.Context) error {
	cfg, log, err := setup(config.Load)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Errorw("history storage unavailable", "err", err)
		return err
	}
	defer closeStore()

	reg := buildRegistry(cfg)
	provider, err := reg.Get(ctx, cfg.AIProvider, "")
	if err != nil {
		log.Errorw("ai provider unavailable", "provider", cfg.AIProvider, "known", reg.Names(), "err", err)
		return err
	}
	client := ai.NewClient(provider, log.Named("ai"))

	bot, err := telegram.New(telegram.Options{
		Token:       cfg.TelegramToken,
		Concurrency: cfg.WorkerConcurrency,
	}, log.Named("telegram"))
	if err != nil {
		log.Errorw("telegram login failed", "err", err)
		return err
	}

	svc := chat.NewService(st.store, client, bot, log.Named("chat"))

	if cfg.HTTPListen != "" {
		srv := &http.Server{
			Addr:              cfg.HTTPListen,
			Handler:           httpapi.NewRouter(st.store, st.health, log.Named("http")),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Infow("ops http listening", "addr", cfg.HTTPListen)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorw("ops http stopped", "err", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	log.Infow("bot starting",
		"provider", cfg.AIProvider,
		"history_backend", cfg.HistoryBackend,
		"workers", cfg.WorkerConcurrency,
	)
	if err := bot.Run(ctx, svc); err != nil {
		log.Errorw("bot stopped", "err", err)
		return err
	}
	log.Infow("bot stopped")
	return nil
}
