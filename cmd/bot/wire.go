package main

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/suPer8Hu/tg-gpt-bridge/internal/ai"
	"github.com/suPer8Hu/tg-gpt-bridge/internal/config"
	"github.com/suPer8Hu/tg-gpt-bridge/internal/db"
	"github.com/suPer8Hu/tg-gpt-bridge/internal/history"
	"github.com/suPer8Hu/tg-gpt-bridge/internal/httpapi/handlers"
)

type storage struct {
	store  history.Store
	health handlers.HealthCheck
}

// openStore connects the configured history backend and prepares its schema.
// The returned func releases the connection.
func openStore(ctx context.Context, cfg config.Config, log *zap.SugaredLogger) (storage, func(), error) {
	switch cfg.HistoryBackend {
	case config.BackendRedis:
		rc, err := history.OpenRedis(ctx, cfg.RedisURI)
		if err != nil {
			return storage{}, nil, err
		}
		st := history.NewRedisStore(rc, log.Named("history"))
		closeFn := func() { _ = rc.Close() }
		return storage{
			store:  st,
			health: func(ctx context.Context) error { return rc.Ping(ctx).Err() },
		}, closeFn, nil

	default:
		pool := db.NewPool(db.Options{
			Driver:   cfg.DBDriver,
			DSN:      cfg.DSN(),
			MaxConns: cfg.DBMaxConns,
			MinConns: cfg.DBMinConns,
		}, log.Named("db"))
		if err := pool.Init(ctx); err != nil {
			return storage{}, nil, err
		}
		closeFn := func() {
			if err := pool.Close(); err != nil {
				log.Warnw("close connection pool", "err", err)
			}
		}

		st := history.NewSQLStore(pool, log.Named("history"))
		if err := st.EnsureSchema(ctx); err != nil {
			closeFn()
			return storage{}, nil, fmt.Errorf("ensure schema: %w", err)
		}
		return storage{store: st, health: pool.Ping}, closeFn, nil
	}
}

// buildRegistry registers every supported provider; the model argument
// overrides the configured default when non-empty.
func buildRegistry(cfg config.Config) *ai.Registry {
	reg := ai.NewRegistry()

	pick := func(model, fallback string) string {
		if m := strings.TrimSpace(model); m != "" {
			return m
		}
		return fallback
	}

	reg.Register(config.ProviderOpenAI, func(ctx context.Context, model string) (ai.Provider, error) {
		return ai.NewOpenAIProvider(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, pick(model, cfg.OpenAIModel)), nil
	})
	reg.Register(config.ProviderOllama, func(ctx context.Context, model string) (ai.Provider, error) {
		return ai.NewOllamaProvider(cfg.OllamaBaseURL, pick(model, cfg.OllamaModel)), nil
	})
	reg.Register(config.ProviderAnthropic, func(ctx context.Context, model string) (ai.Provider, error) {
		return ai.NewAnthropicProvider(cfg.AnthropicAPIKey, pick(model, cfg.AnthropicModel)), nil
	})
	return reg
}
