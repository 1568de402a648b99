package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"

	BackendSQL   = "sql"
	BackendRedis = "redis"

	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
	ProviderAnthropic = "anthropic"
)

type Config struct {
	TelegramToken string `envconfig:"TELEGRAM_BOT_TOKEN"`

	// AI provider
	AIProvider      string `envconfig:"AI_PROVIDER" default:"openai"`
	OpenAIAPIKey    string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL   string `envconfig:"OPENAI_BASE_URL" default:"https://api.chatanywhere.org/v1"`
	OpenAIModel     string `envconfig:"OPENAI_MODEL" default:"gpt-3.5-turbo"`
	OllamaBaseURL   string `envconfig:"OLLAMA_BASE_URL" default:"http://localhost:11434"`
	OllamaModel     string `envconfig:"OLLAMA_MODEL" default:"llama3:latest"`
	AnthropicAPIKey string `envconfig:"ANTHROPIC_API_KEY"`
	AnthropicModel  string `envconfig:"ANTHROPIC_MODEL" default:"claude-3-5-haiku-latest"`

	// database
	DBDriver   string `envconfig:"DB_DRIVER" default:"postgres"`
	PGHost     string `envconfig:"PG_HOST" default:"localhost"`
	PGPort     string `envconfig:"PG_PORT" default:"5432"`
	PGDatabase string `envconfig:"PG_CBDATABASE"`
	PGUser     string `envconfig:"PG_CBUSER"`
	PGPassword string `envconfig:"PG_CBPASSWORD"`
	DBDSN      string `envconfig:"DB_DSN"`
	DBMaxConns int    `envconfig:"DB_MAX_CONNS" default:"10"`
	DBMinConns int    `envconfig:"DB_MIN_CONNS" default:"1"`

	HistoryBackend string `envconfig:"HISTORY_BACKEND" default:"sql"`
	RedisURI       string `envconfig:"REDIS_URI" default:"redis://localhost:6379/0"`

	WorkerConcurrency int `envconfig:"WORKER_CONCURRENCY" default:"4"`

	// A port without a host binds loopback; the history endpoint has no auth.
	HTTPListen string `envconfig:"HTTP_LISTEN" desc:"ops HTTP address (empty disables it); chat history is served without auth, so :PORT binds 127.0.0.1"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Develop  bool   `envconfig:"DEVELOP"`
}

// Load reads the environment and validates everything the bot needs.
func Load() (Config, error) {
	return load(Config.Validate)
}

// LoadStorage validates only the history backend settings, for commands that
// never talk to Telegram or a model.
func LoadStorage() (Config, error) {
	return load(Config.ValidateStorage)
}

func load(validate func(Config) error) (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.normalize()
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Usage prints the recognised environment variables.
func Usage() error {
	var cfg Config
	return envconfig.Usage("", &cfg)
}

func (c *Config) normalize() {
	c.AIProvider = strings.ToLower(strings.TrimSpace(c.AIProvider))
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	c.HistoryBackend = strings.ToLower(strings.TrimSpace(c.HistoryBackend))

	if c.DBMaxConns <= 0 {
		c.DBMaxConns = 10
	}
	if c.DBMinConns <= 0 {
		c.DBMinConns = 1
	}
	if c.DBMinConns > c.DBMaxConns {
		c.DBMinConns = c.DBMaxConns
	}
	if c.WorkerConcurrency <= 0 {
		c.WorkerConcurrency = 4
	}
	if c.WorkerConcurrency > 50 {
		c.WorkerConcurrency = 50
	}
	c.HTTPListen = strings.TrimSpace(c.HTTPListen)
	if strings.HasPrefix(c.HTTPListen, ":") {
		c.HTTPListen = "127.0.0.1" + c.HTTPListen
	}
}

// Validate checks that every required variable is present.
func (c Config) Validate() error {
	var errs []string

	if c.TelegramToken == "" {
		errs = append(errs, "TELEGRAM_BOT_TOKEN is required")
	}

	switch c.AIProvider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			errs = append(errs, "OPENAI_API_KEY is required")
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			errs = append(errs, "ANTHROPIC_API_KEY is required")
		}
	case ProviderOllama:
	default:
		errs = append(errs, fmt.Sprintf("unsupported AI_PROVIDER %q", c.AIProvider))
	}

	errs = append(errs, c.storageErrors()...)
	return joinErrors(errs)
}

// ValidateStorage checks only the history backend settings.
func (c Config) ValidateStorage() error {
	return joinErrors(c.storageErrors())
}

func (c Config) storageErrors() []string {
	switch c.HistoryBackend {
	case BackendSQL:
		return c.validateDB()
	case BackendRedis:
		if c.RedisURI == "" {
			return []string{"REDIS_URI is required for the redis history backend"}
		}
		return nil
	default:
		return []string{fmt.Sprintf("unsupported HISTORY_BACKEND %q", c.HistoryBackend)}
	}
}

func joinErrors(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return errors.New("configuration errors:\n  - " + strings.Join(errs, "\n  - "))
}

func (c Config) validateDB() []string {
	var errs []string
	switch c.DBDriver {
	case DriverPostgres:
		if c.DBDSN == "" && (c.PGDatabase == "" || c.PGUser == "" || c.PGPassword == "") {
			errs = append(errs, "PG_CBDATABASE, PG_CBUSER and PG_CBPASSWORD are required")
		}
	case DriverMySQL, DriverSQLite:
		if c.DBDSN == "" {
			errs = append(errs, fmt.Sprintf("DB_DSN is required for DB_DRIVER=%s", c.DBDriver))
		}
	default:
		errs = append(errs, fmt.Sprintf("unsupported DB_DRIVER %q", c.DBDriver))
	}
	return errs
}

// DSN returns the connection string for the configured driver.
func (c Config) DSN() string {
	if c.DBDSN != "" || c.DBDriver != DriverPostgres {
		return c.DBDSN
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.PGUser, c.PGPassword),
		Host:     net.JoinHostPort(c.PGHost, c.PGPort),
		Path:     "/" + c.PGDatabase,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}
