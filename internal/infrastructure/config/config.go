package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port        string        `env:"PORT,         default=8080"`
	Env         string        `env:"ENV,          default=development"`
	LogLevel    string        `env:"LOG_LEVEL,    default=info"`
	JWTSecret   string        `env:"JWT_SECRET,   required"`
	TokenTTL    time.Duration `env:"TOKEN_TTL,    default=168h"`
	FrontendURL string        `env:"FRONTEND_URL, default=http://localhost:3000"`

	Mongo  MongoConfig
	Redis  RedisConfig
	Google GoogleConfig
	Stripe StripeConfig
	Notify NotifyConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=settleup"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

type GoogleConfig struct {
	ClientID      string `env:"GOOGLE_CLIENT_ID"`
	ClientSecret  string `env:"GOOGLE_CLIENT_SECRET"`
	CallbackURL   string `env:"GOOGLE_CALLBACK_URL, default=http://localhost:8080/auth/google/callback"`
	SessionSecret string `env:"SESSION_SECRET"`
}

type StripeConfig struct {
	SecretKey     string        `env:"STRIPE_SECRET_KEY"`
	WebhookSecret string        `env:"STRIPE_WEBHOOK_SECRET"`
	DedupTTL      time.Duration `env:"WEBHOOK_DEDUP_TTL, default=24h"`
}

type NotifyConfig struct {
	Workers           int `env:"NOTIFY_WORKERS,     default=8"`
	WorkerConcurrency int `env:"WORKER_CONCURRENCY, default=5"`
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if cfg.Google.ClientID != "" && cfg.Google.SessionSecret == "" {
		cfg.Google.SessionSecret = cfg.JWTSecret
	}
	return &cfg, nil
}
