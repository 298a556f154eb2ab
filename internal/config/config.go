package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

type Config struct {
	Env      string         `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTPConfig     `yaml:"http"`
	Storage  StorageConfig  `yaml:"storage"`
	Redis    RedisConfig    `yaml:"redis"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Session  SessionConfig  `yaml:"session"`
	Sealer   SealerConfig   `yaml:"sealer"`
	GitHub   GitHubConfig   `yaml:"github"`
	Telegram TelegramConfig `yaml:"telegram"`
	Relay    RelayConfig    `yaml:"relay"`
}

type HTTPConfig struct {
	Port            int           `yaml:"port" env:"PORT" env-default:"5000"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env-default:"5s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env-default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env-default:"10s"`
}

// StorageConfig selects the durable store. Driver is "postgres" or "memory".
type StorageConfig struct {
	Driver  string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"postgres"`
	URL     string `yaml:"url" env:"DATABASE_URL"`
	Migrate bool   `yaml:"migrate" env:"STORAGE_MIGRATE" env-default:"true"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// LedgerConfig controls the authorization challenge ledger.
// Backend is "storage" (same store as credentials) or "redis".
type LedgerConfig struct {
	Backend       string        `yaml:"backend" env:"LEDGER_BACKEND" env-default:"storage"`
	TTL           time.Duration `yaml:"ttl" env:"LEDGER_TTL" env-default:"10m"`
	PurgeInterval time.Duration `yaml:"purge_interval" env:"LEDGER_PURGE_INTERVAL" env-default:"5m"`
}

// SessionConfig controls pending chat sessions. Backend is "redis" or "memory".
type SessionConfig struct {
	Backend string        `yaml:"backend" env:"SESSION_BACKEND" env-default:"memory"`
	TTL     time.Duration `yaml:"ttl" env:"SESSION_TTL" env-default:"15m"`
}

// SealerConfig selects how provider access tokens are stored at rest.
// Kind is "plain", "secretbox" or "vault".
type SealerConfig struct {
	Kind       string `yaml:"kind" env:"SEALER_KIND" env-default:"plain"`
	Key        string `yaml:"key" env:"SEALER_KEY"`
	VaultAddr  string `yaml:"vault_addr" env:"VAULT_ADDR"`
	VaultToken string `yaml:"vault_token" env:"VAULT_TOKEN"`
	TransitKey string `yaml:"transit_key" env:"VAULT_TRANSIT_KEY" env-default:"ghbridge"`
}

type GitHubConfig struct {
	ClientID     string        `yaml:"client_id" env:"GITHUB_OAUTH_CLIENT_ID"`
	ClientSecret string        `yaml:"client_secret" env:"GITHUB_OAUTH_CLIENT_SECRET"`
	RedirectURL  string        `yaml:"redirect_url" env:"OAUTH_REDIRECT_URI"`
	Org          string        `yaml:"org" env:"AUTH_ORG"`
	Team         string        `yaml:"team" env:"AUTH_TEAM_SLUG"`
	Token        string        `yaml:"token" env:"GITHUB_TOKEN"`
	Repo         string        `yaml:"repo" env:"REPO_NAME"`
	Timeout      time.Duration `yaml:"timeout" env:"GITHUB_TIMEOUT" env-default:"10s"`
}

type TelegramConfig struct {
	Token       string        `yaml:"token" env:"TELEGRAM_BOT_TOKEN"`
	APIEndpoint string        `yaml:"api_endpoint" env:"TELEGRAM_API_ENDPOINT"`
	Timeout     time.Duration `yaml:"timeout" env:"TELEGRAM_TIMEOUT" env-default:"10s"`
}

// RelayConfig is shared by the relay (which checks the secret) and the bot
// (which presents it).
type RelayConfig struct {
	ServiceSecret string        `yaml:"service_secret" env:"OAUTH_SERVICE_SECRET"`
	BaseURL       string        `yaml:"base_url" env:"OAUTH_SERVER_BASE_URL"`
	Timeout       time.Duration `yaml:"timeout" env:"OAUTH_SERVER_TIMEOUT" env-default:"10s"`
}

// Load reads the config file at path, or the environment alone when path is
// empty. Environment variables override file values.
func Load(path string) (*Config, error) {
	const op = "config.Load"

	var cfg Config
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return &cfg, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: config path does not exist: %s", op, path)
	}
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

// MustLoad is Load that panics.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// ValidateRelay checks the fields the relay cannot start without.
func (c *Config) ValidateRelay() error {
	var errs []error
	require := func(v, name string) {
		if v == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
		}
	}
	require(c.GitHub.ClientID, "github.client_id")
	require(c.GitHub.ClientSecret, "github.client_secret")
	require(c.GitHub.RedirectURL, "github.redirect_url")
	require(c.Relay.ServiceSecret, "relay.service_secret")
	require(c.Telegram.Token, "telegram.token")
	if c.Storage.Driver == "postgres" {
		require(c.Storage.URL, "storage.url")
	}
	if c.Ledger.Backend == "redis" {
		require(c.Redis.Addr, "redis.addr")
	}
	return errors.Join(errs...)
}

// ValidateBot checks the fields the bot cannot start without.
func (c *Config) ValidateBot() error {
	var errs []error
	require := func(v, name string) {
		if v == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
		}
	}
	require(c.Telegram.Token, "telegram.token")
	require(c.GitHub.Token, "github.token")
	require(c.GitHub.Repo, "github.repo")
	require(c.Relay.BaseURL, "relay.base_url")
	require(c.Relay.ServiceSecret, "relay.service_secret")
	if c.Session.Backend == "redis" {
		require(c.Redis.Addr, "redis.addr")
	}
	return errors.Join(errs...)
}
