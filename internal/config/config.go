// Package config loads runtime configuration from an optional YAML file,
// a .env file and environment variables, in increasing precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Defaults applied when neither file nor environment sets a value.
const (
	DefaultCatalogDir     = "commands"
	DefaultStoreBackend   = "memory"
	DefaultStatePath      = ".parley/state.json"
	DefaultRedisAddr      = "localhost:6379"
	DefaultListenAddr     = ":8432"
	DefaultGatewayTimeout = 10 * time.Second
	DefaultWhisperTimeout = 30 * time.Second
	DefaultMatchThreshold = 0.80
	DefaultRetryLimit     = 3
	DefaultLogLevel       = "info"
)

// Config is the full runtime configuration.
type Config struct {
	// CatalogDir holds the command definition files.
	CatalogDir string `mapstructure:"catalog_dir"`

	// Store selects the persistence backend: memory, file or redis.
	Store StoreConfig `mapstructure:"store"`

	// Auth points at the external credential-validation endpoint.
	Auth AuthConfig `mapstructure:"auth"`

	// Gateway tunes outbound API calls.
	Gateway GatewayConfig `mapstructure:"gateway"`

	// Server tunes the HTTP surface.
	Server ServerConfig `mapstructure:"server"`

	// Whisper points at the transcription service; empty disables voice.
	Whisper WhisperConfig `mapstructure:"whisper"`

	// MatchThreshold is the inclusive fuzzy-match lower bound.
	MatchThreshold float64 `mapstructure:"match_threshold"`

	// RetryLimit bounds consecutive invalid answers per step.
	RetryLimit int `mapstructure:"retry_limit"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"log_level"`
}

// StoreConfig selects and tunes the persistence backend.
type StoreConfig struct {
	Backend string        `mapstructure:"backend"`
	Path    string        `mapstructure:"path"`
	Redis   RedisConfig   `mapstructure:"redis"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// RedisConfig tunes the redis backend.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig points at the credential-validation endpoint.
type AuthConfig struct {
	LoginURL string `mapstructure:"login_url"`
}

// GatewayConfig tunes outbound API calls.
type GatewayConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// ServerConfig tunes the HTTP surface.
type ServerConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// WhisperConfig points at the transcription service.
type WhisperConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Load reads configuration with PARLEY_-prefixed environment variables
// overriding file values. A missing config file is not an error; a
// malformed one is.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("PARLEY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults registered with viper so AutomaticEnv can bind the keys.
	v.SetDefault("catalog_dir", DefaultCatalogDir)
	v.SetDefault("store.backend", DefaultStoreBackend)
	v.SetDefault("store.path", DefaultStatePath)
	v.SetDefault("store.redis.addr", DefaultRedisAddr)
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.ttl", time.Duration(0))
	v.SetDefault("auth.login_url", "")
	v.SetDefault("gateway.timeout", DefaultGatewayTimeout)
	v.SetDefault("server.listen_addr", DefaultListenAddr)
	v.SetDefault("whisper.endpoint", "")
	v.SetDefault("whisper.timeout", DefaultWhisperTimeout)
	v.SetDefault("match_threshold", DefaultMatchThreshold)
	v.SetDefault("retry_limit", DefaultRetryLimit)
	v.SetDefault("log_level", DefaultLogLevel)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("parley")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate rejects values no backend can honor.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "memory", "file", "redis":
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Store.Backend == "file" && c.Store.Path == "" {
		return fmt.Errorf("store.path is required for the file backend")
	}
	if c.Store.Backend == "redis" && c.Store.Redis.Addr == "" {
		return fmt.Errorf("store.redis.addr is required for the redis backend")
	}
	if c.MatchThreshold <= 0 || c.MatchThreshold > 1 {
		return fmt.Errorf("match_threshold must be in (0, 1], got %v", c.MatchThreshold)
	}
	if c.RetryLimit < 1 {
		return fmt.Errorf("retry_limit must be at least 1, got %d", c.RetryLimit)
	}
	return nil
}
