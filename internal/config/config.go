// ABOUTME: Configuration loading and parsing for relay-bot
// ABOUTME: YAML or TOML files with ${VAR} expansion, .env loading and environment overrides

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the complete relay-bot configuration
type Config struct {
	Telegram TelegramConfig `yaml:"telegram" toml:"telegram"`
	LLM      LLMConfig      `yaml:"llm" toml:"llm"`
	Database DatabaseConfig `yaml:"database" toml:"database"`
	Bot      BotConfig      `yaml:"bot" toml:"bot"`
	Server   ServerConfig   `yaml:"server" toml:"server"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
}

// TelegramConfig holds Bot API credentials and polling behaviour
type TelegramConfig struct {
	Token       string `yaml:"token" toml:"token" env:"TELEGRAM_BOT_TOKEN"`
	DropPending bool   `yaml:"drop_pending" toml:"drop_pending" env:"TELEGRAM_DROP_PENDING"`
	APIServer   string `yaml:"api_server" toml:"api_server" env:"TELEGRAM_API_SERVER"`

	PollTimeout    time.Duration `yaml:"-" toml:"-"`
	PollTimeoutRaw string        `yaml:"poll_timeout" toml:"poll_timeout" env:"TELEGRAM_POLL_TIMEOUT"`
}

// LLMConfig selects the language-model provider
type LLMConfig struct {
	Provider     string `yaml:"provider" toml:"provider" env:"LLM_PROVIDER"`
	AppID        string `yaml:"app_id" toml:"app_id" env:"QWEN_APP_ID"`
	APIKey       string `yaml:"api_key" toml:"api_key" env:"QWEN_API_KEY"`
	Model        string `yaml:"model" toml:"model" env:"LLM_MODEL"`
	BaseURL      string `yaml:"base_url" toml:"base_url" env:"LLM_BASE_URL"`
	SystemPrompt string `yaml:"system_prompt" toml:"system_prompt" env:"LLM_SYSTEM_PROMPT"`
	MaxTokens    int    `yaml:"max_tokens" toml:"max_tokens" env:"LLM_MAX_TOKENS"`

	Timeout    time.Duration `yaml:"-" toml:"-"`
	TimeoutRaw string        `yaml:"timeout" toml:"timeout" env:"LLM_TIMEOUT"`
}

// DatabaseConfig holds connection parameters for the relational store
type DatabaseConfig struct {
	Driver       string            `yaml:"driver" toml:"driver" env:"DATABASE_DRIVER"`
	Path         string            `yaml:"path" toml:"path" env:"DATABASE_PATH"` // sqlite only
	Host         string            `yaml:"host" toml:"host" env:"POSTGRES_HOST"`
	Port         int               `yaml:"port" toml:"port" env:"POSTGRES_PORT"`
	User         string            `yaml:"user" toml:"user" env:"POSTGRES_USER"`
	Password     string            `yaml:"password" toml:"password" env:"POSTGRES_PASSWORD"`
	Name         string            `yaml:"name" toml:"name" env:"POSTGRES_DB"`
	Params       map[string]string `yaml:"params" toml:"params" env:"DATABASE_PARAMS"`
	MaxIdleConns int               `yaml:"max_idle_conns" toml:"max_idle_conns" env:"DATABASE_MAX_IDLE_CONNS"`
}

// BotConfig holds dispatcher behaviour
type BotConfig struct {
	AdminIDs     []int64 `yaml:"admin_ids" toml:"admin_ids" env:"ADMIN_IDS" envSeparator:","`
	InviteLength int     `yaml:"invite_length" toml:"invite_length" env:"INVITE_LENGTH"`
	MaxChars     int     `yaml:"max_chars" toml:"max_chars" env:"CONTEXT_MAX_CHARS"`

	// MaxTurns caps the stored context; unset means DefaultMaxTurns, 0 means unbounded
	MaxTurns *int `yaml:"max_turns" toml:"max_turns" env:"CONTEXT_MAX_TURNS"`

	// GroupMentionRequired defaults to true: group messages need a command or an @mention
	GroupMentionRequired *bool `yaml:"group_mention_required" toml:"group_mention_required" env:"GROUP_MENTION_REQUIRED"`
}

// DefaultMaxTurns is the context cap used when bot.max_turns is not set
const DefaultMaxTurns = 50

// TurnLimit returns the configured context cap in messages, 0 for none
func (b BotConfig) TurnLimit() int {
	if b.MaxTurns == nil {
		return DefaultMaxTurns
	}
	return *b.MaxTurns
}

// MentionRequired reports whether group chatter must address the bot
func (b BotConfig) MentionRequired() bool {
	return b.GroupMentionRequired == nil || *b.GroupMentionRequired
}

// ServerConfig holds the optional health endpoint address
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" toml:"http_addr" env:"HTTP_ADDR"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" toml:"format" env:"LOG_FORMAT"`
}

// Load builds a Config from, in increasing precedence: the file at path (skipped when
// path is empty), then process environment variables, including any loaded from ./.env.
// Environment variables in the format ${VAR_NAME} inside the file are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	// .env is optional; existing environment variables win over it
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		// Expand environment variables in the raw content
		expanded := expandEnvVars(string(data))

		if err := decode(path, expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	cfg.applyDefaults()

	// Parse duration fields
	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// decode picks the format from the file extension; anything but .toml is YAML.
func decode(path, content string, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		_, err := toml.Decode(content, cfg)
		return err
	default:
		return yaml.Unmarshal([]byte(content), cfg)
	}
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

func (c *Config) applyDefaults() {
	if c.LLM.Provider == "" {
		c.LLM.Provider = "dashscope"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.Telegram.PollTimeoutRaw == "" {
		c.Telegram.PollTimeoutRaw = "30s"
	}
	if c.Bot.InviteLength == 0 {
		c.Bot.InviteLength = 8
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram.token is required (TELEGRAM_BOT_TOKEN)")
	}

	if err := c.validateLLM(); err != nil {
		return err
	}

	if err := c.validateDatabase(); err != nil {
		return err
	}

	if c.Bot.InviteLength < 4 || c.Bot.InviteLength > 64 {
		return fmt.Errorf("bot.invite_length must be between 4 and 64, got %d", c.Bot.InviteLength)
	}
	if c.Bot.TurnLimit() < 0 || c.Bot.MaxChars < 0 {
		return fmt.Errorf("bot.max_turns and bot.max_chars must not be negative")
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

func (c *Config) validateLLM() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required (QWEN_API_KEY)")
	}

	switch c.LLM.Provider {
	case "dashscope":
		if c.LLM.AppID == "" {
			return fmt.Errorf("llm.app_id is required for dashscope (QWEN_APP_ID)")
		}
	case "openai", "anthropic", "gemini":
		if c.LLM.Model == "" {
			return fmt.Errorf("llm.model is required for %s", c.LLM.Provider)
		}
	default:
		return fmt.Errorf("llm.provider %q is not supported", c.LLM.Provider)
	}
	return nil
}

func (c *Config) validateDatabase() error {
	db := c.Database
	switch db.Driver {
	case "sqlite":
		if db.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	case "postgres", "mysql":
		missing := []string{}
		if db.Host == "" {
			missing = append(missing, "host")
		}
		if db.Port == 0 {
			missing = append(missing, "port")
		}
		if db.User == "" {
			missing = append(missing, "user")
		}
		if db.Password == "" {
			missing = append(missing, "password")
		}
		if db.Name == "" {
			missing = append(missing, "name")
		}
		if len(missing) > 0 {
			return fmt.Errorf("%s database requires %s", db.Driver, strings.Join(missing, ", "))
		}
	default:
		return fmt.Errorf("database.driver %q is not supported", db.Driver)
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Telegram.PollTimeoutRaw != "" {
		cfg.Telegram.PollTimeout, err = time.ParseDuration(cfg.Telegram.PollTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing poll_timeout %q: %w", cfg.Telegram.PollTimeoutRaw, err)
		}
	}

	if cfg.LLM.TimeoutRaw != "" {
		cfg.LLM.Timeout, err = time.ParseDuration(cfg.LLM.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing llm timeout %q: %w", cfg.LLM.TimeoutRaw, err)
		}
	}

	return nil
}
