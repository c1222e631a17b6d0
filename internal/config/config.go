package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// ErrMissingCredentials is returned when no database password is configured.
var ErrMissingCredentials = errors.New("missing database credentials")

// DatabaseConfig holds ledger/feature-store connection settings.
type DatabaseConfig struct {
	Driver   string `yaml:"driver" default:"postgres" validate:"oneof=postgres sqlite"`
	Host     string `yaml:"host" default:"localhost"`
	Port     string `yaml:"port" default:"5432"`
	User     string `yaml:"user" default:"nba_user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name" default:"nba"`
	SSLMode  string `yaml:"sslmode" default:"disable"`
	// Path is the database file when Driver is sqlite.
	Path string `yaml:"path" default:"nba.db"`
}

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig `yaml:"database"`

	ModelDir       string `yaml:"model_dir" default:"models" validate:"required"`
	ModelVersion   string `yaml:"model_version" default:"v5_Adv" validate:"required"`
	ModelServerURL string `yaml:"model_server_url" validate:"omitempty,url"`
	RequestTimeout int    `yaml:"request_timeout" default:"30" validate:"gt=0"` // seconds

	InputZone    string `yaml:"input_zone" default:"AU" validate:"oneof=AU ET"`
	WorstN       int    `yaml:"worst_n" default:"3" validate:"gte=0"`
	BacktestDays int    `yaml:"backtest_days" default:"7" validate:"gt=0"`
	BackfillDays int    `yaml:"backfill_days" default:"60" validate:"gt=0"`
	EvaluateDays int    `yaml:"evaluate_days" default:"7" validate:"gt=0"`

	LogLevel  string `yaml:"log_level" default:"info"`
	LogFormat string `yaml:"log_format" default:"console" validate:"oneof=console json"`

	TelegramBotToken string `yaml:"telegram_bot_token"`
	TelegramChatID   int64  `yaml:"telegram_chat_id"`
	PushgatewayURL   string `yaml:"pushgateway_url" validate:"omitempty,url"`
}

// Load initializes configuration: struct defaults, then the optional YAML file named by
// PREDICTOR_CONFIG, then environment variables (a .env file is loaded first if present).
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg(".env file not found, relying on actual environment variables")
	}

	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	if path := os.Getenv("PREDICTOR_CONFIG"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Database.Driver = getEnvWithDefault("DB_DRIVER", cfg.Database.Driver)
	cfg.Database.Host = getEnvWithDefault("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnvWithDefault("DB_PORT", cfg.Database.Port)
	cfg.Database.User = getEnvWithDefault("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnvWithDefault("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.Name = getEnvWithDefault("DB_NAME", cfg.Database.Name)
	cfg.Database.SSLMode = getEnvWithDefault("DB_SSLMODE", cfg.Database.SSLMode)
	cfg.Database.Path = getEnvWithDefault("DB_PATH", cfg.Database.Path)

	cfg.ModelDir = getEnvWithDefault("MODEL_DIR", cfg.ModelDir)
	cfg.ModelVersion = getEnvWithDefault("MODEL_VERSION", cfg.ModelVersion)
	cfg.ModelServerURL = getEnvWithDefault("MODEL_SERVER_URL", cfg.ModelServerURL)
	cfg.RequestTimeout = getEnvIntWithDefault("REQUEST_TIMEOUT", cfg.RequestTimeout)

	cfg.InputZone = strings.ToUpper(getEnvWithDefault("INPUT_ZONE", cfg.InputZone))
	cfg.WorstN = getEnvIntWithDefault("WORST_N", cfg.WorstN)
	cfg.BacktestDays = getEnvIntWithDefault("BACKTEST_DAYS", cfg.BacktestDays)
	cfg.BackfillDays = getEnvIntWithDefault("BACKFILL_DAYS", cfg.BackfillDays)
	cfg.EvaluateDays = getEnvIntWithDefault("EVALUATE_DAYS", cfg.EvaluateDays)

	cfg.LogLevel = getEnvWithDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnvWithDefault("LOG_FORMAT", cfg.LogFormat)

	cfg.TelegramBotToken = getEnvWithDefault("TELEGRAM_BOT_TOKEN", cfg.TelegramBotToken)
	cfg.TelegramChatID = getEnvInt64WithDefault("TELEGRAM_CHAT_ID", cfg.TelegramChatID)
	cfg.PushgatewayURL = getEnvWithDefault("PUSHGATEWAY_URL", cfg.PushgatewayURL)
}

// Validate checks struct constraints and that database credentials are present.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	if c.Database.Driver == "postgres" && c.Database.Password == "" {
		return fmt.Errorf("%w: DB_PASSWORD is not set", ErrMissingCredentials)
	}
	return nil
}

// BackfillVersion is the model version tag used for backfilled ledger rows.
func (c *Config) BackfillVersion() string {
	return c.ModelVersion + "_backfill"
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64WithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
