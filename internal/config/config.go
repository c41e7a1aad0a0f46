package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// DefaultEnvFiles are tried in order when Load is called without paths.
var DefaultEnvFiles = []string{".env", ".env.client"}

// Config holds all application configuration
type Config struct {
	CMC    CMC    `yaml:"cmc"`
	Log    Log    `yaml:"log"`
	Server Server `yaml:"server"`
}

// CMC configures the CoinMarketCap client and the bridge
type CMC struct {
	// APIKey is used by entry points whose caller does not supply one.
	APIKey           string        `yaml:"api_key"`
	BaseURL          string        `yaml:"base_url" default:"https://pro-api.coinmarketcap.com" validate:"required,url"`
	Convert          string        `yaml:"convert" default:"USD" validate:"required,alpha"`
	RequestTimeout   time.Duration `yaml:"request_timeout" default:"15s" validate:"gt=0"`
	CallTimeout      time.Duration `yaml:"call_timeout" default:"30s" validate:"gt=0"`
	RequestsPerSec   int           `yaml:"requests_per_sec" default:"5" validate:"gte=1"`
	MaxRetries       int           `yaml:"max_retries" default:"2" validate:"gte=0,lte=10"`
	MaxRetryElapsed  time.Duration `yaml:"max_retry_elapsed" default:"10s" validate:"gt=0"`
	AllTimeframeDays int           `yaml:"all_timeframe_days" default:"1825" validate:"gt=365,lte=36500"`
	MaxPoints        int           `yaml:"max_points" default:"10000" validate:"gte=1"`

	// PricePollInterval paces the latest-listings poll behind the price update callback.
	PricePollInterval time.Duration `yaml:"price_poll_interval" default:"60s" validate:"gte=1s"`
}

// Log configures the global logger
type Log struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" default:"console" validate:"oneof=console json"`
	Output string `yaml:"output" default:"stderr" validate:"required"`
}

// Server configures the development HTTP server
type Server struct {
	Addr            string        `yaml:"addr" default:":8080" validate:"required"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s" validate:"gt=0"`
}

var validate = validator.New()

// Default returns the built-in configuration.
func Default() Config {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return cfg
}

// Load initializes configuration from defaults, an optional YAML file named by
// CMC_CONFIG_FILE, the given .env files and finally the environment.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = DefaultEnvFiles
	}
	for _, path := range envFiles {
		if err := godotenv.Load(path); err != nil {
			log.Debug().Str("path", path).Msg("env file not loaded, relying on actual environment variables")
		}
	}

	cfg := Default()

	if path := os.Getenv("CMC_CONFIG_FILE"); path != "" {
		if err := loadYAML(path, &cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(&cfg)

	cfg.CMC.Convert = strings.ToUpper(cfg.CMC.Convert)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadYAML(path string, cfg *Config) error {
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
	cfg.CMC.APIKey = getEnvWithDefault("CMC_API_KEY", cfg.CMC.APIKey)
	cfg.CMC.BaseURL = getEnvWithDefault("CMC_BASE_URL", cfg.CMC.BaseURL)
	cfg.CMC.Convert = getEnvWithDefault("CMC_CONVERT", cfg.CMC.Convert)
	cfg.CMC.RequestTimeout = getEnvDurationWithDefault("CMC_REQUEST_TIMEOUT", cfg.CMC.RequestTimeout)
	cfg.CMC.CallTimeout = getEnvDurationWithDefault("CMC_CALL_TIMEOUT", cfg.CMC.CallTimeout)
	cfg.CMC.RequestsPerSec = getEnvIntWithDefault("CMC_REQUESTS_PER_SEC", cfg.CMC.RequestsPerSec)
	cfg.CMC.MaxRetries = getEnvIntWithDefault("CMC_MAX_RETRIES", cfg.CMC.MaxRetries)
	cfg.CMC.MaxRetryElapsed = getEnvDurationWithDefault("CMC_MAX_RETRY_ELAPSED", cfg.CMC.MaxRetryElapsed)
	cfg.CMC.AllTimeframeDays = getEnvIntWithDefault("CMC_ALL_TIMEFRAME_DAYS", cfg.CMC.AllTimeframeDays)
	cfg.CMC.MaxPoints = getEnvIntWithDefault("CMC_MAX_POINTS", cfg.CMC.MaxPoints)
	cfg.CMC.PricePollInterval = getEnvDurationWithDefault("CMC_PRICE_POLL_INTERVAL", cfg.CMC.PricePollInterval)
	cfg.Log.Level = strings.ToLower(getEnvWithDefault("LOG_LEVEL", cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(getEnvWithDefault("LOG_FORMAT", cfg.Log.Format))
	cfg.Log.Output = getEnvWithDefault("LOG_OUTPUT", cfg.Log.Output)
	cfg.Server.Addr = getEnvWithDefault("SERVER_ADDR", cfg.Server.Addr)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (got %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("validate config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("validate config: %w", err)
	}
	return nil
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		log.Warn().Str("key", key).Msg("ignoring non-integer environment value")
	}
	return defaultValue
}

// getEnvDurationWithDefault accepts Go durations ("15s") or whole seconds ("15").
func getEnvDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	log.Warn().Str("key", key).Msg("ignoring invalid duration environment value")
	return defaultValue
}
