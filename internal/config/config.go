// Package config loads the typed application configuration from viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Veraticus/the-receipts-must-flow/internal/assign"
	"github.com/Veraticus/the-receipts-must-flow/internal/common"
	"github.com/Veraticus/the-receipts-must-flow/internal/policy"
)

// EnvPrefix prefixes every environment override, e.g. RECEIPTS_DATABASE_PATH.
const EnvPrefix = "RECEIPTS"

// Config is the full application configuration.
type Config struct {
	Database DatabaseConfig    `mapstructure:"database"`
	Logging  LoggingConfig     `mapstructure:"logging"`
	Metrics  MetricsConfig     `mapstructure:"metrics"`
	User     UserConfig        `mapstructure:"user"`
	Bulk     assign.BulkConfig `mapstructure:"bulk"`
	Policy   policy.Thresholds `mapstructure:"policy"`
	Suggest  SuggestConfig     `mapstructure:"suggest"`
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig selects the slog level and handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console or json
}

// MetricsConfig controls the Prometheus endpoint. An empty Listen disables it.
type MetricsConfig struct {
	Listen string `mapstructure:"listen"`
}

// UserConfig names the user the CLI acts for.
type UserConfig struct {
	ID string `mapstructure:"id"`
}

// SuggestConfig tunes suggestion scoring.
type SuggestConfig struct {
	Workers int `mapstructure:"workers"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", DefaultDatabasePath())
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("metrics.listen", "")
	v.SetDefault("user.id", "local")
	v.SetDefault("suggest.workers", 4)

	bulk := assign.DefaultBulkConfig()
	v.SetDefault("bulk.chunk_size", bulk.ChunkSize)
	v.SetDefault("bulk.workers", bulk.Workers)
	v.SetDefault("bulk.rate_per_second", bulk.RatePerSecond)

	t := policy.Defaults()
	v.SetDefault("policy.historical_inclusion", t.HistoricalInclusion)
	v.SetDefault("policy.draft_resuggest", t.DraftResuggest)
	v.SetDefault("policy.review_trigger", t.ReviewTrigger)
	v.SetDefault("policy.historical_cap", t.HistoricalCap)
	v.SetDefault("policy.rule_confidence", t.RuleConfidence)
	v.SetDefault("policy.historical_dampening", t.HistoricalDampening)
	v.SetDefault("policy.historical_reinforcement", t.HistoricalReinforcement)
	v.SetDefault("policy.user_confidence", t.UserConfidence)
	v.SetDefault("policy.history_limit", t.HistoryLimit)
	v.SetDefault("policy.max_suggestions", t.MaxSuggestions)
}

// ConfigureEnv makes RECEIPTS_* environment variables override config keys.
func ConfigureEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// LoadDotEnv loads KEY=value pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if err := godotenv.Load(ExpandPath(path)); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// ReadFile reads the config file v was pointed at. A missing file is not an
// error; defaults and the environment still apply.
func ReadFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidConfig, err)
	}
	cfg.Database.Path = ExpandPath(cfg.Database.Path)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects unusable settings.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("%w: database.path is empty", common.ErrInvalidConfig)
	}
	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: log format %q", common.ErrInvalidConfig, c.Logging.Format)
	}
	if strings.TrimSpace(c.User.ID) == "" {
		return fmt.Errorf("%w: user.id is empty", common.ErrInvalidConfig)
	}
	if c.Suggest.Workers <= 0 {
		return fmt.Errorf("%w: suggest.workers must be positive", common.ErrInvalidConfig)
	}
	if c.Bulk.ChunkSize <= 0 || c.Bulk.Workers <= 0 || c.Bulk.RatePerSecond <= 0 {
		return fmt.Errorf("%w: bulk settings must be positive", common.ErrInvalidConfig)
	}
	if err := c.Policy.Validate(); err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidConfig, err)
	}
	return nil
}
