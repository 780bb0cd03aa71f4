package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/slipstream/providercheck/internal/indexer/genericrss"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config holds all application configuration.
type Config struct {
	Cassettes   CassetteConfig    `mapstructure:"cassettes"`
	Definitions DefinitionsConfig `mapstructure:"definitions"`
	Feeds       []genericrss.Feed `mapstructure:"feeds"`
	Overrides   OverridesConfig   `mapstructure:"overrides"`
	TLS         TLSConfig         `mapstructure:"tls"`
	Run         RunConfig         `mapstructure:"run"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Watch       WatchConfig       `mapstructure:"watch"`
}

// CassetteConfig holds recorded fixture settings.
type CassetteConfig struct {
	Dir  string `mapstructure:"dir"`
	Mode string `mapstructure:"mode"` // "new-episodes" or "replay-only"
}

// DefinitionsConfig points at cardigann definition files.
type DefinitionsConfig struct {
	Dir string `mapstructure:"dir"`
}

// OverridesConfig points at an optional override file merged over the built-in tables.
type OverridesConfig struct {
	File string `mapstructure:"file"`
}

// TLSConfig holds certificate verification settings.
type TLSConfig struct {
	Verify              bool     `mapstructure:"verify"`
	BrokenCertAllowlist []string `mapstructure:"broken_cert_allowlist"`
}

// RunConfig holds run defaults that flags can override.
type RunConfig struct {
	Enabled []string `mapstructure:"enabled"`
	Format  string   `mapstructure:"format"` // "table" or "json"
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// MetricsConfig holds the Prometheus textfile export path. Empty disables export.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// WatchConfig holds the periodic run schedule.
type WatchConfig struct {
	Cron string `mapstructure:"cron"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Cassettes:   CassetteConfig{Dir: "./cassettes", Mode: "new-episodes"},
		Definitions: DefinitionsConfig{Dir: "./definitions"},
		TLS:         TLSConfig{BrokenCertAllowlist: []string{"ilcorsaronero"}},
		Run:         RunConfig{Format: "table"},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},
		Watch: WatchConfig{Cron: "0 */6 * * *"},
	}
}

// Load reads configuration from file and environment variables.
// Priority: environment variables > .env file > config file > defaults
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.providercheck")
	}

	v.SetEnvPrefix("PROVIDERCHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that cannot be caught at unmarshal time.
func (c *Config) Validate() error {
	switch c.Cassettes.Mode {
	case "new-episodes", "replay-only":
	default:
		return fmt.Errorf("invalid cassettes.mode %q: must be new-episodes or replay-only", c.Cassettes.Mode)
	}
	switch c.Run.Format {
	case "table", "json":
	default:
		return fmt.Errorf("invalid run.format %q: must be table or json", c.Run.Format)
	}
	seen := make(map[string]bool, len(c.Feeds))
	for i, f := range c.Feeds {
		if f.ID == "" || f.URL == "" {
			return fmt.Errorf("feeds[%d]: id and url are required", i)
		}
		if seen[f.ID] {
			return fmt.Errorf("feeds[%d]: duplicate id %q", i, f.ID)
		}
		seen[f.ID] = true
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("cassettes.dir", d.Cassettes.Dir)
	v.SetDefault("cassettes.mode", d.Cassettes.Mode)
	v.SetDefault("definitions.dir", d.Definitions.Dir)
	v.SetDefault("overrides.file", "")

	v.SetDefault("tls.verify", d.TLS.Verify)
	v.SetDefault("tls.broken_cert_allowlist", d.TLS.BrokenCertAllowlist)

	v.SetDefault("run.enabled", []string{})
	v.SetDefault("run.format", d.Run.Format)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.max_size_mb", d.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", d.Logging.MaxBackups)
	v.SetDefault("logging.max_age_days", d.Logging.MaxAgeDays)
	v.SetDefault("logging.compress", d.Logging.Compress)

	v.SetDefault("metrics.textfile", "")
	v.SetDefault("watch.cron", d.Watch.Cron)
}
