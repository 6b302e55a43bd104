package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/crimengo/crimengo/internal/synth"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig   `yaml:"store" mapstructure:"store"`
	Feed      FeedConfig    `yaml:"feed" mapstructure:"feed"`
	Generator synth.Config  `yaml:"generator" mapstructure:"generator"`
	Hotspot   HotspotConfig `yaml:"hotspot" mapstructure:"hotspot"`
	Zones     ZonesConfig   `yaml:"zones" mapstructure:"zones"`
	Server    ServerConfig  `yaml:"server" mapstructure:"server"`
	Auth      AuthConfig    `yaml:"auth" mapstructure:"auth"`
	Log       LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// FeedConfig configures the city data portal client.
type FeedConfig struct {
	BaseURL             string  `yaml:"base_url" mapstructure:"base_url"`
	AppToken            string  `yaml:"app_token" mapstructure:"app_token"`
	Limit               int     `yaml:"limit" mapstructure:"limit"`
	RefreshIntervalSecs int     `yaml:"refresh_interval_secs" mapstructure:"refresh_interval_secs"`
	RateLimit           float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// RefreshInterval returns the cache refresh interval as a duration.
func (f FeedConfig) RefreshInterval() time.Duration {
	return time.Duration(f.RefreshIntervalSecs) * time.Second
}

// HotspotConfig configures hotspot aggregation.
type HotspotConfig struct {
	Threshold int `yaml:"threshold" mapstructure:"threshold"`
	BinSize   int `yaml:"bin_size" mapstructure:"bin_size"`
}

// ZonesConfig configures zone boundary loading.
type ZonesConfig struct {
	SeedFile string `yaml:"seed_file" mapstructure:"seed_file"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// AuthConfig configures admin authentication.
type AuthConfig struct {
	JWTSecret     string `yaml:"jwt_secret" mapstructure:"jwt_secret"`
	TokenTTLHours int    `yaml:"token_ttl_hours" mapstructure:"token_ttl_hours"`
}

// TokenTTL returns the token lifetime as a duration.
func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.TokenTTLHours) * time.Hour
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CRIMENGO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "crimengo.db")
	v.SetDefault("feed.base_url", "https://data.cityofchicago.org/resource/ijzp-q8t2.json")
	v.SetDefault("feed.limit", 1000)
	v.SetDefault("feed.refresh_interval_secs", 300)
	v.SetDefault("feed.rate_limit", 2.0)
	v.SetDefault("hotspot.threshold", 30)
	v.SetDefault("hotspot.bin_size", 2)
	v.SetDefault("zones.seed_file", "zones.yaml")
	v.SetDefault("server.port", 8080)
	v.SetDefault("auth.token_ttl_hours", 24)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	// Generator tables are too structured for flat defaults, so fall back
	// to the built-in Arequipa tables when the file defines none.
	if len(cfg.Generator.Categories) == 0 {
		cfg.Generator = synth.DefaultConfig()
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
