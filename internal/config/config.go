package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "HOSPITALITY"

type Config struct {
	AppName       string              `mapstructure:"app_name"`
	AppVersion    string              `mapstructure:"app_version"`
	Environment   string              `mapstructure:"environment"`
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Rewards       RewardsConfig       `mapstructure:"rewards"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Bootstrap     BootstrapConfig     `mapstructure:"bootstrap"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	// RefreshRateLimit caps manual refreshes per client within RefreshRateWindow.
	RefreshRateLimit  int           `mapstructure:"refresh_rate_limit"`
	RefreshRateWindow time.Duration `mapstructure:"refresh_rate_window"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// RewardsConfig is the guest reward policy.
type RewardsConfig struct {
	LoyaltyThreshold int     `mapstructure:"loyalty_threshold"`
	LoyaltyRate      float64 `mapstructure:"loyalty_rate"`
	PromotionValue   float64 `mapstructure:"promotion_value"`
	WindowDays       int     `mapstructure:"window_days"`
	Workers          int     `mapstructure:"workers"`
	// RefreshInterval drives the background refresher; zero disables it.
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	// ResultTTL marks the latest evaluation stale; zero never expires it.
	ResultTTL time.Duration `mapstructure:"result_ttl"`
}

type ObservabilityConfig struct {
	LogLevel         string  `mapstructure:"log_level"`
	MetricsEnabled   bool    `mapstructure:"metrics_enabled"`
	TracingEnabled   bool    `mapstructure:"tracing_enabled"`
	ExporterEndpoint string  `mapstructure:"exporter_endpoint"`
	ExporterProtocol string  `mapstructure:"exporter_protocol"`
	SamplingRatio    float64 `mapstructure:"sampling_ratio"`
}

type BootstrapConfig struct {
	SeedPromotions bool `mapstructure:"seed_promotions"`
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

var defaults = map[string]any{
	"app_name":                        "hospitality",
	"app_version":                     "dev",
	"environment":                     "development",
	"server.port":                     "8080",
	"server.refresh_rate_limit":       6,
	"server.refresh_rate_window":      time.Minute,
	"database.driver":                 "sqlite",
	"database.dsn":                    "file:hospitality.db?cache=shared",
	"rewards.loyalty_threshold":       3,
	"rewards.loyalty_rate":            0.05,
	"rewards.promotion_value":         10.0,
	"rewards.window_days":             30,
	"rewards.workers":                 4,
	"rewards.refresh_interval":        5 * time.Minute,
	"rewards.result_ttl":              10 * time.Minute,
	"observability.log_level":         "info",
	"observability.metrics_enabled":   true,
	"observability.tracing_enabled":   false,
	"observability.exporter_endpoint": "",
	"observability.exporter_protocol": "grpc",
	"observability.sampling_ratio":    0.1,
	"bootstrap.seed_promotions":       false,
}

// Load reads configuration from an optional config file and the environment.
// Environment variables use the HOSPITALITY_ prefix with dots replaced by
// underscores, e.g. HOSPITALITY_REWARDS_WINDOW_DAYS.
func Load() (Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, err
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.validate()
}

var (
	ErrInvalidDatabaseDriver = errors.New("invalid_database_driver")
	ErrInvalidLoyaltyRate    = errors.New("invalid_loyalty_rate")
	ErrInvalidPromotionValue = errors.New("invalid_promotion_value")
	ErrInvalidWindowDays     = errors.New("invalid_window_days")
)

func (c Config) validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Database.Driver)) {
	case "sqlite", "postgres":
	default:
		return ErrInvalidDatabaseDriver
	}
	if c.Rewards.LoyaltyRate < 0 || c.Rewards.LoyaltyRate > 1 {
		return ErrInvalidLoyaltyRate
	}
	if c.Rewards.PromotionValue < 0 {
		return ErrInvalidPromotionValue
	}
	if c.Rewards.WindowDays <= 0 {
		return ErrInvalidWindowDays
	}
	return nil
}
