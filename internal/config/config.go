// Package config provides configuration loading and validation for the
// range-executor pipeline.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Run       RunConfig       `mapstructure:"run"`
	CexDex    CexDexConfig    `mapstructure:"cex_dex"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// RunConfig is the range executor's run surface: which blocks to process,
// which quote asset to price everything in, and which inspectors/exchanges
// to run.
type RunConfig struct {
	StartBlock   uint64   `mapstructure:"start_block"`
	EndBlock     uint64   `mapstructure:"end_block"`
	QuoteAsset   string   `mapstructure:"quote_asset"` // e.g. "USDT"
	Inspectors   []string `mapstructure:"inspectors"`  // "atomic_arb", "cex_dex"
	CexExchanges []string `mapstructure:"cex_exchanges"`
	WorkBudget   int      `mapstructure:"work_budget"` // poll-loop iteration budget, §5
	Workers      int      `mapstructure:"workers"`     // inspector fan-out worker count
}

// CexDexConfig parameterizes the time-window VWAP pricer.
type CexDexConfig struct {
	TimeWindowBeforeUs int64 `mapstructure:"time_window_before_us"`
	TimeWindowAfterUs  int64 `mapstructure:"time_window_after_us"`
	MaxExpansions      int   `mapstructure:"max_expansions"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// DBPath, BrontesDBPath and RethEndpoint are the three locator env vars the
// core reads but does not interpret — they name where the external KV store
// and trace source live; the collaborators behind them are out of scope here.
func DBPath() string       { return os.Getenv("DB_PATH") }
func BrontesDBPath() string { return os.Getenv("BRONTES_DB_PATH") }
func RethEndpoint() string {
	if v := os.Getenv("RETH_ENDPOINT"); v != "" {
		return v
	}
	host := os.Getenv("RETH_HOST")
	port := os.Getenv("RETH_PORT")
	if host == "" && port == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s", host, port)
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("BRONTES")
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	v.BindEnv("app.name", "BRONTES_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "BRONTES_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "BRONTES_LOG_LEVEL", "LOG_LEVEL")

	v.BindEnv("run.start_block", "BRONTES_START_BLOCK")
	v.BindEnv("run.end_block", "BRONTES_END_BLOCK")
	v.BindEnv("run.quote_asset", "BRONTES_QUOTE_ASSET")
	v.BindEnv("run.inspectors", "BRONTES_INSPECTORS")
	v.BindEnv("run.cex_exchanges", "BRONTES_CEX_EXCHANGES")

	v.BindEnv("cex_dex.time_window_before_us", "BRONTES_WINDOW_BEFORE_US")
	v.BindEnv("cex_dex.time_window_after_us", "BRONTES_WINDOW_AFTER_US")

	v.BindEnv("telemetry.enabled", "BRONTES_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "BRONTES_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "BRONTES_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "brontes")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("run.quote_asset", "USDT")
	v.SetDefault("run.inspectors", []string{"atomic_arb", "cex_dex"})
	v.SetDefault("run.cex_exchanges", []string{"binance"})
	v.SetDefault("run.work_budget", 256)
	v.SetDefault("run.workers", 4)

	v.SetDefault("cex_dex.time_window_before_us", int64(50_000))
	v.SetDefault("cex_dex.time_window_after_us", int64(50_000))
	v.SetDefault("cex_dex.max_expansions", 10)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "brontes")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Run.EndBlock != 0 && c.Run.StartBlock > c.Run.EndBlock {
		return fmt.Errorf("run.start_block (%d) must be <= run.end_block (%d)", c.Run.StartBlock, c.Run.EndBlock)
	}
	if c.Run.QuoteAsset == "" {
		return fmt.Errorf("run.quote_asset cannot be empty")
	}
	if len(c.Run.Inspectors) == 0 {
		return fmt.Errorf("run.inspectors cannot be empty")
	}
	if c.Run.WorkBudget <= 0 {
		return fmt.Errorf("run.work_budget must be positive")
	}
	if c.Run.Workers <= 0 {
		return fmt.Errorf("run.workers must be positive")
	}
	return nil
}
