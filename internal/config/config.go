// Package config resolves process-wide settings once at startup.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Environment names
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Record store drivers
const (
	StorePocketBase = "pocketbase"
	StorePostgres   = "postgres"
)

// Config holds every setting the services need. Services receive values from
// here and never read the environment themselves.
type Config struct {
	Environment string `mapstructure:"environment"`
	AppURL      string `mapstructure:"app_url"`
	APIURL      string `mapstructure:"api_url"`
	LogLevel    string `mapstructure:"log_level"`

	// Record store
	PocketBaseURL      string `mapstructure:"pocketbase_url"`
	PocketBaseAdminURL string `mapstructure:"-"`
	PocketBaseToken    string `mapstructure:"pocketbase_token"`
	RecordStore        string `mapstructure:"record_store"`
	DatabaseURL        string `mapstructure:"database_url"`
	RedisAddr          string `mapstructure:"redis_addr"`

	// Payment server
	PaymentServerURL     string `mapstructure:"payment_server_url"`
	ServiceAPIKey        string `mapstructure:"service_api_key"`
	StripePublishableKey string `mapstructure:"stripe_publishable_key"`

	// Feature flags
	EnablePayments          bool `mapstructure:"enable_payments"`
	Enable2FA               bool `mapstructure:"enable_2fa"`
	EnableEmailVerification bool `mapstructure:"enable_email_verification"`
	MockMode                bool `mapstructure:"mock_mode"`

	// Listeners
	HTTPPort int `mapstructure:"http_port"`
	GRPCPort int `mapstructure:"grpc_port"`
}

var keys = []string{
	"environment", "app_url", "api_url", "log_level",
	"pocketbase_url", "pocketbase_token", "record_store", "database_url", "redis_addr",
	"payment_server_url", "service_api_key", "stripe_publishable_key",
	"enable_payments", "enable_2fa", "enable_email_verification", "mock_mode",
	"http_port", "grpc_port",
}

// Load reads a .env file when present and resolves configuration from
// OWNER_* environment variables on top of the defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("OWNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	// Unmarshal only sees env values for keys viper already knows about.
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("bind %s: %w", k, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.PocketBaseAdminURL = strings.TrimRight(cfg.PocketBaseURL, "/") + "/_/"
	cfg.Environment = normalizeEnvironment(cfg.Environment)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", EnvDevelopment)
	v.SetDefault("app_url", "http://localhost:3040")
	v.SetDefault("api_url", "http://localhost:3041")
	v.SetDefault("log_level", "info")
	v.SetDefault("pocketbase_url", "http://localhost:8090")
	v.SetDefault("pocketbase_token", "")
	v.SetDefault("record_store", StorePocketBase)
	v.SetDefault("database_url", "")
	v.SetDefault("redis_addr", "")
	v.SetDefault("payment_server_url", "http://localhost:3000")
	v.SetDefault("service_api_key", "")
	v.SetDefault("stripe_publishable_key", "")
	v.SetDefault("enable_payments", false)
	v.SetDefault("enable_2fa", false)
	v.SetDefault("enable_email_verification", false)
	v.SetDefault("mock_mode", false)
	v.SetDefault("http_port", 8081)
	v.SetDefault("grpc_port", 50051)
}

func normalizeEnvironment(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case EnvProduction, "prod":
		return EnvProduction
	case EnvStaging:
		return EnvStaging
	default:
		return EnvDevelopment
	}
}

// Validate checks settings that would otherwise fail later and far away.
func (c *Config) Validate() error {
	switch c.RecordStore {
	case StorePocketBase:
	case StorePostgres:
		if c.DatabaseURL == "" && !c.MockMode {
			return fmt.Errorf("OWNER_DATABASE_URL is required when record_store is postgres")
		}
	default:
		return fmt.Errorf("unknown record store %q", c.RecordStore)
	}
	if c.HTTPPort <= 0 || c.GRPCPort <= 0 {
		return fmt.Errorf("listener ports must be positive")
	}
	return nil
}

// IsMockEnv reports whether services should run against synthetic data.
// A nil config is treated as mock mode.
func (c *Config) IsMockEnv() bool {
	if c == nil {
		return true
	}
	return c.MockMode
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c != nil && c.Environment == EnvDevelopment
}

// IsStaging returns true if running in staging mode
func (c *Config) IsStaging() bool {
	return c != nil && c.Environment == EnvStaging
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c != nil && c.Environment == EnvProduction
}

// IsFeatureEnabled looks up one of the named feature flags. Unknown names are off.
func (c *Config) IsFeatureEnabled(feature string) bool {
	if c == nil {
		return false
	}
	switch feature {
	case "payments":
		return c.EnablePayments
	case "2fa":
		return c.Enable2FA
	case "emailVerification":
		return c.EnableEmailVerification
	}
	return false
}
