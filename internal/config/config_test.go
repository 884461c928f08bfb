package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Environment)
	assert.Equal(t, "http://localhost:8090", cfg.PocketBaseURL)
	assert.Equal(t, "http://localhost:8090/_/", cfg.PocketBaseAdminURL)
	assert.Equal(t, StorePocketBase, cfg.RecordStore)
	assert.Equal(t, 8081, cfg.HTTPPort)
	assert.False(t, cfg.IsMockEnv())
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("OWNER_MOCK_MODE", "true")
	t.Setenv("OWNER_ENVIRONMENT", "prod")
	t.Setenv("OWNER_PAYMENT_SERVER_URL", "https://pay.example.com")
	t.Setenv("OWNER_ENABLE_2FA", "true")
	t.Setenv("OWNER_POCKETBASE_TOKEN", "pb-admin-token")

	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.True(t, cfg.IsMockEnv())
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "https://pay.example.com", cfg.PaymentServerURL)
	assert.Equal(t, "pb-admin-token", cfg.PocketBaseToken)
	assert.True(t, cfg.IsFeatureEnabled("2fa"))
	assert.False(t, cfg.IsFeatureEnabled("payments"))
	assert.False(t, cfg.IsFeatureEnabled("unknown"))
}

func TestLoad_PostgresRequiresDSN(t *testing.T) {
	t.Setenv("OWNER_RECORD_STORE", StorePostgres)

	_, err := load(viper.New())
	assert.Error(t, err)
}

func TestIsMockEnv_NilConfig(t *testing.T) {
	var cfg *Config
	assert.True(t, cfg.IsMockEnv())
	assert.False(t, cfg.IsFeatureEnabled("payments"))
}
