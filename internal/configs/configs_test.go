package configs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ENVIRONMENT", "PORT", "ALLOWED_ORIGINS", "JWT_SECRET", "ACCESS_TOKEN",
		"STORE_DRIVER", "DATABASE_URL", "REALTIME_TRANSPORT", "REDIS_ADDRESS",
		"PROBE_INTERVAL", "HEARTBEAT_INTERVAL", "HISTORY_LIMIT", "SEND_RATE", "SEND_BURST",
		"S3_BUCKET_NAME", "S3_ENDPOINT", "S3_ACCESS_KEY_ID", "S3_SECRET_ACCESS_KEY",
		"REDIS_PASSWORD", "RELAY_RETRY_DELAY",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDevelopmentDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	assert.Equal(t, RealtimePostgres, cfg.RealtimeTransport)
	assert.Equal(t, 30*time.Second, cfg.ProbeInterval)
	assert.Equal(t, 30*time.Second, cfg.HeartbeatInterval)
	assert.Equal(t, 50, cfg.HistoryLimit)
	assert.NotEmpty(t, cfg.JWTSecret)
	assert.False(t, cfg.StorageEnabled())
	assert.Empty(t, cfg.AllowedOrigins)
}

func TestLoadConfigParsesOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, ,http://b.test")
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("PROBE_INTERVAL", "5s")
	t.Setenv("HISTORY_LIMIT", "20")
	t.Setenv("REALTIME_TRANSPORT", "redis")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
	assert.Equal(t, StoreDriverPostgres, cfg.StoreDriver)
	assert.NotEmpty(t, cfg.DatabaseDSN)
	assert.Equal(t, 5*time.Second, cfg.ProbeInterval)
	assert.Equal(t, 20, cfg.HistoryLimit)
	assert.Equal(t, RealtimeRedis, cfg.RealtimeTransport)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"PORT":               "80",
		"STORE_DRIVER":       "sqlite",
		"REALTIME_TRANSPORT": "kafka",
		"PROBE_INTERVAL":     "soon",
		"HEARTBEAT_INTERVAL": "-1s",
		"HISTORY_LIMIT":      "0",
	}

	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)

			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigProductionRequiresSecrets(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENVIRONMENT", "production")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")

	t.Setenv("JWT_SECRET", "s3cret")
	_, err = LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ACCESS_TOKEN")

	t.Setenv("ACCESS_TOKEN", "token")
	_, err = LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")

	t.Setenv("DATABASE_URL", "postgres://db/chat")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, StoreDriverPostgres, cfg.StoreDriver)
}

func TestLoadRelayConfig(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadRelayConfig()
	require.NoError(t, err)
	assert.Contains(t, cfg.DatabaseDSN, "chatsync")
	assert.Equal(t, "localhost:6379", cfg.RedisAddress)
	assert.Equal(t, 2*time.Second, cfg.RetryDelay)

	t.Setenv("ENVIRONMENT", "production")
	_, err = LoadRelayConfig()
	require.Error(t, err)

	t.Setenv("DATABASE_URL", "postgres://db/chat")
	t.Setenv("RELAY_RETRY_DELAY", "500ms")
	cfg, err = LoadRelayConfig()
	require.NoError(t, err)
	assert.Equal(t, "postgres://db/chat", cfg.DatabaseDSN)
	assert.Equal(t, 500*time.Millisecond, cfg.RetryDelay)
}
