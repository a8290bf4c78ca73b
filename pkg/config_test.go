package pkg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "INTERFACE", "SESSION_STORE", "MONGODB_URI", "MONGODB_DB_NAME",
		"DATABASE_URL", "REDIS_ADDR", "REDIS_PASSWORD", "SESSION_CACHE_TTL",
		"LOOKUP_TIMEOUT", "REDIS_TIMEOUT", "CORS_ALLOWED_ORIGINS", "SEED_FILE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := LoadConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
	assert.Equal(t, StoreMongo, cfg.Store)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoURI)
	assert.Equal(t, "mentor_scoring", cfg.MongoDB)
	assert.Equal(t, defaultCacheTTL, cfg.CacheTTL)
	assert.Equal(t, defaultLookupTimeout, cfg.LookupTimeout)
	assert.Equal(t, defaultRedisTimeout, cfg.RedisTimeout)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Empty(t, cfg.RedisAddr)
}

func TestLoadConfigFromEnv(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("SESSION_STORE", StorePostgres)
	t.Setenv("DATABASE_URL", "postgres://mentor@localhost:5432/sessions")
	t.Setenv("SESSION_CACHE_TTL", "2m")
	t.Setenv("LOOKUP_TIMEOUT", "750ms")
	t.Setenv("REDIS_TIMEOUT", "100ms")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example, http://localhost:3000")

	cfg, err := LoadConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, StorePostgres, cfg.Store)
	assert.Equal(t, 2*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 750*time.Millisecond, cfg.LookupTimeout)
	assert.Equal(t, 100*time.Millisecond, cfg.RedisTimeout)
	assert.Equal(t, []string{"https://app.example", "http://localhost:3000"}, cfg.AllowedOrigins)
}

func TestLoadConfigFlagsOverrideEnv(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("SESSION_STORE", StoreMongo)

	cfg, err := LoadConfig([]string{"-port", "7000", "-store", "memory", "-lookup-timeout", "3s", "-redis-addr", "localhost:6379"})
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Port)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, 3*time.Second, cfg.LookupTimeout)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		args []string
	}{
		{name: "port not a number", args: []string{"-port", "http"}},
		{name: "port out of range", args: []string{"-port", "70000"}},
		{name: "unknown store", args: []string{"-store", "sqlite"}},
		{name: "postgres without dsn", args: []string{"-store", "postgres"}},
		{name: "zero lookup timeout", args: []string{"-lookup-timeout", "0s"}},
		{name: "zero redis timeout", args: []string{"-redis-timeout", "0s"}},
		{name: "bad origin", args: []string{"-allowed-origins", "app.example"}},
		{name: "bad env duration", env: map[string]string{"LOOKUP_TIMEOUT": "soon"}},
		{name: "unknown flag", args: []string{"-verbose"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			for key, value := range tt.env {
				t.Setenv(key, value)
			}

			_, err := LoadConfig(tt.args)
			assert.Error(t, err)
		})
	}
}
