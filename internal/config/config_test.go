package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "CORS_ALLOWED_ORIGINS",
		"ARK_API_KEY", "ARK_ACCESS_KEY", "ARK_SECRET_KEY", "Model",
		"ARK_TEMPERATURE", "ARK_TOP_P", "ARK_MAX_TOKENS", "ARK_STREAM", "AI_TIMEOUT",
		"SESSION_TTL", "SESSION_CLEANUP_INTERVAL", "PERSONA_CATALOG_PATH", "PERSONA_CATALOG_WATCH",
		"LOG_FILE", "LOG_LEVEL", "APP_ENV",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.False(t, cfg.AI.Enabled())
	assert.True(t, cfg.AI.StreamResponse)
	assert.Equal(t, 60*time.Second, cfg.AI.Timeout)
	assert.Equal(t, time.Hour, cfg.Session.TTL)
	assert.Equal(t, 10*time.Minute, cfg.Session.CleanupInterval)
	assert.Empty(t, cfg.Personas.CatalogPath)
	assert.False(t, cfg.Personas.Watch)
	assert.Equal(t, "logs/app.log", cfg.Log.File)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Log.Production)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "127.0.0.1:9090")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("ARK_API_KEY", "key")
	t.Setenv("Model", "doubao-pro")
	t.Setenv("ARK_TEMPERATURE", "0.2")
	t.Setenv("ARK_STREAM", "false")
	t.Setenv("AI_TIMEOUT", "15")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("APP_ENV", "Production")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("PERSONA_CATALOG_PATH", "/etc/kinnect/personas.yaml")
	t.Setenv("PERSONA_CATALOG_WATCH", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Addr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.True(t, cfg.AI.Enabled())
	require.NotNil(t, cfg.AI.Temperature)
	assert.InDelta(t, 0.2, *cfg.AI.Temperature, 1e-9)
	assert.False(t, cfg.AI.StreamResponse)
	assert.Equal(t, 15*time.Second, cfg.AI.Timeout)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.True(t, cfg.Log.Production)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/etc/kinnect/personas.yaml", cfg.Personas.CatalogPath)
	assert.True(t, cfg.Personas.Watch)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"PORT":                  "80 80",
		"ARK_TEMPERATURE":       "warm",
		"ARK_STREAM":            "sometimes",
		"AI_TIMEOUT":            "-1",
		"SESSION_TTL":           "forever",
		"PERSONA_CATALOG_WATCH": "maybe",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestAIConfigEnabled(t *testing.T) {
	assert.False(t, AIConfig{APIKey: "k"}.Enabled())
	assert.True(t, AIConfig{Model: "m", APIKey: "k"}.Enabled())
	assert.True(t, AIConfig{Model: "m", AccessKey: "a", SecretKey: "s"}.Enabled())
	assert.False(t, AIConfig{Model: "m", AccessKey: "a"}.Enabled())
}
