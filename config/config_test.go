package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "kisan.db", cfg.DatabaseURL)
	assert.InDelta(t, 0.6, cfg.AcceptThreshold, 0.001)
	assert.Equal(t, 100, cfg.PinCodeProximity)
	assert.Equal(t, 60*time.Minute, cfg.GroupingInterval)
	assert.Equal(t, "gemini-embedding-001", cfg.GeminiEmbeddingModel)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ACCEPT_THRESHOLD", "0.75")
	t.Setenv("PIN_CODE_PROXIMITY", "50")
	t.Setenv("GROUPING_INTERVAL_MINUTES", "15")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.InDelta(t, 0.75, cfg.AcceptThreshold, 0.001)
	assert.Equal(t, 50, cfg.PinCodeProximity)
	assert.Equal(t, 15*time.Minute, cfg.GroupingInterval)
}

func TestInvalidEnvValuesFallBack(t *testing.T) {
	t.Setenv("ACCEPT_THRESHOLD", "not-a-number")
	t.Setenv("PIN_CODE_PROXIMITY", "abc")

	cfg := Load()

	assert.InDelta(t, 0.6, cfg.AcceptThreshold, 0.001)
	assert.Equal(t, 100, cfg.PinCodeProximity)
}

func TestValidate(t *testing.T) {
	cfg := Load()
	require.NoError(t, cfg.Validate())

	broken := Load()
	broken.JWTSecret = ""
	assert.Error(t, broken.Validate())

	broken = Load()
	broken.AcceptThreshold = 0
	assert.Error(t, broken.Validate())

	broken = Load()
	broken.AcceptThreshold = 1.5
	assert.Error(t, broken.Validate())

	broken = Load()
	broken.PinCodeProximity = -10
	assert.Error(t, broken.Validate())

	broken = Load()
	broken.Environment = "staging"
	assert.Error(t, broken.Validate())
}
