package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_DefaultsAppliedForMissingFields(t *testing.T) {
	path := writeTempConfig(t, "server:\n  port: \"\"\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	cfg.applyEnvOverrides()
	cfg.applyDefaults()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Backend)
	assert.Equal(t, "redis", cfg.Queue.Backend)
	assert.Equal(t, 5, cfg.Worker.MaxAttempts)
	assert.Equal(t, []int{10, 30, 60, 300, 900}, cfg.Worker.BackoffScheduleSec)
	assert.Equal(t, 72, cfg.Retention.HorizonHours)
}

func TestApplyEnvOverrides_OverridesYAMLValues(t *testing.T) {
	path := writeTempConfig(t, "server:\n  port: \"9090\"\n")
	t.Setenv("OCX_WEBHOOKS_SERVER_PORT", "7070")
	t.Setenv("OCX_WEBHOOKS_WORKER_MAX_ATTEMPTS", "3")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	cfg.applyEnvOverrides()
	cfg.applyDefaults()

	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, 3, cfg.Worker.MaxAttempts)
}

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "config-*.yaml")
	require.NoError(t, err)
	_, err = f.WriteString(body)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return f.Name()
}
