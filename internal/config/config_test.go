package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cohortly/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "cohortly", cfg.AppName)
	assert.Equal(t, "3000", cfg.AppPort)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, config.LogLevelDebug, cfg.LogLevel)
	assert.Equal(t, "logs", cfg.LogsDirectory)
	assert.Equal(t, 50*1024*1024, cfg.MaxUploadBytes())
	assert.Equal(t, 4, cfg.Workers)
	assert.Empty(t, cfg.ExcludeEventPattern)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("COHORTLY_APP_PORT", "8080")
	t.Setenv("COHORTLY_ENV", config.Production)
	t.Setenv("COHORTLY_LOG_LEVEL", "warn")
	t.Setenv("COHORTLY_WORKERS", "2")
	t.Setenv("COHORTLY_EXCLUDE_EVENT_PATTERN", "^debug_")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.AppPort)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, config.LogLevelWarn, cfg.LogLevel)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, "^debug_", cfg.ExcludeEventPattern)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	testCases := []struct {
		name  string
		key   string
		value string
	}{
		{name: "environment", key: "COHORTLY_ENV", value: "staging"},
		{name: "log level", key: "COHORTLY_LOG_LEVEL", value: "verbose"},
		{name: "upload size", key: "COHORTLY_MAX_UPLOAD_SIZE_MB", value: "0"},
		{name: "workers", key: "COHORTLY_WORKERS", value: "-1"},
		{name: "exclude event pattern", key: "COHORTLY_EXCLUDE_EVENT_PATTERN", value: "(open"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			_, err := config.Load()
			assert.Error(t, err)
		})
	}
}

func TestGetConfigIsCached(t *testing.T) {
	config.Reset()
	t.Cleanup(config.Reset)

	t.Setenv("COHORTLY_ENV", config.Test)
	first := config.GetConfig()
	t.Setenv("COHORTLY_ENV", config.Production)
	second := config.GetConfig()

	assert.Same(t, first, second)
	assert.True(t, second.IsTest())
}
