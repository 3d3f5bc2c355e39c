package logging_test

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cohortly/internal/config"
	"cohortly/internal/logging"
)

func TestLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, logging.Level(config.LogLevelDebug))
	assert.Equal(t, slog.LevelInfo, logging.Level(config.LogLevelInfo))
	assert.Equal(t, slog.LevelWarn, logging.Level(config.LogLevelWarn))
	assert.Equal(t, slog.LevelError, logging.Level(config.LogLevelError))
	assert.Equal(t, slog.LevelInfo, logging.Level("unknown"))
}

func TestNewLoggerTestEnvironment(t *testing.T) {
	var out bytes.Buffer
	dir := t.TempDir()
	cfg := &config.Config{AppName: "cohortly", Environment: config.Test, LogLevel: config.LogLevelInfo, LogsDirectory: dir}

	logger, closer := logging.NewLogger(cfg, &out)
	logger.Debug("hidden")
	logger.Info("analysis finished", slog.Int("rows", 3))
	require.NoError(t, closer.Close())

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "analysis finished")
	assert.Contains(t, out.String(), "rows=3")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNewLoggerWritesRotatedFile(t *testing.T) {
	var out bytes.Buffer
	dir := t.TempDir()
	cfg := &config.Config{
		AppName:          "cohortly",
		Environment:      config.Production,
		LogLevel:         config.LogLevelWarn,
		LogsDirectory:    dir,
		LogsMaxSizeInMb:  1,
		LogsMaxBackups:   1,
		LogsMaxAgeInDays: 1,
	}

	logger, closer := logging.NewLogger(cfg, &out)
	logger.With(slog.String("component", "cli")).Warn("slow analysis")
	logger.Info("ignored")
	require.NoError(t, closer.Close())

	assert.Contains(t, out.String(), "slow analysis")

	data, err := os.ReadFile(filepath.Join(dir, "cohortly.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"slow analysis"`)
	assert.Contains(t, string(data), `"component":"cli"`)
	assert.NotContains(t, string(data), "ignored")
}
