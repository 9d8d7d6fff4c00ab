package cmd

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setConfig overrides key for the duration of the test.
func setConfig(t *testing.T, key string, value any) {
	t.Helper()

	viper.Set(key, value)
	t.Cleanup(func() { viper.Set(key, nil) })
}

func TestConfigConstants(t *testing.T) {
	assert.Equal(t, "testbench", configBaseName)
	assert.Equal(t, "testbench.yaml", configFileName)
	assert.Equal(t, ".", configFolderPath)
	assert.Equal(t, "output", outputFlagName)
	assert.Equal(t, "parallel", parallelFlagName)
	assert.Equal(t, "run.parallel", runParallelKey)
	assert.Equal(t, "run.targets", runTargetsKey)
	assert.Equal(t, ".testbench.db", defaultOutput)
	assert.Equal(t, 1, defaultRunParallel)
	assert.Equal(t, "TESTBENCH", envPrefix)
}

func TestConfigVersionConstants(t *testing.T) {
	assert.Equal(t, "version", configVersionKey)
	assert.Equal(t, 1, currentConfigVersion)
}

func TestConfigDefaults(t *testing.T) {
	assert.Equal(t, defaultOutput, viper.GetString(outputFlagName))
	assert.Equal(t, []string{defaultProgramsDir}, viper.GetStringSlice(programsKey))
	assert.Equal(t, defaultSourceDir, viper.GetString(sourceDirKey))
	assert.Equal(t, defaultServeAddr, viper.GetString(serveAddrKey))
	assert.Equal(t, defaultRunParallel, viper.GetInt(runParallelKey))
	assert.False(t, viper.GetBool(runPruneKey))
	assert.Equal(t, defaultRunTimeout, viper.GetDuration(runTimeoutKey))
}

func TestConfigEnvironment(t *testing.T) {
	t.Setenv("TESTBENCH_RUN_PARALLEL", "6")
	t.Setenv("TESTBENCH_SOURCE_URL", "http://units.local")

	assert.Equal(t, 6, viper.GetInt(runParallelKey))
	assert.Equal(t, "http://units.local", viper.GetString(sourceURLKey))
}

func TestParseSlogLevel(t *testing.T) {
	tests := []struct {
		value string
		want  slog.Level
	}{
		{"", slog.LevelWarn},
		{"debug", slog.LevelDebug},
		{" INFO ", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"-4", slog.LevelDebug},
		{"loud", slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, parseSlogLevel(tt.value, slog.LevelWarn))
		})
	}
}

func TestConfigureLogger(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	logPath := filepath.Join(t.TempDir(), "testbench.log")

	t.Run("verbose logs debug records", func(t *testing.T) {
		configureLogger(logPath, true)

		require.Same(t, globalLogger, slog.Default())
		assert.True(t, slog.Default().Enabled(context.Background(), slog.LevelDebug))

		slog.Debug("Probe record", "key", "value")

		data, err := os.ReadFile(logPath)
		require.NoError(t, err)
		assert.Contains(t, string(data), "Probe record")
		assert.Contains(t, string(data), "source=")
	})

	t.Run("configured level", func(t *testing.T) {
		setConfig(t, logLevelKey, "error")

		configureLogger(logPath, false)

		assert.False(t, slog.Default().Enabled(context.Background(), slog.LevelWarn))
		assert.True(t, slog.Default().Enabled(context.Background(), slog.LevelError))
	})
}
