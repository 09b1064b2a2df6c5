package reactor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestYamlFeeder(t *testing.T) {
	path := writeTempConfig(t, "run.yaml", "pollTimeout: 250ms\ndrainTicks: 5\n")

	cfg, err := LoadRunConfig(NewYamlFeeder(path))
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.PollTimeout)
	assert.Equal(t, 5, cfg.DrainTicks)
}

func TestTomlFeeder(t *testing.T) {
	path := writeTempConfig(t, "run.toml", "pollTimeout = \"100ms\"\ndrainTicks = 2\n")

	cfg, err := LoadRunConfig(NewTomlFeeder(path))
	require.NoError(t, err)
	assert.Equal(t, 100*time.Millisecond, cfg.PollTimeout)
	assert.Equal(t, 2, cfg.DrainTicks)
}

func TestEnvFeeder(t *testing.T) {
	t.Setenv("REACTOR_POLL_TIMEOUT", "1s")
	t.Setenv("REACTOR_DRAIN_TICKS", "7")

	cfg, err := LoadRunConfig(NewEnvFeeder("REACTOR"))
	require.NoError(t, err)
	assert.Equal(t, time.Second, cfg.PollTimeout)
	assert.Equal(t, 7, cfg.DrainTicks)
}

func TestEnvFeederOverridesFile(t *testing.T) {
	path := writeTempConfig(t, "run.yaml", "drainTicks: 5\n")
	t.Setenv("REACTOR_DRAIN_TICKS", "9")

	cfg, err := RunConfigFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.DrainTicks)
}

func TestRunConfigFromFileRejectsUnknownFormat(t *testing.T) {
	_, err := RunConfigFromFile("config.ini")
	assert.ErrorIs(t, err, ErrConfigUnsupportedFormat)
}

func TestFeederTargetValidation(t *testing.T) {
	feeders := []Feeder{
		NewYamlFeeder("unused.yaml"),
		NewTomlFeeder("unused.toml"),
		NewEnvFeeder("X"),
	}
	for _, f := range feeders {
		assert.ErrorIs(t, f.Feed(42), ErrConfigNotPointer)
		assert.ErrorIs(t, f.Feed(nil), ErrConfigNotPointer)
	}
}

func TestDefaultsSurviveEmptyFeed(t *testing.T) {
	cfg, err := LoadRunConfig(NewEnvFeeder("DOES_NOT_EXIST"))
	require.NoError(t, err)
	assert.Equal(t, DefaultRunConfig(), cfg)
}
