package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "forgesim.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, 125*time.Millisecond, cfg.Simulation.TickInterval)
	assert.Equal(t, 1.0, cfg.Simulation.Speed)
	assert.Equal(t, 0.1, cfg.Simulation.BreakChance)
	assert.Equal(t, "data/save.txt", cfg.Storage.SavePath)
	assert.Equal(t, "data/forge.db", cfg.Storage.DBPath)
	assert.Equal(t, time.Minute, cfg.Storage.AutosaveInterval)
	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, 5.0, cfg.API.RateLimit)
	assert.Equal(t, 10, cfg.API.Burst)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	// Arrange
	path := writeConfig(t, `
simulation:
  tick_interval: 50ms
  seed: 42
  break_chance: 0.25
storage:
  save_path: saves/game.txt.zst
api:
  port: 9000
logging:
  level: debug
  format: json
`)
	t.Setenv("FORGE_API_PORT", "9191")
	t.Setenv("FORGE_API_ADMIN_KEY", "secret")

	// Act
	cfg, err := LoadConfig(path)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 50*time.Millisecond, cfg.Simulation.TickInterval)
	assert.Equal(t, int64(42), cfg.Simulation.Seed)
	assert.Equal(t, 0.25, cfg.Simulation.BreakChance)
	assert.Equal(t, "saves/game.txt.zst", cfg.Storage.SavePath)
	assert.Equal(t, 9191, cfg.API.Port, "env overrides file")
	assert.Equal(t, "secret", cfg.API.AdminKey)
	assert.Equal(t, slog.LevelDebug, cfg.Logging.SlogLevel())
	assert.NotNil(t, cfg.Logging.NewLogger())
}

func TestLoadConfig_Invalid(t *testing.T) {
	cases := map[string]string{
		"level":        "logging:\n  level: loud\n",
		"break chance": "simulation:\n  break_chance: 1.5\n",
		"port":         "api:\n  port: 70000\n",
		"negative":     "simulation:\n  speed: -1\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, body))
			assert.ErrorContains(t, err, "invalid configuration")
		})
	}
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
