package config_test

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskpulse/internal/config"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "/v0", cfg.Server.BasePath)
	assert.Equal(t, 50, cfg.Engine.DominoPoolSize)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestFromYAMLKeepsDefaultsForMissingKeys(t *testing.T) {
	cfg, err := config.FromYAML([]byte("engine:\n  timezone: Europe/Paris\n  workers: 8\n"))
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Engine.Workers)
	assert.Equal(t, 256, cfg.Engine.CacheSize)
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Paris", loc.String())
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"bad timezone", "engine:\n  timezone: Mars/Olympus\n", "timezone"},
		{"zero workers", "engine:\n  workers: 0\n", "workers"},
		{"short secret", "server:\n  jwt_secret: abc\n", "jwt_secret"},
		{"base path", "server:\n  base_path: v0\n", "base_path"},
		{"log format", "log:\n  format: xml\n", "log.format"},
		{"not yaml", "server: [", "invalid config yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.FromYAML([]byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.want), "got %v", err)
		})
	}
}

func TestWriteAndLoad(t *testing.T) {
	fsys := afero.NewMemMapFs()

	_, err := config.Load(fsys, "/ws")
	require.ErrorContains(t, err, "not found")

	cfg, err := config.LoadOrDefault(fsys, "/ws")
	require.NoError(t, err)
	cfg.Engine.Timezone = "UTC"
	cfg.Server.CORSOrigins = []string{"http://localhost:5173"}

	path, err := config.Write(fsys, "/ws", cfg, false)
	require.NoError(t, err)
	assert.Equal(t, config.Path("/ws"), path)

	_, err = config.Write(fsys, "/ws", cfg, false)
	require.ErrorContains(t, err, "already exists")

	loaded, err := config.Load(fsys, "/ws")
	require.NoError(t, err)
	assert.Equal(t, "UTC", loaded.Engine.Timezone)
	assert.Equal(t, []string{"http://localhost:5173"}, loaded.Server.CORSOrigins)
}
