package engine_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/phusis/engine"
	"github.com/spaghettifunk/phusis/engine/core"
	"github.com/spaghettifunk/phusis/engine/renderer"
	"github.com/spaghettifunk/phusis/engine/renderer/metadata"
)

func TestParseEmptyConfigKeepsDefaults(t *testing.T) {
	cfg, err := engine.ParseConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, engine.DefaultConfig(), cfg)
	assert.Equal(t, renderer.DefaultFenceTimeout, cfg.FenceTimeout())
}

func TestParseConfig(t *testing.T) {
	cfg, err := engine.ParseConfig([]byte(`
[application]
name = "bench"
width = 640
height = 480
frames = 120
objects = 1000

[jobs]
workers = 6

[renderer]
strategy = "uniform"
fence_timeout_ms = 250
clear_color = [0.0, 0.5, 1.0, 1.0]
latency_ms = 2

[log]
level = "warn"
`))
	require.NoError(t, err)

	assert.Equal(t, engine.ApplicationConfig{Name: "bench", Width: 640, Height: 480, Frames: 120, Objects: 1000}, cfg.Application)
	assert.Equal(t, 6, cfg.Jobs.Workers)
	assert.Equal(t, metadata.DistributionUniform, cfg.Renderer.Strategy)
	assert.Equal(t, 250*time.Millisecond, cfg.FenceTimeout())
	assert.Equal(t, 2*time.Millisecond, cfg.Latency())
	assert.Equal(t, float32(0.5), cfg.ClearColor().Y)
	assert.Equal(t, core.LogLevelWarn, cfg.Log.Level)
}

func TestParseConfigPartialOverride(t *testing.T) {
	cfg, err := engine.ParseConfig([]byte("[jobs]\nworkers = 2\n"))
	require.NoError(t, err)

	expected := engine.DefaultConfig()
	expected.Jobs.Workers = 2
	assert.Equal(t, expected, cfg)
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "unknown key", data: "[renderer]\nthreads = 4\n"},
		{name: "unknown strategy", data: "[renderer]\nstrategy = \"greedy\"\n"},
		{name: "unknown log level", data: "[log]\nlevel = \"loud\"\n"},
		{name: "zero width", data: "[application]\nwidth = 0\n"},
		{name: "negative frames", data: "[application]\nframes = -1\n"},
		{name: "negative objects", data: "[application]\nobjects = -5\n"},
		{name: "negative workers", data: "[jobs]\nworkers = -1\n"},
		{name: "negative fence timeout", data: "[renderer]\nfence_timeout_ms = -10\n"},
		{name: "clear colour out of range", data: "[renderer]\nclear_color = [0.0, 0.0, 2.0, 1.0]\n"},
		{name: "malformed", data: "[application\nname = 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.ParseConfig([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phusis.toml")
	require.NoError(t, os.WriteFile(path, []byte("[application]\nobjects = 12\n"), 0o644))

	cfg, err := engine.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Application.Objects)

	_, err = engine.LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
