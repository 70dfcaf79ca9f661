package engine

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/phusis/engine/core"
	"github.com/spaghettifunk/phusis/engine/math"
	"github.com/spaghettifunk/phusis/engine/renderer"
	"github.com/spaghettifunk/phusis/engine/renderer/metadata"
)

type JobsConfig struct {
	// Worker goroutines recording in parallel. Zero picks one less than
	// GOMAXPROCS, with a minimum of one.
	Workers int `toml:"workers"`
}

type RendererConfig struct {
	Strategy metadata.DistributionStrategy `toml:"strategy"`
	// Bound of a single fence wait. Zero uses the renderer default.
	FenceTimeoutMS int        `toml:"fence_timeout_ms"`
	ClearColor     [4]float32 `toml:"clear_color"`
	// Simulated device latency of the headless backend.
	LatencyMS int `toml:"latency_ms"`
}

type LogConfig struct {
	Level core.LogLevel `toml:"level"`
}

type Config struct {
	Application ApplicationConfig `toml:"application"`
	Jobs        JobsConfig        `toml:"jobs"`
	Renderer    RendererConfig    `toml:"renderer"`
	Log         LogConfig         `toml:"log"`
}

func DefaultConfig() *Config {
	return &Config{
		Application: ApplicationConfig{
			Name:    "Phusis",
			Width:   1280,
			Height:  720,
			Objects: 64,
		},
		Renderer: RendererConfig{
			Strategy:       metadata.DistributionOptimal,
			FenceTimeoutMS: int(renderer.DefaultFenceTimeout / time.Millisecond),
			ClearColor:     [4]float32{0.1, 0.1, 0.12, 1},
		},
		Log: LogConfig{
			Level: core.LogLevelInfo,
		},
	}
}

// LoadConfig reads a TOML file on top of DefaultConfig. Keys the file does
// not set keep their default; unknown keys are an error.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("unknown config keys:\n%s", strict.String())
		}
		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			row, col := decodeErr.Position()
			return nil, fmt.Errorf("config line %d column %d: %w", row, col, err)
		}
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Application.Width == 0 || c.Application.Height == 0 {
		errs = append(errs, fmt.Errorf("application size must be positive, got %dx%d", c.Application.Width, c.Application.Height))
	}
	if c.Application.Frames < 0 {
		errs = append(errs, fmt.Errorf("application frames must not be negative, got %d", c.Application.Frames))
	}
	if c.Application.Objects < 0 {
		errs = append(errs, fmt.Errorf("application objects must not be negative, got %d", c.Application.Objects))
	}
	if c.Jobs.Workers < 0 {
		errs = append(errs, fmt.Errorf("jobs workers must not be negative, got %d", c.Jobs.Workers))
	}
	if c.Renderer.FenceTimeoutMS < 0 {
		errs = append(errs, fmt.Errorf("renderer fence_timeout_ms must not be negative, got %d", c.Renderer.FenceTimeoutMS))
	}
	if c.Renderer.LatencyMS < 0 {
		errs = append(errs, fmt.Errorf("renderer latency_ms must not be negative, got %d", c.Renderer.LatencyMS))
	}
	for i, v := range c.Renderer.ClearColor {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("renderer clear_color[%d] must be within [0, 1], got %g", i, v))
		}
	}
	return errors.Join(errs...)
}

func (c *Config) FenceTimeout() time.Duration {
	if c.Renderer.FenceTimeoutMS == 0 {
		return renderer.DefaultFenceTimeout
	}
	return time.Duration(c.Renderer.FenceTimeoutMS) * time.Millisecond
}

func (c *Config) Latency() time.Duration {
	return time.Duration(c.Renderer.LatencyMS) * time.Millisecond
}

func (c *Config) ClearColor() math.Vec4 {
	cc := c.Renderer.ClearColor
	return math.NewVec4(cc[0], cc[1], cc[2], cc[3])
}
