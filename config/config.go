// Package config holds the settings of the particle renderer and loads them
// from TOML or YAML files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"pst-renderer/core"
)

// Duration is a time.Duration written as a string such as "500ms".
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

type Window struct {
	Width  int    `toml:"width" yaml:"width"`
	Height int    `toml:"height" yaml:"height"`
	Title  string `toml:"title" yaml:"title"`
	VSync  bool   `toml:"vsync" yaml:"vsync"`
}

// MaxTextureDim keeps every particle index exactly representable in the
// float32 index attribute.
const MaxTextureDim = 4096

type Simulation struct {
	// TextureDim is the side of the square state textures. The particle
	// count is TextureDim squared.
	TextureDim int `toml:"texture_dim" yaml:"texture_dim"`
	// RingCount is the number of framebuffers per ring. The step pass reads
	// the two previous frames, so it must be at least 3.
	RingCount int `toml:"ring_count" yaml:"ring_count"`
	// Background is the clear colour as RGBA.
	Background [4]float32 `toml:"background" yaml:"background"`
}

type Shader struct {
	// Path is the fragment snippet file. Empty selects the built-in snippet.
	Path     string   `toml:"path" yaml:"path"`
	Debounce Duration `toml:"debounce" yaml:"debounce"`
	Watch    bool     `toml:"watch" yaml:"watch"`
}

type Textures struct {
	BaseURL string `toml:"base_url" yaml:"base_url"`
}

type Log struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"` // text or json
}

type Config struct {
	Window     Window     `toml:"window" yaml:"window"`
	Simulation Simulation `toml:"simulation" yaml:"simulation"`
	Shader     Shader     `toml:"shader" yaml:"shader"`
	Textures   Textures   `toml:"textures" yaml:"textures"`
	Log        Log        `toml:"log" yaml:"log"`
}

func Default() Config {
	return Config{
		Window: Window{
			Width:  1280,
			Height: 720,
			Title:  "pst",
			VSync:  true,
		},
		Simulation: Simulation{
			TextureDim: 256,
			RingCount:  3,
			Background: [4]float32{0, 0, 0, 1},
		},
		Shader: Shader{
			Debounce: Duration(500 * time.Millisecond),
			Watch:    true,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path over the defaults. The format follows the extension:
// .toml, .yaml or .yml.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&cfg)
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&cfg)
		if errors.Is(err, io.EOF) {
			err = nil
		}
	default:
		return cfg, &core.ConfigError{Op: "config.Load", Msg: fmt.Sprintf("unsupported config format %q", ext)}
	}
	if err != nil {
		return cfg, &core.ConfigError{Op: "config.Load", Msg: fmt.Sprintf("%s: %v", path, err)}
	}
	return cfg, cfg.Validate()
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	bad := func(format string, args ...any) error {
		return &core.ConfigError{Op: "config", Msg: fmt.Sprintf(format, args...)}
	}
	switch {
	case c.Window.Width <= 0 || c.Window.Height <= 0:
		return bad("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	case c.Simulation.TextureDim <= 0 || c.Simulation.TextureDim > MaxTextureDim:
		return bad("texture_dim must be in 1..%d, got %d", MaxTextureDim, c.Simulation.TextureDim)
	case c.Simulation.RingCount < 3:
		return bad("ring_count must be at least 3, got %d", c.Simulation.RingCount)
	case c.Shader.Debounce < 0:
		return bad("debounce must not be negative, got %s", time.Duration(c.Shader.Debounce))
	case c.Log.Format != "text" && c.Log.Format != "json":
		return bad("log format must be text or json, got %q", c.Log.Format)
	}
	if _, err := c.LogLevel(); err != nil {
		return bad("log level: %v", err)
	}
	return nil
}

func (c Config) LogLevel() (slog.Level, error) {
	var l slog.Level
	err := l.UnmarshalText([]byte(c.Log.Level))
	return l, err
}

func (c Config) Background() core.Color {
	b := c.Simulation.Background
	return core.Color{R: b[0], G: b[1], B: b[2], A: b[3]}
}
