package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Carmen-Shannon/oxy-shade/engine/renderer"
	"github.com/pelletier/go-toml/v2"
)

// Config is the application configuration. It is read from a TOML file and then overlaid with any
// command line flags that were set explicitly.
type Config struct {
	Window  WindowConfig  `toml:"window"`
	Preview PreviewConfig `toml:"preview"`
	Build   BuildConfig   `toml:"build"`
	Log     LogConfig     `toml:"log"`
}

// WindowConfig sizes the preview window.
type WindowConfig struct {
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
	Title  string `toml:"title"`
}

// PreviewConfig selects what is previewed and how it is driven.
type PreviewConfig struct {
	// Shader is a .wgsl file to open at startup.
	Shader string `toml:"shader,omitempty"`
	// Project is a .toml project to open at startup. Takes precedence over Shader.
	Project string `toml:"project,omitempty"`
	// Watch reloads the shader file when it changes on disk.
	Watch bool `toml:"watch"`
	// Time starts the preview with the time uniform enabled.
	Time       bool    `toml:"time"`
	VSync      bool    `toml:"vsync"`
	TickRate   float64 `toml:"tick_rate"`
	FrameLimit float64 `toml:"frame_limit"`
	// Software forces the fallback adapter.
	Software bool `toml:"software"`
}

// BuildConfig tunes the pipeline cache.
type BuildConfig struct {
	// CompileTimeout is a Go duration string, e.g. "2s".
	CompileTimeout string `toml:"compile_timeout"`
	RetryFailed    bool   `toml:"retry_failed"`
	Coarse         bool   `toml:"coarse"`
	PreValidate    bool   `toml:"pre_validate"`
}

// LogConfig controls log output.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level   string `toml:"level"`
	Profile bool   `toml:"profile"`
}

// DefaultConfig returns the configuration used when no file or flag overrides a field.
func DefaultConfig() Config {
	return Config{
		Window: WindowConfig{Width: 1280, Height: 720, Title: "oxy-shade"},
		Preview: PreviewConfig{
			Watch:    true,
			Time:     true,
			VSync:    true,
			TickRate: 60,
		},
		Build: BuildConfig{CompileTimeout: "2s", PreValidate: true},
		Log:   LogConfig{Level: "info"},
	}
}

// LoadConfig reads a TOML config file over the defaults. Unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return DecodeConfig(f)
}

// DecodeConfig decodes TOML from r over the defaults and validates the result.
func DecodeConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	if err := toml.NewDecoder(r).DisallowUnknownFields().Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Config{}, fmt.Errorf("decode config: %s", strict.String())
		}
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks ranges and parses the string fields.
func (c Config) Validate() error {
	var errs []error
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height))
	}
	if c.Preview.TickRate < 0 || c.Preview.FrameLimit < 0 {
		errs = append(errs, errors.New("tick_rate and frame_limit must not be negative"))
	}
	if _, err := c.CompileTimeout(); err != nil {
		errs = append(errs, err)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// CompileTimeout parses Build.CompileTimeout.
func (c Config) CompileTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Build.CompileTimeout)
	if err != nil {
		return 0, fmt.Errorf("compile_timeout: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("compile_timeout %s must be positive", d)
	}
	return d, nil
}

// StartupPath returns the file to open at startup, the project if both are set.
func (c Config) StartupPath() string {
	if c.Preview.Project != "" {
		return c.Preview.Project
	}
	return c.Preview.Shader
}

// SetStartupPath routes path into Project or Shader by extension.
func (c *Config) SetStartupPath(path string) {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		c.Preview.Project = path
		return
	}
	c.Preview.Shader = path
}

// PresentMode maps VSync onto the renderer's present mode.
func (c Config) PresentMode() renderer.PresentMode {
	if c.Preview.VSync {
		return renderer.PresentModeVSync
	}
	return renderer.PresentModeUncapped
}

// CacheOptions builds the pipeline cache options. onError receives every failed build.
func (c Config) CacheOptions(onError func(error)) []renderer.PipelineCacheOption {
	opts := []renderer.PipelineCacheOption{
		renderer.WithRetryFailedBuilds(c.Build.RetryFailed),
		renderer.WithCoarseVersioning(c.Build.Coarse),
		renderer.WithPreValidation(c.Build.PreValidate),
		renderer.WithErrorHandler(onError),
	}
	if d, err := c.CompileTimeout(); err == nil {
		opts = append(opts, renderer.WithCompileTimeout(d))
	}
	return opts
}

// newLogger returns a text logger writing to w at the configured level.
func newLogger(level string, w io.Writer) (*slog.Logger, error) {
	l, err := parseLevel(level)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l})), nil
}

func parseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return 0, fmt.Errorf("log level %q: %w", level, err)
	}
	return l, nil
}
