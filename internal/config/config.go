// Package config loads the layercomp TOML configuration.
//
// An embedded default file is decoded first; user data is decoded over it
// so any key left out keeps its default.
package config

import (
	"embed"
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/gogpu/compositor"
)

//go:embed default/config.toml
var configFS embed.FS

// Config is the decoded configuration file.
type Config struct {
	Compositor CompositorConfig `toml:"compositor"`
	Viewport   ViewportConfig   `toml:"viewport"`
	Provision  ProvisionConfig  `toml:"provision"`
}

type CompositorConfig struct {
	Background     string `toml:"background"`
	BackgroundMode string `toml:"background_mode"`
	Filter         string `toml:"filter"`
	TextureOrigin  string `toml:"texture_origin"`
	Blend          string `toml:"blend"`
	Fit            string `toml:"fit"`
	ViewportPolicy string `toml:"viewport_policy"`
}

type ViewportConfig struct {
	Width  int `toml:"width"`
	Height int `toml:"height"`
}

type ProvisionConfig struct {
	BasePath   string   `toml:"base_path"`
	MarkerPath string   `toml:"marker_path"`
	BaseURL    string   `toml:"base_url"`
	Platform   string   `toml:"platform"`
	OutputDir  string   `toml:"output_dir"`
	SHA256     string   `toml:"sha256"`
	Timeout    Duration `toml:"timeout"`
}

// Duration decodes TOML strings such as "30s" or "2m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the embedded default configuration.
func Default() (*Config, error) {
	data, err := configFS.ReadFile("default/config.toml")
	if err != nil {
		return nil, fmt.Errorf("read embedded default config: %w", err)
	}
	c := &Config{}
	if err := c.Load(string(data)); err != nil {
		return nil, fmt.Errorf("load embedded default config: %w", err)
	}
	return c, nil
}

// Load decodes data over c and validates the keys it defines.
func (c *Config) Load(data string) error {
	metadata, err := toml.Decode(data, c)
	if err != nil {
		return err
	}
	if undecoded := metadata.Undecoded(); len(undecoded) > 0 {
		compositor.Logger().Warn("config: unknown keys ignored", "keys", fmt.Sprint(undecoded))
	}
	if metadata.IsDefined("viewport", "width") || metadata.IsDefined("viewport", "height") {
		if c.Viewport.Width < 0 || c.Viewport.Height < 0 {
			return fmt.Errorf("viewport: negative size %dx%d", c.Viewport.Width, c.Viewport.Height)
		}
	}
	if metadata.IsDefined("provision", "timeout") && c.Provision.Timeout.Duration < 0 {
		return fmt.Errorf("provision.timeout: negative duration %v", c.Provision.Timeout)
	}
	if _, err := c.CompositorOptions(); err != nil {
		return err
	}
	return nil
}

// LoadFile returns the defaults overlaid with the file at path. An empty
// path returns the defaults.
func LoadFile(path string) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}
	if err := c.Load(string(data)); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}
	return c, nil
}

// CompositorOptions converts the [compositor] table.
func (c *Config) CompositorOptions() (compositor.Options, error) {
	cc := c.Compositor
	o := compositor.DefaultOptions()
	var err error

	if cc.Background != "" {
		if o.Background, err = ParseColor(cc.Background); err != nil {
			return o, fmt.Errorf("compositor.background: %w", err)
		}
	}
	if o.BackgroundMode, err = compositor.ParseBackgroundMode(cc.BackgroundMode); err != nil {
		return o, fmt.Errorf("compositor.background_mode: %w", err)
	}
	if o.Filter, err = compositor.ParseFilter(cc.Filter); err != nil {
		return o, fmt.Errorf("compositor.filter: %w", err)
	}
	if o.Origin, err = compositor.ParseTextureOrigin(cc.TextureOrigin); err != nil {
		return o, fmt.Errorf("compositor.texture_origin: %w", err)
	}
	if o.Blend, err = compositor.ParseBlendMode(cc.Blend); err != nil {
		return o, fmt.Errorf("compositor.blend: %w", err)
	}
	if o.Fit, err = compositor.ParseFitMode(cc.Fit); err != nil {
		return o, fmt.Errorf("compositor.fit: %w", err)
	}
	if o.ViewportPolicy, err = compositor.ParseViewportPolicy(cc.ViewportPolicy); err != nil {
		return o, fmt.Errorf("compositor.viewport_policy: %w", err)
	}
	return o, nil
}

// ViewportSize returns the [viewport] table as a compositor viewport.
func (c *Config) ViewportSize() compositor.Viewport {
	return compositor.Viewport{Width: float32(c.Viewport.Width), Height: float32(c.Viewport.Height)}
}

// ParseColor parses #RRGGBB or #RRGGBBAA. The leading # is optional.
func ParseColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 && len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: want #RRGGBB or #RRGGBBAA", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	if len(hex) == 6 {
		v = v<<8 | 0xFF
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
