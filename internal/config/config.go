package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ClientConfig tunes the inference client.
type ClientConfig struct {
	APIKey          string `yaml:"api_key"`
	Model           string `yaml:"model"`
	MaxRetries      int    `yaml:"max_retries"`
	RetryDelayMS    int    `yaml:"retry_delay_ms"`
	TimeoutMS       int    `yaml:"timeout_ms"`
	RateLimitMS     int    `yaml:"rate_limit_delay_ms"`
	EnableFallback  *bool  `yaml:"enable_fallback"`
	MaxPayloadBytes int64  `yaml:"max_payload_bytes"`
}

// LayoutConfig tunes the layout synthesizer.
type LayoutConfig struct {
	PageSize           string  `yaml:"page_size"` // "a4" or "letter"
	Margin             float64 `yaml:"margin"`
	TitleFontSize      float64 `yaml:"title_font_size"`
	HeadingFontSize    float64 `yaml:"heading_font_size"`
	BodyFontSize       float64 `yaml:"body_font_size"`
	LineHeightFactor   float64 `yaml:"line_height_factor"`
	AllowOverflowPages bool    `yaml:"allow_overflow_pages"`
}

// Config is the configuration surface consumed by the core.
type Config struct {
	Client ClientConfig `yaml:"client"`
	Layout LayoutConfig `yaml:"layout"`
}

// PagePreset is one supported page geometry in absolute page units.
type PagePreset struct {
	Name   string
	Width  float64
	Height float64
}

var presets = map[string]PagePreset{
	"a4":     {Name: "a4", Width: 595, Height: 842},
	"letter": {Name: "letter", Width: 612, Height: 792},
}

// Preset resolves a page-size name to its geometry.
func Preset(name string) (PagePreset, error) {
	p, ok := presets[name]
	if !ok {
		return PagePreset{}, fmt.Errorf("unknown page size %q (supported: a4, letter)", name)
	}
	return p, nil
}

// Presets lists the supported page geometries.
func Presets() []PagePreset {
	return []PagePreset{presets["a4"], presets["letter"]}
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	on := true
	return &Config{
		Client: ClientConfig{
			Model:           "gemini-2.0-flash",
			MaxRetries:      3,
			RetryDelayMS:    1000,
			TimeoutMS:       60000,
			RateLimitMS:     1000,
			EnableFallback:  &on,
			MaxPayloadBytes: 20 << 20,
		},
		Layout: LayoutConfig{
			PageSize:         "a4",
			Margin:           20,
			TitleFontSize:    24,
			HeadingFontSize:  16,
			BodyFontSize:     12,
			LineHeightFactor: 1.4,
		},
	}
}

// Load reads configuration in three passes: .env (if present), then the YAML
// file, then environment variable overrides. A missing file yields defaults.
func Load(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	cfg := Default()

	// 2. Load YAML config
	if path != "" {
		file, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
		} else if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	// 3. Override with environment variables if present
	if apiKey := os.Getenv("DOCUFORM_API_KEY"); apiKey != "" {
		cfg.Client.APIKey = apiKey
	}
	if model := os.Getenv("DOCUFORM_MODEL"); model != "" {
		cfg.Client.Model = model
	}
	if v := os.Getenv("DOCUFORM_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Client.MaxRetries = n
		}
	}
	if v := os.Getenv("DOCUFORM_PAGE_SIZE"); v != "" {
		cfg.Layout.PageSize = v
	}

	cfg.normalize()
	return cfg, nil
}

// normalize backfills zero values so partial YAML files still yield a usable
// configuration.
func (c *Config) normalize() {
	d := Default()
	if c.Client.Model == "" {
		c.Client.Model = d.Client.Model
	}
	if c.Client.MaxRetries <= 0 {
		c.Client.MaxRetries = d.Client.MaxRetries
	}
	if c.Client.RetryDelayMS <= 0 {
		c.Client.RetryDelayMS = d.Client.RetryDelayMS
	}
	if c.Client.TimeoutMS <= 0 {
		c.Client.TimeoutMS = d.Client.TimeoutMS
	}
	if c.Client.RateLimitMS <= 0 {
		c.Client.RateLimitMS = d.Client.RateLimitMS
	}
	if c.Client.EnableFallback == nil {
		c.Client.EnableFallback = d.Client.EnableFallback
	}
	if c.Client.MaxPayloadBytes <= 0 {
		c.Client.MaxPayloadBytes = d.Client.MaxPayloadBytes
	}
	if c.Layout.PageSize == "" {
		c.Layout.PageSize = d.Layout.PageSize
	}
	if c.Layout.Margin <= 0 {
		c.Layout.Margin = d.Layout.Margin
	}
	if c.Layout.TitleFontSize <= 0 {
		c.Layout.TitleFontSize = d.Layout.TitleFontSize
	}
	if c.Layout.HeadingFontSize <= 0 {
		c.Layout.HeadingFontSize = d.Layout.HeadingFontSize
	}
	if c.Layout.BodyFontSize <= 0 {
		c.Layout.BodyFontSize = d.Layout.BodyFontSize
	}
	if c.Layout.LineHeightFactor <= 0 {
		c.Layout.LineHeightFactor = d.Layout.LineHeightFactor
	}
}
