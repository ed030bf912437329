// Package config handles animexport configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level animexport configuration.
type Config struct {
	Browser   BrowserConfig   `yaml:"browser"`
	Editor    EditorConfig    `yaml:"editor"`
	Selectors SelectorsConfig `yaml:"selectors"`
	Playback  PlaybackConfig  `yaml:"playback"`
	Settle    SettleConfig    `yaml:"settle"`
	Export    ExportConfig    `yaml:"export"`
	Session   SessionConfig   `yaml:"session"`
	Journal   JournalConfig   `yaml:"journal"`
}

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig struct {
	Remote           string        `yaml:"remote"`
	Stealth          string        `yaml:"stealth"` // headless | headful
	XvfbDisplay      string        `yaml:"xvfb_display"`
	UserDataDir      string        `yaml:"user_data_dir"`
	ResourceBlocking []string      `yaml:"resource_blocking"`
	NavigateTimeout  time.Duration `yaml:"navigate_timeout"`
}

// EditorConfig locates the editor tab.
type EditorConfig struct {
	URL        string `yaml:"url"`
	Attach     bool   `yaml:"attach"`      // reuse an open tab instead of navigating
	URLPattern string `yaml:"url_pattern"` // regex matched against open tab URLs when attaching
}

// Pattern is the regex used to find the editor tab when attaching.
// It falls back to the quoted editor URL.
func (e EditorConfig) Pattern() string {
	if e.URLPattern != "" {
		return e.URLPattern
	}
	return regexp.QuoteMeta(e.URL)
}

// SelectorsConfig names the editor parts the pipeline reads.
type SelectorsConfig struct {
	TimelineContainer string   `yaml:"timeline_container"`
	TimelineSurface   string   `yaml:"timeline_surface"`
	TimelineAnchor    string   `yaml:"timeline_anchor"`
	KeyframeMarker    string   `yaml:"keyframe_marker"`
	PreviewTag        string   `yaml:"preview_tag"`
	TrackedRoot       string   `yaml:"tracked_root"`
	ContainerKinds    []string `yaml:"container_kinds"`
	ShapeKinds        []string `yaml:"shape_kinds"`
}

// PlaybackConfig controls how the timeline is driven.
type PlaybackConfig struct {
	Margin     float64 `yaml:"margin"`
	LastMargin float64 `yaml:"last_margin"`
	PressMode  string  `yaml:"press_mode"` // dispatch | input
}

// SettleConfig selects the wait strategy after each seek.
type SettleConfig struct {
	Mode     string        `yaml:"mode"` // fixed | stable | frames | none
	Delay    time.Duration `yaml:"delay"`
	Interval time.Duration `yaml:"interval"`
	Quiet    int           `yaml:"quiet"`
	Max      time.Duration `yaml:"max"`
	Frames   int           `yaml:"frames"`
}

// ExportConfig shapes the output document.
type ExportConfig struct {
	Output  string `yaml:"output"` // file path, or "-" for stdout
	ViewBox string `yaml:"view_box"`
	Trigger string `yaml:"trigger"`
}

// SessionConfig fixes the export id token. Empty means random per run.
type SessionConfig struct {
	Token string `yaml:"token"`
}

// JournalConfig enables the SQLite run journal when Path is set.
type JournalConfig struct {
	Path string `yaml:"path"`
}

// LoadFile reads a YAML configuration file. Keys absent from the file keep
// their Default value, so an explicit zero margin survives.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := Config{Playback: PlaybackConfig{Margin: 10, LastMargin: 10}}
	cfg.applyDefaults()
	return &cfg
}

// Validate rejects unknown enum values and negative margins.
func (c *Config) Validate() error {
	if c.Playback.Margin < 0 || c.Playback.LastMargin < 0 {
		return fmt.Errorf("config: playback margins must not be negative (margin %v, last_margin %v)",
			c.Playback.Margin, c.Playback.LastMargin)
	}
	switch c.Browser.Stealth {
	case "headless", "headful":
	default:
		return fmt.Errorf("config: browser.stealth %q: want headless or headful", c.Browser.Stealth)
	}
	switch c.Playback.PressMode {
	case "dispatch", "input":
	default:
		return fmt.Errorf("config: playback.press_mode %q: want dispatch or input", c.Playback.PressMode)
	}
	switch c.Settle.Mode {
	case "fixed", "stable", "frames", "none":
	default:
		return fmt.Errorf("config: settle.mode %q: want fixed, stable, frames or none", c.Settle.Mode)
	}
	if c.Editor.Attach && c.Editor.URLPattern == "" && c.Editor.URL == "" {
		return fmt.Errorf("config: editor.attach needs url or url_pattern")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Browser.XvfbDisplay == "" {
		c.Browser.XvfbDisplay = ":99"
	}
	if c.Browser.Stealth == "" {
		c.Browser.Stealth = "headless"
	}
	if c.Browser.NavigateTimeout <= 0 {
		c.Browser.NavigateTimeout = 60 * time.Second
	}

	s := &c.Selectors
	if s.TimelineContainer == "" {
		s.TimelineContainer = "div.timeline-container"
	}
	if s.TimelineSurface == "" {
		s.TimelineSurface = `div.timeline-container rect[pointer-events="all"]`
	}
	if s.TimelineAnchor == "" {
		s.TimelineAnchor = "div.timeline-container svg g"
	}
	if s.KeyframeMarker == "" {
		s.KeyframeMarker = `div.timeline-container div.timeline-key[data-type="key"]`
	}
	if s.PreviewTag == "" {
		s.PreviewTag = "svg"
	}
	if s.TrackedRoot == "" {
		s.TrackedRoot = "#elements-wrapper"
	}
	if len(s.ContainerKinds) == 0 {
		s.ContainerKinds = []string{"g"}
	}
	if len(s.ShapeKinds) == 0 {
		s.ShapeKinds = []string{"path", "line", "circle", "rect"}
	}

	if c.Playback.PressMode == "" {
		c.Playback.PressMode = "dispatch"
	}

	if c.Settle.Mode == "" {
		c.Settle.Mode = "fixed"
	}
	if c.Settle.Delay <= 0 {
		c.Settle.Delay = time.Second
	}
	if c.Settle.Interval <= 0 {
		c.Settle.Interval = 100 * time.Millisecond
	}
	if c.Settle.Quiet <= 0 {
		c.Settle.Quiet = 2
	}
	if c.Settle.Max <= 0 {
		c.Settle.Max = 5 * time.Second
	}
	if c.Settle.Frames <= 0 {
		c.Settle.Frames = 2
	}

	if c.Export.Output == "" {
		c.Export.Output = "embedded.svg"
	}
	if c.Export.ViewBox == "" {
		c.Export.ViewBox = "0 0 600 600"
	}
	if c.Export.Trigger == "" {
		c.Export.Trigger = "button:hover"
	}
}
