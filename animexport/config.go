package animexport

import (
	"github.com/hazyhaar/animexport/animexport/internal/config"
	"github.com/hazyhaar/animexport/animexport/internal/journal"
)

// Config is the top-level animexport configuration. Re-exported from internal.
type Config = config.Config

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig = config.BrowserConfig

// EditorConfig locates the editor tab.
type EditorConfig = config.EditorConfig

// SelectorsConfig names the editor parts the pipeline reads.
type SelectorsConfig = config.SelectorsConfig

// PlaybackConfig controls how the timeline is driven.
type PlaybackConfig = config.PlaybackConfig

// SettleConfig selects the wait strategy after each seek.
type SettleConfig = config.SettleConfig

// ExportConfig shapes the output document.
type ExportConfig = config.ExportConfig

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	return config.Default()
}

// JournalRun is one journaled capture.
type JournalRun = journal.Run
