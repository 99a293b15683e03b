// Package config provides configuration loading and validation for config.json.
package config

import "time"

// Config represents the complete config.json configuration.
type Config struct {
	// PackagesPath is the directory holding packages. Relative paths are
	// resolved against the project root.
	PackagesPath string `json:"packages_path,omitempty"`
	// UserDataDir holds the settings file and default output files.
	UserDataDir     string       `json:"user_data_dir,omitempty"`
	TestsDir        string       `json:"tests_dir,omitempty"`
	DefaultPattern  string       `json:"default_pattern,omitempty"`
	HostVersion     int          `json:"host_version,omitempty"`
	AsyncDelayMS    *int         `json:"async_delay_ms,omitempty"`
	MaxIncludeDepth int          `json:"max_include_depth,omitempty"`
	Panel           *PanelConfig `json:"panel,omitempty"`
}

// PanelConfig configures the output panel.
type PanelConfig struct {
	Name          string `json:"name,omitempty"`
	FileRegex     string `json:"file_regex,omitempty"`
	LineRegex     string `json:"line_regex,omitempty"`
	BaseDir       string `json:"base_dir,omitempty"`
	WordWrap      bool   `json:"word_wrap,omitempty"`
	LineNumbers   bool   `json:"line_numbers,omitempty"`
	Gutter        bool   `json:"gutter,omitempty"`
	ScrollPastEnd bool   `json:"scroll_past_end,omitempty"`
	Syntax        string `json:"syntax,omitempty"`
}

// AsyncDelay returns the delay before an async run starts.
func (c *Config) AsyncDelay() time.Duration {
	if c.AsyncDelayMS == nil {
		return DefaultAsyncDelayMS * time.Millisecond
	}
	return time.Duration(*c.AsyncDelayMS) * time.Millisecond
}
