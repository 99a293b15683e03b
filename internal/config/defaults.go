package config

import "path/filepath"

// Default configuration values.
const (
	DefaultTestsDir        = "tests"
	DefaultPattern         = "test*.yaml"
	DefaultHostVersion     = 4000
	DefaultAsyncDelayMS    = 100
	DefaultMaxIncludeDepth = 16
	DefaultUserDataDir     = "User"

	DefaultPanelName   = "unittests"
	DefaultFileRegex   = `File "([^"]*)", line (\d+)`
	DefaultPanelSyntax = "Packages/Text/Plain text.tmLanguage"
)

// Default returns a configuration with every default applied for the
// project rooted at root.
func Default(root string) *Config {
	cfg := &Config{}
	applyDefaults(cfg, root)
	return cfg
}

// applyDefaults fills in default values for unset configuration fields and
// resolves relative paths against root.
func applyDefaults(cfg *Config, root string) {
	applyPathDefaults(cfg, root)
	applyRunDefaults(cfg)
	applyPanelDefaults(cfg)
}

func applyPathDefaults(cfg *Config, root string) {
	if cfg.PackagesPath == "" {
		cfg.PackagesPath = root
	} else if !filepath.IsAbs(cfg.PackagesPath) {
		cfg.PackagesPath = filepath.Join(root, cfg.PackagesPath)
	}

	if cfg.UserDataDir == "" {
		cfg.UserDataDir = filepath.Join(cfg.PackagesPath, DefaultUserDataDir)
	} else if !filepath.IsAbs(cfg.UserDataDir) {
		cfg.UserDataDir = filepath.Join(root, cfg.UserDataDir)
	}
}

func applyRunDefaults(cfg *Config) {
	if cfg.TestsDir == "" {
		cfg.TestsDir = DefaultTestsDir
	}
	if cfg.DefaultPattern == "" {
		cfg.DefaultPattern = DefaultPattern
	}
	if cfg.HostVersion == 0 {
		cfg.HostVersion = DefaultHostVersion
	}
	if cfg.AsyncDelayMS == nil {
		delay := DefaultAsyncDelayMS
		cfg.AsyncDelayMS = &delay
	}
	if cfg.MaxIncludeDepth == 0 {
		cfg.MaxIncludeDepth = DefaultMaxIncludeDepth
	}
}

func applyPanelDefaults(cfg *Config) {
	if cfg.Panel == nil {
		cfg.Panel = &PanelConfig{}
	}
	if cfg.Panel.Name == "" {
		cfg.Panel.Name = DefaultPanelName
	}
	if cfg.Panel.FileRegex == "" {
		cfg.Panel.FileRegex = DefaultFileRegex
	}
	if cfg.Panel.Syntax == "" {
		cfg.Panel.Syntax = DefaultPanelSyntax
	}
}
