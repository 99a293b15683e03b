package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/AndreyAkinshin/unittesting/internal/config"
	"github.com/AndreyAkinshin/unittesting/internal/host"
)

// OutputDirName is the directory under the user data dir holding per-package
// result files.
const OutputDirName = "UnitTesting"

// Project represents a loaded packages root.
type Project struct {
	Root     string
	Config   *config.Config
	Warnings []string
	// HasConfig is false when no config file was found and defaults are in use.
	HasConfig bool
}

// LoadProject finds and loads a project from the current directory. Without
// a config file anywhere up the tree, the current directory is used as the
// root with default settings.
func LoadProject() (*Project, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return LoadProjectFromDir(cwd)
}

// LoadProjectFromDir is LoadProject starting at dir instead of the working
// directory.
func LoadProjectFromDir(dir string) (*Project, error) {
	root, err := FindRootFrom(dir)
	if errors.Is(err, ErrNoProjectRoot) {
		abs, absErr := filepath.Abs(dir)
		if absErr != nil {
			return nil, absErr
		}
		return &Project{Root: abs, Config: config.Default(abs)}, nil
	}
	if err != nil {
		return nil, err
	}
	return LoadProjectFrom(root)
}

// LoadProjectFrom loads a project from a specified root directory.
func LoadProjectFrom(root string) (*Project, error) {
	configPath := filepath.Join(root, ConfigDirName, ConfigFileName)

	cfg, warnings, err := config.LoadAndValidate(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return &Project{
		Root:      root,
		Config:    cfg,
		Warnings:  warnings,
		HasConfig: true,
	}, nil
}

// ConfigPath returns the full path to the project configuration file.
func (p *Project) ConfigPath() string {
	return filepath.Join(p.Root, ConfigDirName, ConfigFileName)
}

// PackageDir returns the directory of a package.
func (p *Project) PackageDir(pkg string) string {
	return filepath.Join(p.Config.PackagesPath, pkg)
}

// TestsDir returns the directory tests of a package are discovered in.
func (p *Project) TestsDir(pkg string) string {
	return filepath.Join(p.PackageDir(pkg), p.Config.TestsDir)
}

// OutputPath returns the default result file of a package.
func (p *Project) OutputPath(pkg string) string {
	return filepath.Join(p.Config.UserDataDir, OutputDirName, "tests_output", pkg)
}

// SettingsPath returns the harness settings file.
func (p *Project) SettingsPath() string {
	return host.SettingsPath(p.Config.UserDataDir)
}
