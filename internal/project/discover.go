package project

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DiscoverPackages lists the packages under the packages path that have a
// tests directory, in sorted order.
func (p *Project) DiscoverPackages() ([]string, error) {
	entries, err := os.ReadDir(p.Config.PackagesPath)
	if err != nil {
		return nil, err
	}

	var packages []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		name := entry.Name()
		if strings.HasPrefix(name, ".") || isExcludedDir(name) {
			continue
		}

		if validatePackageTestsDir(p.TestsDir(name), name) == nil {
			packages = append(packages, name)
		}
	}

	sort.Strings(packages)
	return packages, nil
}

// isExcludedDir returns true for directories that are never packages.
func isExcludedDir(name string) bool {
	excluded := map[string]bool{
		"User":         true, // user data lives beside packages
		"node_modules": true,
		"vendor":       true,
	}
	return excluded[name]
}

// validatePackageTestsDir checks that a package's tests directory exists.
func validatePackageTestsDir(dir, pkg string) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return fmt.Errorf("package %q: tests directory %q does not exist", pkg, dir)
	}
	if err != nil {
		return fmt.Errorf("package %q: cannot access tests directory %q: %w", pkg, dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("package %q: %q is not a directory", pkg, filepath.Clean(dir))
	}
	return nil
}

// CheckPackage reports why pkg cannot be tested, or nil when its tests
// directory exists.
func (p *Project) CheckPackage(pkg string) error {
	return validatePackageTestsDir(p.TestsDir(pkg), pkg)
}
