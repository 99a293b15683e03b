package project

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestDiscoverPackages(t *testing.T) {
	root := createProject(t, `{}`)

	for _, dir := range []string{
		"beta/tests",
		"alpha/tests/sub",
		"no_tests/src",
		".hidden/tests",
		"User/tests",
	} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0755); err != nil {
			t.Fatal(err)
		}
	}
	// A file named like the tests dir does not count.
	if err := os.MkdirAll(filepath.Join(root, "filepkg"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "filepkg", "tests"), nil, 0644); err != nil {
		t.Fatal(err)
	}

	proj, err := LoadProjectFrom(root)
	if err != nil {
		t.Fatal(err)
	}

	got, err := proj.DiscoverPackages()
	if err != nil {
		t.Fatalf("DiscoverPackages() error = %v", err)
	}
	if want := []string{"alpha", "beta"}; !reflect.DeepEqual(got, want) {
		t.Errorf("DiscoverPackages() = %v, want %v", got, want)
	}
}

func TestCheckPackage(t *testing.T) {
	root := createProject(t, `{}`)
	if err := os.MkdirAll(filepath.Join(root, "good", "tests"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(root, "bad"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "bad", "tests"), nil, 0644); err != nil {
		t.Fatal(err)
	}

	proj, err := LoadProjectFrom(root)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		pkg     string
		wantErr string
	}{
		{"good", ""},
		{"missing", "does not exist"},
		{"bad", "is not a directory"},
	}

	for _, tt := range tests {
		t.Run(tt.pkg, func(t *testing.T) {
			err := proj.CheckPackage(tt.pkg)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("CheckPackage() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("CheckPackage() error = %v, want to contain %q", err, tt.wantErr)
			}
		})
	}
}
