package config

import (
	"reflect"
	"strings"
	"testing"
)

func TestLoadWithWarnings_UnknownRootField(t *testing.T) {
	data := []byte(`{
		"tests_dir": "unit",
		"unknown_field": "value"
	}`)

	cfg, warnings, err := LoadWithWarnings("test.json", data)
	if err != nil {
		t.Fatalf("LoadWithWarnings() error = %v", err)
	}
	if cfg.TestsDir != "unit" {
		t.Errorf("TestsDir = %q, want %q", cfg.TestsDir, "unit")
	}

	found := false
	for _, w := range warnings {
		if strings.Contains(w, "unknown_field") {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("Expected warning about unknown_field, got %v", warnings)
	}
}

func TestLoadWithWarnings_SchemaFieldIgnored(t *testing.T) {
	data := []byte(`{"$schema": "config.schema.json", "tests_dir": "unit"}`)

	_, warnings, err := LoadWithWarnings("test.json", data)
	if err != nil {
		t.Fatalf("LoadWithWarnings() error = %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v, want none", warnings)
	}
}

func TestLoadWithWarnings_SortedAndNested(t *testing.T) {
	data := []byte(`{"zeta": 1, "alpha": 2, "panel": {"name": "x", "colour": "red"}}`)

	_, warnings, err := LoadWithWarnings("test.json", data)
	if err != nil {
		t.Fatalf("LoadWithWarnings() error = %v", err)
	}
	want := []string{
		`unknown field "alpha" at root level (ignored)`,
		`unknown field "zeta" at root level (ignored)`,
		`unknown field "colour" in panel (ignored)`,
	}
	if !reflect.DeepEqual(warnings, want) {
		t.Errorf("warnings = %q, want %q", warnings, want)
	}
}

func TestLoadWithWarnings_InvalidJSON(t *testing.T) {
	if _, _, err := LoadWithWarnings("test.json", []byte(`{`)); err == nil {
		t.Error("LoadWithWarnings() expected error")
	}
}

func TestGetJSONFields(t *testing.T) {
	fields := getJSONFields(reflect.TypeOf(PanelConfig{}))
	for _, name := range []string{"name", "file_regex", "line_regex", "base_dir", "word_wrap", "line_numbers", "gutter", "scroll_past_end", "syntax"} {
		if !fields[name] {
			t.Errorf("getJSONFields() missing %q", name)
		}
	}
}
