package expect

import (
	"math"
	"strings"
	"testing"
)

func TestEqual(t *testing.T) {
	tests := []struct {
		name     string
		expected interface{}
		actual   interface{}
		opts     Options
		want     bool
		diff     string
	}{
		{"nil both", nil, nil, Options{}, true, ""},
		{"nil expected", nil, 1, Options{}, false, "expected <nil>"},
		{"int vs float", 4, 4.0, Options{}, true, ""},
		{"float within tolerance", 1.0, 1.0 + 1e-12, Options{}, true, ""},
		{"float outside tolerance", 1.0, 1.1, Options{}, false, "expected 1, got 1.1"},
		{"absolute mode", 100.0, 100.4, Options{Tolerance: 0.5, Mode: ModeAbsolute}, true, ""},
		{"infinity", math.Inf(1), math.Inf(1), Options{}, true, ""},
		{"string match", "a", "a", Options{}, true, ""},
		{"string mismatch", "a", "b", Options{}, false, `expected "a"`},
		{"number vs string", 1, "1", Options{}, false, "expected number"},
		{"bool", true, true, Options{}, true, ""},
		{
			"map missing key",
			map[string]interface{}{"a": 1, "b": 2},
			map[string]interface{}{"a": 1},
			Options{}, false, `missing key "b"`,
		},
		{
			"map extra key",
			map[string]interface{}{"a": 1},
			map[string]interface{}{"a": 1, "z": 2},
			Options{}, false, `unexpected key "z"`,
		},
		{
			"nested path",
			map[string]interface{}{"a": []interface{}{1, 2}},
			map[string]interface{}{"a": []interface{}{1, 3}},
			Options{}, false, "a[1]",
		},
		{
			"array length",
			[]interface{}{1, 2},
			[]interface{}{1},
			Options{}, false, "expected 2 elements, got 1",
		},
		{
			"unordered array",
			[]interface{}{1, 2, 3},
			[]interface{}{3, 1, 2},
			Options{Unordered: true}, true, "",
		},
		{
			"ordered array mismatch",
			[]interface{}{1, 2},
			[]interface{}{2, 1},
			Options{}, false, "[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, diff := Equal(tt.expected, tt.actual, tt.opts)
			if got != tt.want {
				t.Errorf("Equal() = %v, want %v (diff %q)", got, tt.want, diff)
			}
			if tt.diff != "" && !strings.Contains(diff, tt.diff) {
				t.Errorf("diff = %q, want it to contain %q", diff, tt.diff)
			}
		})
	}
}

func TestSortedKeys(t *testing.T) {
	keys := SortedKeys(map[string]interface{}{"b": 1, "a": 2, "c": 3})
	if strings.Join(keys, ",") != "a,b,c" {
		t.Errorf("SortedKeys() = %v", keys)
	}
}
