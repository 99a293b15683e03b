// Package expect compares values produced by test steps against expected values.
//
// Values are the generic shapes produced by decoding YAML: nil, bool, string,
// int, int64, float64, map[string]interface{} and []interface{}.
package expect

import (
	"fmt"
	"math"
	"reflect"
	"sort"
)

// Tolerance modes for float comparison.
const (
	ModeRelative = "relative"
	ModeAbsolute = "absolute"
)

// DefaultTolerance is used when Options.Tolerance is zero.
const DefaultTolerance = 1e-9

// Options configures how values are compared.
type Options struct {
	Tolerance float64 // float tolerance; zero means DefaultTolerance
	Mode      string  // ModeRelative (default) or ModeAbsolute
	Unordered bool    // compare arrays as multisets
}

// Equal compares expected and actual. When they differ it returns false and a
// message naming the first difference.
func Equal(expected, actual interface{}, opts Options) (bool, string) {
	if opts.Tolerance == 0 {
		opts.Tolerance = DefaultTolerance
	}
	return compareValues(expected, actual, opts, "")
}

func compareValues(expected, actual interface{}, opts Options, path string) (bool, string) {
	if expected == nil && actual == nil {
		return true, ""
	}
	if expected == nil || actual == nil {
		return false, fmt.Sprintf("%s: expected %v, got %v", pathStr(path), expected, actual)
	}

	if exp, ok := toFloat(expected); ok {
		return compareFloats(exp, actual, opts, path)
	}

	switch exp := expected.(type) {
	case string:
		if act, ok := actual.(string); ok && exp == act {
			return true, ""
		}
		return false, fmt.Sprintf("%s: expected %q, got %v", pathStr(path), exp, actual)
	case bool:
		if act, ok := actual.(bool); ok && exp == act {
			return true, ""
		}
		return false, fmt.Sprintf("%s: expected %v, got %v", pathStr(path), exp, actual)
	case map[string]interface{}:
		return compareMaps(exp, actual, opts, path)
	case []interface{}:
		return compareArrays(exp, actual, opts, path)
	default:
		if reflect.DeepEqual(expected, actual) {
			return true, ""
		}
		return false, fmt.Sprintf("%s: expected %v (%T), got %v (%T)", pathStr(path), expected, expected, actual, actual)
	}
}

func compareFloats(expected float64, actual interface{}, opts Options, path string) (bool, string) {
	act, ok := toFloat(actual)
	if !ok {
		return false, fmt.Sprintf("%s: expected number %v, got %v (%T)", pathStr(path), expected, actual, actual)
	}

	if math.IsInf(expected, 1) && math.IsInf(act, 1) {
		return true, ""
	}
	if math.IsInf(expected, -1) && math.IsInf(act, -1) {
		return true, ""
	}

	var within bool
	switch opts.Mode {
	case ModeAbsolute:
		within = math.Abs(expected-act) <= opts.Tolerance
	default:
		within = isWithinRelativeTolerance(expected, act, opts.Tolerance)
	}

	if within {
		return true, ""
	}
	return false, fmt.Sprintf("%s: expected %v, got %v", pathStr(path), expected, act)
}

func compareMaps(expected map[string]interface{}, actual interface{}, opts Options, path string) (bool, string) {
	actMap, ok := actual.(map[string]interface{})
	if !ok {
		return false, fmt.Sprintf("%s: expected object, got %T", pathStr(path), actual)
	}

	for _, key := range SortedKeys(expected) {
		if _, ok := actMap[key]; !ok {
			return false, fmt.Sprintf("%s: missing key %q", pathStr(path), key)
		}
	}
	for _, key := range SortedKeys(actMap) {
		if _, ok := expected[key]; !ok {
			return false, fmt.Sprintf("%s: unexpected key %q", pathStr(path), key)
		}
	}

	for _, key := range SortedKeys(expected) {
		keyPath := path + "." + key
		if path == "" {
			keyPath = key
		}
		if ok, diff := compareValues(expected[key], actMap[key], opts, keyPath); !ok {
			return false, diff
		}
	}

	return true, ""
}

func compareArrays(expected []interface{}, actual interface{}, opts Options, path string) (bool, string) {
	actArr, ok := actual.([]interface{})
	if !ok {
		return false, fmt.Sprintf("%s: expected array, got %T", pathStr(path), actual)
	}

	if len(expected) != len(actArr) {
		return false, fmt.Sprintf("%s: expected %d elements, got %d", pathStr(path), len(expected), len(actArr))
	}

	if opts.Unordered {
		return compareArraysUnordered(expected, actArr, opts, path)
	}

	for i := range expected {
		indexPath := fmt.Sprintf("%s[%d]", path, i)
		if ok, diff := compareValues(expected[i], actArr[i], opts, indexPath); !ok {
			return false, diff
		}
	}

	return true, ""
}

func compareArraysUnordered(expected, actual []interface{}, opts Options, path string) (bool, string) {
	matched := make([]bool, len(actual))

	for i, exp := range expected {
		found := false
		for j, act := range actual {
			if matched[j] {
				continue
			}
			if ok, _ := compareValues(exp, act, opts, ""); ok {
				matched[j] = true
				found = true
				break
			}
		}
		if !found {
			return false, fmt.Sprintf("%s[%d]: no matching element found for %v", path, i, exp)
		}
	}

	return true, ""
}

func toFloat(v interface{}) (float64, bool) {
	switch f := v.(type) {
	case float64:
		return f, true
	case float32:
		return float64(f), true
	case int:
		return float64(f), true
	case int64:
		return float64(f), true
	case uint64:
		return float64(f), true
	default:
		return 0, false
	}
}

// isWithinRelativeTolerance checks if actual is within relative tolerance of expected.
// For expected == 0, uses absolute comparison to avoid division by zero.
func isWithinRelativeTolerance(expected, actual, tolerance float64) bool {
	if expected == 0 {
		return math.Abs(actual) <= tolerance
	}
	return math.Abs((expected-actual)/expected) <= tolerance
}

func pathStr(path string) string {
	if path == "" {
		return "value"
	}
	return path
}

// SortedKeys returns sorted keys of a map for deterministic iteration.
func SortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
