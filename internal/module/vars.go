package module

import (
	"fmt"
	"regexp"
	"strings"
)

var varPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// substitute replaces ${name} references in v. A string that consists of a
// single reference evaluates to the variable itself, keeping its type;
// references embedded in longer strings are formatted with fmt.Sprint.
func substitute(v interface{}, vars map[string]interface{}) (interface{}, error) {
	switch x := v.(type) {
	case string:
		return substituteString(x, vars)
	case []interface{}:
		out := make([]interface{}, len(x))
		for i, item := range x {
			s, err := substitute(item, vars)
			if err != nil {
				return nil, err
			}
			out[i] = s
		}
		return out, nil
	case map[string]interface{}:
		out := make(map[string]interface{}, len(x))
		for k, item := range x {
			s, err := substitute(item, vars)
			if err != nil {
				return nil, err
			}
			out[k] = s
		}
		return out, nil
	default:
		return v, nil
	}
}

func substituteString(s string, vars map[string]interface{}) (interface{}, error) {
	if !strings.Contains(s, "${") {
		return s, nil
	}

	if m := varPattern.FindStringSubmatch(s); m != nil && m[0] == s {
		val, ok := vars[m[1]]
		if !ok {
			return nil, fmt.Errorf("undefined variable %q", m[1])
		}
		return val, nil
	}

	var missing string
	out := varPattern.ReplaceAllStringFunc(s, func(ref string) string {
		name := ref[2 : len(ref)-1]
		val, ok := vars[name]
		if !ok {
			if missing == "" {
				missing = name
			}
			return ref
		}
		return fmt.Sprint(val)
	})
	if missing != "" {
		return nil, fmt.Errorf("undefined variable %q", missing)
	}
	return out, nil
}
