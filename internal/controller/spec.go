package controller

import "regexp"

// DefaultPattern is the test file glob used when a spec names no pattern.
const DefaultPattern = "test*.yaml"

var specPattern = regexp.MustCompile(`^([^/]+)/(.+)$`)

// ParseSpec splits "<package>/<glob>" at the first slash. A spec without a
// pattern part is a bare package name and gets defaultPattern.
func ParseSpec(spec, defaultPattern string) (pkg, pattern string) {
	if m := specPattern.FindStringSubmatch(spec); m != nil {
		return m[1], m[2]
	}
	return spec, defaultPattern
}
