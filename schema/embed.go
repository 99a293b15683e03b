// Package schema provides the embedded JSON schemas for harness configuration
// files and test modules.
package schema

import "embed"

// FS contains the embedded schema files.
//
//go:embed *.schema.json
var FS embed.FS
