// Package module compiles YAML test modules into runnable cases.
//
// A module file looks like:
//
//	module: arithmetic
//	include: [fixtures.yaml]
//	vars: {base: 2}
//	setup: [...]
//	teardown: [...]
//	tests:
//	  - name: test_double
//	    steps:
//	      - call: {fn: mul, args: ["${base}", 2], into: y}
//	      - expect: {actual: "${y}", equal: 4}
//
// Modules are always compiled from the bytes currently on disk; see Reloader.
package module

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/AndreyAkinshin/unittesting/internal/schema"
)

// Step kinds.
const (
	StepSet    = "set"
	StepCall   = "call"
	StepExpect = "expect"
	StepYield  = "yield"
	StepSleep  = "sleep"
	StepFail   = "fail"
	StepError  = "error"
	StepSkip   = "skip"
)

// Module is a compiled test module.
type Module struct {
	Name     string
	Path     string // absolute path of the source file
	Include  []string
	Includes []*Module // resolved includes, in declaration order
	Vars     map[string]interface{}
	Setup    []Step
	Teardown []Step
	Tests    []TestDef
	LoadedAt time.Time
}

// TestDef is one entry of the module's tests list.
type TestDef struct {
	Name  string
	Skip  string
	Line  int
	Steps []Step
}

// Step is one instruction of a test.
type Step struct {
	Kind    string
	Line    int
	Set     map[string]interface{}
	Call    *CallSpec
	Expect  *ExpectSpec
	Yield   int
	Sleep   time.Duration
	Message string // fail, error and skip
}

// CallSpec invokes a registered step function.
type CallSpec struct {
	Fn   string        `yaml:"fn"`
	Args []interface{} `yaml:"args"`
	Into string        `yaml:"into"`
}

// ExpectSpec compares a value against an expectation.
type ExpectSpec struct {
	Actual    interface{} `yaml:"actual"`
	Equal     interface{} `yaml:"equal"`
	NotEqual  interface{} `yaml:"not_equal"`
	Negate    bool        `yaml:"-"`
	Tolerance float64     `yaml:"tolerance"`
	Unordered bool        `yaml:"unordered"`
	Message   string      `yaml:"message"`
}

type rawModule struct {
	Module   string                 `yaml:"module"`
	Include  []string               `yaml:"include"`
	Vars     map[string]interface{} `yaml:"vars"`
	Setup    []yaml.Node            `yaml:"setup"`
	Teardown []yaml.Node            `yaml:"teardown"`
	Tests    []yaml.Node            `yaml:"tests"`
}

type rawTest struct {
	Name  string      `yaml:"name"`
	Skip  string      `yaml:"skip"`
	Steps []yaml.Node `yaml:"steps"`
}

// ParseError is a compile failure of the module at Path. Line is the source
// line the failure was detected on, or 0 when unknown.
type ParseError struct {
	Path string
	Line int
	Err  error
}

func (e *ParseError) Error() string { return e.Err.Error() }
func (e *ParseError) Unwrap() error { return e.Err }

// yamlLinePattern matches the position yaml.v3 embeds in its messages.
var yamlLinePattern = regexp.MustCompile(`line (\d+):`)

// yamlError wraps a yaml.v3 failure, recovering the line from its message.
func yamlError(prefix string, err error) *ParseError {
	msg := err.Error()
	var typeErr *yaml.TypeError
	if errors.As(err, &typeErr) && len(typeErr.Errors) > 0 {
		msg = typeErr.Errors[0]
	}
	line := 0
	if m := yamlLinePattern.FindStringSubmatch(msg); m != nil {
		line, _ = strconv.Atoi(m[1])
	}
	return &ParseError{Line: line, Err: fmt.Errorf("%s: %w", prefix, err)}
}

// Parse compiles module source. path is used for the default module name
// and for failure locations. Failures are returned as *ParseError.
func Parse(path string, data []byte) (*Module, error) {
	mod, err := parse(path, data)
	if err != nil {
		var pe *ParseError
		if !errors.As(err, &pe) {
			return nil, &ParseError{Path: path, Err: err}
		}
		if pe.Path == "" {
			pe.Path = path
		}
		return nil, err
	}
	return mod, nil
}

func parse(path string, data []byte) (*Module, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, yamlError("invalid YAML", err)
	}

	var doc interface{} = map[string]interface{}{}
	if root.Kind != 0 {
		if err := root.Decode(&doc); err != nil {
			return nil, yamlError("invalid YAML", err)
		}
		if doc == nil {
			doc = map[string]interface{}{}
		}
	}
	if err := schema.ValidateModule(doc); err != nil {
		return nil, err
	}

	var raw rawModule
	if root.Kind != 0 {
		if err := root.Decode(&raw); err != nil {
			return nil, yamlError("invalid module", err)
		}
	}

	mod := &Module{
		Name:     raw.Module,
		Path:     path,
		Include:  raw.Include,
		Vars:     raw.Vars,
		LoadedAt: time.Now(),
	}
	if mod.Name == "" {
		mod.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if mod.Vars == nil {
		mod.Vars = make(map[string]interface{})
	}

	var err error
	if mod.Setup, err = parseSteps(raw.Setup); err != nil {
		return nil, fmt.Errorf("setup: %w", err)
	}
	if mod.Teardown, err = parseSteps(raw.Teardown); err != nil {
		return nil, fmt.Errorf("teardown: %w", err)
	}

	seen := make(map[string]int)
	for i := range raw.Tests {
		node := &raw.Tests[i]
		var rt rawTest
		if err := node.Decode(&rt); err != nil {
			return nil, &ParseError{Line: node.Line, Err: fmt.Errorf("line %d: %w", node.Line, err)}
		}
		if prev, dup := seen[rt.Name]; dup {
			return nil, &ParseError{
				Line: node.Line,
				Err:  fmt.Errorf("line %d: duplicate test %q (first defined on line %d)", node.Line, rt.Name, prev),
			}
		}
		seen[rt.Name] = node.Line

		steps, err := parseSteps(rt.Steps)
		if err != nil {
			return nil, fmt.Errorf("test %q: %w", rt.Name, err)
		}
		mod.Tests = append(mod.Tests, TestDef{
			Name:  rt.Name,
			Skip:  rt.Skip,
			Line:  node.Line,
			Steps: steps,
		})
	}

	return mod, nil
}

func parseSteps(nodes []yaml.Node) ([]Step, error) {
	steps := make([]Step, 0, len(nodes))
	for i := range nodes {
		step, err := parseStep(&nodes[i])
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func parseStep(node *yaml.Node) (Step, error) {
	if node.Kind != yaml.MappingNode || len(node.Content) != 2 {
		return Step{}, &ParseError{Line: node.Line, Err: fmt.Errorf("line %d: a step must be a mapping with exactly one key", node.Line)}
	}

	key, value := node.Content[0], node.Content[1]
	step := Step{Kind: key.Value, Line: node.Line}

	var err error
	switch step.Kind {
	case StepSet:
		err = value.Decode(&step.Set)
	case StepCall:
		step.Call = &CallSpec{}
		err = value.Decode(step.Call)
	case StepExpect:
		step.Expect, err = parseExpect(value)
	case StepYield:
		err = value.Decode(&step.Yield)
	case StepSleep:
		var s string
		if err = value.Decode(&s); err == nil {
			step.Sleep, err = time.ParseDuration(s)
		}
	case StepFail, StepError, StepSkip:
		err = value.Decode(&step.Message)
	default:
		err = fmt.Errorf("unknown step %q", step.Kind)
	}
	if err != nil {
		return Step{}, &ParseError{Line: node.Line, Err: fmt.Errorf("line %d: %s: %w", node.Line, step.Kind, err)}
	}
	return step, nil
}

func parseExpect(node *yaml.Node) (*ExpectSpec, error) {
	var spec ExpectSpec
	if err := node.Decode(&spec); err != nil {
		return nil, err
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == "not_equal" {
			spec.Negate = true
			spec.Equal = spec.NotEqual
		}
	}
	return &spec, nil
}
