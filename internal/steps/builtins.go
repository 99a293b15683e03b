package steps

import (
	"fmt"
	"os"
	"strings"

	"github.com/AndreyAkinshin/unittesting/internal/suite"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Builtins returns a registry preloaded with the standard step functions.
func Builtins() *Registry {
	r := NewRegistry()
	r.MustRegister("add", add)
	r.MustRegister("mul", mul)
	r.MustRegister("concat", concat)
	r.MustRegister("len", length)
	r.MustRegister("upper", upper)
	r.MustRegister("title", title)
	r.MustRegister("env", env)
	r.MustRegister("fail_if", failIf)
	return r
}

func add(args []interface{}) (interface{}, error) {
	return fold(args, 0, func(acc, v float64) float64 { return acc + v })
}

func mul(args []interface{}) (interface{}, error) {
	return fold(args, 1, func(acc, v float64) float64 { return acc * v })
}

// fold applies op over numeric args. The result stays an int when every
// argument is an int.
func fold(args []interface{}, start float64, op func(acc, v float64) float64) (interface{}, error) {
	acc := start
	allInts := true
	for i, arg := range args {
		switch v := arg.(type) {
		case int:
			acc = op(acc, float64(v))
		case int64:
			acc = op(acc, float64(v))
		case float64:
			allInts = false
			acc = op(acc, v)
		default:
			return nil, fmt.Errorf("argument %d: expected number, got %T", i, arg)
		}
	}
	if allInts {
		return int(acc), nil
	}
	return acc, nil
}

func concat(args []interface{}) (interface{}, error) {
	var b strings.Builder
	for _, arg := range args {
		fmt.Fprint(&b, arg)
	}
	return b.String(), nil
}

func length(args []interface{}) (interface{}, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("len takes 1 argument, got %d", len(args))
	}
	switch v := args[0].(type) {
	case string:
		return len([]rune(v)), nil
	case []interface{}:
		return len(v), nil
	case map[string]interface{}:
		return len(v), nil
	default:
		return nil, fmt.Errorf("len: unsupported type %T", v)
	}
}

func upper(args []interface{}) (interface{}, error) {
	s, err := singleString("upper", args)
	if err != nil {
		return nil, err
	}
	return cases.Upper(language.Und).String(s), nil
}

func title(args []interface{}) (interface{}, error) {
	s, err := singleString("title", args)
	if err != nil {
		return nil, err
	}
	return cases.Title(language.English).String(s), nil
}

func env(args []interface{}) (interface{}, error) {
	name, err := singleString("env", args)
	if err != nil {
		return nil, err
	}
	return os.Getenv(name), nil
}

// failIf turns a truthy first argument into an assertion failure whose
// message is the optional second argument.
func failIf(args []interface{}) (interface{}, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("fail_if takes at least 1 argument")
	}
	if truthy(args[0]) {
		msg := "fail_if condition was true"
		if len(args) > 1 {
			msg = fmt.Sprint(args[1])
		}
		return nil, &suite.AssertionError{Message: msg}
	}
	return nil, nil
}

func truthy(v interface{}) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case int:
		return x != 0
	case float64:
		return x != 0
	default:
		return true
	}
}

func singleString(name string, args []interface{}) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("%s takes 1 argument, got %d", name, len(args))
	}
	s, ok := args[0].(string)
	if !ok {
		return "", fmt.Errorf("%s: expected string, got %T", name, args[0])
	}
	return s, nil
}
