package interpreter

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"sandvm/pkg/value"
)

var ErrArity = errors.New("wrong number of arguments")

// Builtins returns the core builtins bound to e: print, str and len.
func (e *Evaluator) Builtins() map[string]value.Value {
	return map[string]value.Value{
		"print": value.NewBuiltin("print", e.print),
		"str":   value.NewBuiltin("str", str),
		"len":   value.NewBuiltin("len", length),
	}
}

// print writes its arguments separated by spaces. Output is dropped while
// replaying.
func (e *Evaluator) print(args []value.Value) (value.Value, error) {
	if e.Replaying() {
		return value.Nil, nil
	}

	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	if _, err := fmt.Fprintln(e.out, strings.Join(parts, " ")); err != nil {
		return value.Nil, err
	}
	return value.Nil, nil
}

func str(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Nil, fmt.Errorf("%w: want 1, got %d", ErrArity, len(args))
	}
	return value.String(args[0].String()), nil
}

func length(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Nil, fmt.Errorf("%w: want 1, got %d", ErrArity, len(args))
	}
	if args[0].Kind != value.KindString {
		return value.Nil, fmt.Errorf("cannot take length of %s", args[0].Kind)
	}
	return value.Int(int64(utf8.RuneCountInString(args[0].Str))), nil
}
