// Package value defines the dynamically typed runtime values shared by the
// interpreter, the scope chain and the VM.
package value

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"sandvm/pkg/future"
	"sandvm/pkg/parser/ast"
)

var ErrNotCallable = errors.New("value is not callable")

type Kind int

const (
	KindNil Kind = iota
	KindInt
	KindFloat
	KindBool
	KindString
	KindFunction
	KindBuiltin
	KindFuture
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindFunction:
		return "function"
	case KindBuiltin:
		return "builtin"
	case KindFuture:
		return "future"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value represents a dynamically-typed value in the interpreter.
type Value struct {
	Kind    Kind
	I64     int64
	F64     float64
	Bool    bool
	Str     string
	Fn      *Closure
	Builtin *Builtin
	Fut     *future.Future[Value]
}

// Env is the lexical environment a closure is linked into.
type Env interface {
	Lookup(name string) (Value, bool)
}

// Closure is a function value: the literal it was instantiated from and the
// scope it was linked into.
type Closure struct {
	Name string
	Node *ast.FuncLit
	Env  Env
}

// Builtin is a function implemented in Go.
type Builtin struct {
	Name string
	Fn   func(args []Value) (Value, error)
}

var Nil = Value{}

// Int creates a new integer Value.
func Int(i int64) Value {
	return Value{Kind: KindInt, I64: i}
}

// Float creates a new float Value.
func Float(f float64) Value {
	return Value{Kind: KindFloat, F64: f}
}

// Bool creates a new boolean Value.
func Bool(b bool) Value {
	return Value{Kind: KindBool, Bool: b}
}

// String creates a new string Value.
func String(s string) Value {
	return Value{Kind: KindString, Str: s}
}

func Function(c *Closure) Value {
	return Value{Kind: KindFunction, Fn: c}
}

func NewBuiltin(name string, fn func(args []Value) (Value, error)) Value {
	return Value{Kind: KindBuiltin, Builtin: &Builtin{Name: name, Fn: fn}}
}

func Future(f *future.Future[Value]) Value {
	return Value{Kind: KindFuture, Fut: f}
}

// Intercepted reports the future a value carries when execution has suspended on it.
func (v Value) Intercepted() (*future.Future[Value], bool) {
	if v.Kind == KindFuture && v.Fut != nil && v.Fut.Intercepted() {
		return v.Fut, true
	}
	return nil, false
}

// IsNil reports whether v is nil
func (v Value) IsNil() bool {
	return v.Kind == KindNil
}

// String renders the value as a string.
func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.I64, 10)
	case KindFloat:
		return strconv.FormatFloat(v.F64, 'g', -1, 64)
	case KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case KindString:
		return v.Str
	case KindFunction:
		if v.Fn.Name != "" {
			return "<fn " + v.Fn.Name + ">"
		}
		return "<fn>"
	case KindBuiltin:
		return "<builtin " + v.Builtin.Name + ">"
	case KindFuture:
		return "<future " + v.Fut.State().String() + ">"
	default:
		return "nil"
	}
}

// Repr renders the value the way it would be written in source.
func (v Value) Repr() string {
	if v.Kind == KindString {
		return strconv.Quote(v.Str)
	}
	return v.String()
}

// AsFloat64 converts the value to float64 if possible.
func (v Value) AsFloat64() (float64, error) {
	switch v.Kind {
	case KindFloat:
		return v.F64, nil
	case KindInt:
		return float64(v.I64), nil
	case KindBool:
		if v.Bool {
			return 1.0, nil
		}
		return 0.0, nil
	default:
		return 0, fmt.Errorf("cannot convert %v to float", v.Kind)
	}
}

// AsInt64 converts the value to int64 if possible.
func (v Value) AsInt64() (int64, error) {
	switch v.Kind {
	case KindInt:
		return v.I64, nil
	case KindFloat:
		return int64(v.F64), nil
	case KindBool:
		if v.Bool {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("cannot convert %v to int", v.Kind)
	}
}

// Truthy reports the value's truth in a condition: nil, false, zero and "" are false.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindNil:
		return false
	case KindBool:
		return v.Bool
	case KindInt:
		return v.I64 != 0
	case KindFloat:
		return math.Abs(v.F64) > 0
	case KindString:
		return v.Str != ""
	default:
		return true
	}
}

// Equal compares two values. Numbers compare across int and float; functions,
// builtins and futures compare by identity.
func Equal(a, b Value) bool {
	if isNumber(a) && isNumber(b) {
		if a.Kind == KindInt && b.Kind == KindInt {
			return a.I64 == b.I64
		}
		af, _ := a.AsFloat64()
		bf, _ := b.AsFloat64()
		return af == bf
	}
	if a.Kind != b.Kind {
		return false
	}

	switch a.Kind {
	case KindNil:
		return true
	case KindBool:
		return a.Bool == b.Bool
	case KindString:
		return a.Str == b.Str
	case KindFunction:
		return a.Fn == b.Fn
	case KindBuiltin:
		return a.Builtin == b.Builtin
	case KindFuture:
		return a.Fut == b.Fut
	}
	return false
}

func isNumber(v Value) bool {
	return v.Kind == KindInt || v.Kind == KindFloat
}

// IsNumber reports whether v is an int or a float
func (v Value) IsNumber() bool {
	return isNumber(v)
}

var _ future.Carrier[Value] = Value{}
