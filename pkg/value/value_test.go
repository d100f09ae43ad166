package value_test

import (
	"testing"

	"sandvm/pkg/future"
	"sandvm/pkg/value"
)

func TestString(t *testing.T) {
	tests := []struct {
		v    value.Value
		want string
	}{
		{value.Nil, "nil"},
		{value.Int(-4), "-4"},
		{value.Float(2.5), "2.5"},
		{value.Bool(true), "true"},
		{value.String("hi"), "hi"},
		{value.Function(&value.Closure{Name: "f"}), "<fn f>"},
		{value.Function(&value.Closure{}), "<fn>"},
		{value.NewBuiltin("print", nil), "<builtin print>"},
		{value.Future(future.New[value.Value]()), "<future pending>"},
	}

	for _, test := range tests {
		if got := test.v.String(); got != test.want {
			t.Errorf("%v: String() = %q, want %q", test.v.Kind, got, test.want)
		}
	}

	if got := value.String("a\"b").Repr(); got != `"a\"b"` {
		t.Errorf("Repr = %s", got)
	}
}

func TestTruthy(t *testing.T) {
	falsy := []value.Value{value.Nil, value.Bool(false), value.Int(0), value.Float(0), value.String("")}
	truthy := []value.Value{value.Bool(true), value.Int(2), value.Float(-0.5), value.String("x"), value.Function(&value.Closure{})}

	for _, v := range falsy {
		if v.Truthy() {
			t.Errorf("%s (%s) is truthy", v, v.Kind)
		}
	}
	for _, v := range truthy {
		if !v.Truthy() {
			t.Errorf("%s (%s) is falsy", v, v.Kind)
		}
	}
}

func TestEqual(t *testing.T) {
	c := &value.Closure{}

	if !value.Equal(value.Int(2), value.Float(2)) {
		t.Error("2 != 2.0")
	}
	if value.Equal(value.Int(2), value.String("2")) {
		t.Error("2 == \"2\"")
	}
	if !value.Equal(value.Function(c), value.Function(c)) {
		t.Error("closure not equal to itself")
	}
	if value.Equal(value.Function(c), value.Function(&value.Closure{})) {
		t.Error("distinct closures compare equal")
	}
	if !value.Equal(value.Nil, value.Nil) {
		t.Error("nil != nil")
	}
}

func TestIntercepted(t *testing.T) {
	f := future.NewIntercepting[value.Value]()
	v := value.Future(f)

	if _, ok := v.Intercepted(); ok {
		t.Fatal("future reported intercepted before a token was recorded")
	}

	f.Intercept(future.Token{Site: 3})
	got, ok := v.Intercepted()
	if !ok || got != f {
		t.Errorf("Intercepted() = %v, %v", got, ok)
	}

	if _, ok := value.Int(1).Intercepted(); ok {
		t.Error("int reported as intercepted")
	}
}

func TestConversions(t *testing.T) {
	if i, err := value.Float(3.9).AsInt64(); err != nil || i != 3 {
		t.Errorf("AsInt64(3.9) = %d, %v", i, err)
	}
	if f, err := value.Bool(true).AsFloat64(); err != nil || f != 1 {
		t.Errorf("AsFloat64(true) = %g, %v", f, err)
	}
	if _, err := value.String("x").AsInt64(); err == nil {
		t.Error("string converted to int")
	}
}
