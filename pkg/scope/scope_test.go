package scope_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"sandvm/pkg/scope"
	"sandvm/pkg/value"
)

func TestLookupChain(t *testing.T) {
	g := scope.NewGlobals()
	g.Define("print", value.String("builtin"))
	root := scope.NewRoot(g, nil)
	root.Define("x", value.Int(1))

	fn := &value.Closure{Name: "f"}
	root.Link(fn)
	call := root.Create(fn, nil, value.Nil, value.Function(fn))
	call.Define("y", value.Int(2))

	if call.Parent() != root || call.Root() != root || call.Owner() != fn {
		t.Fatal("call scope not attached under the linked scope")
	}

	for name, want := range map[string]value.Value{"x": value.Int(1), "y": value.Int(2), "print": value.String("builtin")} {
		got, err := call.Get(name)
		if err != nil || !value.Equal(got, want) {
			t.Errorf("Get(%s) = %s, %v", name, got, err)
		}
	}

	if _, err := root.Get("y"); !errors.Is(err, scope.ErrUndefined) {
		t.Errorf("child binding visible from root: %v", err)
	}
	if !value.Equal(call.This(), value.Function(fn)) {
		t.Error("this binding lost")
	}
}

func TestAssign(t *testing.T) {
	root := scope.NewRoot(scope.NewGlobals(), nil)
	root.Define("x", value.Int(1))
	child := root.Create(nil, nil, value.Nil, value.Nil)

	if err := child.Assign("x", value.Int(5)); err != nil {
		t.Fatal(err)
	}
	if v, _ := root.Get("x"); v.I64 != 5 {
		t.Errorf("assignment did not reach the defining scope: %s", v)
	}
	if diff := cmp.Diff([]string(nil), nilIfEmpty(child.Names())); diff != "" {
		t.Errorf("assignment created a local binding:\n%s", diff)
	}

	if err := child.Assign("nope", value.Nil); !errors.Is(err, scope.ErrUndefined) {
		t.Errorf("Assign to unbound name = %v", err)
	}
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}

func TestCreateUnlinkedFallsBackToReceiver(t *testing.T) {
	root := scope.NewRoot(scope.NewGlobals(), nil)
	inner := root.Create(nil, nil, value.Nil, value.Nil)

	unlinked := &value.Closure{}
	if scope.ParentScope(unlinked) != nil {
		t.Fatal("unlinked closure has a parent scope")
	}
	if s := inner.Create(unlinked, nil, value.Nil, value.Nil); s.Parent() != inner {
		t.Error("unlinked closure's call scope not placed under the receiver")
	}

	linked := &value.Closure{}
	if got := inner.Link(linked); got != inner || scope.ParentScope(linked) != inner {
		t.Error("Link did not bind the closure to the scope")
	}
	if s := root.Create(linked, nil, value.Nil, value.Nil); s.Parent() != inner {
		t.Error("linked closure's call scope not placed under its linked scope")
	}
}

func TestEvalAndEnvironment(t *testing.T) {
	var seen *scope.Scope
	eval := func(s *scope.Scope, code string) (value.Value, error) {
		seen = s
		return value.String("ran " + code), nil
	}

	root := scope.NewRoot(scope.NewGlobals(), eval)
	child := root.Create(nil, eval, value.Int(9), value.Nil)

	v, err := child.Eval("x")
	if err != nil || v.Str != "ran x" || seen != child {
		t.Errorf("Eval = %s, %v (scope %v)", v, err, seen == child)
	}

	if child.Environment().I64 != 9 {
		t.Errorf("environment = %s", child.Environment())
	}
	child.SetEnvironment(value.String("env"))
	if child.Environment().Str != "env" {
		t.Errorf("SetEnvironment not applied")
	}

	bare := root.Create(nil, nil, value.Nil, value.Nil)
	if _, err := bare.Eval("1"); !errors.Is(err, scope.ErrNoEval) {
		t.Errorf("Eval without evaluate = %v", err)
	}
}

func TestGlobalsIsolation(t *testing.T) {
	a := scope.NewRoot(scope.NewGlobals(), nil)
	b := scope.NewRoot(scope.NewGlobals(), nil)
	a.Globals().Define("only", value.Int(1))

	if _, ok := b.Lookup("only"); ok {
		t.Error("globals shared between roots")
	}
	if diff := cmp.Diff([]string{"only"}, a.Globals().Names()); diff != "" {
		t.Errorf("global names (-want +got):\n%s", diff)
	}
	if a.ID() == b.ID() {
		t.Error("scope ids collide")
	}
}

func TestTrailRollback(t *testing.T) {
	root := scope.NewRoot(scope.NewGlobals(), nil)
	root.Define("i", value.Int(0))
	outer := root.Create(nil, nil, value.Nil, value.Nil)
	outer.Define("n", value.Int(1))

	root.Mark()
	if err := outer.Assign("n", value.Int(2)); err != nil {
		t.Fatal(err)
	}
	if err := outer.Assign("n", value.Int(3)); err != nil {
		t.Fatal(err)
	}
	root.Define("i", value.Int(5))
	root.Define("extra", value.Bool(true))
	fresh := outer.Create(nil, nil, value.Nil, value.Nil)
	fresh.Define("tmp", value.Int(9))

	root.Rollback()
	if diff := cmp.Diff([]string{"i"}, root.Names()); diff != "" {
		t.Errorf("root names after rollback (-want +got):\n%s", diff)
	}
	if v, _ := root.Get("i"); v.I64 != 0 {
		t.Errorf("i = %s after rollback", v)
	}
	if v, _ := outer.Get("n"); v.I64 != 1 {
		t.Errorf("n = %s after rollback", v)
	}

	// Rollback marks again, so a second round undoes only its own changes.
	if err := outer.Assign("n", value.Int(4)); err != nil {
		t.Fatal(err)
	}
	outer.Rollback()
	if v, _ := outer.Get("n"); v.I64 != 1 {
		t.Errorf("n = %s after second rollback", v)
	}

	root.Release()
	root.Define("i", value.Int(8))
	root.Rollback()
	if v, _ := root.Get("i"); v.I64 != 8 {
		t.Errorf("change after release undone: i = %s", v)
	}
}
