package vm

import (
	"errors"
	"fmt"
	"time"

	"sandvm/pkg/future"
	"sandvm/pkg/value"
)

// installGlobals binds the builtins every fresh environment starts with
func (vm *VM) installGlobals() {
	for name, b := range vm.eval.Builtins() {
		vm.globals.Define(name, b)
	}

	builtins := map[string]func([]value.Value) (value.Value, error){
		"later":          later,
		"failLater":      failLater,
		"resolved":       resolved,
		"source":         vm.builtinSource,
		"fragment":       vm.builtinFragment,
		"getEnvironment": vm.builtinGetEnvironment,
		"setEnvironment": vm.builtinSetEnvironment,
		"getVariable":    vm.builtinGetVariable,
		"evalIn":         vm.builtinEvalIn,
	}
	for name, fn := range builtins {
		vm.globals.Define(name, value.NewBuiltin(name, fn))
	}
}

func arity(args []value.Value, n int) error {
	if len(args) != n {
		return fmt.Errorf("want %d arguments, got %d", n, len(args))
	}
	return nil
}

func millis(v value.Value) (time.Duration, error) {
	ms, err := v.AsInt64()
	if err != nil || ms < 0 {
		return 0, fmt.Errorf("invalid delay %s", v.Repr())
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// later(ms, v) returns an intercepting future resolved with v after ms
func later(args []value.Value) (value.Value, error) {
	if err := arity(args, 2); err != nil {
		return value.Nil, err
	}
	d, err := millis(args[0])
	if err != nil {
		return value.Nil, err
	}

	f := future.NewIntercepting[value.Value]()
	v := args[1]
	time.AfterFunc(d, func() { f.Resolve(v) })
	return value.Future(f), nil
}

// failLater(ms, msg) returns an intercepting future rejected with msg after ms
func failLater(args []value.Value) (value.Value, error) {
	if err := arity(args, 2); err != nil {
		return value.Nil, err
	}
	d, err := millis(args[0])
	if err != nil {
		return value.Nil, err
	}

	f := future.NewIntercepting[value.Value]()
	msg := args[1].String()
	time.AfterFunc(d, func() { f.Reject(errors.New(msg)) })
	return value.Future(f), nil
}

// resolved(v) returns an ordinary future already resolved with v
func resolved(args []value.Value) (value.Value, error) {
	if err := arity(args, 1); err != nil {
		return value.Nil, err
	}
	return value.Future(future.ResolvedWith(args[0])), nil
}

func (vm *VM) builtinSource(args []value.Value) (value.Value, error) {
	if err := arity(args, 1); err != nil {
		return value.Nil, err
	}
	src, err := vm.OriginalSourceOf(args[0])
	if err != nil {
		return value.Nil, err
	}
	return value.String(src), nil
}

func (vm *VM) builtinFragment(args []value.Value) (value.Value, error) {
	if err := arity(args, 1); err != nil {
		return value.Nil, err
	}
	frag, ok := vm.FragmentOf(args[0])
	if !ok {
		return value.Nil, nil
	}
	return value.String(frag.String()), nil
}

func (vm *VM) builtinGetEnvironment(args []value.Value) (value.Value, error) {
	if err := arity(args, 1); err != nil {
		return value.Nil, err
	}
	return vm.Environment(args[0])
}

func (vm *VM) builtinSetEnvironment(args []value.Value) (value.Value, error) {
	if err := arity(args, 2); err != nil {
		return value.Nil, err
	}
	return value.Nil, vm.SetEnvironment(args[0], args[1])
}

func (vm *VM) builtinGetVariable(args []value.Value) (value.Value, error) {
	if err := arity(args, 2); err != nil {
		return value.Nil, err
	}
	if args[1].Kind != value.KindString {
		return value.Nil, fmt.Errorf("variable name must be a string, got %s", args[1].Kind)
	}
	return vm.EnvironmentVariable(args[0], args[1].Str)
}

// evalIn runs inside the evaluation in flight, so it bypasses the busy check of EvalInScope
func (vm *VM) builtinEvalIn(args []value.Value) (value.Value, error) {
	if err := arity(args, 2); err != nil {
		return value.Nil, err
	}
	if args[1].Kind != value.KindString {
		return value.Nil, fmt.Errorf("code must be a string, got %s", args[1].Kind)
	}
	s, ok := vm.ScopeOf(args[0])
	if !ok {
		return value.Nil, ErrUnknownFunction
	}
	return s.Eval(args[1].Str)
}
