// Package vm ties compilation, the execution stack, closure capture and
// suspension together behind a single evaluation entry point.
package vm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/log"

	"sandvm/pkg/compiler"
	"sandvm/pkg/future"
	"sandvm/pkg/interpreter"
	"sandvm/pkg/scope"
	"sandvm/pkg/snapshot"
	"sandvm/pkg/value"
)

var (
	ErrBusy            = errors.New("vm is busy with another evaluation")
	ErrNotSuspended    = errors.New("vm has no suspended evaluation")
	ErrUnknownFunction = errors.New("function was not created by this vm")
	ErrCannotSuspend   = errors.New("cannot suspend outside a top-level evaluation")
)

// Interpreter continues a suspended evaluation from the positions recorded in tok.
type Interpreter interface {
	Continue(ctx context.Context, tok future.Token, resolved value.Value) (value.Value, error)
}

// VM is one isolated runtime. It evaluates one top-level program at a time.
type VM struct {
	name     string
	out      io.Writer
	maxSteps int
	logger   *log.Logger
	wrap     func(Interpreter) Interpreter
	hook     func(snapshot.Snapshot)

	compiler *compiler.Compiler
	eval     *interpreter.Evaluator
	interp   *interpreter.Interpreter
	cont     Interpreter // continuation collaborator, interp unless wrapped

	stack    *Stack
	registry *Registry
	entry    *value.Closure // stands for the top level in frames and the registry
	globals  *scope.Globals
	root     *scope.Scope

	mu      sync.Mutex
	state   State
	program *compiler.Program // evaluation in flight or suspended
	token   future.Token      // valid while suspended
}

type Option func(*VM)

// WithName sets the synthetic name programs are tagged with
func WithName(name string) Option {
	return func(vm *VM) { vm.name = name }
}

// WithWriter sets the output writer for print
func WithWriter(w io.Writer) Option {
	return func(vm *VM) { vm.out = w }
}

// WithMaxSteps limits the steps of each run
func WithMaxSteps(n int) Option {
	return func(vm *VM) { vm.maxSteps = n }
}

// WithLogger sets the logger used for debug output
func WithLogger(l *log.Logger) Option {
	return func(vm *VM) { vm.logger = l }
}

// WithInterpreter wraps the interpreter that continues suspended evaluations
func WithInterpreter(wrap func(Interpreter) Interpreter) Option {
	return func(vm *VM) { vm.wrap = wrap }
}

// WithSuspendHook registers fn to receive a snapshot each time an evaluation suspends
func WithSuspendHook(fn func(snapshot.Snapshot)) Option {
	return func(vm *VM) { vm.hook = fn }
}

// New creates a VM with a fresh global environment
func New(opts ...Option) *VM {
	vm := &VM{name: "sandvm"}
	for _, o := range opts {
		o(vm)
	}

	if vm.out == nil {
		vm.out = os.Stdout
	}
	if vm.logger == nil {
		vm.logger = log.Default()
	}

	vm.compiler = compiler.New(compiler.WithName(vm.name), compiler.WithLogger(vm.logger))
	vm.eval = interpreter.NewEvaluator(capture{vm},
		interpreter.WithWriter(vm.out),
		interpreter.WithMaxSteps(vm.maxSteps),
		interpreter.WithLogger(vm.logger),
		interpreter.WithEvalFunc(vm.evaluate),
	)
	vm.interp = interpreter.NewInterpreter(vm.eval)
	vm.cont = vm.interp
	if vm.wrap != nil {
		vm.cont = vm.wrap(vm.interp)
	}

	vm.stack = NewStack()
	vm.entry = &value.Closure{Name: vm.name}
	vm.registry = NewRegistry(vm.entry)
	vm.reset()

	return vm
}

// reset builds a fresh global environment and root scope
func (vm *VM) reset() {
	vm.globals = scope.NewGlobals()
	vm.root = scope.NewRoot(vm.globals, vm.evaluate)
	vm.installGlobals()
}

// Name returns the synthetic name programs are tagged with
func (vm *VM) Name() string {
	return vm.name
}

// State returns the controller state
func (vm *VM) State() State {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.state
}

// Root returns the root scope of the current global environment
func (vm *VM) Root() *scope.Scope {
	return vm.root
}

// Compiler returns the compiler programs are compiled with
func (vm *VM) Compiler() *compiler.Compiler {
	return vm.compiler
}

// Eval evaluates src and waits for the result, across suspensions. It
// returns only once the evaluation has settled and the VM is idle again,
// also when ctx is cancelled.
func (vm *VM) Eval(ctx context.Context, src string) (value.Value, error) {
	f := vm.Start(ctx, src)
	<-f.Done()
	return f.Result()
}

// FragmentOf returns the fragment fn was instantiated from
func (vm *VM) FragmentOf(fn value.Value) (*compiler.Fragment, bool) {
	if fn.Kind != value.KindFunction {
		return nil, false
	}
	frag, ok := vm.registry.Fragment(fn.Fn)
	return frag, ok && frag != nil
}

// FunctionOf returns the function most recently instantiated from frag
func (vm *VM) FunctionOf(frag *compiler.Fragment) (value.Value, bool) {
	fn, ok := vm.registry.Function(frag)
	if !ok {
		return value.Nil, false
	}
	return value.Function(fn), true
}

// ScopeOf returns the scope fn was linked into
func (vm *VM) ScopeOf(fn value.Value) (*scope.Scope, bool) {
	if _, ok := vm.FragmentOf(fn); !ok {
		return nil, false
	}
	s := scope.ParentScope(fn.Fn)
	return s, s != nil
}

// OriginalSourceOf re-derives the source text of the literal fn was instantiated from
func (vm *VM) OriginalSourceOf(fn value.Value) (string, error) {
	frag, ok := vm.FragmentOf(fn)
	if !ok {
		return "", ErrUnknownFunction
	}
	return vm.compiler.FunctionSource(frag)
}

// Environment returns the environment value of fn's enclosing scope
func (vm *VM) Environment(fn value.Value) (value.Value, error) {
	s, ok := vm.ScopeOf(fn)
	if !ok {
		return value.Nil, ErrUnknownFunction
	}
	return s.Environment(), nil
}

// SetEnvironment attaches v to fn's enclosing scope
func (vm *VM) SetEnvironment(fn value.Value, v value.Value) error {
	s, ok := vm.ScopeOf(fn)
	if !ok {
		return ErrUnknownFunction
	}
	s.SetEnvironment(v)
	return nil
}

// EnvironmentVariable resolves name as seen from fn's enclosing scope
func (vm *VM) EnvironmentVariable(fn value.Value, name string) (value.Value, error) {
	s, ok := vm.ScopeOf(fn)
	if !ok {
		return value.Nil, ErrUnknownFunction
	}
	return s.Get(name)
}

// EvalInScope evaluates code in fn's enclosing scope. The VM must be idle.
func (vm *VM) EvalInScope(fn value.Value, code string) (value.Value, error) {
	s, ok := vm.ScopeOf(fn)
	if !ok {
		return value.Nil, ErrUnknownFunction
	}

	if err := vm.acquire(); err != nil {
		return value.Nil, err
	}
	defer vm.finish()

	v, err := vm.guard(vm.stack.Len(), func() (value.Value, error) {
		return s.Eval(code)
	})

	var susp *interpreter.Suspension
	if errors.As(err, &susp) {
		return value.Nil, fmt.Errorf("%w: await site %d", ErrCannotSuspend, susp.Site)
	}
	return v, err
}

// ClearEnvironment discards the global environment and every captured
// closure association, and rebuilds the environment from scratch.
func (vm *VM) ClearEnvironment() error {
	if err := vm.acquire(); err != nil {
		return err
	}
	defer vm.finish()

	vm.reset()
	vm.registry.Reset(vm.entry)
	vm.logger.Info("Environment cleared", "vm", vm.name)
	return nil
}

// evaluate is the scope-level evaluate function. Code runs in a child of s,
// so it sees the bindings of s while its own lets stay local.
func (vm *VM) evaluate(s *scope.Scope, code string) (value.Value, error) {
	prog, err := vm.compiler.Compile(code)
	if err != nil {
		return value.Nil, err
	}

	child := s.Create(nil, vm.evaluate, s.Environment(), s.This())
	child.SetData(prog.Top)

	depth := vm.stack.Len()
	vm.stack.Push(s.Owner(), child)
	defer vm.stack.Truncate(depth)

	return vm.eval.Exec(child, prog)
}

// guard runs fn and restores the stack to depth however fn ends. A capture
// contract violation aborts fn and is returned as its error.
func (vm *VM) guard(depth int, fn func() (value.Value, error)) (v value.Value, err error) {
	defer func() {
		vm.stack.Truncate(depth)
		if r := recover(); r != nil {
			cv, ok := r.(*ContractViolation)
			if !ok {
				panic(r)
			}
			vm.logger.Error("Capture contract violated", "vm", vm.name, "error", cv)
			v, err = value.Nil, cv
		}
	}()

	return fn()
}
