package vm

import (
	"context"
	"fmt"

	"sandvm/pkg/compiler"
	"sandvm/pkg/future"
	"sandvm/pkg/interpreter"
	"sandvm/pkg/value"
)

type State int

const (
	Idle State = iota
	Running
	Suspended
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Suspended:
		return "suspended"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Start compiles and evaluates src. The returned future settles with the
// program's completion value once the evaluation ends, resuming it as often
// as it suspends. A second evaluation while one is running or suspended is
// rejected with ErrBusy. Cancelling ctx while suspended rejects the
// evaluation with the context error.
func (vm *VM) Start(ctx context.Context, src string) *future.Future[value.Value] {
	if err := vm.acquire(); err != nil {
		return future.RejectedWith[value.Value](err)
	}

	prog, err := vm.compiler.Compile(src)
	if err != nil {
		vm.finish()
		return future.RejectedWith[value.Value](err)
	}

	run := &interpreter.Run{Program: prog, Scope: vm.root}
	return vm.drive(ctx, prog, func() (value.Value, error) {
		return vm.interp.Start(ctx, run)
	})
}

// drive produces a program value under the root frame. An intercepted value
// suspends the evaluation; anything else settles it.
func (vm *VM) drive(ctx context.Context, prog *compiler.Program, produce func() (value.Value, error)) *future.Future[value.Value] {
	vm.mu.Lock()
	vm.program = prog
	vm.mu.Unlock()

	suspended := false
	final := future.Unwrap(func() (value.Value, error) {
		return vm.underRoot(produce)
	}, func(f *future.Future[value.Value], tok future.Token) *future.Future[value.Value] {
		suspended = true
		return vm.suspend(ctx, f, tok)
	})

	if !suspended {
		vm.finish()
	}
	return final
}

// underRoot pushes the root frame, runs fn and leaves the stack empty
func (vm *VM) underRoot(fn func() (value.Value, error)) (value.Value, error) {
	vm.stack.Push(vm.entry, vm.root)
	return vm.guard(0, fn)
}

func (vm *VM) suspend(ctx context.Context, f *future.Future[value.Value], tok future.Token) *future.Future[value.Value] {
	out := future.New[value.Value]()
	vm.park(tok)
	go vm.resume(ctx, f, tok, out)
	return out
}

// park records the suspension point and reports it to the suspend hook
func (vm *VM) park(tok future.Token) {
	vm.mu.Lock()
	vm.state = Suspended
	vm.token = tok
	vm.mu.Unlock()

	vm.logger.Debug("Evaluation suspended", "vm", vm.name, "token", tok)
	if vm.hook == nil {
		return
	}

	snap, err := vm.Snapshot()
	if err != nil {
		vm.logger.Warn("Cannot snapshot suspended evaluation", "vm", vm.name, "error", err)
		return
	}
	vm.hook(snap)
}

// resume waits for each intercepted future in turn and continues the
// evaluation with its resolution until the evaluation settles.
func (vm *VM) resume(ctx context.Context, f *future.Future[value.Value], tok future.Token, out *future.Future[value.Value]) {
	for {
		resolved, err := f.Await(ctx)
		if err != nil {
			vm.logger.Debug("Suspended evaluation failed", "vm", vm.name, "error", err)
			vm.finish()
			out.Reject(err)
			return
		}

		vm.mu.Lock()
		vm.state = Running
		vm.mu.Unlock()
		vm.logger.Debug("Resuming", "vm", vm.name, "token", tok, "value", resolved)

		again := false
		next := future.Unwrap(func() (value.Value, error) {
			return vm.underRoot(func() (value.Value, error) {
				return vm.cont.Continue(ctx, tok, resolved)
			})
		}, func(nf *future.Future[value.Value], ntok future.Token) *future.Future[value.Value] {
			f, tok, again = nf, ntok, true
			vm.park(ntok)
			return nf
		})
		if again {
			continue
		}

		v, err := next.Result()
		vm.finish()
		if err != nil {
			out.Reject(err)
		} else {
			out.Resolve(v)
		}
		return
	}
}

func (vm *VM) acquire() error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.state != Idle {
		return fmt.Errorf("%w (%s)", ErrBusy, vm.state)
	}
	vm.state = Running
	return nil
}

// finish returns the controller to idle and forgets the evaluation
func (vm *VM) finish() {
	vm.mu.Lock()
	vm.state = Idle
	vm.program = nil
	vm.token = future.Token{}
	vm.mu.Unlock()

	vm.interp.Done()
}

// Token returns the suspension point of the suspended evaluation
func (vm *VM) Token() (future.Token, bool) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.token, vm.state == Suspended
}

var (
	_ Interpreter         = (*interpreter.Interpreter)(nil)
	_ interpreter.Capture = capture{}
)
