package vm

import (
	"fmt"

	"sandvm/pkg/future"
	"sandvm/pkg/scope"
	"sandvm/pkg/value"
)

// ContractViolation reports that instrumented code linked closures out of step
// with the fragment tree it was compiled with. It is raised as a panic.
type ContractViolation struct {
	Fragment string // fragment the frame was linking against
	Counter  int    // link counter at the failing link
	Children int
	Msg      string
}

func (e *ContractViolation) Error() string {
	return fmt.Sprintf("capture contract violated in %s at link %d of %d: %s", e.Fragment, e.Counter, e.Children, e.Msg)
}

// capture implements interpreter.Capture over the VM's stack, registry and root scope.
type capture struct {
	vm *VM
}

// Enter creates the scope for a call of caller and pushes its frame.
func (c capture) Enter(caller *value.Closure, evaluate scope.EvalFunc, environment, this value.Value) *scope.Scope {
	vm := c.vm

	fn := caller
	if caller == vm.entry {
		fn = nil
	}
	s := vm.root.Create(fn, evaluate, environment, this)

	data, _ := vm.registry.Fragment(caller)
	s.SetData(data)

	vm.stack.Push(caller, s)
	vm.logger.Debug("Enter", "caller", callerName(caller), "scope", s.ID(), "depth", vm.stack.Len())
	return s
}

// Link associates closure with the next child of the current frame's fragment
// and binds it to the frame's scope.
func (c capture) Link(closure *value.Closure) *scope.Scope {
	vm := c.vm

	f := vm.stack.Top()
	if f == nil {
		panic(&ContractViolation{Fragment: "<none>", Msg: "link outside any call"})
	}

	data := f.Scope.Data()
	if data == nil && f.Scope == vm.root {
		data = vm.compiler.Top()
	}
	if data == nil {
		panic(&ContractViolation{Fragment: "<unknown>", Counter: f.LinkCounter, Msg: "frame has no fragment data"})
	}
	if f.LinkCounter >= len(data.Children) {
		panic(&ContractViolation{Fragment: data.String(), Counter: f.LinkCounter, Children: len(data.Children), Msg: "more closures than fragment children"})
	}

	child := data.Children[f.LinkCounter]
	if child.Node != closure.Node {
		panic(&ContractViolation{Fragment: data.String(), Counter: f.LinkCounter, Children: len(data.Children), Msg: "closure does not match child " + child.String()})
	}
	f.LinkCounter++

	vm.registry.Record(closure, child)
	return f.Scope.Link(closure)
}

// Exit pops the current frame and returns ret unchanged
func (c capture) Exit(ret value.Value) value.Value {
	f := c.vm.stack.Pop()
	c.vm.logger.Debug("Exit", "caller", callerName(f.Caller), "links", f.LinkCounter, "depth", c.vm.stack.Len())
	return ret
}

// Frames describes the execution stack for a resume token
func (c capture) Frames() []future.Point {
	return c.vm.stack.Points(c.vm.name)
}

func callerName(fn *value.Closure) string {
	if fn == nil || fn.Name == "" {
		return "<anonymous>"
	}
	return fn.Name
}
