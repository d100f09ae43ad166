package vm

import (
	"errors"

	"sandvm/pkg/future"
	"sandvm/pkg/scope"
	"sandvm/pkg/stack"
	"sandvm/pkg/value"
)

var ErrEmptyStack = errors.New("pop from an empty execution stack")

// Frame tracks one active call into instrumented code.
type Frame struct {
	Caller      *value.Closure // the VM's entry closure for the root frame
	Scope       *scope.Scope
	LinkCounter int // children of the scope's fragment linked so far
}

// Stack is the execution stack shadowing real calls.
type Stack struct {
	frames *stack.Stack[*Frame]
}

func NewStack() *Stack {
	return &Stack{frames: stack.NewStack[*Frame]()}
}

// Push places a fresh frame for caller on top
func (s *Stack) Push(caller *value.Closure, sc *scope.Scope) *Frame {
	f := &Frame{Caller: caller, Scope: sc}
	s.frames.Push(f)
	return f
}

// Pop removes the top frame. Popping an empty stack is a programming error and panics.
func (s *Stack) Pop() *Frame {
	f, ok := s.frames.Pop()
	if !ok {
		panic(ErrEmptyStack)
	}
	return f
}

// Top returns the current frame, or nil
func (s *Stack) Top() *Frame {
	f, _ := s.frames.Peek()
	return f
}

func (s *Stack) Len() int {
	return s.frames.Size()
}

// Truncate drops every frame above the first n
func (s *Stack) Truncate(n int) {
	s.frames.Truncate(n)
}

// Points describes the frames bottom first. Callers are named by their closure
// name, the root frame by rootName.
func (s *Stack) Points(rootName string) []future.Point {
	frames := s.frames.Array()
	points := make([]future.Point, len(frames))
	for i, f := range frames {
		p := future.Point{Depth: i, Caller: rootName, LinkCounter: f.LinkCounter}
		if d := f.Scope.Data(); d != nil {
			p.Fragment = d.ID
		}
		if i > 0 && f.Caller != nil {
			p.Caller = f.Caller.Name
			if p.Caller == "" {
				p.Caller = "<anonymous>"
			}
		}
		points[i] = p
	}
	return points
}
