// Package scope implements the lexical scope chain closures are linked into.
package scope

import (
	"errors"
	"fmt"
	"slices"
	"sync/atomic"

	"sandvm/pkg/compiler"
	"sandvm/pkg/value"
)

var (
	ErrUndefined = errors.New("undefined variable")
	ErrNoEval    = errors.New("scope has no evaluate function")
)

// EvalFunc evaluates code in the context of s.
type EvalFunc func(s *Scope, code string) (value.Value, error)

var lastID atomic.Int64

// Globals is the isolated global environment backing a root scope.
type Globals struct {
	bindings map[string]value.Value
}

func NewGlobals() *Globals {
	return &Globals{bindings: make(map[string]value.Value)}
}

// Define binds name in the global environment
func (g *Globals) Define(name string, v value.Value) {
	g.bindings[name] = v
}

// Lookup returns the global binding for name
func (g *Globals) Lookup(name string) (value.Value, bool) {
	v, ok := g.bindings[name]
	return v, ok
}

// Names returns the global names, sorted
func (g *Globals) Names() []string {
	names := make([]string, 0, len(g.bindings))
	for n := range g.bindings {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Scope is one lexical environment. Its parent never changes after creation.
type Scope struct {
	id          int64
	parent      *Scope
	globals     *Globals // root only
	data        *compiler.Fragment
	bindings    map[string]value.Value
	owner       *value.Closure
	evaluate    EvalFunc
	environment value.Value
	this        value.Value
	trail       *Trail // shared by the whole chain
}

// NewRoot creates a root scope over globals
func NewRoot(globals *Globals, evaluate EvalFunc) *Scope {
	return &Scope{
		id:       lastID.Add(1),
		globals:  globals,
		bindings: make(map[string]value.Value),
		evaluate: evaluate,
		trail:    &Trail{},
	}
}

// ParentScope returns the scope fn was linked into, or nil when fn was never linked.
func ParentScope(fn *value.Closure) *Scope {
	if fn == nil {
		return nil
	}
	s, _ := fn.Env.(*Scope)
	return s
}

// Create makes the scope for one call of fn. Its parent is the scope fn was
// linked into, or s when fn is nil or unlinked.
func (s *Scope) Create(fn *value.Closure, evaluate EvalFunc, environment, this value.Value) *Scope {
	parent := ParentScope(fn)
	if parent == nil {
		parent = s
	}

	return &Scope{
		id:          lastID.Add(1),
		parent:      parent,
		bindings:    make(map[string]value.Value),
		owner:       fn,
		evaluate:    evaluate,
		environment: environment,
		this:        this,
		trail:       parent.trail,
	}
}

// Link binds closure to s and returns s.
func (s *Scope) Link(closure *value.Closure) *Scope {
	closure.Env = s
	return s
}

// Eval evaluates code in the context of s
func (s *Scope) Eval(code string) (value.Value, error) {
	if s.evaluate == nil {
		return value.Nil, ErrNoEval
	}
	return s.evaluate(s, code)
}

func (s *Scope) ID() int64 {
	return s.id
}

// Parent returns the enclosing scope, nil for a root
func (s *Scope) Parent() *Scope {
	return s.parent
}

// Root walks up to the root scope
func (s *Scope) Root() *Scope {
	r := s
	for r.parent != nil {
		r = r.parent
	}
	return r
}

// Owner returns the function whose call created s, nil for a root
func (s *Scope) Owner() *value.Closure {
	return s.owner
}

// Data returns the fragment whose children this scope's frame links
func (s *Scope) Data() *compiler.Fragment {
	return s.data
}

func (s *Scope) SetData(f *compiler.Fragment) {
	s.data = f
}

// This returns the this binding of the scope
func (s *Scope) This() value.Value {
	return s.this
}

func (s *Scope) Environment() value.Value {
	return s.environment
}

func (s *Scope) SetEnvironment(v value.Value) {
	s.environment = v
}

// Define binds name in s itself
func (s *Scope) Define(name string, v value.Value) {
	s.trail.record(s, name)
	s.bindings[name] = v
}

// Assign updates the nearest existing binding of name.
func (s *Scope) Assign(name string, v value.Value) error {
	for sc := s; sc != nil; sc = sc.parent {
		if _, ok := sc.bindings[name]; ok {
			sc.trail.record(sc, name)
			sc.bindings[name] = v
			return nil
		}
	}
	return fmt.Errorf("%w `%s`", ErrUndefined, name)
}

// Lookup resolves name through the chain and finally the globals.
func (s *Scope) Lookup(name string) (value.Value, bool) {
	sc := s
	for {
		if v, ok := sc.bindings[name]; ok {
			return v, true
		}
		if sc.parent == nil {
			break
		}
		sc = sc.parent
	}
	if sc.globals != nil {
		return sc.globals.Lookup(name)
	}
	return value.Nil, false
}

// Get is Lookup with an error for unbound names
func (s *Scope) Get(name string) (value.Value, error) {
	if v, ok := s.Lookup(name); ok {
		return v, nil
	}
	return value.Nil, fmt.Errorf("%w `%s`", ErrUndefined, name)
}

// Names returns the names bound in s itself, sorted
func (s *Scope) Names() []string {
	names := make([]string, 0, len(s.bindings))
	for n := range s.bindings {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Globals returns the global environment of the chain
func (s *Scope) Globals() *Globals {
	return s.Root().globals
}
