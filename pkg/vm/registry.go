package vm

import (
	"runtime"
	"sync"
	"weak"

	"sandvm/pkg/compiler"
	"sandvm/pkg/value"
)

// Registry associates closures with the fragments they were instantiated
// from, in both directions. Closures are held weakly. A closure's entry holds
// its fragment strongly, so a fragment lives as long as any closure
// instantiated from it, and an entry disappears only once its closure is
// reclaimed.
type Registry struct {
	mu        sync.Mutex
	root      weak.Pointer[value.Closure]
	fragments map[weak.Pointer[value.Closure]]*compiler.Fragment
	functions map[weak.Pointer[compiler.Fragment]]weak.Pointer[value.Closure]
}

// NewRegistry creates a registry in which root maps to the top level
func NewRegistry(root *value.Closure) *Registry {
	return &Registry{
		root:      weak.Make(root),
		fragments: make(map[weak.Pointer[value.Closure]]*compiler.Fragment),
		functions: make(map[weak.Pointer[compiler.Fragment]]weak.Pointer[value.Closure]),
	}
}

// Record associates fn with frag. A later record for the same fragment
// replaces its function.
func (r *Registry) Record(fn *value.Closure, frag *compiler.Fragment) {
	fp, gp := weak.Make(fn), weak.Make(frag)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.fragments[fp]; !ok {
		runtime.AddCleanup(fn, r.forgetFunction, fp)
	}
	if _, ok := r.functions[gp]; !ok {
		runtime.AddCleanup(frag, r.forgetFragment, gp)
	}
	r.fragments[fp] = frag
	r.functions[gp] = fp
}

// Fragment returns the fragment fn was instantiated from. The root closure
// maps to a nil fragment, standing for the top level.
func (r *Registry) Fragment(fn *value.Closure) (*compiler.Fragment, bool) {
	if fn == nil {
		return nil, false
	}
	fp := weak.Make(fn)
	if fp == r.root {
		return nil, true
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	frag, ok := r.fragments[fp]
	return frag, ok
}

// Function returns the closure most recently instantiated from frag
func (r *Registry) Function(frag *compiler.Fragment) (*value.Closure, bool) {
	if frag == nil {
		return nil, false
	}

	r.mu.Lock()
	fp, ok := r.functions[weak.Make(frag)]
	r.mu.Unlock()
	if !ok {
		return nil, false
	}

	fn := fp.Value()
	return fn, fn != nil
}

// Len returns the number of closures with a recorded fragment
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fragments)
}

// Reset forgets every association except the root's
func (r *Registry) Reset(root *value.Closure) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.root = weak.Make(root)
	clear(r.fragments)
	clear(r.functions)
}

func (r *Registry) forgetFunction(fp weak.Pointer[value.Closure]) {
	r.mu.Lock()
	defer r.mu.Unlock()

	frag, ok := r.fragments[fp]
	if !ok {
		return
	}
	delete(r.fragments, fp)
	if gp := weak.Make(frag); r.functions[gp] == fp {
		delete(r.functions, gp)
	}
}

func (r *Registry) forgetFragment(gp weak.Pointer[compiler.Fragment]) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.functions, gp)
}
