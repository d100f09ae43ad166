package scope

import "sandvm/pkg/value"

// Trail undoes binding changes made to a scope chain since the last Mark.
// Only the first change of each binding is recorded, and scopes created after
// the mark are skipped: nothing that existed at the mark can reach them once
// the changes are undone.
type Trail struct {
	armed bool
	since int64 // highest scope id at the mark
	undo  []change
	seen  map[binding]struct{}
}

type binding struct {
	scope *Scope
	name  string
}

type change struct {
	binding
	prev    value.Value
	existed bool
}

func (t *Trail) record(s *Scope, name string) {
	if t == nil || !t.armed || s.id > t.since {
		return
	}
	b := binding{scope: s, name: name}
	if _, ok := t.seen[b]; ok {
		return
	}
	t.seen[b] = struct{}{}
	prev, existed := s.bindings[name]
	t.undo = append(t.undo, change{binding: b, prev: prev, existed: existed})
}

// Mark starts recording binding changes anywhere in the chain of s,
// forgetting any earlier record.
func (s *Scope) Mark() {
	t := s.trail
	t.armed = true
	t.since = lastID.Load()
	t.undo = t.undo[:0]
	t.seen = make(map[binding]struct{})
}

// Rollback undoes every change recorded since the last Mark and marks again.
func (s *Scope) Rollback() {
	t := s.trail
	for i := len(t.undo) - 1; i >= 0; i-- {
		c := t.undo[i]
		if c.existed {
			c.scope.bindings[c.name] = c.prev
		} else {
			delete(c.scope.bindings, c.name)
		}
	}
	s.Mark()
}

// Release stops recording and drops the record
func (s *Scope) Release() {
	t := s.trail
	t.armed = false
	t.undo = nil
	t.seen = nil
}
