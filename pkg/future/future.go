// Package future provides settle-once futures and the interception wrapper that
// turns a producer's intercepted future into a suspended computation.
package future

import (
	"context"
	"errors"
	"sync"
)

var ErrAbandoned = errors.New("future abandoned")

type State int

const (
	Pending State = iota
	Resolved
	Rejected
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Resolved:
		return "resolved"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Future is a value that settles exactly once.
//
// An intercepting future marks an asynchronous operation that must suspend
// step-wise execution instead of being awaited inline. When execution
// suspends on it, the suspension point is recorded on the future as a Token.
type Future[T any] struct {
	mu           sync.Mutex
	state        State
	value        T
	err          error
	done         chan struct{}
	watchers     []func(T, error)
	intercepting bool
	token        *Token
}

// New creates a pending future
func New[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// NewIntercepting creates a pending future that requires suspension when awaited
func NewIntercepting[T any]() *Future[T] {
	f := New[T]()
	f.intercepting = true
	return f
}

// ResolvedWith creates a future already resolved with v
func ResolvedWith[T any](v T) *Future[T] {
	f := New[T]()
	f.Resolve(v)
	return f
}

// RejectedWith creates a future already rejected with err
func RejectedWith[T any](err error) *Future[T] {
	f := New[T]()
	f.Reject(err)
	return f
}

// Resolve settles the future with v. It reports false if the future was already settled.
func (f *Future[T]) Resolve(v T) bool {
	return f.settle(Resolved, v, nil)
}

// Reject settles the future with err. It reports false if the future was already settled.
func (f *Future[T]) Reject(err error) bool {
	if err == nil {
		err = ErrAbandoned
	}
	var zero T
	return f.settle(Rejected, zero, err)
}

func (f *Future[T]) settle(state State, v T, err error) bool {
	f.mu.Lock()
	if f.state != Pending {
		f.mu.Unlock()
		return false
	}
	f.state = state
	f.value = v
	f.err = err
	watchers := f.watchers
	f.watchers = nil
	close(f.done)
	f.mu.Unlock()

	for _, w := range watchers {
		w(v, err)
	}
	return true
}

// Watch registers fn to run once the future settles. If it already has, fn runs immediately.
func (f *Future[T]) Watch(fn func(T, error)) {
	f.mu.Lock()
	if f.state == Pending {
		f.watchers = append(f.watchers, fn)
		f.mu.Unlock()
		return
	}
	v, err := f.value, f.err
	f.mu.Unlock()
	fn(v, err)
}

// Done returns a channel closed when the future settles
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// State returns the current state
func (f *Future[T]) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Result returns the settled value and error. It must only be called after Done is closed.
func (f *Future[T]) Result() (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value, f.err
}

// Await blocks until the future settles or ctx is done
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.Result()
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Intercepting reports whether awaiting the future requires suspension
func (f *Future[T]) Intercepting() bool {
	return f.intercepting
}

// Intercept records where execution suspended on the future
func (f *Future[T]) Intercept(t Token) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = &t
}

// Token returns the suspension point recorded by Intercept
func (f *Future[T]) Token() (Token, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.token == nil {
		return Token{}, false
	}
	return *f.token, true
}

// Intercepted reports whether execution has suspended on the future
func (f *Future[T]) Intercepted() bool {
	_, ok := f.Token()
	return ok
}
