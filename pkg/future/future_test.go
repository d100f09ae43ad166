package future_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"sandvm/pkg/future"
)

// box is a minimal Carrier used to exercise Unwrap.
type box struct {
	n   int
	fut *future.Future[box]
}

func (b box) Intercepted() (*future.Future[box], bool) {
	if b.fut != nil && b.fut.Intercepted() {
		return b.fut, true
	}
	return nil, false
}

func TestSettleOnce(t *testing.T) {
	f := future.New[int]()
	if f.State() != future.Pending {
		t.Fatalf("new future state = %s", f.State())
	}

	if !f.Resolve(1) {
		t.Fatal("first Resolve reported false")
	}
	if f.Resolve(2) || f.Reject(errors.New("late")) {
		t.Error("second settle reported true")
	}

	v, err := f.Await(context.Background())
	if v != 1 || err != nil {
		t.Errorf("Await = %d, %v", v, err)
	}
	if f.State() != future.Resolved {
		t.Errorf("state = %s", f.State())
	}
}

func TestRejectNilError(t *testing.T) {
	f := future.New[int]()
	f.Reject(nil)
	if _, err := f.Await(context.Background()); !errors.Is(err, future.ErrAbandoned) {
		t.Errorf("Await error = %v", err)
	}
}

func TestAwaitContext(t *testing.T) {
	f := future.New[string]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := f.Await(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Await error = %v", err)
	}
	if f.State() != future.Pending {
		t.Error("context expiry settled the future")
	}
}

func TestWatch(t *testing.T) {
	f := future.New[int]()

	var got []int
	f.Watch(func(v int, err error) { got = append(got, v) })
	f.Resolve(7)
	f.Watch(func(v int, err error) { got = append(got, v*10) })

	if diff := cmp.Diff([]int{7, 70}, got); diff != "" {
		t.Errorf("watch calls (-want +got):\n%s", diff)
	}
}

func TestInterceptToken(t *testing.T) {
	f := future.NewIntercepting[int]()
	if !f.Intercepting() || f.Intercepted() {
		t.Fatal("fresh intercepting future in wrong state")
	}

	tok := future.Token{Statement: 2, Site: 1, Frames: []future.Point{{Depth: 0, Fragment: 0, Caller: "vm"}}}
	f.Intercept(tok)

	got, ok := f.Token()
	if !ok {
		t.Fatal("token missing after Intercept")
	}
	if diff := cmp.Diff(tok, got); diff != "" {
		t.Errorf("token (-want +got):\n%s", diff)
	}
	if got.String() != "stmt=2 site=1 stack=[vm#0@0]" {
		t.Errorf("token string = %q", got.String())
	}
}

func TestUnwrapValue(t *testing.T) {
	called := false
	f := future.Unwrap(func() (box, error) { return box{n: 3}, nil }, func(*future.Future[box], future.Token) *future.Future[box] {
		called = true
		return nil
	})

	v, err := f.Await(context.Background())
	if err != nil || v.n != 3 || called {
		t.Errorf("Unwrap = %+v, %v, intercept called %v", v, err, called)
	}
}

func TestUnwrapError(t *testing.T) {
	boom := errors.New("boom")
	f := future.Unwrap(func() (box, error) { return box{}, boom }, nil)

	if _, err := f.Await(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Unwrap error = %v", err)
	}
}

func TestUnwrapIntercept(t *testing.T) {
	pending := future.NewIntercepting[box]()
	pending.Intercept(future.Token{Statement: 4, Site: 9})

	var gotTok future.Token
	final := future.Unwrap(func() (box, error) { return box{fut: pending}, nil }, func(f *future.Future[box], tok future.Token) *future.Future[box] {
		if f != pending {
			t.Error("intercept received a different future")
		}
		gotTok = tok
		out := future.New[box]()
		f.Watch(func(b box, err error) { out.Resolve(box{n: b.n + 1}) })
		return out
	})

	if final.State() != future.Pending {
		t.Fatal("final future settled before the intercepted one")
	}
	pending.Resolve(box{n: 41})

	v, err := final.Await(context.Background())
	if err != nil || v.n != 42 {
		t.Errorf("final = %+v, %v", v, err)
	}
	if gotTok.Statement != 4 || gotTok.Site != 9 {
		t.Errorf("token = %+v", gotTok)
	}
}

func TestUnwrapIgnoresUninterceptedFuture(t *testing.T) {
	plain := future.NewIntercepting[box]()
	final := future.Unwrap(func() (box, error) { return box{n: 1, fut: plain}, nil }, func(*future.Future[box], future.Token) *future.Future[box] {
		t.Error("intercept called for a future without a token")
		return nil
	})

	if v, err := final.Await(context.Background()); err != nil || v.n != 1 {
		t.Errorf("final = %+v, %v", v, err)
	}
}
