package future

import (
	"fmt"
	"strings"
)

// Point describes one execution stack frame at the moment of interception.
type Point struct {
	Depth       int    `cbor:"1,keyasint"`
	Fragment    int    `cbor:"2,keyasint"` // fragment id of the frame's scope data
	Caller      string `cbor:"3,keyasint"`
	LinkCounter int    `cbor:"4,keyasint"`
}

// Token is the pending-positions description handed to the interpreter that
// continues a suspended evaluation.
type Token struct {
	Statement int     `cbor:"1,keyasint"` // top-level statement holding the suspended await
	Site      int     `cbor:"2,keyasint"` // await site id
	Frames    []Point `cbor:"3,keyasint"` // execution stack, bottom first
}

func (t Token) String() string {
	frames := make([]string, len(t.Frames))
	for i, p := range t.Frames {
		frames[i] = fmt.Sprintf("%s#%d@%d", p.Caller, p.Fragment, p.LinkCounter)
	}
	return fmt.Sprintf("stmt=%d site=%d stack=[%s]", t.Statement, t.Site, strings.Join(frames, " "))
}

// Carrier is implemented by values that may carry an intercepted future.
type Carrier[T any] interface {
	Intercepted() (*Future[T], bool)
}

// Unwrap runs produce synchronously and settles the returned future with its
// outcome. When produce returns a value carrying an intercepted future,
// intercept is called with that future and its token instead, and the future
// it returns becomes the final one.
func Unwrap[T Carrier[T]](produce func() (T, error), intercept func(*Future[T], Token) *Future[T]) *Future[T] {
	v, err := produce()
	if err != nil {
		return RejectedWith[T](err)
	}

	if f, ok := v.Intercepted(); ok {
		t, _ := f.Token()
		return intercept(f, t)
	}

	return ResolvedWith(v)
}
