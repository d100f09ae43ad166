package interpreter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"sandvm/pkg/compiler"
	"sandvm/pkg/future"
	"sandvm/pkg/lexer"
	"sandvm/pkg/parser/ast"
	"sandvm/pkg/scope"
	"sandvm/pkg/value"
)

var (
	ErrMaxStepsExceeded = errors.New("maximum steps exceeded")
	ErrReplayDiverged   = errors.New("replay diverged from the recorded journal")
)

// Capture is the protocol instrumented execution reports calls and closure
// instantiations through. It is passed explicitly to every Evaluator.
type Capture interface {
	// Enter opens the scope for a call of caller and makes it the current frame.
	Enter(caller *value.Closure, evaluate scope.EvalFunc, environment, this value.Value) *scope.Scope
	// Link associates closure with the next child fragment of the current frame.
	Link(closure *value.Closure) *scope.Scope
	// Exit closes the current frame and returns ret unchanged.
	Exit(ret value.Value) value.Value
	// Frames describes the current frames, bottom first.
	Frames() []future.Point
}

// RuntimeError is a failure raised while executing a program.
type RuntimeError struct {
	Program string
	Pos     lexer.Position
	Err     error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s:%s: %v", e.Program, e.Pos, e.Err)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// Suspension unwinds execution from an await on an intercepting future.
type Suspension struct {
	Future *future.Future[value.Value]
	Site   int
	Frames []future.Point
}

func (s *Suspension) Error() string {
	return fmt.Sprintf("suspended at await site %d", s.Site)
}

// Evaluator executes instrumented programs by walking their syntax trees.
type Evaluator struct {
	capture  Capture
	evaluate scope.EvalFunc // handed to every scope a call creates
	out      io.Writer      // output writer for print
	logger   *log.Logger

	maxSteps int // maximum steps (0 = unlimited)
	steps    int // steps executed in the current run

	ctx    context.Context // context of the run in flight
	name   string          // program name for error attribution
	oracle *oracle
}

type Option func(*Evaluator)

// WithWriter sets the output writer for print
func WithWriter(w io.Writer) Option {
	return func(e *Evaluator) { e.out = w }
}

// WithMaxSteps sets a maximum number of steps per run before returning ErrMaxStepsExceeded
func WithMaxSteps(n int) Option {
	return func(e *Evaluator) { e.maxSteps = n }
}

// WithLogger sets the logger used for debug output
func WithLogger(l *log.Logger) Option {
	return func(e *Evaluator) { e.logger = l }
}

// WithEvalFunc sets the evaluate function attached to scopes created by calls
func WithEvalFunc(fn scope.EvalFunc) Option {
	return func(e *Evaluator) { e.evaluate = fn }
}

// NewEvaluator creates an Evaluator reporting to capture
func NewEvaluator(capture Capture, opts ...Option) *Evaluator {
	e := &Evaluator{capture: capture, ctx: context.Background(), oracle: &oracle{}}
	for _, o := range opts {
		o(e)
	}

	if e.out == nil {
		e.out = os.Stdout
	}
	if e.logger == nil {
		e.logger = log.Default()
	}

	return e
}

// Output returns the output writer used for print
func (e *Evaluator) Output() io.Writer {
	return e.out
}

// Replaying reports whether recorded await resolutions are still being consumed.
// Output produced while replaying was already produced by the original run.
func (e *Evaluator) Replaying() bool {
	return e.oracle.pending()
}

// Run is one top-level execution of a program. It survives suspensions and is
// passed back to the Evaluator to continue.
type Run struct {
	Program *compiler.Program
	Scope   *scope.Scope  // root scope
	From    int           // first top-level statement to execute
	Journal []Resolution  // resolutions consumed, in order, by the awaits replayed

	closures   []*value.Closure // top-level closures, linked once
	marked     bool             // statement From began and its binding changes are on the trail
	completion value.Value
}

// Statement returns the index of the top-level statement the run resumes at
func (r *Run) Statement() int {
	return r.From
}

// Run executes r.Program from statement r.From in r.Scope. The capture's
// current frame must be the root frame.
//
// When an await suspends, the intercepting future is stamped with its token
// and returned as the program's value. Re-running the same Run from the
// token's statement first undoes every binding change that statement made,
// in any scope, so it executes again from the state it started with.
func (e *Evaluator) Run(ctx context.Context, r *Run) (value.Value, error) {
	e.begin(ctx, r.Program.Name, r.Journal)
	defer e.end()

	act := &activation{scope: r.Scope}
	if r.closures == nil {
		r.closures = e.link(r.Program.AST.Hoisted)
	}
	act.closures = r.closures

	stmts := r.Program.AST.Stmts
	for i := r.From; i < len(stmts); i++ {
		if i == r.From && r.marked {
			r.Scope.Rollback()
		} else {
			r.Scope.Mark()
			r.marked = true
		}
		r.From = i

		_, v, err := e.exec(act, stmts[i])
		if err != nil {
			var s *Suspension
			if errors.As(err, &s) {
				tok := future.Token{Statement: i, Site: s.Site, Frames: s.Frames}
				s.Future.Intercept(tok)
				e.logger.Debug("Suspended", "program", r.Program.Name, "token", tok)
				return value.Future(s.Future), nil
			}
			r.Scope.Release()
			return value.Nil, err
		}

		if _, ok := stmts[i].(*ast.ExprStmt); ok {
			r.completion = v
		}
	}

	r.From = len(stmts)
	r.Scope.Release()
	return r.completion, nil
}

// Exec executes prog in s, whose frame the capture must have entered already.
// It returns the completion value. Suspensions surface as *Suspension errors.
func (e *Evaluator) Exec(s *scope.Scope, prog *compiler.Program) (value.Value, error) {
	act := &activation{scope: s}
	act.closures = e.link(prog.AST.Hoisted)

	prev := e.name
	e.name = prog.Name
	defer func() { e.name = prev }()

	completion := value.Nil
	for _, stmt := range prog.AST.Stmts {
		_, v, err := e.exec(act, stmt)
		if err != nil {
			return value.Nil, err
		}
		if _, ok := stmt.(*ast.ExprStmt); ok {
			completion = v
		}
	}
	return completion, nil
}

// Call invokes a function value with args
func (e *Evaluator) Call(fn value.Value, args ...value.Value) (value.Value, error) {
	return e.call(fn, args, lexer.Position{})
}

func (e *Evaluator) begin(ctx context.Context, name string, journal []Resolution) {
	e.ctx = ctx
	e.name = name
	e.steps = 0
	e.oracle = &oracle{journal: journal}
}

func (e *Evaluator) end() {
	e.ctx = context.Background()
	e.oracle = &oracle{}
}

// step counts one unit of work against the step limit
func (e *Evaluator) step(at lexer.Position) error {
	if e.maxSteps > 0 && e.steps >= e.maxSteps {
		return e.errorf(at, "%w", ErrMaxStepsExceeded)
	}
	e.steps++

	if err := e.ctx.Err(); err != nil {
		return e.errorf(at, "%w", err)
	}
	return nil
}

func (e *Evaluator) errorf(at lexer.Position, format string, args ...any) error {
	return &RuntimeError{Program: e.name, Pos: at, Err: fmt.Errorf(format, args...)}
}
