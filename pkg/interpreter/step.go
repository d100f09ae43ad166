package interpreter

import (
	"errors"
	"math"

	"sandvm/pkg/lexer"
	"sandvm/pkg/parser/ast"
	"sandvm/pkg/scope"
	"sandvm/pkg/value"
)

// activation is one execution of a function body, or of a top level
type activation struct {
	scope    *scope.Scope
	fn       *value.Closure   // nil at top level
	closures []*value.Closure // hoisted closures, indexed by FuncLit.Index
}

type signal int

const (
	sigNone signal = iota
	sigReturn
)

// link instantiates the hoisted function literals in order and links each one
func (e *Evaluator) link(lits []*ast.FuncLit) []*value.Closure {
	closures := make([]*value.Closure, len(lits))
	for i, lit := range lits {
		c := &value.Closure{Name: lit.Name, Node: lit}
		e.capture.Link(c)
		closures[i] = c
	}
	return closures
}

func (e *Evaluator) execBlock(act *activation, stmts []ast.Stmt) (signal, value.Value, error) {
	for _, stmt := range stmts {
		sig, v, err := e.exec(act, stmt)
		if err != nil || sig == sigReturn {
			return sig, v, err
		}
	}
	return sigNone, value.Nil, nil
}

// exec executes a single statement. For expression statements the returned
// value is the expression's value.
func (e *Evaluator) exec(act *activation, stmt ast.Stmt) (signal, value.Value, error) {
	if err := e.step(stmt.Pos()); err != nil {
		return sigNone, value.Nil, err
	}

	switch s := stmt.(type) {
	case *ast.ExprStmt:
		v, err := e.eval(act, s.X)
		return sigNone, v, err

	case *ast.LetStmt:
		v, err := e.eval(act, s.Value)
		if err != nil {
			return sigNone, value.Nil, err
		}
		act.scope.Define(s.Name, v)
		return sigNone, value.Nil, nil

	case *ast.AssignStmt:
		v, err := e.eval(act, s.Value)
		if err != nil {
			return sigNone, value.Nil, err
		}
		if err := act.scope.Assign(s.Name, v); err != nil {
			return sigNone, value.Nil, e.errorf(s.At, "%w", err)
		}
		return sigNone, value.Nil, nil

	case *ast.ReturnStmt:
		if s.Value == nil {
			return sigReturn, value.Nil, nil
		}
		v, err := e.eval(act, s.Value)
		return sigReturn, v, err

	case *ast.Block:
		return e.execBlock(act, s.Stmts)

	case *ast.IfStmt:
		cond, err := e.eval(act, s.Cond)
		if err != nil {
			return sigNone, value.Nil, err
		}
		if cond.Truthy() {
			return e.execBlock(act, s.Then.Stmts)
		}
		if s.Else != nil {
			return e.exec(act, s.Else)
		}
		return sigNone, value.Nil, nil

	case *ast.WhileStmt:
		for {
			cond, err := e.eval(act, s.Cond)
			if err != nil {
				return sigNone, value.Nil, err
			}
			if !cond.Truthy() {
				return sigNone, value.Nil, nil
			}

			sig, v, err := e.execBlock(act, s.Body.Stmts)
			if err != nil || sig == sigReturn {
				return sig, v, err
			}
			if err := e.step(s.At); err != nil {
				return sigNone, value.Nil, err
			}
		}

	default:
		return sigNone, value.Nil, e.errorf(stmt.Pos(), "unsupported statement %T", stmt)
	}
}

func (e *Evaluator) eval(act *activation, expr ast.Expr) (value.Value, error) {
	switch x := expr.(type) {
	case *ast.NumberLit:
		if x.IsFloat {
			return value.Float(x.Float), nil
		}
		return value.Int(x.Int), nil

	case *ast.StringLit:
		return value.String(x.Value), nil

	case *ast.BoolLit:
		return value.Bool(x.Value), nil

	case *ast.NilLit:
		return value.Nil, nil

	case *ast.ThisExpr:
		if act.fn == nil {
			return value.Nil, nil
		}
		return value.Function(act.fn), nil

	case *ast.Ident:
		v, err := act.scope.Get(x.Name)
		if err != nil {
			return value.Nil, e.errorf(x.At, "%w", err)
		}
		return v, nil

	case *ast.FuncLit:
		if x.Index < 0 || x.Index >= len(act.closures) || act.closures[x.Index].Node != x {
			return value.Nil, e.errorf(x.At, "function literal was not instantiated on entry")
		}
		return value.Function(act.closures[x.Index]), nil

	case *ast.UnaryExpr:
		v, err := e.eval(act, x.X)
		if err != nil {
			return value.Nil, err
		}
		return e.evalUnary(x, v)

	case *ast.BinaryExpr:
		return e.evalLogical(act, x)

	case *ast.CallExpr:
		fn, err := e.eval(act, x.Fn)
		if err != nil {
			return value.Nil, err
		}
		args := make([]value.Value, len(x.Args))
		for i, a := range x.Args {
			if args[i], err = e.eval(act, a); err != nil {
				return value.Nil, err
			}
		}
		return e.call(fn, args, x.At)

	case *ast.AwaitExpr:
		return e.await(act, x)

	default:
		return value.Nil, e.errorf(expr.Pos(), "unsupported expression %T", expr)
	}
}

// evalLogical short-circuits and/or and defers everything else to evalBinary
func (e *Evaluator) evalLogical(act *activation, x *ast.BinaryExpr) (value.Value, error) {
	left, err := e.eval(act, x.Left)
	if err != nil {
		return value.Nil, err
	}

	switch x.Op {
	case lexer.AND:
		if !left.Truthy() {
			return left, nil
		}
		return e.eval(act, x.Right)
	case lexer.OR:
		if left.Truthy() {
			return left, nil
		}
		return e.eval(act, x.Right)
	}

	right, err := e.eval(act, x.Right)
	if err != nil {
		return value.Nil, err
	}
	return e.evalBinary(x, left, right)
}

func (e *Evaluator) evalUnary(x *ast.UnaryExpr, v value.Value) (value.Value, error) {
	switch x.Op {
	case lexer.NOT:
		return value.Bool(!v.Truthy()), nil
	case lexer.MINUS:
		switch v.Kind {
		case value.KindInt:
			return value.Int(-v.I64), nil
		case value.KindFloat:
			return value.Float(-v.F64), nil
		}
		return value.Nil, e.errorf(x.At, "cannot negate %s", v.Kind)
	}
	return value.Nil, e.errorf(x.At, "unsupported unary operator %s", x.Op)
}

// evalBinary evaluates an arithmetic or comparison operator on two values
func (e *Evaluator) evalBinary(x *ast.BinaryExpr, a, b value.Value) (value.Value, error) {
	switch x.Op {
	case lexer.EQ:
		return value.Bool(value.Equal(a, b)), nil
	case lexer.NE:
		return value.Bool(!value.Equal(a, b)), nil
	}

	if x.Op == lexer.PLUS && (a.Kind == value.KindString || b.Kind == value.KindString) {
		return value.String(a.String() + b.String()), nil
	}

	if x.Op == lexer.LT || x.Op == lexer.LE || x.Op == lexer.GT || x.Op == lexer.GE {
		if a.Kind == value.KindString && b.Kind == value.KindString {
			return value.Bool(compare(x.Op, cmpStrings(a.Str, b.Str))), nil
		}
	}

	if !a.IsNumber() || !b.IsNumber() {
		return value.Nil, e.errorf(x.At, "unsupported operands for %s: %s and %s", x.Op, a.Kind, b.Kind)
	}

	// choose float if any operand is float
	if a.Kind == value.KindFloat || b.Kind == value.KindFloat {
		af, _ := a.AsFloat64()
		bf, _ := b.AsFloat64()
		switch x.Op {
		case lexer.PLUS:
			return value.Float(af + bf), nil
		case lexer.MINUS:
			return value.Float(af - bf), nil
		case lexer.MULT:
			return value.Float(af * bf), nil
		case lexer.DIV:
			return value.Float(af / bf), nil
		case lexer.MOD:
			// emulate fmod
			return value.Float(math.Mod(af, bf)), nil
		case lexer.LT, lexer.LE, lexer.GT, lexer.GE:
			c := 0
			if af < bf {
				c = -1
			} else if af > bf {
				c = 1
			}
			return value.Bool(compare(x.Op, c)), nil
		}
	} else {
		ai, bi := a.I64, b.I64
		switch x.Op {
		case lexer.PLUS:
			return value.Int(ai + bi), nil
		case lexer.MINUS:
			return value.Int(ai - bi), nil
		case lexer.MULT:
			return value.Int(ai * bi), nil
		case lexer.DIV:
			// integer division (signed)
			if bi == 0 {
				return value.Nil, e.errorf(x.At, "division by zero")
			}
			return value.Int(ai / bi), nil
		case lexer.MOD:
			if bi == 0 {
				return value.Nil, e.errorf(x.At, "modulo by zero")
			}
			return value.Int(ai % bi), nil
		case lexer.LT, lexer.LE, lexer.GT, lexer.GE:
			c := 0
			if ai < bi {
				c = -1
			} else if ai > bi {
				c = 1
			}
			return value.Bool(compare(x.Op, c)), nil
		}
	}

	return value.Nil, e.errorf(x.At, "unsupported binary operator %s", x.Op)
}

func cmpStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compare(op lexer.TokenType, c int) bool {
	switch op {
	case lexer.LT:
		return c < 0
	case lexer.LE:
		return c <= 0
	case lexer.GT:
		return c > 0
	default:
		return c >= 0
	}
}

func (e *Evaluator) call(fn value.Value, args []value.Value, at lexer.Position) (value.Value, error) {
	switch fn.Kind {
	case value.KindBuiltin:
		v, err := fn.Builtin.Fn(args)
		if err != nil {
			var s *Suspension
			var re *RuntimeError
			if errors.As(err, &s) || errors.As(err, &re) {
				return value.Nil, err
			}
			return value.Nil, e.errorf(at, "%s: %w", fn.Builtin.Name, err)
		}
		return v, nil

	case value.KindFunction:
		return e.callClosure(fn.Fn, args, at)

	default:
		return value.Nil, e.errorf(at, "%w: %s", value.ErrNotCallable, fn.Kind)
	}
}

// callClosure runs one call of c between Enter and Exit. Missing arguments are nil.
func (e *Evaluator) callClosure(c *value.Closure, args []value.Value, at lexer.Position) (value.Value, error) {
	if err := e.step(at); err != nil {
		return value.Nil, err
	}

	environment := value.Nil
	if parent := scope.ParentScope(c); parent != nil {
		environment = parent.Environment()
	}

	s := e.capture.Enter(c, e.evaluate, environment, value.Function(c))
	for i, name := range c.Node.Params {
		arg := value.Nil
		if i < len(args) {
			arg = args[i]
		}
		s.Define(name, arg)
	}

	act := &activation{scope: s, fn: c}
	act.closures = e.link(c.Node.Hoisted)

	sig, ret, err := e.execBlock(act, c.Node.Body.Stmts)
	if err != nil || sig != sigReturn {
		ret = value.Nil
	}
	e.capture.Exit(ret)

	return ret, err
}

// await yields the resolution of an awaited expression. Recorded resolutions
// replace the expression entirely while replaying.
func (e *Evaluator) await(act *activation, x *ast.AwaitExpr) (value.Value, error) {
	if v, ok, err := e.oracle.next(x.Site); ok {
		if err != nil {
			return value.Nil, e.errorf(x.At, "%w", err)
		}
		return v, nil
	}

	v, err := e.eval(act, x.X)
	if err != nil {
		return value.Nil, err
	}
	if v.Kind != value.KindFuture {
		return v, nil
	}

	if v.Fut.Intercepting() {
		return value.Nil, &Suspension{Future: v.Fut, Site: x.Site, Frames: e.capture.Frames()}
	}

	resolved, err := v.Fut.Await(e.ctx)
	if err != nil {
		return value.Nil, e.errorf(x.At, "await: %w", err)
	}
	return resolved, nil
}

// Resolution records the value an await site resolved to.
type Resolution struct {
	Statement int
	Site      int
	Value     value.Value
}

// oracle hands out recorded resolutions in order
type oracle struct {
	journal []Resolution
	pos     int
}

func (o *oracle) pending() bool {
	return o.pos < len(o.journal)
}

func (o *oracle) next(site int) (value.Value, bool, error) {
	if !o.pending() {
		return value.Nil, false, nil
	}
	r := o.journal[o.pos]
	o.pos++
	if r.Site != site {
		return value.Nil, true, ErrReplayDiverged
	}
	return r.Value, true, nil
}
