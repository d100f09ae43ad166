// Package ast declares the syntax tree produced by the parser and annotated by the compiler.
package ast

import "sandvm/pkg/lexer"

type Node interface {
	Pos() lexer.Position
}

type Stmt interface {
	Node
	stmtNode()
}

type Expr interface {
	Node
	exprNode()
}

// Program is the root of a parsed source text.
type Program struct {
	Stmts []Stmt

	// Hoisted lists the function literals instantiated on entry to the top level,
	// in lexical order. Filled in by the compiler.
	Hoisted []*FuncLit
}

func (p *Program) Pos() lexer.Position {
	if len(p.Stmts) == 0 {
		return lexer.Start
	}
	return p.Stmts[0].Pos()
}

type Block struct {
	At    lexer.Position
	Stmts []Stmt
}

type LetStmt struct {
	At    lexer.Position
	Name  string
	Value Expr
}

type AssignStmt struct {
	At    lexer.Position
	Name  string
	Value Expr
}

type ExprStmt struct {
	X Expr
}

type ReturnStmt struct {
	At    lexer.Position
	Value Expr // nil for a bare return
}

type IfStmt struct {
	At   lexer.Position
	Cond Expr
	Then *Block
	Else Stmt // *Block, *IfStmt or nil
}

type WhileStmt struct {
	At   lexer.Position
	Cond Expr
	Body *Block
}

func (s *Block) Pos() lexer.Position      { return s.At }
func (s *LetStmt) Pos() lexer.Position    { return s.At }
func (s *AssignStmt) Pos() lexer.Position { return s.At }
func (s *ExprStmt) Pos() lexer.Position   { return s.X.Pos() }
func (s *ReturnStmt) Pos() lexer.Position { return s.At }
func (s *IfStmt) Pos() lexer.Position     { return s.At }
func (s *WhileStmt) Pos() lexer.Position  { return s.At }

func (*Block) stmtNode()      {}
func (*LetStmt) stmtNode()    {}
func (*AssignStmt) stmtNode() {}
func (*ExprStmt) stmtNode()   {}
func (*ReturnStmt) stmtNode() {}
func (*IfStmt) stmtNode()     {}
func (*WhileStmt) stmtNode()  {}

type Ident struct {
	At   lexer.Position
	Name string
}

// NumberLit holds either an integer or a float literal.
type NumberLit struct {
	At      lexer.Position
	Raw     string
	IsFloat bool
	Int     int64
	Float   float64
}

type StringLit struct {
	At    lexer.Position
	Value string
}

type BoolLit struct {
	At    lexer.Position
	Value bool
}

type NilLit struct {
	At lexer.Position
}

type ThisExpr struct {
	At lexer.Position
}

type UnaryExpr struct {
	At lexer.Position
	Op lexer.TokenType
	X  Expr
}

type BinaryExpr struct {
	At    lexer.Position
	Op    lexer.TokenType
	Left  Expr
	Right Expr
}

type CallExpr struct {
	At   lexer.Position
	Fn   Expr
	Args []Expr
}

// FuncLit is a function literal. Start and End delimit its source text.
type FuncLit struct {
	At     lexer.Position
	Name   string
	Params []string
	Body   *Block
	Start  int
	End    int

	// Set by the compiler.
	ID      int        // fragment id, preorder over the whole program
	Index   int        // position in the enclosing fragment's children
	Hoisted []*FuncLit // literals nested directly in the body, lexical order
}

// AwaitExpr suspends on an intercepting future. Site is program-unique and set by the compiler.
type AwaitExpr struct {
	At   lexer.Position
	X    Expr
	Site int
}

func (e *Ident) Pos() lexer.Position      { return e.At }
func (e *NumberLit) Pos() lexer.Position  { return e.At }
func (e *StringLit) Pos() lexer.Position  { return e.At }
func (e *BoolLit) Pos() lexer.Position    { return e.At }
func (e *NilLit) Pos() lexer.Position     { return e.At }
func (e *ThisExpr) Pos() lexer.Position   { return e.At }
func (e *UnaryExpr) Pos() lexer.Position  { return e.At }
func (e *BinaryExpr) Pos() lexer.Position { return e.At }
func (e *CallExpr) Pos() lexer.Position   { return e.At }
func (e *FuncLit) Pos() lexer.Position    { return e.At }
func (e *AwaitExpr) Pos() lexer.Position  { return e.At }

func (*Ident) exprNode()      {}
func (*NumberLit) exprNode()  {}
func (*StringLit) exprNode()  {}
func (*BoolLit) exprNode()    {}
func (*NilLit) exprNode()     {}
func (*ThisExpr) exprNode()   {}
func (*UnaryExpr) exprNode()  {}
func (*BinaryExpr) exprNode() {}
func (*CallExpr) exprNode()   {}
func (*FuncLit) exprNode()    {}
func (*AwaitExpr) exprNode()  {}

// Inspect walks the tree rooted at n in depth-first, left-to-right order.
// If f returns false the children of n are skipped.
func Inspect(n Node, f func(Node) bool) {
	if n == nil || !f(n) {
		return
	}

	switch n := n.(type) {
	case *Program:
		for _, s := range n.Stmts {
			Inspect(s, f)
		}
	case *Block:
		for _, s := range n.Stmts {
			Inspect(s, f)
		}
	case *LetStmt:
		Inspect(n.Value, f)
	case *AssignStmt:
		Inspect(n.Value, f)
	case *ExprStmt:
		Inspect(n.X, f)
	case *ReturnStmt:
		if n.Value != nil {
			Inspect(n.Value, f)
		}
	case *IfStmt:
		Inspect(n.Cond, f)
		Inspect(n.Then, f)
		if n.Else != nil {
			Inspect(n.Else, f)
		}
	case *WhileStmt:
		Inspect(n.Cond, f)
		Inspect(n.Body, f)
	case *UnaryExpr:
		Inspect(n.X, f)
	case *BinaryExpr:
		Inspect(n.Left, f)
		Inspect(n.Right, f)
	case *CallExpr:
		Inspect(n.Fn, f)
		for _, a := range n.Args {
			Inspect(a, f)
		}
	case *FuncLit:
		Inspect(n.Body, f)
	case *AwaitExpr:
		Inspect(n.X, f)
	}
}
