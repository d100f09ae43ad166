package parser_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"sandvm/pkg/lexer"
	"sandvm/pkg/parser"
	"sandvm/pkg/parser/ast"
)

func parse(t *testing.T, src string) *ast.Program {
	t.Helper()
	p := parser.NewParser(lexer.NewLexer(src))
	prog := p.Parse()
	if errs := p.Errors(); len(errs) > 0 {
		t.Fatalf("unexpected errors for %q: %v", src, errs)
	}
	return prog
}

func TestStatements(t *testing.T) {
	prog := parse(t, `
let x = 1;
x = x + 2;
fn double(n) { return n * 2; }
if (x > 2) { print(x); } else if (x == 0) { x; } else { nil; }
while (x < 10) { x = x + 1; }
double(x)`)

	var kinds []string
	for _, s := range prog.Stmts {
		switch s.(type) {
		case *ast.LetStmt:
			kinds = append(kinds, "let")
		case *ast.AssignStmt:
			kinds = append(kinds, "assign")
		case *ast.IfStmt:
			kinds = append(kinds, "if")
		case *ast.WhileStmt:
			kinds = append(kinds, "while")
		case *ast.ExprStmt:
			kinds = append(kinds, "expr")
		default:
			kinds = append(kinds, "?")
		}
	}

	want := []string{"let", "assign", "let", "if", "while", "expr"}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Errorf("statement kinds (-want +got):\n%s", diff)
	}

	decl := prog.Stmts[2].(*ast.LetStmt)
	lit, ok := decl.Value.(*ast.FuncLit)
	if !ok || decl.Name != "double" || lit.Name != "double" {
		t.Fatalf("fn declaration not desugared into let: %#v", decl)
	}
	if diff := cmp.Diff([]string{"n"}, lit.Params); diff != "" {
		t.Errorf("params (-want +got):\n%s", diff)
	}

	ifs := prog.Stmts[3].(*ast.IfStmt)
	if _, ok := ifs.Else.(*ast.IfStmt); !ok {
		t.Errorf("else-if not chained: %T", ifs.Else)
	}
}

func TestPrecedence(t *testing.T) {
	prog := parse(t, "1 + 2 * 3 - 4 < 5 and not false or x == y;")

	// ((((1 + (2 * 3)) - 4) < 5) and (not false)) or (x == y)
	or := prog.Stmts[0].(*ast.ExprStmt).X.(*ast.BinaryExpr)
	if or.Op != lexer.OR {
		t.Fatalf("top operator = %s, want or", or.Op)
	}
	and := or.Left.(*ast.BinaryExpr)
	if and.Op != lexer.AND {
		t.Fatalf("left of or = %s, want and", and.Op)
	}
	lt := and.Left.(*ast.BinaryExpr)
	sub := lt.Left.(*ast.BinaryExpr)
	if lt.Op != lexer.LT || sub.Op != lexer.MINUS {
		t.Fatalf("unexpected comparison tree %s / %s", lt.Op, sub.Op)
	}
	add := sub.Left.(*ast.BinaryExpr)
	if add.Op != lexer.PLUS || add.Right.(*ast.BinaryExpr).Op != lexer.MULT {
		t.Errorf("multiplication does not bind tighter than addition")
	}
	if _, ok := and.Right.(*ast.UnaryExpr); !ok {
		t.Errorf("not is not unary: %T", and.Right)
	}
}

func TestFuncLitSourceRange(t *testing.T) {
	src := "let f = fn(a, b) { return fn() { return a; }; };"
	prog := parse(t, src)

	outer := prog.Stmts[0].(*ast.LetStmt).Value.(*ast.FuncLit)
	if got := src[outer.Start:outer.End]; got != "fn(a, b) { return fn() { return a; }; }" {
		t.Errorf("outer source = %q", got)
	}

	inner := outer.Body.Stmts[0].(*ast.ReturnStmt).Value.(*ast.FuncLit)
	if got := src[inner.Start:inner.End]; got != "fn() { return a; }" {
		t.Errorf("inner source = %q", got)
	}
}

func TestAwaitAndCalls(t *testing.T) {
	prog := parse(t, "await later(1, f(2)(3))")

	aw, ok := prog.Stmts[0].(*ast.ExprStmt).X.(*ast.AwaitExpr)
	if !ok {
		t.Fatalf("expected await, got %T", prog.Stmts[0].(*ast.ExprStmt).X)
	}
	call := aw.X.(*ast.CallExpr)
	if len(call.Args) != 2 {
		t.Fatalf("later args = %d", len(call.Args))
	}
	curried := call.Args[1].(*ast.CallExpr)
	if _, ok := curried.Fn.(*ast.CallExpr); !ok {
		t.Errorf("chained call not parsed: %T", curried.Fn)
	}
}

func TestNumbers(t *testing.T) {
	prog := parse(t, "1; 2.5; -3;")

	i := prog.Stmts[0].(*ast.ExprStmt).X.(*ast.NumberLit)
	f := prog.Stmts[1].(*ast.ExprStmt).X.(*ast.NumberLit)
	n := prog.Stmts[2].(*ast.ExprStmt).X.(*ast.NumberLit)

	if i.IsFloat || i.Int != 1 {
		t.Errorf("1 parsed as %+v", i)
	}
	if !f.IsFloat || f.Float != 2.5 {
		t.Errorf("2.5 parsed as %+v", f)
	}
	if n.IsFloat || n.Int != -3 {
		t.Errorf("-3 parsed as %+v", n)
	}
}

func TestErrors(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"let = 5;", "Missing identifier"},
		{"let x 5;", "Missing assignment operator"},
		{"let x = 5 let y = 2;", "Missing semicolon"},
		{"if x) { }", "Missing opening parenthesis"},
		{"if () { }", "Empty condition"},
		{"while (true) { x = 1;", "Missing closing brace"},
		{"let x = ;", "Missing expression"},
		{"let if = 2;", "Cannot use reserved keyword as identifier"},
		{"print(1) print(2);", "Missing semicolon"},
		{"x = #;", "Illegal character '#'"},
	}

	for _, test := range tests {
		p := parser.NewParser(lexer.NewLexer(test.input))
		p.Parse()

		errs := p.Errors()
		if len(errs) == 0 {
			t.Errorf("%q: expected error %q, got none", test.input, test.want)
			continue
		}
		if errs[0].Msg != test.want {
			t.Errorf("%q: expected %q, got %q", test.input, test.want, errs[0].Msg)
		}
	}
}

func TestRecoveryContinuesAfterError(t *testing.T) {
	p := parser.NewParser(lexer.NewLexer("let = 1; let y = 2; let = 3;"))
	prog := p.Parse()

	if len(p.Errors()) != 2 {
		t.Errorf("expected 2 errors, got %v", p.Errors())
	}
	if len(prog.Stmts) != 1 {
		t.Errorf("expected the valid statement to survive, got %d statements", len(prog.Stmts))
	}
}
