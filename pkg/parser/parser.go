package parser

import (
	"strconv"

	"sandvm/pkg/lexer"
	"sandvm/pkg/parser/ast"
)

type Parser struct {
	lexer  *lexer.Lexer // lexer instance
	cur    lexer.Token  // current token
	next   lexer.Token  // one token of lookahead
	prev   lexer.Token  // last consumed token
	errors []Error      // list of errors
}

// bailout unwinds a statement after its first error; Parse recovers and resynchronizes.
type bailout struct{}

// NewParser creates a new parser instance
func NewParser(l *lexer.Lexer) *Parser {
	p := &Parser{
		lexer:  l,
		errors: []Error{},
	}

	// Initialize current and lookahead tokens
	p.nextToken()
	p.nextToken()

	return p
}

// Parse parses the whole input. The returned program is partial when Errors is non-empty.
func (p *Parser) Parse() *ast.Program {
	prog := &ast.Program{}

	for p.cur.Type != lexer.EOF {
		if s := p.parseStmtRecovering(); s != nil {
			prog.Stmts = append(prog.Stmts, s)
		}
	}

	return prog
}

// parseStmtRecovering parses one statement, skipping to the next boundary on error
func (p *Parser) parseStmtRecovering() (s ast.Stmt) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(bailout); !ok {
				panic(r)
			}
			s = nil
			p.synchronize()
		}
	}()

	return p.parseStmt()
}

// synchronize skips tokens until just after a ';' or '}', or before a statement keyword
func (p *Parser) synchronize() {
	start := p.cur.Pos.Offset
	for p.cur.Type != lexer.EOF {
		switch p.cur.Type {
		case lexer.SEMICOLON, lexer.RBRACE:
			p.nextToken()
			return
		case lexer.LET, lexer.IF, lexer.WHILE, lexer.RETURN:
			if p.cur.Pos.Offset != start {
				return
			}
		}
		p.nextToken()
	}
}

// nextToken advances to the next token from the lexer
func (p *Parser) nextToken() {
	p.prev = p.cur
	p.cur = p.next
	p.next = p.lexer.NextToken()
}

// expect consumes a token of the given type or reports an error and bails out
func (p *Parser) expect(t lexer.TokenType) lexer.Token {
	if p.cur.Type != t {
		p.fail(p.categorizeError(t))
	}
	tok := p.cur
	p.nextToken()
	return tok
}

func (p *Parser) fail(msg string) {
	p.addError(msg)
	panic(bailout{})
}

func (p *Parser) parseStmt() ast.Stmt {
	switch p.cur.Type {
	case lexer.LET:
		return p.parseLet()
	case lexer.IF:
		return p.parseIf()
	case lexer.WHILE:
		return p.parseWhile()
	case lexer.RETURN:
		return p.parseReturn()
	case lexer.FN:
		if p.next.Type == lexer.ID {
			return p.parseFuncDecl()
		}
	case lexer.ID:
		if p.next.Type == lexer.ASSIGN {
			return p.parseAssign()
		}
	case lexer.LBRACE:
		p.fail("Unexpected block; blocks only follow if, else, while or fn")
	}

	x := p.parseExpr()
	p.endStmt()
	return &ast.ExprStmt{X: x}
}

// endStmt requires a ';' except before a closing brace or the end of input
func (p *Parser) endStmt() {
	switch p.cur.Type {
	case lexer.SEMICOLON:
		p.nextToken()
	case lexer.RBRACE, lexer.EOF:
	default:
		p.fail("Missing semicolon")
	}
}

func (p *Parser) parseLet() ast.Stmt {
	at := p.expect(lexer.LET).Pos
	name := p.expect(lexer.ID).Lexeme
	p.expect(lexer.ASSIGN)
	value := p.parseExpr()
	p.expect(lexer.SEMICOLON)

	return &ast.LetStmt{At: at, Name: name, Value: value}
}

func (p *Parser) parseAssign() ast.Stmt {
	tok := p.expect(lexer.ID)
	p.expect(lexer.ASSIGN)
	value := p.parseExpr()
	p.expect(lexer.SEMICOLON)

	return &ast.AssignStmt{At: tok.Pos, Name: tok.Lexeme, Value: value}
}

// parseFuncDecl handles `fn name(...) {...}` at statement level, sugar for a let binding
func (p *Parser) parseFuncDecl() ast.Stmt {
	lit := p.parseFuncLit()
	if p.cur.Type == lexer.SEMICOLON {
		p.nextToken()
	}

	return &ast.LetStmt{At: lit.At, Name: lit.Name, Value: lit}
}

func (p *Parser) parseIf() ast.Stmt {
	at := p.expect(lexer.IF).Pos
	cond := p.parseCond()
	then := p.parseBlock()

	s := &ast.IfStmt{At: at, Cond: cond, Then: then}
	if p.cur.Type == lexer.ELSE {
		p.nextToken()
		if p.cur.Type == lexer.IF {
			s.Else = p.parseIf()
		} else {
			s.Else = p.parseBlock()
		}
	}

	return s
}

func (p *Parser) parseWhile() ast.Stmt {
	at := p.expect(lexer.WHILE).Pos
	cond := p.parseCond()
	body := p.parseBlock()

	return &ast.WhileStmt{At: at, Cond: cond, Body: body}
}

func (p *Parser) parseCond() ast.Expr {
	p.expect(lexer.LPAREN)
	if p.cur.Type == lexer.RPAREN {
		p.fail("Empty condition")
	}
	cond := p.parseExpr()
	p.expect(lexer.RPAREN)
	return cond
}

func (p *Parser) parseReturn() ast.Stmt {
	at := p.expect(lexer.RETURN).Pos
	s := &ast.ReturnStmt{At: at}
	if p.cur.Type != lexer.SEMICOLON && p.cur.Type != lexer.RBRACE {
		s.Value = p.parseExpr()
	}
	p.endStmt()
	return s
}

func (p *Parser) parseBlock() *ast.Block {
	at := p.expect(lexer.LBRACE).Pos
	b := &ast.Block{At: at}

	for p.cur.Type != lexer.RBRACE {
		if p.cur.Type == lexer.EOF {
			p.fail("Missing closing brace")
		}
		b.Stmts = append(b.Stmts, p.parseStmt())
	}
	p.nextToken()

	return b
}

func (p *Parser) parseExpr() ast.Expr {
	return p.parseBinary(0)
}

// binary operator precedence, lowest first
var precedence = map[lexer.TokenType]int{
	lexer.OR:  1,
	lexer.AND: 2,
	lexer.EQ:  3, lexer.NE: 3,
	lexer.LT: 4, lexer.LE: 4, lexer.GT: 4, lexer.GE: 4,
	lexer.PLUS: 5, lexer.MINUS: 5,
	lexer.MULT: 6, lexer.DIV: 6, lexer.MOD: 6,
}

// parseBinary implements precedence climbing for left-associative operators above minPrec
func (p *Parser) parseBinary(minPrec int) ast.Expr {
	left := p.parseUnary()

	for {
		prec, ok := precedence[p.cur.Type]
		if !ok || prec <= minPrec {
			return left
		}
		op := p.cur
		p.nextToken()
		right := p.parseBinary(prec)
		left = &ast.BinaryExpr{At: op.Pos, Op: op.Type, Left: left, Right: right}
	}
}

func (p *Parser) parseUnary() ast.Expr {
	switch p.cur.Type {
	case lexer.MINUS, lexer.NOT:
		op := p.cur
		p.nextToken()
		return &ast.UnaryExpr{At: op.Pos, Op: op.Type, X: p.parseUnary()}
	case lexer.AWAIT:
		at := p.cur.Pos
		p.nextToken()
		return &ast.AwaitExpr{At: at, X: p.parseUnary()}
	}

	return p.parseCall()
}

func (p *Parser) parseCall() ast.Expr {
	x := p.parsePrimary()

	for p.cur.Type == lexer.LPAREN {
		at := p.cur.Pos
		p.nextToken()
		call := &ast.CallExpr{At: at, Fn: x}
		for p.cur.Type != lexer.RPAREN {
			if len(call.Args) > 0 {
				if p.cur.Type != lexer.COMMA {
					p.fail("Missing closing parenthesis")
				}
				p.nextToken()
			}
			call.Args = append(call.Args, p.parseExpr())
		}
		p.nextToken()
		x = call
	}

	return x
}

func (p *Parser) parsePrimary() ast.Expr {
	tok := p.cur

	switch tok.Type {
	case lexer.NUM:
		p.nextToken()
		return p.number(tok)
	case lexer.STRING:
		p.nextToken()
		return &ast.StringLit{At: tok.Pos, Value: tok.Literal}
	case lexer.TRUE, lexer.FALSE:
		p.nextToken()
		return &ast.BoolLit{At: tok.Pos, Value: tok.Type == lexer.TRUE}
	case lexer.NIL:
		p.nextToken()
		return &ast.NilLit{At: tok.Pos}
	case lexer.THIS:
		p.nextToken()
		return &ast.ThisExpr{At: tok.Pos}
	case lexer.ID:
		p.nextToken()
		return &ast.Ident{At: tok.Pos, Name: tok.Lexeme}
	case lexer.FN:
		return p.parseFuncLit()
	case lexer.LPAREN:
		p.nextToken()
		x := p.parseExpr()
		p.expect(lexer.RPAREN)
		return x
	case lexer.ILLEGAL:
		p.fail("Illegal character '" + tok.Lexeme + "'")
	case lexer.SEMICOLON, lexer.RPAREN, lexer.EOF, lexer.RBRACE:
		p.fail("Missing expression")
	}

	p.fail("Unexpected token '" + tok.Lexeme + "'")
	return nil
}

func (p *Parser) number(tok lexer.Token) ast.Expr {
	lit := &ast.NumberLit{At: tok.Pos, Raw: tok.Lexeme}

	if i, err := strconv.ParseInt(tok.Lexeme, 10, 64); err == nil {
		lit.Int = i
		return lit
	}

	f, err := strconv.ParseFloat(tok.Lexeme, 64)
	if err != nil {
		p.fail("Malformed number")
	}
	lit.IsFloat = true
	lit.Float = f
	return lit
}

func (p *Parser) parseFuncLit() *ast.FuncLit {
	start := p.expect(lexer.FN)
	lit := &ast.FuncLit{At: start.Pos, Start: start.Pos.Offset}

	if p.cur.Type == lexer.ID {
		lit.Name = p.cur.Lexeme
		p.nextToken()
	}

	p.expect(lexer.LPAREN)
	for p.cur.Type != lexer.RPAREN {
		if len(lit.Params) > 0 {
			p.expect(lexer.COMMA)
		}
		lit.Params = append(lit.Params, p.expect(lexer.ID).Lexeme)
	}
	p.nextToken()

	lit.Body = p.parseBlock()
	lit.End = p.prev.End()

	return lit
}
