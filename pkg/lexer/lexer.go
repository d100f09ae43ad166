package lexer

import "strconv"

// cursor is the lexer's read position, kept as a value so it can be saved and restored.
type cursor struct {
	offset int
	line   int
	column int
}

func (c cursor) position() Position {
	return Position{Line: c.line, Column: c.column, Offset: c.offset}
}

type Lexer struct {
	input string
	at    cursor
	prev  Token // last token returned, decides whether '-' may start a number
}

// Create a new lexer instance
func NewLexer(s string) *Lexer {
	return &Lexer{input: s, at: cursor{line: 1, column: 1}}
}

// Get the next token from the input
func (l *Lexer) NextToken() Token {
	l.skipBlank()
	start := l.at.position()

	if l.at.offset >= len(l.input) {
		return l.emit(NewToken(EOF, "", "", start))
	}

	if tok, ok := l.negativeNumber(start); ok {
		return tok
	}

	tokenType, lexeme, matched := MatchToken(l.input[l.at.offset:])
	if !matched || tokenType == EOF {
		if tokenType == EOF && lexeme != "" {
			l.advance(len(lexeme))
			return l.NextToken()
		}
		char := string(l.input[l.at.offset])
		l.advance(1)
		return l.emit(NewToken(ILLEGAL, char, "", start))
	}

	l.advance(len(lexeme))
	return l.emit(NewToken(tokenType, lexeme, literalOf(tokenType, lexeme), start))
}

// negativeNumber folds a '-' directly followed by a digit into the number,
// where a binary minus cannot appear.
func (l *Lexer) negativeNumber(start Position) (Token, bool) {
	rest := l.input[l.at.offset:]
	if len(rest) < 2 || rest[0] != '-' || !isDigit(rest[1]) || !l.prevAllowsUnary() {
		return Token{}, false
	}

	t, lex, matched := MatchToken(rest[1:])
	if !matched || t != NUM || lex == "" {
		return Token{}, false
	}

	lexeme := "-" + lex
	l.advance(len(lexeme))
	return l.emit(NewToken(NUM, lexeme, lexeme, start)), true
}

func (l *Lexer) emit(tok Token) Token {
	l.prev = tok
	return tok
}

func literalOf(t TokenType, lexeme string) string {
	switch t {
	case TRUE:
		return "true"
	case FALSE:
		return "false"
	case STRING:
		if s, err := strconv.Unquote(lexeme); err == nil {
			return s
		}
		return lexeme[1 : len(lexeme)-1]
	default:
		return lexeme
	}
}

// skipBlank skips whitespace and line comments
func (l *Lexer) skipBlank() {
	for l.at.offset < len(l.input) {
		switch ch := l.input[l.at.offset]; {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			l.advance(1)
		case ch == '/' && l.at.offset+1 < len(l.input) && l.input[l.at.offset+1] == '/':
			for l.at.offset < len(l.input) && l.input[l.at.offset] != '\n' {
				l.advance(1)
			}
		default:
			return
		}
	}
}

// advance moves n bytes forward, tracking lines and columns
func (l *Lexer) advance(n int) {
	for ; n > 0 && l.at.offset < len(l.input); n-- {
		if l.input[l.at.offset] == '\n' {
			l.at.line++
			l.at.column = 1
		} else {
			l.at.column++
		}
		l.at.offset++
	}
}

// prevAllowsUnary reports whether the previous token leaves room for an operand
func (l *Lexer) prevAllowsUnary() bool {
	switch l.prev.Type {
	case EOF, ASSIGN, LPAREN, COMMA, SEMICOLON, LBRACE, RBRACE,
		PLUS, MINUS, MULT, DIV, MOD,
		LT, GT, LE, GE, EQ, NE,
		AND, OR, NOT, RETURN, IF, WHILE, AWAIT:
		return true
	default:
		return false
	}
}
