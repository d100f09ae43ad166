package lexer

import (
	"fmt"
)

type TokenType int
type TokenCategory int

type Token struct {
	Type    TokenType // Type of the token
	Lexeme  string    // Actual string from source code
	Literal string    // Literal value (if applicable), empty string if not
	Pos     Position  // Position of the first character in source code
}

// NewToken creates a new Token instance
func NewToken(tokenType TokenType, lexeme string, literal string, pos Position) Token {
	return Token{
		Type:    tokenType,
		Lexeme:  lexeme,
		Literal: literal,
		Pos:     pos,
	}
}

// End returns the byte offset just past the token
func (t Token) End() int {
	return t.Pos.Offset + len(t.Lexeme)
}

const (
	NONE TokenCategory = iota
	KEYWORD
	IDENTIFIER
	LITERAL
	OPERATOR
	DELIMITER
)

const (
	EOF TokenType = iota // End of file

	LET    // let
	FN     // fn
	RETURN // return
	IF     // if
	ELSE   // else
	WHILE  // while
	AWAIT  // await
	AND    // and
	OR     // or
	NOT    // not
	TRUE   // true
	FALSE  // false
	NIL    // nil
	THIS   // this

	ID     // id (identifier)
	NUM    // num (number)
	STRING // string literal

	ASSIGN // =
	PLUS   // +
	MINUS  // -
	MULT   // *
	DIV    // /
	MOD    // %
	LT     // <
	GT     // >
	LE     // <=
	GE     // >=
	EQ     // ==
	NE     // !=

	SEMICOLON // ;
	COMMA     // ,
	LPAREN    // (
	RPAREN    // )
	LBRACE    // {
	RBRACE    // }

	ILLEGAL // illegal token
)

var Keywords = map[string]TokenType{
	"let":    LET,
	"fn":     FN,
	"return": RETURN,
	"if":     IF,
	"else":   ELSE,
	"while":  WHILE,
	"await":  AWAIT,
	"and":    AND,
	"or":     OR,
	"not":    NOT,
	"true":   TRUE,
	"false":  FALSE,
	"nil":    NIL,
	"this":   THIS,
}

var tokenNames = map[TokenType]string{
	LET:       "let",
	FN:        "fn",
	RETURN:    "return",
	IF:        "if",
	ELSE:      "else",
	WHILE:     "while",
	AWAIT:     "await",
	AND:       "and",
	OR:        "or",
	NOT:       "not",
	TRUE:      "true",
	FALSE:     "false",
	NIL:       "nil",
	THIS:      "this",
	LPAREN:    "(",
	RPAREN:    ")",
	LBRACE:    "{",
	RBRACE:    "}",
	SEMICOLON: ";",
	COMMA:     ",",
	ASSIGN:    "=",
	PLUS:      "+",
	MINUS:     "-",
	MULT:      "*",
	DIV:       "/",
	MOD:       "%",
	LT:        "<",
	GT:        ">",
	LE:        "<=",
	GE:        ">=",
	EQ:        "==",
	NE:        "!=",
	ID:        "id",
	NUM:       "num",
	STRING:    "string",
	ILLEGAL:   "illegal",
	EOF:       "$",
}

// String returns a string representation of the Token
func (t Token) String() string {
	if t.Literal == "" {
		return fmt.Sprintf("T_{%s, %v, nil, %s}",
			t.Type, t.Lexeme, t.Pos.String())
	}

	return fmt.Sprintf("T_{%s, %v, %q, %s}",
		t.Type, t.Lexeme, t.Literal, t.Pos.String())
}

// String returns a string representation of the TokenType
func (t TokenType) String() string {
	if str, ok := tokenNames[t]; ok {
		return str
	}

	return fmt.Sprintf("UNKNOWN(%d)", int(t))
}

// GetCategory returns the category of the token
func (t TokenType) GetCategory() TokenCategory {
	switch t {
	case LET, FN, RETURN, IF, ELSE, WHILE, AWAIT, AND, OR, NOT, TRUE, FALSE, NIL, THIS:
		return KEYWORD
	case ID:
		return IDENTIFIER
	case NUM, STRING:
		return LITERAL
	case ASSIGN, PLUS, MINUS, MULT, DIV, MOD, LT, GT, LE, GE, EQ, NE:
		return OPERATOR
	case SEMICOLON, COMMA, LPAREN, RPAREN, LBRACE, RBRACE:
		return DELIMITER
	default:
		return NONE
	}
}

// IsKeyword checks if the given identifier is a keyword and returns its TokenType if it is
func IsKeyword(identifier string) (TokenType, bool) {
	tokenType, ok := Keywords[identifier]
	return tokenType, ok
}
