package parser

import (
	"fmt"

	"sandvm/pkg/color"
	"sandvm/pkg/lexer"
)

// Error is a syntax error at a source position.
type Error struct {
	Msg string
	Pos lexer.Position
}

func (e Error) Error() string {
	return fmt.Sprintf("%s at Line: %d, Column %d", e.Msg, e.Pos.Line, e.Pos.Column)
}

// Pretty renders the error for a terminal
func (e Error) Pretty() string {
	return color.RedText(e.Msg) + " at " + color.YellowText(fmt.Sprintf("Line: %d, Column %d", e.Pos.Line, e.Pos.Column))
}

// addError records a parsing error at the current token
func (p *Parser) addError(msg string) {
	p.errors = append(p.errors, Error{Msg: msg, Pos: p.cur.Pos})
}

// Errors returns the list of parsing errors
func (p *Parser) Errors() []Error {
	return p.errors
}

// categorizeError provides a specific error message based on the expected token and the current one
func (p *Parser) categorizeError(expected lexer.TokenType) string {
	current := p.cur

	if current.Type == lexer.ILLEGAL {
		return "Illegal character '" + current.Lexeme + "'"
	}

	switch expected {
	case lexer.RPAREN:
		return "Missing closing parenthesis"
	case lexer.RBRACE:
		return "Missing closing brace"
	case lexer.LBRACE:
		return "Missing opening brace"
	case lexer.SEMICOLON:
		return "Missing semicolon"
	case lexer.ASSIGN:
		return "Missing assignment operator"
	case lexer.LPAREN:
		if current.Type == lexer.LBRACE {
			return "Wrong bracket type - expected parenthesis"
		}
		return "Missing opening parenthesis"
	case lexer.ID:
		if current.Type == lexer.ASSIGN || current.Type == lexer.SEMICOLON {
			return "Missing identifier"
		}
		if current.Type.GetCategory() == lexer.KEYWORD {
			return "Cannot use reserved keyword as identifier"
		}
		return "Expected identifier"
	}

	return fmt.Sprintf("Syntax error: expected '%s', found '%s'", expected, current.Type)
}
