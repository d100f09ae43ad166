package lexer

import (
	"regexp"
)

// Token regex patterns
var tokenRegexes = map[TokenType]*regexp.Regexp{
	LE: regexp.MustCompile(`^<=`),
	GE: regexp.MustCompile(`^>=`),
	EQ: regexp.MustCompile(`^==`),
	NE: regexp.MustCompile(`^!=`),

	LET:    regexp.MustCompile(`^let\b`),
	FN:     regexp.MustCompile(`^fn\b`),
	RETURN: regexp.MustCompile(`^return\b`),
	IF:     regexp.MustCompile(`^if\b`),
	ELSE:   regexp.MustCompile(`^else\b`),
	WHILE:  regexp.MustCompile(`^while\b`),
	AWAIT:  regexp.MustCompile(`^await\b`),
	AND:    regexp.MustCompile(`^and\b`),
	OR:     regexp.MustCompile(`^or\b`),
	NOT:    regexp.MustCompile(`^not\b`),
	TRUE:   regexp.MustCompile(`^true\b`),
	FALSE:  regexp.MustCompile(`^false\b`),
	NIL:    regexp.MustCompile(`^nil\b`),
	THIS:   regexp.MustCompile(`^this\b`),

	ASSIGN: regexp.MustCompile(`^=`),
	PLUS:   regexp.MustCompile(`^\+`),
	MINUS:  regexp.MustCompile(`^-`),
	MULT:   regexp.MustCompile(`^\*`),
	DIV:    regexp.MustCompile(`^/`),
	MOD:    regexp.MustCompile(`^%`),
	LT:     regexp.MustCompile(`^<`),
	GT:     regexp.MustCompile(`^>`),

	SEMICOLON: regexp.MustCompile(`^;`),
	COMMA:     regexp.MustCompile(`^,`),
	LPAREN:    regexp.MustCompile(`^\(`),
	RPAREN:    regexp.MustCompile(`^\)`),
	LBRACE:    regexp.MustCompile(`^\{`),
	RBRACE:    regexp.MustCompile(`^\}`),

	NUM:    regexp.MustCompile(`^\d+(\.\d+)?([eE][+-]?\d+)?`),
	STRING: regexp.MustCompile(`^"([^"\\]|\\.)*"`),
	ID:     regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*`),
}

var (
	whitespaceRegex = regexp.MustCompile(`^\s+`)
	commentRegex    = regexp.MustCompile(`^//.*`)
)

// Token precedence order for matching (longer patterns first)
var tokenPrecedenceOrder = []TokenType{
	RETURN, AWAIT, WHILE, FALSE, ELSE, TRUE, THIS,
	LET, AND, NOT, NIL, FN, IF, OR, LE, GE, EQ, NE, ASSIGN, PLUS,
	MINUS, MULT, DIV, MOD, LT, GT, SEMICOLON, COMMA,
	LPAREN, RPAREN, LBRACE, RBRACE, NUM, STRING, ID,
}

// Regex returns the regex pattern for a token type
func (t TokenType) Regex() *regexp.Regexp {
	return tokenRegexes[t]
}

// MatchToken matches the first token at the start of the string.
// Whitespace and comments are reported as EOF with a non-empty lexeme so the caller can skip them.
func MatchToken(s string) (TokenType, string, bool) {
	if s == "" {
		return EOF, "", false
	} else if match := whitespaceRegex.FindString(s); match != "" {
		return EOF, match, true
	} else if match := commentRegex.FindString(s); match != "" {
		return EOF, match, true
	}

	for _, tokenType := range tokenPrecedenceOrder {
		if regex, ok := tokenRegexes[tokenType]; ok {
			if match := regex.FindString(s); match != "" {
				return tokenType, match, true
			}
		}
	}

	return ILLEGAL, string(s[0]), false
}

// Check if a byte is a digit
func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
