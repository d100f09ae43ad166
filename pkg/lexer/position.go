package lexer

import "fmt"

// Position locates a token in the source. Line and Column are 1-based.
type Position struct {
	Line   int
	Column int
	Offset int // byte offset into the source
}

// Start is the position of the first byte of any source
var Start = Position{Line: 1, Column: 1}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}
