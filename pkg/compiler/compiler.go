// Package compiler lowers source text into instrumented programs: syntax trees
// whose function literals are hoisted to function entry and annotated with
// the fragment data the capture protocol links against.
package compiler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"sandvm/pkg/lexer"
	"sandvm/pkg/parser"
	"sandvm/pkg/parser/ast"
	"sandvm/pkg/stack"
)

var ErrForeignFragment = errors.New("fragment does not belong to a compiled program")

// Program is one compiled unit of source text.
type Program struct {
	Name      string      // synthetic name used to attribute runtime errors
	Source    string      // source text as given to Compile
	AST       *ast.Program
	Top       *Fragment   // top-level fragment, ID 0
	Fragments []*Fragment // indexed by fragment ID
	Sites     int         // number of await sites
}

// Fragment returns the fragment with the given ID, or nil
func (p *Program) Fragment(id int) *Fragment {
	if id < 0 || id >= len(p.Fragments) {
		return nil
	}
	return p.Fragments[id]
}

// Error reports every diagnostic of a failed compilation.
type Error struct {
	Diagnostics []parser.Error
}

func (e *Error) Error() string {
	if len(e.Diagnostics) == 1 {
		return e.Diagnostics[0].Error()
	}
	return fmt.Sprintf("%s (and %d more errors)", e.Diagnostics[0].Error(), len(e.Diagnostics)-1)
}

// Pretty renders all diagnostics for a terminal, one per line
func (e *Error) Pretty() string {
	lines := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		lines[i] = d.Pretty()
	}
	return strings.Join(lines, "\n")
}

type Compiler struct {
	name   string      // synthetic name stamped on compiled programs
	top    *Fragment   // top-level fragment of the latest successful compilation
	logger *log.Logger // debug output
}

type Option func(*Compiler)

// WithName sets the synthetic name stamped on compiled programs
func WithName(name string) Option {
	return func(c *Compiler) { c.name = name }
}

// WithLogger sets the logger used for debug output
func WithLogger(l *log.Logger) Option {
	return func(c *Compiler) { c.logger = l }
}

// New creates a new Compiler instance
func New(opts ...Option) *Compiler {
	c := &Compiler{name: "sandvm"}
	for _, o := range opts {
		o(c)
	}
	if c.logger == nil {
		c.logger = log.Default()
	}
	return c
}

// Top returns the top-level fragment of the latest successful compilation, or nil
func (c *Compiler) Top() *Fragment {
	return c.top
}

// Compile parses and instruments source. On failure it returns a *Error and
// leaves the compiler state untouched.
func (c *Compiler) Compile(source string) (*Program, error) {
	p := parser.NewParser(lexer.NewLexer(source))
	tree := p.Parse()
	if errs := p.Errors(); len(errs) > 0 {
		return nil, &Error{Diagnostics: errs}
	}

	prog := &Program{Name: c.name, Source: source, AST: tree}
	prog.Top = &Fragment{ID: 0, Name: c.name, program: prog}
	prog.Fragments = []*Fragment{prog.Top}

	in := &instrumenter{prog: prog, enclosing: stack.NewStack(prog.Top)}
	ast.Inspect(tree, in.visit)
	if len(in.errors) > 0 {
		return nil, &Error{Diagnostics: in.errors}
	}

	tree.Hoisted = hoisted(prog.Top)
	c.top = prog.Top

	c.logger.Debug("Compiled program", "name", prog.Name, "fragments", len(prog.Fragments), "sites", prog.Sites)
	return prog, nil
}

// FunctionSource re-derives the source text of the function literal a fragment was compiled from.
// The top-level fragment yields the whole program.
func (c *Compiler) FunctionSource(f *Fragment) (string, error) {
	if f == nil || f.program == nil {
		return "", ErrForeignFragment
	}
	if f.Node == nil {
		return f.program.Source, nil
	}
	src := f.program.Source
	if f.Node.Start < 0 || f.Node.End > len(src) || f.Node.Start > f.Node.End {
		return "", fmt.Errorf("fragment %s: source range %d..%d out of bounds", f, f.Node.Start, f.Node.End)
	}
	return src[f.Node.Start:f.Node.End], nil
}

// instrumenter assigns fragment ids, child indexes and await sites in one preorder pass
type instrumenter struct {
	prog      *Program
	enclosing *stack.Stack[*Fragment]
	errors    []parser.Error
}

func (in *instrumenter) visit(n ast.Node) bool {
	switch n := n.(type) {
	case *ast.FuncLit:
		parent, _ := in.enclosing.Peek()
		frag := &Fragment{
			ID:      len(in.prog.Fragments),
			Name:    n.Name,
			Node:    n,
			Parent:  parent,
			program: in.prog,
		}
		n.ID = frag.ID
		n.Index = len(parent.Children)
		parent.Children = append(parent.Children, frag)
		in.prog.Fragments = append(in.prog.Fragments, frag)

		in.checkParams(n)

		in.enclosing.Push(frag)
		ast.Inspect(n.Body, in.visit)
		in.enclosing.Pop()

		n.Hoisted = hoisted(frag)
		return false

	case *ast.AwaitExpr:
		n.Site = in.prog.Sites
		in.prog.Sites++

	case *ast.ReturnStmt:
		if in.enclosing.Size() == 1 {
			in.errors = append(in.errors, parser.Error{Msg: "Return outside function", Pos: n.At})
		}
	}

	return true
}

func (in *instrumenter) checkParams(n *ast.FuncLit) {
	seen := make(map[string]bool, len(n.Params))
	for _, name := range n.Params {
		if seen[name] {
			in.errors = append(in.errors, parser.Error{Msg: "Duplicate parameter `" + name + "`", Pos: n.At})
		}
		seen[name] = true
	}
}

func hoisted(f *Fragment) []*ast.FuncLit {
	lits := make([]*ast.FuncLit, len(f.Children))
	for i, c := range f.Children {
		lits[i] = c.Node
	}
	return lits
}
