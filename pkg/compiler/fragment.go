package compiler

import (
	"fmt"
	"strings"

	"sandvm/pkg/parser/ast"
)

// Fragment is the compiled syntax data of one function literal, or of the
// top level when Node is nil. Children lists the function literals nested
// directly inside it, in the order instrumented code links them.
type Fragment struct {
	ID       int
	Name     string
	Node     *ast.FuncLit
	Parent   *Fragment
	Children []*Fragment

	program *Program
}

// IsTop reports whether f is a program's top-level fragment
func (f *Fragment) IsTop() bool {
	return f.Node == nil
}

// Program returns the program the fragment was compiled from
func (f *Fragment) Program() *Program {
	return f.program
}

// Path returns the child indexes leading from the top-level fragment to f.
func (f *Fragment) Path() []int {
	var path []int
	for n := f; n.Parent != nil; n = n.Parent {
		path = append([]int{n.Node.Index}, path...)
	}
	return path
}

// String renders the fragment as "name#id".
func (f *Fragment) String() string {
	name := f.Name
	if name == "" {
		name = "<anonymous>"
	}
	return fmt.Sprintf("%s#%d", name, f.ID)
}

// Dump renders the fragment tree rooted at f, one fragment per line
func (f *Fragment) Dump() string {
	var sb strings.Builder
	f.dump(&sb, 0)
	return sb.String()
}

func (f *Fragment) dump(sb *strings.Builder, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString(f.String())
	if f.Node != nil {
		fmt.Fprintf(sb, " (%s) params=%v", f.Node.At, f.Node.Params)
	}
	sb.WriteByte('\n')
	for _, c := range f.Children {
		c.dump(sb, depth+1)
	}
}
