// Package groups computes, for each node of an optimized query tree, the
// write group it deposits its result into and the read groups it may
// legally consult as a filter. The walk is top-down and single-pass;
// annotations are stored in a side table keyed by node pointer identity
// rather than on the tree itself, so the AST is never mutated (spec §4.3,
// §9).
package groups

import "github.com/ritamzico/dsearch/internal/ast"

// Table is the side table produced by Annotate. Node keys rely on Go
// interface equality, which for these pointer-typed AST variants reduces
// to pointer identity — the same node value used to build the tree must
// be used to query the table.
type Table struct {
	write map[ast.Node]int
	read  map[ast.Node][]int
	used  map[int]int
}

// WriteGroup returns the slot n's evaluated result is deposited into.
func (t *Table) WriteGroup(n ast.Node) int {
	return t.write[n]
}

// ReadGroups returns the slots whose current contents n may consult as a
// filter, ordered with the most specific (own) group first.
func (t *Table) ReadGroups(n ast.Node) []int {
	return t.read[n]
}

// Used reports how many PercentileLeaf nodes reference group g. A group
// with a zero count was never consumed and may be elided by an evaluator
// that wants to skip building its filter.
func (t *Table) Used(g int) int {
	return t.used[g]
}

// Annotate walks root top-down and assigns write/read groups per the rules
// in spec §4.3. When parallel is true, ColScope is treated like
// Disjunction (each child gets a fresh write group, enabling independent
// percentile evaluation); otherwise a ColScope's child inherits the
// ColScope's own groups, like Conjunction.
func Annotate(root ast.Node, parallel bool) *Table {
	t := &Table{
		write: make(map[ast.Node]int),
		read:  make(map[ast.Node][]int),
		used:  map[int]int{0: 0},
	}

	next := 0
	freshGroup := func() int {
		next++
		t.used[next] = 0
		return next
	}

	var visit func(n ast.Node, write int, read []int)
	visit = func(n ast.Node, write int, read []int) {
		t.write[n] = write
		t.read[n] = read

		switch v := n.(type) {
		case *ast.Query:
			visit(v.Child, write, read)

		case *ast.Conjunction:
			for _, c := range v.Children {
				visit(c, write, read)
			}

		case *ast.Disjunction:
			for _, c := range v.Children {
				g := freshGroup()
				visit(c, g, prepend(g, read))
			}

		case *ast.Negation:
			g := freshGroup()
			visit(v.Child, g, prepend(g, read))

		case *ast.ColScope:
			if parallel {
				g := freshGroup()
				visit(v.Child, g, prepend(g, read))
			} else {
				visit(v.Child, write, read)
			}

		case *ast.PercentileLeaf:
			for _, g := range read {
				t.used[g]++
			}

		case *ast.KeywordLeaf, *ast.NameLeaf:
			// Leaves with no filter dependency; nothing further to propagate.
		}
	}

	visit(root, 0, []int{0})
	return t
}

func prepend(g int, read []int) []int {
	out := make([]int, 0, len(read)+1)
	out = append(out, g)
	out = append(out, read...)
	return out
}
