package groups

import (
	"testing"

	"github.com/ritamzico/dsearch/internal/ast"
	"github.com/ritamzico/dsearch/internal/parse"
)

func mustParse(t *testing.T, q string) ast.Node {
	t.Helper()
	n, err := parse.Parse(q)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", q, err)
	}
	return n
}

func TestAnnotate_RootIsGroupZero(t *testing.T) {
	root := mustParse(t, `kw('a')`)
	table := Annotate(root, false)
	if table.WriteGroup(root) != 0 {
		t.Errorf("root write group = %d, want 0", table.WriteGroup(root))
	}
	if got := table.ReadGroups(root); len(got) != 1 || got[0] != 0 {
		t.Errorf("root read groups = %v, want [0]", got)
	}
}

func TestAnnotate_ConjunctionInheritsGroups(t *testing.T) {
	root := mustParse(t, `kw('a') AND kw('b')`)
	table := Annotate(root, false)
	conj := root.(*ast.Query).Child.(*ast.Conjunction)
	for _, c := range conj.Children {
		if table.WriteGroup(c) != table.WriteGroup(root) {
			t.Errorf("conjunction child write group = %d, want %d", table.WriteGroup(c), table.WriteGroup(root))
		}
	}
}

func TestAnnotate_DisjunctionAssignsFreshGroups(t *testing.T) {
	root := mustParse(t, `kw('a') OR kw('b')`)
	table := Annotate(root, false)
	disj := root.(*ast.Query).Child.(*ast.Disjunction)
	seen := map[int]bool{}
	for _, c := range disj.Children {
		g := table.WriteGroup(c)
		if g == 0 {
			t.Errorf("disjunction child got root's write group 0")
		}
		if seen[g] {
			t.Errorf("duplicate write group %d across disjunction children", g)
		}
		seen[g] = true

		read := table.ReadGroups(c)
		if len(read) != 2 || read[0] != g || read[1] != 0 {
			t.Errorf("child read groups = %v, want [%d 0]", read, g)
		}
	}
}

func TestAnnotate_ColScopeSequentialInheritsGroups(t *testing.T) {
	root := mustParse(t, `col(name('x';0) AND pp(0.5;ge;1))`)
	table := Annotate(root, false)
	scope := root.(*ast.Query).Child.(*ast.ColScope)
	if table.WriteGroup(scope.Child) != table.WriteGroup(scope) {
		t.Errorf("sequential col scope child should inherit write group")
	}
}

func TestAnnotate_ColScopeParallelGetsFreshGroup(t *testing.T) {
	root := mustParse(t, `col(name('x';0))`)
	table := Annotate(root, true)
	scope := root.(*ast.Query).Child.(*ast.ColScope)
	if table.WriteGroup(scope.Child) == table.WriteGroup(scope) {
		t.Errorf("parallel col scope child should get a fresh write group")
	}
}

func TestAnnotate_PercentileLeafMarksReadGroupsUsed(t *testing.T) {
	root := mustParse(t, `kw('a') OR col(pp(0.5;ge;1))`)
	table := Annotate(root, false)
	disj := root.(*ast.Query).Child.(*ast.Disjunction)
	scope := disj.Children[1].(*ast.ColScope)
	g := table.WriteGroup(scope)
	if table.Used(g) != 1 {
		t.Errorf("Used(%d) = %d, want 1", g, table.Used(g))
	}
}
