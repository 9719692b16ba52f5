package optimize

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

func TestOptimize_SplitsPercentileConjunction(t *testing.T) {
	n := mustParse(t, `col(pp(0.1;ge;1) AND pp(0.2;ge;2) AND pp(0.3;ge;3))`)
	out := Optimize(n, Options{})

	scope := out.(*ast.Query).Child.(*ast.ColScope)
	top, ok := scope.Child.(*ast.Conjunction)
	if !ok {
		t.Fatalf("expected top-level Conjunction, got %T", scope.Child)
	}
	if len(top.Children) != 2 {
		t.Fatalf("expected balanced arity-2 split, got %d children", len(top.Children))
	}
	// Every Conjunction under the scope must have exactly two children.
	var walk func(n ast.Node)
	count := 0
	walk = func(n ast.Node) {
		if c, ok := n.(*ast.Conjunction); ok {
			count++
			if len(c.Children) != 2 {
				t.Errorf("conjunction with arity %d, want 2", len(c.Children))
			}
			for _, child := range c.Children {
				walk(child)
			}
		}
	}
	walk(scope.Child)
	if count != 2 {
		t.Fatalf("expected 2 conjunction nodes in balanced tree of 3 leaves, got %d", count)
	}
}

func TestOptimize_DoesNotSplitOutsideColScope(t *testing.T) {
	n := mustParse(t, `kw('a') AND kw('b') AND kw('c')`)
	out := Optimize(n, Options{})
	// All three keyword leaves fuse into a single KeywordLeaf (rule 2),
	// so nothing is left to split under rule 1 regardless.
	if _, ok := out.(*ast.Query).Child.(*ast.KeywordLeaf); !ok {
		t.Fatalf("expected fused KeywordLeaf, got %T", out.(*ast.Query).Child)
	}
}

func TestOptimize_MergesAdjacentKeywords(t *testing.T) {
	n := mustParse(t, `kw('a') AND kw('b')`)
	out := Optimize(n, Options{})
	kw, ok := out.(*ast.Query).Child.(*ast.KeywordLeaf)
	if !ok {
		t.Fatalf("expected *ast.KeywordLeaf, got %T", out.(*ast.Query).Child)
	}
	if want := "(a) AND (b)"; kw.Text != want {
		t.Errorf("Text = %q, want %q", kw.Text, want)
	}
}

func TestOptimize_MergesNegatedKeyword(t *testing.T) {
	n := mustParse(t, `kw('a') AND NOT kw('b')`)
	out := Optimize(n, Options{})
	kw, ok := out.(*ast.Query).Child.(*ast.KeywordLeaf)
	if !ok {
		t.Fatalf("expected *ast.KeywordLeaf, got %T", out.(*ast.Query).Child)
	}
	if want := "(a) AND -(b)"; kw.Text != want {
		t.Errorf("Text = %q, want %q", kw.Text, want)
	}
}

func TestOptimize_LonePendingNegationUnchanged(t *testing.T) {
	n := mustParse(t, `NOT kw('a') AND col(name('x';0))`)
	out := Optimize(n, Options{})
	conj := out.(*ast.Query).Child.(*ast.Conjunction)
	if len(conj.Children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(conj.Children))
	}
	if _, ok := conj.Children[0].(*ast.Negation); !ok {
		t.Errorf("expected lone negation to be re-emitted unchanged, got %T", conj.Children[0])
	}
}

func TestOptimize_SortByCostAscendingUnderAnd(t *testing.T) {
	n := mustParse(t, `col(pp(0.1;ge;1)) AND col(name('x';0))`)
	out := Optimize(n, Options{SortByCost: true})
	conj := out.(*ast.Query).Child.(*ast.Conjunction)
	first := conj.Children[0].(*ast.ColScope)
	if _, ok := first.Child.(*ast.NameLeaf); !ok {
		t.Errorf("expected cheaper NameLeaf scope first, got %T", first.Child)
	}
}

func TestOptimize_SortByCostDescendingUnderOr(t *testing.T) {
	n := mustParse(t, `col(name('x';0)) OR col(pp(0.1;ge;1))`)
	out := Optimize(n, Options{SortByCost: true})
	disj := out.(*ast.Query).Child.(*ast.Disjunction)
	first := disj.Children[0].(*ast.ColScope)
	if _, ok := first.Child.(*ast.PercentileLeaf); !ok {
		t.Errorf("expected costlier PercentileLeaf scope first, got %T", first.Child)
	}
}
