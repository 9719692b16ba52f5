// Package optimize rewrites a parsed query tree before evaluation: it
// splits percentile conjunctions inside column scopes into a balanced
// binary tree to expose parallelism, fuses adjacent keyword predicates
// into a single native keyword expression, and optionally reorders
// siblings by estimated cost. The three rules always run in that order
// (spec §4.2); each is sound and idempotent on its own.
package optimize

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ritamzico/dsearch/internal/ast"
)

// Options controls the optional cost-based sibling ordering rule.
type Options struct {
	SortByCost bool
}

// Optimize applies all enabled rewrite rules to root and returns the
// rewritten tree. root is never mutated; Optimize always builds new nodes.
func Optimize(root ast.Node, opts Options) ast.Node {
	root = splitPercentileConjunctions(root, false)
	root = mergeKeywords(root)
	if opts.SortByCost {
		root = sortByCost(root)
	}
	return root
}

// --- Rule 1: split percentile conjunctions inside column scopes ---

func splitPercentileConjunctions(n ast.Node, colLevel bool) ast.Node {
	switch t := n.(type) {
	case *ast.Query:
		return &ast.Query{Child: splitPercentileConjunctions(t.Child, false)}
	case *ast.ColScope:
		return &ast.ColScope{Child: splitPercentileConjunctions(t.Child, true)}
	case *ast.Negation:
		return &ast.Negation{Child: splitPercentileConjunctions(t.Child, colLevel)}
	case *ast.Conjunction:
		children := make([]ast.Node, len(t.Children))
		for i, c := range t.Children {
			children[i] = splitPercentileConjunctions(c, colLevel)
		}
		if colLevel && len(children) >= 2 && allPercentileLeaves(children) {
			return balancedConjunction(children)
		}
		return &ast.Conjunction{Children: children}
	case *ast.Disjunction:
		children := make([]ast.Node, len(t.Children))
		for i, c := range t.Children {
			children[i] = splitPercentileConjunctions(c, colLevel)
		}
		return &ast.Disjunction{Children: children}
	default:
		return n
	}
}

func allPercentileLeaves(nodes []ast.Node) bool {
	for _, n := range nodes {
		if _, ok := n.(*ast.PercentileLeaf); !ok {
			return false
		}
	}
	return true
}

// balancedConjunction rebuilds items as a balanced binary tree of
// arity-2 Conjunction nodes. AND is associative, so this preserves
// semantics while giving a threaded evaluator pairs of independent leaves
// to dispatch concurrently.
func balancedConjunction(items []ast.Node) ast.Node {
	if len(items) == 1 {
		return items[0]
	}
	mid := len(items) / 2
	left := balancedConjunction(items[:mid])
	right := balancedConjunction(items[mid:])
	return &ast.Conjunction{Children: []ast.Node{left, right}}
}

// --- Rule 2: keyword merge ---

func mergeKeywords(n ast.Node) ast.Node {
	switch t := n.(type) {
	case *ast.Query:
		return &ast.Query{Child: mergeKeywords(t.Child)}
	case *ast.ColScope:
		return &ast.ColScope{Child: mergeKeywords(t.Child)}
	case *ast.Negation:
		return &ast.Negation{Child: mergeKeywords(t.Child)}
	case *ast.Conjunction:
		children := mergeAdjacentKeywords(mapMerge(t.Children), "AND")
		if len(children) == 1 {
			return children[0]
		}
		return &ast.Conjunction{Children: children}
	case *ast.Disjunction:
		children := mergeAdjacentKeywords(mapMerge(t.Children), "OR")
		if len(children) == 1 {
			return children[0]
		}
		return &ast.Disjunction{Children: children}
	default:
		return n
	}
}

func mapMerge(children []ast.Node) []ast.Node {
	out := make([]ast.Node, len(children))
	for i, c := range children {
		out[i] = mergeKeywords(c)
	}
	return out
}

func asKeywordLeaf(n ast.Node) (*ast.KeywordLeaf, bool) {
	kw, ok := n.(*ast.KeywordLeaf)
	return kw, ok
}

func asNegatedKeyword(n ast.Node) (*ast.KeywordLeaf, bool) {
	neg, ok := n.(*ast.Negation)
	if !ok {
		return nil, false
	}
	kw, ok := neg.Child.(*ast.KeywordLeaf)
	return kw, ok
}

// mergeAdjacentKeywords fuses runs of KeywordLeaf/NOT-KeywordLeaf siblings
// into a single KeywordLeaf whose text is "(t1) OP (t2) ...", with a
// negated leaf contributing "-(t)". A pending negation with no keyword
// peers is re-emitted unchanged.
func mergeAdjacentKeywords(items []ast.Node, operator string) []ast.Node {
	if len(items) <= 1 {
		return items
	}

	var result []ast.Node
	var current []string
	var pendingNode ast.Node
	var pendingText string
	hasPending := false

	flush := func() {
		if len(current) > 0 {
			if hasPending {
				current = append([]string{pendingText}, current...)
				hasPending = false
			}
			result = append(result, &ast.KeywordLeaf{Text: strings.Join(current, fmt.Sprintf(" %s ", operator))})
			current = nil
			return
		}
		if hasPending {
			result = append(result, pendingNode)
			hasPending = false
		}
	}

	for _, item := range items {
		switch {
		case isKeyword(item):
			kw, _ := asKeywordLeaf(item)
			current = append(current, "("+kw.Text+")")
		case isNegatedKeywordNode(item):
			kw, _ := asNegatedKeyword(item)
			if len(current) > 0 {
				current = append(current, "-("+kw.Text+")")
			} else {
				flush()
				pendingNode = item
				pendingText = "-(" + kw.Text + ")"
				hasPending = true
			}
		default:
			flush()
			result = append(result, item)
		}
	}
	flush()

	return result
}

func isKeyword(n ast.Node) bool {
	_, ok := asKeywordLeaf(n)
	return ok
}

func isNegatedKeywordNode(n ast.Node) bool {
	_, ok := asNegatedKeyword(n)
	return ok
}

// --- Rule 3: cost-based sibling ordering ---

func sortByCost(n ast.Node) ast.Node {
	switch t := n.(type) {
	case *ast.Query:
		return &ast.Query{Child: sortByCost(t.Child)}
	case *ast.ColScope:
		return &ast.ColScope{Child: sortByCost(t.Child)}
	case *ast.Negation:
		return &ast.Negation{Child: sortByCost(t.Child)}
	case *ast.Conjunction:
		children := mapSort(t.Children)
		sort.SliceStable(children, func(i, j int) bool { return cost(children[i]) < cost(children[j]) })
		return &ast.Conjunction{Children: children}
	case *ast.Disjunction:
		children := mapSort(t.Children)
		sort.SliceStable(children, func(i, j int) bool { return cost(children[i]) > cost(children[j]) })
		return &ast.Disjunction{Children: children}
	default:
		return n
	}
}

func mapSort(children []ast.Node) []ast.Node {
	out := make([]ast.Node, len(children))
	for i, c := range children {
		out[i] = sortByCost(c)
	}
	return out
}

// cost estimates the static evaluation cost of n per the heuristic in
// spec §4.2: KeywordLeaf=1, NameLeaf=2, PercentileLeaf=4, ColScope(x) =
// cost(x)+1, Negation(x) = cost(x), junctions sum their children.
func cost(n ast.Node) int {
	switch t := n.(type) {
	case *ast.KeywordLeaf:
		return 1
	case *ast.NameLeaf:
		return 2
	case *ast.PercentileLeaf:
		return 4
	case *ast.ColScope:
		return cost(t.Child) + 1
	case *ast.Negation:
		return cost(t.Child)
	case *ast.Conjunction:
		sum := 0
		for _, c := range t.Children {
			sum += cost(c)
		}
		return sum
	case *ast.Disjunction:
		sum := 0
		for _, c := range t.Children {
			sum += cost(c)
		}
		return sum
	default:
		return 0
	}
}
