package eval

import (
	"context"

	"github.com/ritamzico/dsearch/internal/apperr"
	"github.com/ritamzico/dsearch/internal/ast"
	"github.com/ritamzico/dsearch/internal/highlight"
)

// Simple evaluates a tree bottom-up on a single goroutine, without
// prefiltering. It is the evaluator variant used when the caller doesn't
// need cross-predicate filter propagation or concurrency — the smallest
// faithful implementation of the operator semantics (spec §4.2).
type Simple struct {
	cfg    *Config
	scores *Scores
}

// NewSimple builds a Simple evaluator against cfg.
func NewSimple(cfg *Config) *Simple {
	return &Simple{cfg: cfg, scores: NewScores()}
}

// Evaluate runs root and returns its document-level result plus the
// per-document usability scores keyword predicates contributed.
func (e *Simple) Evaluate(ctx context.Context, root *ast.Query) (DocResult, *Scores, error) {
	res, err := e.evalDoc(ctx, root.Child)
	return res, e.scores, err
}

func (e *Simple) evalDoc(ctx context.Context, n ast.Node) (DocResult, error) {
	switch t := n.(type) {
	case *ast.KeywordLeaf:
		res, err := e.cfg.Keyword.Search(ctx, t.Text, e.cfg.EnableHighlighting, e.cfg.MinUsabilityScore, e.cfg.RankByUsabilityDesc)
		if err != nil {
			return DocResult{}, err
		}
		for i, d := range res.Docs {
			e.scores.Add(d, res.Scores[i])
		}
		hl := highlight.Empty
		if e.cfg.EnableHighlighting {
			hl = highlight.Highlights{Docs: res.Highlights}
		}
		return DocResult{Docs: res.Docs, HL: hl}, nil

	case *ast.ColScope:
		inner, err := e.evalCol(ctx, t.Child)
		if err != nil {
			return DocResult{}, err
		}
		return colScopeToDoc(inner, e.cfg), nil

	case *ast.Conjunction:
		items := make([]DocResult, len(t.Children))
		for i, c := range t.Children {
			r, err := e.evalDoc(ctx, c)
			if err != nil {
				return DocResult{}, err
			}
			items[i] = r
		}
		return docJunction(items, true, e.cfg), nil

	case *ast.Disjunction:
		items := make([]DocResult, len(t.Children))
		for i, c := range t.Children {
			r, err := e.evalDoc(ctx, c)
			if err != nil {
				return DocResult{}, err
			}
			items[i] = r
		}
		return docJunction(items, false, e.cfg), nil

	case *ast.Negation:
		inner, err := e.evalDoc(ctx, t.Child)
		if err != nil {
			return DocResult{}, err
		}
		return negateDoc(inner, e.cfg), nil

	default:
		return DocResult{}, apperr.Internal("unexpected node at document level: %T", n)
	}
}

func (e *Simple) evalCol(ctx context.Context, n ast.Node) (ColResult, error) {
	switch t := n.(type) {
	case *ast.PercentileLeaf:
		hists, err := e.cfg.Percentile.Search(ctx, t.P, t.Cmp, t.Ref, e.cfg.Mode, nil)
		if err != nil {
			return ColResult{}, err
		}
		return ColResult{Cols: hists}, nil

	case *ast.NameLeaf:
		cols, err := e.cfg.Name.Search(ctx, t.Text, t.K, nil)
		if err != nil {
			return ColResult{}, err
		}
		return ColResult{Cols: cols}, nil

	case *ast.Conjunction:
		items := make([]ColResult, len(t.Children))
		for i, c := range t.Children {
			r, err := e.evalCol(ctx, c)
			if err != nil {
				return ColResult{}, err
			}
			items[i] = r
		}
		return colJunction(items, true), nil

	case *ast.Disjunction:
		items := make([]ColResult, len(t.Children))
		for i, c := range t.Children {
			r, err := e.evalCol(ctx, c)
			if err != nil {
				return ColResult{}, err
			}
			items[i] = r
		}
		return colJunction(items, false), nil

	case *ast.Negation:
		inner, err := e.evalCol(ctx, t.Child)
		if err != nil {
			return ColResult{}, err
		}
		return negateCol(inner, e.cfg), nil

	default:
		return ColResult{}, apperr.Internal("unexpected node at column level: %T", n)
	}
}
