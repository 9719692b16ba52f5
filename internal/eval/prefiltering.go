package eval

import (
	"context"

	"github.com/ritamzico/dsearch/internal/apperr"
	"github.com/ritamzico/dsearch/internal/ast"
	"github.com/ritamzico/dsearch/internal/groups"
	"github.com/ritamzico/dsearch/internal/highlight"
	"github.com/ritamzico/dsearch/internal/ids"
)

// Prefiltering evaluates a tree bottom-up on a single goroutine like Simple,
// but consults the group table (spec §4.3) to turn sibling results already
// computed earlier in postorder into a HistID filter for percentile leaves.
// A sibling evaluated later in the same write group never sees a later
// sibling's result, since nothing has written it yet — the store only ever
// holds what postorder evaluation has produced so far (spec §4.5, §9).
type Prefiltering struct {
	cfg    *Config
	groups *groups.Table
	store  *store
	scores *Scores
}

// NewPrefiltering builds a Prefiltering evaluator against cfg, using a group
// table computed over the same (optimized) tree it will evaluate.
func NewPrefiltering(cfg *Config, gt *groups.Table) *Prefiltering {
	return &Prefiltering{cfg: cfg, groups: gt, store: newStore(), scores: NewScores()}
}

// Evaluate runs root and returns its document-level result plus the
// per-document usability scores keyword predicates contributed.
func (e *Prefiltering) Evaluate(ctx context.Context, root *ast.Query) (DocResult, *Scores, error) {
	res, err := e.evalDoc(ctx, root.Child)
	return res, e.scores, err
}

func (e *Prefiltering) evalDoc(ctx context.Context, n ast.Node) (DocResult, error) {
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
		out := DocResult{Docs: res.Docs, HL: hl}
		e.store.setDocsIfUsed(e.groups, e.groups.WriteGroup(t), out.Docs)
		return out, nil

	case *ast.ColScope:
		inner, err := e.evalCol(ctx, t.Child)
		if err != nil {
			return DocResult{}, err
		}
		out := colScopeToDoc(inner, e.cfg)
		e.store.setDocsIfUsed(e.groups, e.groups.WriteGroup(t), out.Docs)
		return out, nil

	case *ast.Conjunction:
		items := make([]DocResult, len(t.Children))
		for i, c := range t.Children {
			r, err := e.evalDoc(ctx, c)
			if err != nil {
				return DocResult{}, err
			}
			items[i] = r
		}
		out := docJunction(items, true, e.cfg)
		e.store.setDocsIfUsed(e.groups, e.groups.WriteGroup(t), out.Docs)
		return out, nil

	case *ast.Disjunction:
		items := make([]DocResult, len(t.Children))
		for i, c := range t.Children {
			r, err := e.evalDoc(ctx, c)
			if err != nil {
				return DocResult{}, err
			}
			items[i] = r
		}
		out := docJunction(items, false, e.cfg)
		e.store.setDocsIfUsed(e.groups, e.groups.WriteGroup(t), out.Docs)
		return out, nil

	case *ast.Negation:
		inner, err := e.evalDoc(ctx, t.Child)
		if err != nil {
			return DocResult{}, err
		}
		out := negateDoc(inner, e.cfg)
		e.store.setDocsIfUsed(e.groups, e.groups.WriteGroup(t), out.Docs)
		return out, nil

	default:
		return DocResult{}, apperr.Internal("unexpected node at document level: %T", n)
	}
}

func (e *Prefiltering) evalCol(ctx context.Context, n ast.Node) (ColResult, error) {
	switch t := n.(type) {
	case *ast.PercentileLeaf:
		readGroups := e.groups.ReadGroups(t)
		filter, exists := e.store.buildHistFilter(readGroups, e.cfg.Meta, e.cfg.Mode)

		if exists && len(filter) == 0 {
			e.store.setColsIfUsed(e.groups, e.groups.WriteGroup(t), nil)
			return ColResult{}, nil
		}

		var filterArg []ids.HistID
		if exists {
			filterArg = filter
		}
		hists, err := e.cfg.Percentile.Search(ctx, t.P, t.Cmp, t.Ref, e.cfg.Mode, filterArg)
		if err != nil {
			return ColResult{}, err
		}
		out := ColResult{Cols: hists}
		e.store.setColsIfUsed(e.groups, e.groups.WriteGroup(t), out.Cols)
		return out, nil

	case *ast.NameLeaf:
		cols, err := e.cfg.Name.Search(ctx, t.Text, t.K, nil)
		if err != nil {
			return ColResult{}, err
		}
		out := ColResult{Cols: cols}
		e.store.setColsIfUsed(e.groups, e.groups.WriteGroup(t), out.Cols)
		return out, nil

	case *ast.Conjunction:
		items := make([]ColResult, len(t.Children))
		for i, c := range t.Children {
			r, err := e.evalCol(ctx, c)
			if err != nil {
				return ColResult{}, err
			}
			items[i] = r
		}
		out := colJunction(items, true)
		e.store.setColsIfUsed(e.groups, e.groups.WriteGroup(t), out.Cols)
		return out, nil

	case *ast.Disjunction:
		items := make([]ColResult, len(t.Children))
		for i, c := range t.Children {
			r, err := e.evalCol(ctx, c)
			if err != nil {
				return ColResult{}, err
			}
			items[i] = r
		}
		out := colJunction(items, false)
		e.store.setColsIfUsed(e.groups, e.groups.WriteGroup(t), out.Cols)
		return out, nil

	case *ast.Negation:
		inner, err := e.evalCol(ctx, t.Child)
		if err != nil {
			return ColResult{}, err
		}
		out := negateCol(inner, e.cfg)
		e.store.setColsIfUsed(e.groups, e.groups.WriteGroup(t), out.Cols)
		return out, nil

	default:
		return ColResult{}, apperr.Internal("unexpected node at column level: %T", n)
	}
}
