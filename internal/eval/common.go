// Package eval runs an optimized, group-annotated query tree against the
// engine's three index collaborators. It ships four variants that share the
// same operator semantics and differ only in how aggressively they
// parallelize and prefilter (spec §4.5, §5):
//
//   - Simple: postorder, single goroutine, no filter propagation.
//   - Prefiltering: postorder, single goroutine, builds percentile filters
//     from sibling results already written into the current scope's group.
//   - Threaded: predicate leaves run on a worker pool; combinators await
//     their children's futures. No prefiltering.
//   - ThreadedPrefiltering: both at once.
package eval

import (
	"context"
	"math"
	"sync"

	"github.com/ritamzico/dsearch/internal/ast"
	"github.com/ritamzico/dsearch/internal/highlight"
	"github.com/ritamzico/dsearch/internal/idconv"
	"github.com/ritamzico/dsearch/internal/ids"
	"github.com/ritamzico/dsearch/internal/indices"
	"github.com/ritamzico/dsearch/internal/metadata"
	"github.com/ritamzico/dsearch/internal/setalg"
)

// Evaluator is implemented by all four variants (Simple, Prefiltering,
// Threaded, ThreadedPrefiltering); the engine picks one per query based on
// the requested strategy (spec §4.5).
type Evaluator interface {
	Evaluate(ctx context.Context, root *ast.Query) (DocResult, *Scores, error)
}

// DocResult is a document-level predicate result: the matching document IDs
// (sorted, unique) plus whatever highlight information the subtree collected.
type DocResult struct {
	Docs []ids.DocID
	HL   highlight.Highlights
}

// ColResult is a column-level predicate result: the matching column IDs
// (sorted, unique). Column-level subtrees never carry highlights directly —
// highlighting is attached only when a ColScope lifts the result back to
// documents.
type ColResult struct {
	Cols []ids.ColID
}

// Config bundles the collaborators and run-time options every evaluator
// variant needs. It is built once per query and never mutated.
type Config struct {
	Keyword    indices.KeywordIndex
	Percentile indices.PercentileIndex
	Name       indices.NameIndex
	Meta       *metadata.Metadata

	Mode                indices.Mode
	EnableHighlighting  bool
	MinUsabilityScore   float64
	RankByUsabilityDesc bool
}

// Scores sums the usability score every keyword predicate assigns to each
// document it matches (spec §2, §4.5's "Sum keyword-match scores per
// document"). A single keyword leaf's own hits are added once each — the
// source scores a hit twice in one code path and once in another; the
// specification resolves that ambiguity in favor of a single accumulation
// per (doc, match) pair (spec §9) — but independent keyword leaves under
// the same query each contribute their own score for a shared document,
// and those contributions sum.
type Scores struct {
	mu sync.Mutex
	m  map[ids.DocID]float64
}

// NewScores returns an empty score accumulator.
func NewScores() *Scores {
	return &Scores{m: make(map[ids.DocID]float64)}
}

// Add sums score into doc's running total. Safe for concurrent use so the
// threaded evaluator variants can call it from whichever goroutine
// evaluated the keyword predicate that found doc.
func (s *Scores) Add(doc ids.DocID, score float64) {
	s.mu.Lock()
	s.m[doc] += score
	s.mu.Unlock()
}

// Get returns doc's recorded score, or math.Inf(-1) if no keyword
// predicate touched it — such documents sort last, in DocID order, per
// spec §4.5's ordering guarantee.
func (s *Scores) Get(doc ids.DocID) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if score, ok := s.m[doc]; ok {
		return score
	}
	return math.Inf(-1)
}

// docJunction combines n>=2 DocResults with AND (and=true) or OR (and=false).
// When highlighting is disabled, it is a plain fold over the ID arrays; when
// enabled, it also threads highlight.Merge through the fold the way the
// engine's junction() does, since the merged highlight set for n>2 operands
// depends on the running combined document set at each step (spec §4.2).
func docJunction(items []DocResult, and bool, cfg *Config) DocResult {
	if !cfg.EnableHighlighting {
		arrays := make([][]ids.DocID, len(items))
		for i, it := range items {
			arrays[i] = it.Docs
		}
		var docs []ids.DocID
		if and {
			docs = setalg.IntersectAll(arrays)
		} else {
			docs = setalg.UnionAll(arrays)
		}
		return DocResult{Docs: docs, HL: highlight.Empty}
	}

	docs := items[0].Docs
	hl := items[0].HL
	for _, it := range items[1:] {
		if and {
			docs = setalg.Intersect(docs, it.Docs)
		} else {
			docs = setalg.Union(docs, it.Docs)
		}
		hl = highlight.Merge(hl, it.HL, docs, cfg.Meta)
	}
	return DocResult{Docs: docs, HL: hl}
}

// colJunction combines n>=2 ColResults with AND or OR.
func colJunction(items []ColResult, and bool) ColResult {
	arrays := make([][]ids.ColID, len(items))
	for i, it := range items {
		arrays[i] = it.Cols
	}
	if and {
		return ColResult{Cols: setalg.IntersectAll(arrays)}
	}
	return ColResult{Cols: setalg.UnionAll(arrays)}
}

// negateDoc complements a DocResult over every known document. Highlights
// are reset: a negated result didn't match anything, so there is nothing
// left to highlight (spec §9).
func negateDoc(d DocResult, cfg *Config) DocResult {
	return DocResult{
		Docs: setalg.Complement(d.Docs, cfg.Meta.NumDocs),
		HL:   highlight.Empty,
	}
}

// negateCol complements a ColResult over the full column universe
// [0, NumCols), not just the histogram-bearing prefix — per spec §9, a
// negated percentile predicate can surface non-histogram columns, so any
// downstream percentile filter built from it must drop ColIDs >= NumHists
// before querying the percentile index (see store.go's buildHistFilter).
func negateCol(c ColResult, cfg *Config) ColResult {
	return ColResult{Cols: setalg.Complement(c.Cols, cfg.Meta.NumCols)}
}

// colScopeToDoc lifts a ColResult to the DocResult a ColScope node produces:
// the documents owning any matching column, with column highlights attached
// when highlighting is enabled (spec §4.2's ColScope rule).
func colScopeToDoc(c ColResult, cfg *Config) DocResult {
	docs := idconv.ColToDocIDs(c.Cols, cfg.Meta)
	hl := highlight.Highlights{Docs: map[ids.DocID]map[string]string{}}
	if cfg.EnableHighlighting {
		hl.Cols = c.Cols
	}
	return DocResult{Docs: docs, HL: hl}
}
