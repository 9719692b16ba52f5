package eval

import (
	"context"
	"sync"

	"github.com/ritamzico/dsearch/internal/apperr"
	"github.com/ritamzico/dsearch/internal/ast"
	"github.com/ritamzico/dsearch/internal/groups"
	"github.com/ritamzico/dsearch/internal/highlight"
	"github.com/ritamzico/dsearch/internal/idconv"
	"github.com/ritamzico/dsearch/internal/ids"
	"github.com/ritamzico/dsearch/internal/indices"
	"github.com/ritamzico/dsearch/internal/metadata"
	"github.com/ritamzico/dsearch/internal/setalg"
)

// asyncStore is the concurrent counterpart of store: since several goroutines
// can share one write group under a Conjunction evaluated in parallel, a
// group holds a list of futures rather than one resolved value. A
// percentile leaf builds its filter from whatever futures are already
// registered for its read groups, awaiting each in turn (resolved ones
// return immediately) and skipping groups nothing has registered yet. A
// weaker-than-ideal filter never affects correctness: the final
// docJunction/colJunction at each combinator recomputes the exact result
// regardless of what filter a percentile leaf searched with — prefiltering
// is strictly a performance optimization (spec §4.5, §5).
//
// colFuture tags a registered column-level future with whether it belongs
// to a PercentileLeaf. A balanced-conjunction split (internal/optimize)
// can put two or more PercentileLeaf siblings in the same write group
// (groups.go never allocates Conjunction children a fresh group), and
// reserveCols for both siblings runs before either's pool job does — so a
// percentile leaf building its own filter must never await another
// percentile leaf's future in its own read groups, or the two deadlock
// waiting on each other. Name futures carry no such risk (a NameLeaf never
// builds a filter of its own) and remain eligible.
type colFuture struct {
	fut        *future[ColResult]
	percentile bool
}

type asyncStore struct {
	mu   sync.Mutex
	docs map[int][]*future[DocResult]
	cols map[int][]colFuture
}

func newAsyncStore() *asyncStore {
	return &asyncStore{docs: make(map[int][]*future[DocResult]), cols: make(map[int][]colFuture)}
}

func (s *asyncStore) reserveDocs(group int) *future[DocResult] {
	f := newFuture[DocResult]()
	s.mu.Lock()
	s.docs[group] = append(s.docs[group], f)
	s.mu.Unlock()
	return f
}

// reserveDocsIfUsed skips registering the future into the store when gt
// reports no PercentileLeaf will ever consult group — the returned future
// still carries the node's result up to its parent combinator, it's just
// never visible to buildHistFilter's snapshot.
func (s *asyncStore) reserveDocsIfUsed(gt *groups.Table, group int) *future[DocResult] {
	if gt.Used(group) == 0 {
		return newFuture[DocResult]()
	}
	return s.reserveDocs(group)
}

// reserveCols registers a column-level future for group, tagged as
// belonging to a PercentileLeaf or not (see colFuture).
func (s *asyncStore) reserveCols(group int, percentile bool) *future[ColResult] {
	f := newFuture[ColResult]()
	s.mu.Lock()
	s.cols[group] = append(s.cols[group], colFuture{fut: f, percentile: percentile})
	s.mu.Unlock()
	return f
}

// reserveColsIfUsed is reserveDocsIfUsed's column-level counterpart.
func (s *asyncStore) reserveColsIfUsed(gt *groups.Table, group int, percentile bool) *future[ColResult] {
	if gt.Used(group) == 0 {
		return newFuture[ColResult]()
	}
	return s.reserveCols(group, percentile)
}

func (s *asyncStore) snapshot(group int) ([]*future[DocResult], []colFuture) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*future[DocResult](nil), s.docs[group]...), append([]colFuture(nil), s.cols[group]...)
}

// buildHistFilter never awaits a percentile-tagged future: a PercentileLeaf
// would otherwise risk awaiting a sibling PercentileLeaf sharing its own
// write group, and that sibling's own filter-building is awaiting it right
// back (see colFuture).
func (s *asyncStore) buildHistFilter(ctx context.Context, readGroups []int, meta *metadata.Metadata, mode indices.Mode) (filter []ids.HistID, exists bool) {
	stop := indices.FilteringStopPoints[mode]
	var acc []ids.HistID
	found := false

	for _, g := range readGroups {
		docFuts, colFuts := s.snapshot(g)

		for _, f := range docFuts {
			res, err := f.Await(ctx)
			if err != nil {
				continue
			}
			if len(res.Docs) > stop.NumDocIDs {
				return nil, false
			}
			hists := idconv.ColToHistIDs(idconv.DocToColIDs(res.Docs, meta), meta.NumHists)
			if len(hists) > stop.NumHistIDs {
				return nil, false
			}
			if len(hists) == 0 {
				return []ids.HistID{}, true
			}
			if !found {
				acc, found = hists, true
			} else {
				acc = setalg.Intersect(acc, hists)
			}
		}

		for _, cf := range colFuts {
			if cf.percentile {
				continue
			}
			res, err := cf.fut.Await(ctx)
			if err != nil {
				continue
			}
			if len(res.Cols) > stop.NumColIDs {
				return nil, false
			}
			hists := idconv.ColToHistIDs(res.Cols, meta.NumHists)
			if len(hists) > stop.NumHistIDs {
				return nil, false
			}
			if len(hists) == 0 {
				return []ids.HistID{}, true
			}
			if !found {
				acc, found = hists, true
			} else {
				acc = setalg.Intersect(acc, hists)
			}
		}
	}

	if !found {
		return nil, false
	}
	return acc, true
}

// ThreadedPrefiltering combines Threaded's worker-pool concurrency with
// Prefiltering's filter propagation. Every predicate leaf whose write group
// some PercentileLeaf consults reserves a future there before doing any
// work, so a concurrently-running sibling can find (and await) it while
// building its own percentile filter (spec §5). Combinators keep their
// futures private (see evalDocAsync).
type ThreadedPrefiltering struct {
	cfg    *Config
	groups *groups.Table
	pool   *Pool
	store  *asyncStore
	scores *Scores
}

// NewThreadedPrefiltering builds a ThreadedPrefiltering evaluator against
// cfg and gt, dispatching predicate leaves onto pool (caller-owned, same
// as Threaded).
func NewThreadedPrefiltering(cfg *Config, gt *groups.Table, pool *Pool) *ThreadedPrefiltering {
	return &ThreadedPrefiltering{cfg: cfg, groups: gt, pool: pool, store: newAsyncStore(), scores: NewScores()}
}

// Evaluate runs root and returns its document-level result plus the
// per-document usability scores keyword predicates contributed.
func (e *ThreadedPrefiltering) Evaluate(ctx context.Context, root *ast.Query) (DocResult, *Scores, error) {
	res, err := e.evalDocAsync(ctx, root.Child).Await(ctx)
	return res, e.scores, err
}

// evalDocAsync dispatches n and returns a future for its result immediately.
// Only leaves (KeywordLeaf here; PercentileLeaf/NameLeaf in evalColAsync)
// register their future into the shared store: a combinator's own future
// depends on its descendants, so registering it under the same group they
// read from would let a descendant await an ancestor that is in turn
// awaiting it (spec §5's "no prefiltering across a predicate and its own
// container" follows from this).
func (e *ThreadedPrefiltering) evalDocAsync(ctx context.Context, n ast.Node) *future[DocResult] {
	switch t := n.(type) {
	case *ast.KeywordLeaf:
		fut := e.store.reserveDocsIfUsed(e.groups, e.groups.WriteGroup(t))
		e.pool.submit(func() {
			res, err := e.cfg.Keyword.Search(ctx, t.Text, e.cfg.EnableHighlighting, e.cfg.MinUsabilityScore, e.cfg.RankByUsabilityDesc)
			if err != nil {
				fut.complete(DocResult{}, err)
				return
			}
			for i, d := range res.Docs {
				e.scores.Add(d, res.Scores[i])
			}
			hl := highlight.Empty
			if e.cfg.EnableHighlighting {
				hl = highlight.Highlights{Docs: res.Highlights}
			}
			fut.complete(DocResult{Docs: res.Docs, HL: hl}, nil)
		})
		return fut

	case *ast.ColScope:
		fut := newFuture[DocResult]()
		childFut := e.evalColAsync(ctx, t.Child)
		go func() {
			inner, err := childFut.Await(ctx)
			if err != nil {
				fut.complete(DocResult{}, err)
				return
			}
			fut.complete(colScopeToDoc(inner, e.cfg), nil)
		}()
		return fut

	case *ast.Conjunction:
		fut := newFuture[DocResult]()
		e.fanDocAsync(ctx, fut, t.Children, true)
		return fut

	case *ast.Disjunction:
		fut := newFuture[DocResult]()
		e.fanDocAsync(ctx, fut, t.Children, false)
		return fut

	case *ast.Negation:
		fut := newFuture[DocResult]()
		childFut := e.evalDocAsync(ctx, t.Child)
		go func() {
			inner, err := childFut.Await(ctx)
			if err != nil {
				fut.complete(DocResult{}, err)
				return
			}
			fut.complete(negateDoc(inner, e.cfg), nil)
		}()
		return fut

	default:
		fut := newFuture[DocResult]()
		fut.complete(DocResult{}, apperr.Internal("unexpected node at document level: %T", n))
		return fut
	}
}

// evalColAsync is evalDocAsync's column-level counterpart. PercentileLeaf
// and NameLeaf are the only col-level nodes that register into the shared
// store, for the same reason only KeywordLeaf does at the document level.
func (e *ThreadedPrefiltering) evalColAsync(ctx context.Context, n ast.Node) *future[ColResult] {
	switch t := n.(type) {
	case *ast.PercentileLeaf:
		fut := e.store.reserveColsIfUsed(e.groups, e.groups.WriteGroup(t), true)
		e.pool.submit(func() {
			readGroups := e.groups.ReadGroups(t)
			filter, exists := e.store.buildHistFilter(ctx, readGroups, e.cfg.Meta, e.cfg.Mode)
			if exists && len(filter) == 0 {
				fut.complete(ColResult{}, nil)
				return
			}
			var filterArg []ids.HistID
			if exists {
				filterArg = filter
			}
			hists, err := e.cfg.Percentile.Search(ctx, t.P, t.Cmp, t.Ref, e.cfg.Mode, filterArg)
			fut.complete(ColResult{Cols: hists}, err)
		})
		return fut

	case *ast.NameLeaf:
		fut := e.store.reserveColsIfUsed(e.groups, e.groups.WriteGroup(t), false)
		e.pool.submit(func() {
			cols, err := e.cfg.Name.Search(ctx, t.Text, t.K, nil)
			fut.complete(ColResult{Cols: cols}, err)
		})
		return fut

	case *ast.Conjunction:
		fut := newFuture[ColResult]()
		e.fanColAsync(ctx, fut, t.Children, true)
		return fut

	case *ast.Disjunction:
		fut := newFuture[ColResult]()
		e.fanColAsync(ctx, fut, t.Children, false)
		return fut

	case *ast.Negation:
		fut := newFuture[ColResult]()
		childFut := e.evalColAsync(ctx, t.Child)
		go func() {
			inner, err := childFut.Await(ctx)
			if err != nil {
				fut.complete(ColResult{}, err)
				return
			}
			fut.complete(negateCol(inner, e.cfg), nil)
		}()
		return fut

	default:
		fut := newFuture[ColResult]()
		fut.complete(ColResult{}, apperr.Internal("unexpected node at column level: %T", n))
		return fut
	}
}

func (e *ThreadedPrefiltering) fanDocAsync(ctx context.Context, fut *future[DocResult], children []ast.Node, and bool) {
	childFuts := make([]*future[DocResult], len(children))
	for i, c := range children {
		childFuts[i] = e.evalDocAsync(ctx, c)
	}
	go func() {
		results := make([]DocResult, len(childFuts))
		for i, cf := range childFuts {
			r, err := cf.Await(ctx)
			if err != nil {
				fut.complete(DocResult{}, err)
				return
			}
			results[i] = r
		}
		fut.complete(docJunction(results, and, e.cfg), nil)
	}()
}

func (e *ThreadedPrefiltering) fanColAsync(ctx context.Context, fut *future[ColResult], children []ast.Node, and bool) {
	childFuts := make([]*future[ColResult], len(children))
	for i, c := range children {
		childFuts[i] = e.evalColAsync(ctx, c)
	}
	go func() {
		results := make([]ColResult, len(childFuts))
		for i, cf := range childFuts {
			r, err := cf.Await(ctx)
			if err != nil {
				fut.complete(ColResult{}, err)
				return
			}
			results[i] = r
		}
		fut.complete(colJunction(results, and), nil)
	}()
}
