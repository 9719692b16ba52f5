package eval

import (
	"context"
	"sync"

	"github.com/ritamzico/dsearch/internal/apperr"
	"github.com/ritamzico/dsearch/internal/ast"
	"github.com/ritamzico/dsearch/internal/highlight"
)

// Threaded evaluates a tree the way Simple does, except predicate leaves
// (keyword, percentile, name) are dispatched to a bounded worker pool and
// boolean combinators fan out to their children concurrently, awaiting the
// results on the calling goroutine — the same executeConcurrent shape the
// teacher uses for its own concurrent query combinators, generalized from a
// fixed reduce function to docJunction/colJunction (spec §5). There is no
// prefiltering: every leaf searches its index unfiltered.
type Threaded struct {
	cfg    *Config
	pool   *Pool
	scores *Scores
}

// NewThreaded builds a Threaded evaluator that dispatches predicate leaves
// onto pool. The caller owns pool's lifecycle (the engine starts one at
// construction and stops it via Close; spec §5).
func NewThreaded(cfg *Config, pool *Pool) *Threaded {
	return &Threaded{cfg: cfg, pool: pool, scores: NewScores()}
}

// Evaluate runs root and returns its document-level result plus the
// per-document usability scores keyword predicates contributed.
func (e *Threaded) Evaluate(ctx context.Context, root *ast.Query) (DocResult, *Scores, error) {
	res, err := e.evalDoc(ctx, root.Child)
	return res, e.scores, err
}

func (e *Threaded) evalDoc(ctx context.Context, n ast.Node) (DocResult, error) {
	switch t := n.(type) {
	case *ast.KeywordLeaf:
		return e.evalKeywordLeaf(ctx, t)

	case *ast.ColScope:
		inner, err := e.evalCol(ctx, t.Child)
		if err != nil {
			return DocResult{}, err
		}
		return colScopeToDoc(inner, e.cfg), nil

	case *ast.Conjunction:
		return e.fanDoc(ctx, t.Children, true)

	case *ast.Disjunction:
		return e.fanDoc(ctx, t.Children, false)

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

func (e *Threaded) evalCol(ctx context.Context, n ast.Node) (ColResult, error) {
	switch t := n.(type) {
	case *ast.PercentileLeaf:
		return e.evalPercentileLeaf(ctx, t)

	case *ast.NameLeaf:
		return e.evalNameLeaf(ctx, t)

	case *ast.Conjunction:
		return e.fanCol(ctx, t.Children, true)

	case *ast.Disjunction:
		return e.fanCol(ctx, t.Children, false)

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

func (e *Threaded) evalKeywordLeaf(ctx context.Context, t *ast.KeywordLeaf) (DocResult, error) {
	fut := newFuture[DocResult]()
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
	return fut.Await(ctx)
}

func (e *Threaded) evalPercentileLeaf(ctx context.Context, t *ast.PercentileLeaf) (ColResult, error) {
	fut := newFuture[ColResult]()
	e.pool.submit(func() {
		hists, err := e.cfg.Percentile.Search(ctx, t.P, t.Cmp, t.Ref, e.cfg.Mode, nil)
		fut.complete(ColResult{Cols: hists}, err)
	})
	return fut.Await(ctx)
}

func (e *Threaded) evalNameLeaf(ctx context.Context, t *ast.NameLeaf) (ColResult, error) {
	fut := newFuture[ColResult]()
	e.pool.submit(func() {
		cols, err := e.cfg.Name.Search(ctx, t.Text, t.K, nil)
		fut.complete(ColResult{Cols: cols}, err)
	})
	return fut.Await(ctx)
}

type docWrapper struct {
	index int
	res   DocResult
	err   error
}

type colWrapper struct {
	index int
	res   ColResult
	err   error
}

// fanDoc dispatches children concurrently and combines their results once
// all have completed. On the first error, it cancels ctx and returns
// without waiting for stragglers; their (buffered) sends still succeed, so
// no goroutine leaks (mirrors the teacher's executeConcurrent).
func (e *Threaded) fanDoc(ctx context.Context, children []ast.Node, and bool) (DocResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	resCh := make(chan docWrapper, len(children))
	var wg sync.WaitGroup
	wg.Add(len(children))
	for i, c := range children {
		go func(i int, c ast.Node) {
			defer wg.Done()
			r, err := e.evalDoc(ctx, c)
			resCh <- docWrapper{index: i, res: r, err: err}
		}(i, c)
	}
	go func() {
		wg.Wait()
		close(resCh)
	}()

	results := make([]DocResult, len(children))
	for w := range resCh {
		if w.err != nil {
			cancel()
			return DocResult{}, w.err
		}
		results[w.index] = w.res
	}
	return docJunction(results, and, e.cfg), nil
}

func (e *Threaded) fanCol(ctx context.Context, children []ast.Node, and bool) (ColResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	resCh := make(chan colWrapper, len(children))
	var wg sync.WaitGroup
	wg.Add(len(children))
	for i, c := range children {
		go func(i int, c ast.Node) {
			defer wg.Done()
			r, err := e.evalCol(ctx, c)
			resCh <- colWrapper{index: i, res: r, err: err}
		}(i, c)
	}
	go func() {
		wg.Wait()
		close(resCh)
	}()

	results := make([]ColResult, len(children))
	for w := range resCh {
		if w.err != nil {
			cancel()
			return ColResult{}, w.err
		}
		results[w.index] = w.res
	}
	return colJunction(results, and), nil
}
