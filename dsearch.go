// Package dsearch is the engine's convenience API, mirroring the teacher's
// top-level pgraph.go: a small root package (New, LoadMetadata, Query) over
// the mechanism that lives under internal/. Construction takes explicit Go
// parameters via functional options rather than a config file (spec §2).
package dsearch

import (
	"context"
	"io"
	"runtime"
	"sort"

	"go.uber.org/zap"

	"github.com/ritamzico/dsearch/internal/apperr"
	"github.com/ritamzico/dsearch/internal/ast"
	"github.com/ritamzico/dsearch/internal/cache"
	"github.com/ritamzico/dsearch/internal/eval"
	"github.com/ritamzico/dsearch/internal/groups"
	"github.com/ritamzico/dsearch/internal/highlight"
	"github.com/ritamzico/dsearch/internal/ids"
	"github.com/ritamzico/dsearch/internal/indices"
	"github.com/ritamzico/dsearch/internal/metadata"
	"github.com/ritamzico/dsearch/internal/optimize"
	"github.com/ritamzico/dsearch/internal/parse"
)

// Re-exported types so callers need only import this package for the
// common path (spec §3, §6).
type (
	DocID      = ids.DocID
	Mode       = indices.Mode
	Metadata   = metadata.Metadata
	Highlights = highlight.Highlights
)

const (
	ModeLowMemory     = indices.ModeLowMemory
	ModeFullPrecision = indices.ModeFullPrecision
	ModeFullRecall    = indices.ModeFullRecall
	ModeExact         = indices.ModeExact
)

// LoadMetadata decodes and validates the engine's ID-space tables from r,
// the same way the teacher's Load reads a graph document.
func LoadMetadata(r io.Reader) (*Metadata, error) {
	return metadata.Load(r)
}

// LoadMetadataFile decodes and validates a metadata document from a file
// path, the teacher's LoadFile counterpart.
func LoadMetadataFile(path string) (*Metadata, error) {
	return metadata.LoadFile(path)
}

// Strategy selects which evaluator variant answers a query (spec §4.5).
type Strategy int

const (
	StrategySimple Strategy = iota
	StrategyPrefiltering
	StrategyThreaded
	StrategyThreadedPrefiltering
)

// QueryResult is what (*Engine).Query returns: the matching document IDs
// and whatever highlights the query collected.
type QueryResult struct {
	Docs       []DocID
	Highlights Highlights
}

// Option configures an Engine at construction time.
type Option func(*config)

type config struct {
	strategy            Strategy
	poolSize            int
	cacheCapacity       int
	sortByCost          bool
	minUsabilityScore   float64
	rankByUsabilityDesc bool
	logger              *zap.Logger
}

// WithStrategy selects the evaluator variant; the default is
// StrategyPrefiltering, the teacher-grounded single-goroutine default that
// still benefits from filter propagation without requiring a worker pool.
func WithStrategy(s Strategy) Option {
	return func(c *config) { c.strategy = s }
}

// WithPoolSize sets the worker pool size used by the threaded strategies.
// The default is runtime.GOMAXPROCS(0), matching spec §5's "default =
// number of hardware threads".
func WithPoolSize(n int) Option {
	return func(c *config) { c.poolSize = n }
}

// WithCacheCapacity bounds the result LRU; 0 disables caching entirely by
// never constructing a cache instance (spec §4.6).
func WithCacheCapacity(n int) Option {
	return func(c *config) { c.cacheCapacity = n }
}

// WithCostSort enables the optimizer's optional cost-based sibling
// reordering rule (spec §4.2).
func WithCostSort(enabled bool) Option {
	return func(c *config) { c.sortByCost = enabled }
}

// WithMinUsabilityScore filters keyword hits below the given score before
// they ever reach the evaluator.
func WithMinUsabilityScore(f float64) Option {
	return func(c *config) { c.minUsabilityScore = f }
}

// WithRankByUsabilityDesc asks the keyword index to presort its hits by
// score, descending.
func WithRankByUsabilityDesc(enabled bool) Option {
	return func(c *config) { c.rankByUsabilityDesc = enabled }
}

// WithLogger injects a structured logger; the default is zap.NewNop().
func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.logger = l }
}

// Engine ties the parser, optimizer, group annotator, an evaluator
// variant, and the three index collaborators together behind the single
// Query entry point. It owns the worker pool used by the threaded
// strategies and the (optional) result cache.
type Engine struct {
	meta       *Metadata
	keyword    indices.KeywordIndex
	percentile indices.PercentileIndex
	name       indices.NameIndex

	cfg   config
	cache *cache.LRU
	pool  *eval.Pool
	log   *zap.Logger
}

// New builds an Engine over meta and the three index collaborators. The
// worker pool (used only by StrategyThreaded/StrategyThreadedPrefiltering)
// starts immediately and must be released with (*Engine).Close.
func New(meta *Metadata, keyword indices.KeywordIndex, percentile indices.PercentileIndex, name indices.NameIndex, opts ...Option) *Engine {
	cfg := config{
		strategy: StrategyPrefiltering,
		poolSize: runtime.GOMAXPROCS(0),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	var c *cache.LRU
	if cfg.cacheCapacity > 0 {
		lru, err := cache.New(cfg.cacheCapacity)
		if err != nil {
			cfg.logger.Warn("disabling result cache: invalid capacity", zap.Int("capacity", cfg.cacheCapacity), zap.Error(err))
		} else {
			c = lru
		}
	}

	return &Engine{
		meta:       meta,
		keyword:    keyword,
		percentile: percentile,
		name:       name,
		cfg:        cfg,
		cache:      c,
		pool:       eval.NewPool(cfg.poolSize),
		log:        cfg.logger,
	}
}

// Close stops the engine's worker pool, blocking until in-flight leaf
// predicate calls finish (spec §5's thread-pool lifecycle note).
func (e *Engine) Close() {
	e.pool.Close()
}

// InvalidateCache drops every cached result, for use after the engine's
// metadata or index contents change underneath it (spec §3).
func (e *Engine) InvalidateCache() {
	e.cache.Invalidate()
}

// Query parses, optimizes, and evaluates text, returning the matching
// document IDs (sorted descending by summed keyword score, then ascending
// by DocID) and any requested highlights (spec §4.5, §6).
func (e *Engine) Query(ctx context.Context, text string, mode Mode, enableHighlighting bool) (QueryResult, error) {
	key := cache.Key{Query: text, Mode: mode, Highlight: enableHighlighting}
	if cached, ok := e.cache.Get(key); ok {
		e.log.Debug("cache hit", zap.String("query", text))
		return QueryResult{Docs: cached.Docs, Highlights: cached.Highlights}, nil
	}

	root, err := parse.Parse(text)
	if err != nil {
		e.log.Warn("parse failed", zap.String("query", text), zap.Error(err))
		return QueryResult{}, err
	}

	optimized := optimize.Optimize(root, optimize.Options{SortByCost: e.cfg.sortByCost})
	query, ok := optimized.(*ast.Query)
	if !ok {
		e.log.Error("optimizer returned non-Query root", zap.String("query", text))
		return QueryResult{}, apperr.Internal("optimizer returned a non-Query root for %q", text)
	}

	evaluator := e.buildEvaluator(query, mode, enableHighlighting)

	res, scores, err := evaluator.Evaluate(ctx, query)
	if err != nil {
		e.log.Warn("evaluation failed", zap.String("query", text), zap.Error(err))
		return QueryResult{}, err
	}

	docs := orderByScore(res.Docs, scores)
	result := QueryResult{Docs: docs, Highlights: res.HL}

	e.cache.Put(key, cache.Entry{Docs: result.Docs, Highlights: result.Highlights})
	return result, nil
}

// buildEvaluator selects and constructs the evaluator variant for the
// configured strategy, reusing the engine's shared worker pool for the
// threaded variants.
func (e *Engine) buildEvaluator(query *ast.Query, mode Mode, enableHighlighting bool) eval.Evaluator {
	cfg := &eval.Config{
		Keyword:             e.keyword,
		Percentile:          e.percentile,
		Name:                e.name,
		Meta:                e.meta,
		Mode:                mode,
		EnableHighlighting:  enableHighlighting,
		MinUsabilityScore:   e.cfg.minUsabilityScore,
		RankByUsabilityDesc: e.cfg.rankByUsabilityDesc,
	}

	switch e.cfg.strategy {
	case StrategySimple:
		return eval.NewSimple(cfg)
	case StrategyThreaded:
		return eval.NewThreaded(cfg, e.pool)
	case StrategyThreadedPrefiltering:
		gt := groups.Annotate(query, true)
		return eval.NewThreadedPrefiltering(cfg, gt, e.pool)
	default:
		gt := groups.Annotate(query, false)
		return eval.NewPrefiltering(cfg, gt)
	}
}

// orderByScore returns docs sorted descending by score, ties broken
// ascending by DocID; a document with no recorded score sorts as if its
// score were -inf, i.e. strictly after every scored document (spec §4.5's
// "Ordering guarantees").
func orderByScore(docs []DocID, scores *eval.Scores) []DocID {
	out := append([]DocID(nil), docs...)
	sort.SliceStable(out, func(i, j int) bool {
		si, sj := scores.Get(out[i]), scores.Get(out[j])
		if si != sj {
			return si > sj
		}
		return out[i] < out[j]
	})
	return out
}
