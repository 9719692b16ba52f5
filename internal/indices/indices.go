// Package indices declares the narrow contracts the evaluator uses to
// talk to the three external collaborators described in spec §4.4: a
// full-text keyword index, a per-column percentile index, and a
// column-name vector index. All three are pure and safe for concurrent
// reads; index construction itself is out of scope here.
package indices

import (
	"context"
	"fmt"

	"github.com/ritamzico/dsearch/internal/ast"
	"github.com/ritamzico/dsearch/internal/ids"
)

// Mode selects the percentile index's execution strategy, trading
// precision, recall, memory, and latency (spec §4.4, §6).
type Mode int

const (
	ModeLowMemory Mode = iota
	ModeFullPrecision
	ModeFullRecall
	ModeExact
)

func (m Mode) String() string {
	switch m {
	case ModeLowMemory:
		return "low_memory"
	case ModeFullPrecision:
		return "full_precision"
	case ModeFullRecall:
		return "full_recall"
	case ModeExact:
		return "exact"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode converts the engine entry point's mode string into a Mode.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "low_memory":
		return ModeLowMemory, true
	case "full_precision":
		return ModeFullPrecision, true
	case "full_recall":
		return ModeFullRecall, true
	case "exact":
		return ModeExact, true
	default:
		return 0, false
	}
}

// FilteringStopPoint bounds how large an intermediate filter may grow
// before the prefiltering evaluator gives up and passes the predicate no
// filter at all. Coarser modes get tighter limits; exact mode, which pays
// for precision with latency, tolerates a much larger filter.
type FilteringStopPoint struct {
	NumDocIDs  int
	NumColIDs  int
	NumHistIDs int
}

// FilteringStopPoints is grounded on the engine's per-mode filtering
// thresholds (spec §4.5).
var FilteringStopPoints = map[Mode]FilteringStopPoint{
	ModeLowMemory:     {NumDocIDs: 1000, NumColIDs: 10000, NumHistIDs: 10000},
	ModeFullPrecision: {NumDocIDs: 1000, NumColIDs: 10000, NumHistIDs: 10000},
	ModeFullRecall:    {NumDocIDs: 1000, NumColIDs: 10000, NumHistIDs: 10000},
	ModeExact:         {NumDocIDs: 20000, NumColIDs: 300000, NumHistIDs: 300000},
}

// KeywordSearchResult is what a keyword index returns for one query: the
// matching documents, their scores (same order as Docs), and per-document
// per-field HTML snippets with <mark> spans, present only when highlight
// was requested.
type KeywordSearchResult struct {
	Docs       []ids.DocID
	Scores     []float64
	Highlights map[ids.DocID]map[string]string
}

// KeywordIndex is the full-text index contract.
type KeywordIndex interface {
	Search(ctx context.Context, queryText string, highlight bool, minScore float64, rankByScore bool) (KeywordSearchResult, error)
}

// PercentileIndex is the per-column histogram index contract. filter, when
// non-nil, restricts the search to the given HistIDs; a non-nil empty
// filter means the caller has already proven the result is empty and the
// index must not be queried at all.
type PercentileIndex interface {
	Search(ctx context.Context, p float64, cmp ast.Cmp, ref float64, mode Mode, filter []ids.HistID) ([]ids.HistID, error)
}

// NameIndex is the column-name vector index contract. k=0 is exact match;
// k>0 returns the union of columns behind the k nearest name vectors.
type NameIndex interface {
	Search(ctx context.Context, name string, k int, filter []ids.ColID) ([]ids.ColID, error)
}
