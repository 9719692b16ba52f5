// Package percentile is a reference PercentileIndex: an in-memory,
// equi-width-histogram quantile estimator. It is explicitly not a
// reimplementation of the engine's production Fainder index — it does
// not distinguish rebinning/conversion strategies, parallel histogram
// processing, or the precision/recall trade-offs those modes encode.
// All four Mode values run the same exact computation here; Mode is
// accepted only to satisfy indices.PercentileIndex and to leave a seam
// for a real implementation to specialize later.
package percentile

import (
	"context"
	"sort"

	"github.com/ritamzico/dsearch/internal/apperr"
	"github.com/ritamzico/dsearch/internal/ast"
	"github.com/ritamzico/dsearch/internal/ids"
	"github.com/ritamzico/dsearch/internal/indices"
)

// Histogram is an equi-width histogram over one column's values: len(Edges)
// == len(Counts)+1, Counts need not be normalized.
type Histogram struct {
	Edges  []float64
	Counts []float64
}

// Quantile estimates the p-quantile of h by linear interpolation within
// the bin where the cumulative count crosses p * total.
func (h Histogram) Quantile(p float64) (float64, bool) {
	total := 0.0
	for _, c := range h.Counts {
		total += c
	}
	if total <= 0 || len(h.Counts) == 0 {
		return 0, false
	}

	target := p * total
	cum := 0.0
	for i, c := range h.Counts {
		next := cum + c
		if next >= target || i == len(h.Counts)-1 {
			if c == 0 {
				return h.Edges[i+1], true
			}
			frac := (target - cum) / c
			if frac < 0 {
				frac = 0
			}
			if frac > 1 {
				frac = 1
			}
			return h.Edges[i] + frac*(h.Edges[i+1]-h.Edges[i]), true
		}
		cum = next
	}
	return h.Edges[len(h.Edges)-1], true
}

// Index holds one histogram per histogram-bearing column.
type Index struct {
	hists map[ids.HistID]Histogram
}

// New builds an index from a fixed histogram set.
func New(hists map[ids.HistID]Histogram) *Index {
	return &Index{hists: hists}
}

// Search implements indices.PercentileIndex.
func (idx *Index) Search(ctx context.Context, p float64, cmp ast.Cmp, ref float64, mode indices.Mode, filter []ids.HistID) ([]ids.HistID, error) {
	if p <= 0 || p > 1 {
		return nil, apperr.InvalidPredicate("percentile must be in (0, 1], got %v", p)
	}

	if filter != nil && len(filter) == 0 {
		return nil, nil
	}

	candidates := filter
	if candidates == nil {
		candidates = make([]ids.HistID, 0, len(idx.hists))
		for h := range idx.hists {
			candidates = append(candidates, h)
		}
	}

	var out []ids.HistID
	for _, h := range candidates {
		hist, ok := idx.hists[h]
		if !ok {
			continue
		}
		q, ok := hist.Quantile(p)
		if !ok {
			continue
		}
		if satisfies(q, cmp, ref) {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func satisfies(value float64, cmp ast.Cmp, ref float64) bool {
	switch cmp {
	case ast.CmpGE:
		return value >= ref
	case ast.CmpGT:
		return value > ref
	case ast.CmpLE:
		return value <= ref
	case ast.CmpLT:
		return value < ref
	default:
		return false
	}
}
