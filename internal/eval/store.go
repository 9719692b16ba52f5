package eval

import (
	"sync"

	"github.com/ritamzico/dsearch/internal/groups"
	"github.com/ritamzico/dsearch/internal/idconv"
	"github.com/ritamzico/dsearch/internal/ids"
	"github.com/ritamzico/dsearch/internal/indices"
	"github.com/ritamzico/dsearch/internal/metadata"
	"github.com/ritamzico/dsearch/internal/setalg"
)

// slotKind distinguishes what a store slot currently holds.
type slotKind int

const (
	slotEmpty slotKind = iota
	slotDocs
	slotCols
)

type slot struct {
	kind slotKind
	docs []ids.DocID
	cols []ids.ColID
}

// store is the intermediate-result store the prefiltering evaluators use to
// let a percentile predicate consult what earlier siblings already found.
// Every node, leaf or combinator, overwrites its own write group with its
// just-computed result immediately after evaluating. There is no running
// intersection inside the store itself: under a Conjunction, whose direct
// children all share one write group, the correct filter-propagation
// behavior falls out of plain postorder, sequential evaluation — by the
// time a later sibling reads the group, an earlier sibling has already
// overwritten it with its own (not yet combined) result (spec §4.5).
type store struct {
	mu    sync.Mutex
	slots map[int]slot
}

func newStore() *store {
	return &store{slots: make(map[int]slot)}
}

func (s *store) setDocs(group int, docs []ids.DocID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[group] = slot{kind: slotDocs, docs: docs}
}

// setDocsIfUsed skips the store write entirely when gt reports no
// PercentileLeaf will ever consult group — there is nothing left to
// elide downstream of the skip, so a never-consulted write is pure waste.
func (s *store) setDocsIfUsed(gt *groups.Table, group int, docs []ids.DocID) {
	if gt.Used(group) == 0 {
		return
	}
	s.setDocs(group, docs)
}

func (s *store) setCols(group int, cols []ids.ColID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[group] = slot{kind: slotCols, cols: cols}
}

// setColsIfUsed is setDocsIfUsed's column-level counterpart.
func (s *store) setColsIfUsed(gt *groups.Table, group int, cols []ids.ColID) {
	if gt.Used(group) == 0 {
		return
	}
	s.setCols(group, cols)
}

func (s *store) get(group int) (slot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.slots[group]
	return v, ok
}

// buildHistFilter turns the read groups visible to a PercentileLeaf into a
// HistID filter (spec §4.5's five-step recipe):
//  1. For each read group that already has a stored result, check it (and
//     the HistIDs it converts to) against the mode's filtering-stop-point; if
//     either is too large to be worth using, give up on filtering entirely
//     (exists=false: pass the predicate no filter).
//  2. Convert a doc-level result to HistIDs via doc_to_cols then the
//     HistID-is-a-ColID-prefix rule; convert a col-level result directly,
//     dropping any ColID >= NumHists.
//  3. A group that converts to zero HistIDs proves the whole predicate is
//     empty: short-circuit (exists=true, filter=[]) without touching the
//     percentile index.
//  4. Intersect the per-group filters together.
//  5. A read group with nothing stored yet (never evaluated, or evaluated
//     to a col-level group this predicate doesn't share) contributes nothing
//     and is skipped.
func (s *store) buildHistFilter(readGroups []int, meta *metadata.Metadata, mode indices.Mode) (filter []ids.HistID, exists bool) {
	stop := indices.FilteringStopPoints[mode]
	var acc []ids.HistID
	found := false

	for _, g := range readGroups {
		sl, ok := s.get(g)
		if !ok {
			continue
		}

		var hists []ids.HistID
		switch sl.kind {
		case slotDocs:
			if len(sl.docs) > stop.NumDocIDs {
				return nil, false
			}
			cols := idconv.DocToColIDs(sl.docs, meta)
			hists = idconv.ColToHistIDs(cols, meta.NumHists)
		case slotCols:
			if len(sl.cols) > stop.NumColIDs {
				return nil, false
			}
			hists = idconv.ColToHistIDs(sl.cols, meta.NumHists)
		default:
			continue
		}
		if len(hists) > stop.NumHistIDs {
			return nil, false
		}

		if len(hists) == 0 {
			return []ids.HistID{}, true
		}

		if !found {
			acc = hists
			found = true
		} else {
			acc = setalg.Intersect(acc, hists)
		}
	}

	if !found {
		return nil, false
	}
	return acc, true
}
