// Package idconv holds the pure ID-space conversions the evaluator uses
// to move between documents, columns, and histograms. Each function takes
// and returns sorted, unique ID arrays (the declared invariant for every
// inter-component ID array), mirroring the engine's conversion helpers.
package idconv

import (
	"sort"

	"github.com/ritamzico/dsearch/internal/ids"
	"github.com/ritamzico/dsearch/internal/metadata"
)

// DocToColIDs returns the sorted, deduplicated union of columns belonging
// to docIDs. docIDs need not be sorted on input.
func DocToColIDs(docIDs []ids.DocID, m *metadata.Metadata) []ids.ColID {
	var out []ids.ColID
	for _, d := range docIDs {
		out = append(out, m.DocToCols[d]...)
	}
	return sortUniqueCols(out)
}

// ColToDocIDs returns the sorted, deduplicated set of documents owning
// colIDs.
func ColToDocIDs(colIDs []ids.ColID, m *metadata.Metadata) []ids.DocID {
	out := make([]ids.DocID, 0, len(colIDs))
	for _, c := range colIDs {
		out = append(out, m.ColToDoc[c])
	}
	return sortUniqueDocs(out)
}

// ColToHistIDs drops every ColID that is not a histogram column (spec's
// ColId/HistId prefix invariant: HistId < numHists). colIDs must already
// be sorted; the result preserves that order.
func ColToHistIDs(colIDs []ids.ColID, numHists int) []ids.HistID {
	out := make([]ids.HistID, 0, len(colIDs))
	for _, c := range colIDs {
		if int(c) < numHists {
			out = append(out, c)
		}
	}
	return out
}

func sortUniqueCols(cols []ids.ColID) []ids.ColID {
	if len(cols) == 0 {
		return cols
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i] < cols[j] })
	out := cols[:1]
	for _, c := range cols[1:] {
		if c != out[len(out)-1] {
			out = append(out, c)
		}
	}
	return out
}

func sortUniqueDocs(docs []ids.DocID) []ids.DocID {
	if len(docs) == 0 {
		return docs
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i] < docs[j] })
	out := docs[:1]
	for _, d := range docs[1:] {
		if d != out[len(out)-1] {
			out = append(out, d)
		}
	}
	return out
}
