// Package ids defines the dense 32-bit identifier spaces the engine
// operates over: documents, columns, histograms, and column-name vectors.
// Histogram IDs are a subset of column IDs (HistID < num_hists always),
// so HistID is declared as an alias rather than a distinct type to make
// that identity explicit at the type level.
package ids

// DocID identifies one dataset record.
type DocID uint32

// ColID identifies one column of any dataset. Columns with a histogram
// occupy the prefix [0, NumHists); columns without occupy [NumHists, NumCols).
type ColID uint32

// HistID is the ColID of a column that has a histogram. HistID < NumHists
// always holds; converting a ColID known to be in range is just a cast.
type HistID = ColID

// VecID identifies one distinct column-name string.
type VecID uint32
