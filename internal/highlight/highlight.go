// Package highlight merges per-document, per-field search snippets the way
// the keyword and column-scope evaluators combine them when a query
// conjoins or disjoins several predicates (spec §4.2, §4.5).
package highlight

import (
	"regexp"
	"strings"

	"github.com/ritamzico/dsearch/internal/idconv"
	"github.com/ritamzico/dsearch/internal/ids"
	"github.com/ritamzico/dsearch/internal/metadata"
	"github.com/ritamzico/dsearch/internal/setalg"
)

// Highlights is the highlight payload carried alongside a DocResult: per-document
// per-field HTML snippets, plus the columns (if any) that contributed to the match.
type Highlights struct {
	Docs map[ids.DocID]map[string]string
	Cols []ids.ColID
}

// Empty is the zero-value highlight payload junctions start from when
// highlighting is disabled.
var Empty = Highlights{Docs: map[ids.DocID]map[string]string{}}

var markPattern = regexp.MustCompile(`(?s)<mark>(.*?)</mark>`)

// Merge combines left and right into the highlights for docIDs, the
// document set already produced by the enclosing junction. A field present
// on only one side is kept as-is; a field present on both has the right
// side's marked words folded into the left side's text so a later AND/OR
// doesn't lose marks contributed by an earlier operand. Column highlights
// are the union of both sides, restricted to columns that still belong to
// a surviving document.
func Merge(left, right Highlights, docIDs []ids.DocID, meta *metadata.Metadata) Highlights {
	docs := make(map[ids.DocID]map[string]string)
	for _, d := range docIDs {
		l := left.Docs[d]
		r := right.Docs[d]
		if len(l) == 0 && len(r) == 0 {
			continue
		}

		merged := make(map[string]string)
		keys := make(map[string]struct{}, len(l)+len(r))
		for k := range l {
			keys[k] = struct{}{}
		}
		for k := range r {
			keys[k] = struct{}{}
		}
		for k := range keys {
			lt, rt := l[k], r[k]
			switch {
			case lt == "":
				merged[k] = rt
			case rt == "":
				// right contributes nothing for this field; keep left as-is:
				// an empty right side means "no opinion", not "clear".
				merged[k] = lt
			default:
				merged[k] = foldMarks(lt, rt)
			}
		}
		docs[d] = merged
	}

	cols := setalg.Union(left.Cols, right.Cols)
	cols = setalg.Intersect(cols, idconv.DocToColIDs(docIDs, meta))
	return Highlights{Docs: docs, Cols: cols}
}

// foldMarks copies every <mark>...</mark> word found in right into left,
// skipping words left already marks.
func foldMarks(left, right string) string {
	for _, m := range markPattern.FindAllStringSubmatch(right, -1) {
		word := m[1]
		if strings.Contains(left, "<mark>"+word+"</mark>") {
			continue
		}
		left = strings.ReplaceAll(left, word, "<mark>"+word+"</mark>")
	}
	return left
}
