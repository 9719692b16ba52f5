package eval

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/ritamzico/dsearch/internal/ast"
	"github.com/ritamzico/dsearch/internal/groups"
	"github.com/ritamzico/dsearch/internal/ids"
	"github.com/ritamzico/dsearch/internal/indices"
	"github.com/ritamzico/dsearch/internal/metadata"
)

// fakeKeyword returns a fixed document set regardless of query text.
type fakeKeyword struct {
	docs   []ids.DocID
	scores []float64
}

func (f fakeKeyword) Search(ctx context.Context, queryText string, highlight bool, minScore float64, rankByScore bool) (indices.KeywordSearchResult, error) {
	return indices.KeywordSearchResult{Docs: f.docs, Scores: f.scores, Highlights: map[ids.DocID]map[string]string{}}, nil
}

// fakePercentile records the filter it was called with and returns a fixed
// set of HistIDs, respecting the filter if present.
type fakePercentile struct {
	all         []ids.HistID
	lastFilter  []ids.HistID
	filterCalls int
}

func (f *fakePercentile) Search(ctx context.Context, p float64, cmp ast.Cmp, ref float64, mode indices.Mode, filter []ids.HistID) ([]ids.HistID, error) {
	if filter != nil {
		f.filterCalls++
		f.lastFilter = filter
	}
	if filter == nil {
		return f.all, nil
	}
	var out []ids.HistID
	want := make(map[ids.HistID]struct{}, len(filter))
	for _, h := range filter {
		want[h] = struct{}{}
	}
	for _, h := range f.all {
		if _, ok := want[h]; ok {
			out = append(out, h)
		}
	}
	return out, nil
}

type fakeName struct {
	cols []ids.ColID
}

func (f fakeName) Search(ctx context.Context, name string, k int, filter []ids.ColID) ([]ids.ColID, error) {
	return f.cols, nil
}

func sampleMeta() *metadata.Metadata {
	return &metadata.Metadata{
		DocToCols: map[ids.DocID][]ids.ColID{
			0: {0, 1},
			1: {2},
			2: {3},
		},
		ColToDoc: map[ids.ColID]ids.DocID{
			0: 0, 1: 0, 2: 1, 3: 2,
		},
		NumHists: 4,
		NumCols:  4,
		NumDocs:  3,
	}
}

func TestSimple_ColScopeConjunctionWithKeyword(t *testing.T) {
	meta := sampleMeta()
	cfg := &Config{
		Keyword:    fakeKeyword{docs: []ids.DocID{0, 1}, scores: []float64{1, 1}},
		Percentile: &fakePercentile{all: []ids.HistID{0, 2}},
		Name:       fakeName{},
		Meta:       meta,
		Mode:       indices.ModeLowMemory,
	}

	// keyword("x") AND col(percentile(0.5, ge, 1))
	root := &ast.Query{Child: &ast.Conjunction{Children: []ast.Node{
		&ast.KeywordLeaf{Text: "x"},
		&ast.ColScope{Child: &ast.PercentileLeaf{P: 0.5, Cmp: ast.CmpGE, Ref: 1}},
	}}}

	got, _, err := NewSimple(cfg).Evaluate(context.Background(), root)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	// percentile matches hist cols {0,2} -> docs {0,1}; keyword matches docs {0,1}.
	// AND => {0,1}.
	if !equalDocs(got.Docs, []ids.DocID{0, 1}) {
		t.Errorf("got docs %v, want [0 1]", got.Docs)
	}
}

func TestSimple_Negation(t *testing.T) {
	meta := sampleMeta()
	cfg := &Config{
		Keyword: fakeKeyword{docs: []ids.DocID{0}, scores: []float64{1}},
		Meta:    meta,
	}
	root := &ast.Query{Child: &ast.Negation{Child: &ast.KeywordLeaf{Text: "x"}}}

	got, _, err := NewSimple(cfg).Evaluate(context.Background(), root)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !equalDocs(got.Docs, []ids.DocID{1, 2}) {
		t.Errorf("got docs %v, want [1 2]", got.Docs)
	}
}

func TestPrefiltering_NarrowsPercentileByEarlierSibling(t *testing.T) {
	meta := sampleMeta()
	perc := &fakePercentile{all: []ids.HistID{0, 2, 3}}
	cfg := &Config{
		Keyword:    fakeKeyword{docs: []ids.DocID{0}, scores: []float64{1}},
		Percentile: perc,
		Meta:       meta,
		Mode:       indices.ModeLowMemory,
	}

	// keyword("x") AND col(percentile(...)): keyword matches doc 0 (cols {0,1}),
	// so the percentile leaf should see a filter narrowing candidates to {0,1}.
	root := &ast.Query{Child: &ast.Conjunction{Children: []ast.Node{
		&ast.KeywordLeaf{Text: "x"},
		&ast.ColScope{Child: &ast.PercentileLeaf{P: 0.5, Cmp: ast.CmpGE, Ref: 1}},
	}}}

	gt := groups.Annotate(root, false)
	got, _, err := NewPrefiltering(cfg, gt).Evaluate(context.Background(), root)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if perc.filterCalls != 1 {
		t.Fatalf("expected percentile index to receive a filter, got %d calls", perc.filterCalls)
	}
	if !equalHists(perc.lastFilter, []ids.HistID{0, 1}) {
		t.Errorf("filter = %v, want [0 1]", perc.lastFilter)
	}
	if !equalDocs(got.Docs, []ids.DocID{0}) {
		t.Errorf("got docs %v, want [0]", got.Docs)
	}
}

func TestThreaded_MatchesSimple(t *testing.T) {
	meta := sampleMeta()
	root := &ast.Query{Child: &ast.Disjunction{Children: []ast.Node{
		&ast.KeywordLeaf{Text: "x"},
		&ast.ColScope{Child: &ast.PercentileLeaf{P: 0.5, Cmp: ast.CmpGE, Ref: 1}},
	}}}

	cfg1 := &Config{
		Keyword:    fakeKeyword{docs: []ids.DocID{0}, scores: []float64{1}},
		Percentile: &fakePercentile{all: []ids.HistID{3}},
		Meta:       meta,
		Mode:       indices.ModeLowMemory,
	}
	cfg2 := &Config{
		Keyword:    fakeKeyword{docs: []ids.DocID{0}, scores: []float64{1}},
		Percentile: &fakePercentile{all: []ids.HistID{3}},
		Meta:       meta,
		Mode:       indices.ModeLowMemory,
	}

	pool := NewPool(4)
	defer pool.Close()

	simpleRes, _, err := NewSimple(cfg1).Evaluate(context.Background(), root)
	if err != nil {
		t.Fatalf("Simple.Evaluate failed: %v", err)
	}
	threadedRes, _, err := NewThreaded(cfg2, pool).Evaluate(context.Background(), root)
	if err != nil {
		t.Fatalf("Threaded.Evaluate failed: %v", err)
	}
	if !equalDocs(simpleRes.Docs, threadedRes.Docs) {
		t.Errorf("Simple=%v Threaded=%v, want equal", simpleRes.Docs, threadedRes.Docs)
	}
}

func TestThreadedPrefiltering_MatchesSimple(t *testing.T) {
	meta := sampleMeta()
	root := &ast.Query{Child: &ast.Conjunction{Children: []ast.Node{
		&ast.KeywordLeaf{Text: "x"},
		&ast.ColScope{Child: &ast.PercentileLeaf{P: 0.5, Cmp: ast.CmpGE, Ref: 1}},
	}}}

	cfg1 := &Config{
		Keyword:    fakeKeyword{docs: []ids.DocID{0, 1}, scores: []float64{1, 1}},
		Percentile: &fakePercentile{all: []ids.HistID{0, 2}},
		Meta:       meta,
		Mode:       indices.ModeLowMemory,
	}
	cfg2 := &Config{
		Keyword:    fakeKeyword{docs: []ids.DocID{0, 1}, scores: []float64{1, 1}},
		Percentile: &fakePercentile{all: []ids.HistID{0, 2}},
		Meta:       meta,
		Mode:       indices.ModeLowMemory,
	}

	pool := NewPool(4)
	defer pool.Close()

	simpleRes, _, err := NewSimple(cfg1).Evaluate(context.Background(), root)
	if err != nil {
		t.Fatalf("Simple.Evaluate failed: %v", err)
	}
	gt := groups.Annotate(root, false)
	tpRes, _, err := NewThreadedPrefiltering(cfg2, gt, pool).Evaluate(context.Background(), root)
	if err != nil {
		t.Fatalf("ThreadedPrefiltering.Evaluate failed: %v", err)
	}
	if !equalDocs(simpleRes.Docs, tpRes.Docs) {
		t.Errorf("Simple=%v ThreadedPrefiltering=%v, want equal", simpleRes.Docs, tpRes.Docs)
	}
}

// TestThreadedPrefiltering_SiblingPercentileLeavesDoNotDeadlock covers a
// balanced-conjunction split (internal/optimize's splitPercentileConjunctions):
// two PercentileLeaf nodes as direct Conjunction children share one write
// group, and both reserve their future before either's pool job runs. A
// percentile leaf's own filter-building must never await a sibling
// percentile leaf's future in that shared group, or the two wait on each
// other forever. The deadline catches a regression as a failure instead of
// an indefinite hang.
func TestThreadedPrefiltering_SiblingPercentileLeavesDoNotDeadlock(t *testing.T) {
	meta := sampleMeta()
	root := &ast.Query{Child: &ast.ColScope{Child: &ast.Conjunction{Children: []ast.Node{
		&ast.PercentileLeaf{P: 0.5, Cmp: ast.CmpGE, Ref: 1},
		&ast.PercentileLeaf{P: 0.9, Cmp: ast.CmpGE, Ref: 2},
	}}}}

	cfg := &Config{
		Percentile: &fakePercentile{all: []ids.HistID{0, 2, 3}},
		Meta:       meta,
		Mode:       indices.ModeLowMemory,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	pool := NewPool(4)
	defer pool.Close()

	gt := groups.Annotate(root, false)
	got, _, err := NewThreadedPrefiltering(cfg, gt, pool).Evaluate(ctx, root)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	// percentile matches hists {0,2,3} on both sides (neither sibling gets a
	// filter: the shared group holds only the two percentile futures, which
	// filter-building skips) -> cols {0,2,3} intersected with itself -> docs
	// owning those cols: {0,1,2}.
	if !equalDocs(got.Docs, []ids.DocID{0, 1, 2}) {
		t.Errorf("got docs %v, want [0 1 2]", got.Docs)
	}
}

func equalDocs(a, b []ids.DocID) bool {
	if len(a) != len(b) {
		return false
	}
	sort.Slice(a, func(i, j int) bool { return a[i] < a[j] })
	sort.Slice(b, func(i, j int) bool { return b[i] < b[j] })
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalHists(a, b []ids.HistID) bool {
	if len(a) != len(b) {
		return false
	}
	sort.Slice(a, func(i, j int) bool { return a[i] < a[j] })
	sort.Slice(b, func(i, j int) bool { return b[i] < b[j] })
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
