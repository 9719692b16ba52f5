package percentile

import (
	"context"
	"testing"

	"github.com/ritamzico/dsearch/internal/ast"
	"github.com/ritamzico/dsearch/internal/ids"
	"github.com/ritamzico/dsearch/internal/indices"
)

func TestQuantile_Median(t *testing.T) {
	h := Histogram{Edges: []float64{0, 10, 20, 30}, Counts: []float64{10, 10, 10}}
	q, ok := h.Quantile(0.5)
	if !ok {
		t.Fatal("expected ok=true")
	}
	if q < 14 || q > 16 {
		t.Errorf("Quantile(0.5) = %v, want ~15", q)
	}
}

func TestSearch_RejectsInvalidPercentile(t *testing.T) {
	idx := New(map[ids.HistID]Histogram{})
	_, err := idx.Search(context.Background(), 0, ast.CmpGE, 0, indices.ModeLowMemory, nil)
	if err == nil {
		t.Fatal("expected error for p=0")
	}
	_, err = idx.Search(context.Background(), 1.5, ast.CmpGE, 0, indices.ModeLowMemory, nil)
	if err == nil {
		t.Fatal("expected error for p=1.5")
	}
}

func TestSearch_EmptyFilterShortCircuits(t *testing.T) {
	idx := New(map[ids.HistID]Histogram{
		0: {Edges: []float64{0, 100}, Counts: []float64{1}},
	})
	got, err := idx.Search(context.Background(), 0.5, ast.CmpGE, 0, indices.ModeLowMemory, []ids.HistID{})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty result for empty filter, got %v", got)
	}
}

func TestSearch_FiltersByComparator(t *testing.T) {
	idx := New(map[ids.HistID]Histogram{
		0: {Edges: []float64{0, 2000000}, Counts: []float64{1}},
		1: {Edges: []float64{0, 5}, Counts: []float64{1}},
	})
	got, err := idx.Search(context.Background(), 0.5, ast.CmpGE, 1000000, indices.ModeLowMemory, nil)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(got) != 1 || got[0] != 0 {
		t.Errorf("got %v, want [0]", got)
	}
}
