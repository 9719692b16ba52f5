package idconv

import (
	"strings"
	"testing"

	"github.com/ritamzico/dsearch/internal/ids"
	"github.com/ritamzico/dsearch/internal/metadata"
)

func mustMeta(t *testing.T) *metadata.Metadata {
	t.Helper()
	m, err := metadata.Load(strings.NewReader(`{
	  "doc_to_cols": {"0": [0, 1], "1": [2, 3], "2": [4]},
	  "col_to_doc": {"0": 0, "1": 0, "2": 1, "3": 1, "4": 2},
	  "name_to_vector": {},
	  "vector_to_cols": {},
	  "num_hists": 3
	}`))
	if err != nil {
		t.Fatalf("metadata.Load failed: %v", err)
	}
	return m
}

func TestDocToColIDs(t *testing.T) {
	m := mustMeta(t)
	got := DocToColIDs([]ids.DocID{1, 0, 1}, m)
	want := []ids.ColID{0, 1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestColToDocIDs(t *testing.T) {
	m := mustMeta(t)
	got := ColToDocIDs([]ids.ColID{4, 0, 2}, m)
	want := []ids.DocID{0, 1, 2}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestColToHistIDs_DropsNonHistColumns(t *testing.T) {
	got := ColToHistIDs([]ids.ColID{0, 1, 2, 3, 4}, 3)
	want := []ids.HistID{0, 1, 2}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}
