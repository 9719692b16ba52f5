package metadata

import (
	"strings"
	"testing"

	"github.com/ritamzico/dsearch/internal/ids"
)

const sampleJSON = `{
  "doc_to_cols": {"0": [2, 0, 1], "1": [3]},
  "col_to_doc": {"0": 0, "1": 0, "2": 0, "3": 1},
  "name_to_vector": {"Temperature": 0, "Humidity": 1},
  "vector_to_cols": {"0": [0], "1": [1, 1]},
  "num_hists": 3
}`

func TestLoad_SortsAndDedupsColumns(t *testing.T) {
	m, err := Load(strings.NewReader(sampleJSON))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	cols := m.DocToCols[0]
	want := []ids.ColID{0, 1, 2}
	if len(cols) != len(want) {
		t.Fatalf("got %v, want %v", cols, want)
	}
	for i := range want {
		if cols[i] != want[i] {
			t.Errorf("cols[%d] = %d, want %d", i, cols[i], want[i])
		}
	}

	vec1 := m.VecToCols[1]
	if len(vec1) != 1 || vec1[0] != 1 {
		t.Errorf("expected vector_to_cols[1] deduped to [1], got %v", vec1)
	}
}

func TestLoad_DerivesCounts(t *testing.T) {
	m, err := Load(strings.NewReader(sampleJSON))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m.NumDocs != 2 {
		t.Errorf("NumDocs = %d, want 2", m.NumDocs)
	}
	if m.NumCols != 4 {
		t.Errorf("NumCols = %d, want 4", m.NumCols)
	}
	if m.NumHists != 3 {
		t.Errorf("NumHists = %d, want 3", m.NumHists)
	}
}

func TestLoad_RejectsDanglingColToDoc(t *testing.T) {
	bad := `{
	  "doc_to_cols": {"0": [0]},
	  "col_to_doc": {"0": 0, "5": 9},
	  "name_to_vector": {},
	  "vector_to_cols": {},
	  "num_hists": 1
	}`
	if _, err := Load(strings.NewReader(bad)); err == nil {
		t.Fatal("expected validation error for dangling col_to_doc entry")
	}
}

func TestLoad_RejectsColNotInOwningDoc(t *testing.T) {
	bad := `{
	  "doc_to_cols": {"0": [0]},
	  "col_to_doc": {"0": 0, "7": 0},
	  "name_to_vector": {},
	  "vector_to_cols": {},
	  "num_hists": 1
	}`
	if _, err := Load(strings.NewReader(bad)); err == nil {
		t.Fatal("expected validation error for column missing from doc_to_cols[doc]")
	}
}
