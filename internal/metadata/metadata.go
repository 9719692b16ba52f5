// Package metadata loads the read-only tables that map between document,
// column, histogram, and column-name-vector ID spaces (spec §3, §6). The
// JSON load/validate shape follows the teacher's serialization package:
// a plain wire struct decoded with encoding/json, then converted into the
// typed in-memory form with validation.
package metadata

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/ritamzico/dsearch/internal/ids"
)

// Metadata holds the tables described in spec §3. It is built once at
// engine initialization and never mutated afterward; every component that
// reads it does so concurrently and without locking.
type Metadata struct {
	DocToCols map[ids.DocID][]ids.ColID
	ColToDoc  map[ids.ColID]ids.DocID
	NameToVec map[string]ids.VecID
	VecToCols map[ids.VecID][]ids.ColID

	NumHists int
	NumCols  int
	NumDocs  int
}

// wireMetadata mirrors the JSON document described in spec §6. JSON object
// keys are always strings, so numeric IDs are encoded as decimal strings.
type wireMetadata struct {
	DocToCols     map[string][]uint32 `json:"doc_to_cols"`
	ColToDoc      map[string]uint32   `json:"col_to_doc"`
	NameToVector  map[string]uint32   `json:"name_to_vector"`
	VectorToCols  map[string][]uint32 `json:"vector_to_cols"`
	NumHists      int                 `json:"num_hists"`
}

// Load decodes and validates a metadata document from r.
func Load(r io.Reader) (*Metadata, error) {
	var w wireMetadata
	if err := json.NewDecoder(r).Decode(&w); err != nil {
		return nil, fmt.Errorf("decoding metadata JSON: %w", err)
	}
	return fromWire(w)
}

// LoadFile decodes and validates a metadata document from a file path.
func LoadFile(path string) (*Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening metadata file %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

func fromWire(w wireMetadata) (*Metadata, error) {
	docToCols := make(map[ids.DocID][]ids.ColID, len(w.DocToCols))
	for k, v := range w.DocToCols {
		d, err := parseID[ids.DocID](k, "doc_to_cols key")
		if err != nil {
			return nil, err
		}
		cols := make([]ids.ColID, len(v))
		for i, c := range v {
			cols[i] = ids.ColID(c)
		}
		sort.Slice(cols, func(i, j int) bool { return cols[i] < cols[j] })
		cols = dedupSortedCols(cols)
		docToCols[d] = cols
	}

	colToDoc := make(map[ids.ColID]ids.DocID, len(w.ColToDoc))
	maxCol := -1
	for k, v := range w.ColToDoc {
		c, err := parseID[ids.ColID](k, "col_to_doc key")
		if err != nil {
			return nil, err
		}
		colToDoc[c] = ids.DocID(v)
		if int(c) > maxCol {
			maxCol = int(c)
		}
	}

	nameToVec := make(map[string]ids.VecID, len(w.NameToVector))
	for k, v := range w.NameToVector {
		nameToVec[k] = ids.VecID(v)
	}

	vecToCols := make(map[ids.VecID][]ids.ColID, len(w.VectorToCols))
	for k, v := range w.VectorToCols {
		vec, err := parseID[ids.VecID](k, "vector_to_cols key")
		if err != nil {
			return nil, err
		}
		cols := make([]ids.ColID, len(v))
		for i, c := range v {
			cols[i] = ids.ColID(c)
		}
		sort.Slice(cols, func(i, j int) bool { return cols[i] < cols[j] })
		vecToCols[vec] = dedupSortedCols(cols)
	}

	m := &Metadata{
		DocToCols: docToCols,
		ColToDoc:  colToDoc,
		NameToVec: nameToVec,
		VecToCols: vecToCols,
		NumHists:  w.NumHists,
		NumCols:   maxCol + 1,
		NumDocs:   len(docToCols),
	}

	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// validate checks the prefix-partition and membership invariants from
// spec §3: col_to_doc[c] must be a key of doc_to_cols, and c must appear
// in doc_to_cols[col_to_doc[c]].
func (m *Metadata) validate() error {
	if m.NumHists < 0 || m.NumHists > m.NumCols {
		return fmt.Errorf("metadata: num_hists %d out of range [0, %d]", m.NumHists, m.NumCols)
	}
	for c, d := range m.ColToDoc {
		cols, ok := m.DocToCols[d]
		if !ok {
			return fmt.Errorf("metadata: col_to_doc[%d]=%d has no entry in doc_to_cols", c, d)
		}
		if !containsCol(cols, c) {
			return fmt.Errorf("metadata: col %d not present in doc_to_cols[%d]", c, d)
		}
	}
	return nil
}

func containsCol(cols []ids.ColID, c ids.ColID) bool {
	i := sort.Search(len(cols), func(i int) bool { return cols[i] >= c })
	return i < len(cols) && cols[i] == c
}

func dedupSortedCols(cols []ids.ColID) []ids.ColID {
	if len(cols) == 0 {
		return cols
	}
	out := cols[:1]
	for _, c := range cols[1:] {
		if c != out[len(out)-1] {
			out = append(out, c)
		}
	}
	return out
}

type idType interface {
	ids.DocID | ids.ColID | ids.VecID
}

func parseID[T idType](key, what string) (T, error) {
	n, err := strconv.ParseUint(key, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("metadata: invalid %s %q: %w", what, key, err)
	}
	return T(n), nil
}
