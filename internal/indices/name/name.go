// Package name adapts github.com/coder/hnsw to the engine's NameIndex
// contract: exact lookup via the metadata name table, and approximate
// cosine nearest-neighbor lookup via an HNSW graph keyed by VecID.
package name

import (
	"context"
	"sort"

	"github.com/coder/hnsw"

	"github.com/ritamzico/dsearch/internal/apperr"
	"github.com/ritamzico/dsearch/internal/ids"
	"github.com/ritamzico/dsearch/internal/metadata"
)

// Embedder produces the vector used for approximate name search. Embedding
// model selection lives outside the query engine's scope; the index only
// needs something that turns a name into a comparable vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Index is an HNSW-backed NameIndex.
type Index struct {
	graph     *hnsw.Graph[ids.VecID]
	nameToVec map[string]ids.VecID
	vecToCols map[ids.VecID][]ids.ColID
	embedder  Embedder
}

// New builds an index over meta's name tables. embedder may be nil, in
// which case only exact (k=0) search is available.
func New(meta *metadata.Metadata, embedder Embedder) *Index {
	return &Index{
		graph:     hnsw.NewGraph[ids.VecID](),
		nameToVec: meta.NameToVec,
		vecToCols: meta.VecToCols,
		embedder:  embedder,
	}
}

// AddVector inserts a column-name embedding into the HNSW graph.
func (idx *Index) AddVector(vec ids.VecID, embedding []float32) {
	idx.graph.Add(hnsw.MakeNode(vec, embedding))
}

// Search implements indices.NameIndex.
func (idx *Index) Search(ctx context.Context, name string, k int, filter []ids.ColID) ([]ids.ColID, error) {
	if k < 0 {
		return nil, apperr.InvalidArgument("k must be a non-negative integer: %d", k)
	}

	result := make(map[ids.ColID]struct{})

	var filterSet map[ids.ColID]struct{}
	if filter != nil {
		filterSet = make(map[ids.ColID]struct{}, len(filter))
		for _, c := range filter {
			filterSet[c] = struct{}{}
		}
	}

	if k == 0 {
		if vec, ok := idx.nameToVec[name]; ok {
			for _, c := range idx.vecToCols[vec] {
				if filterSet != nil {
					if _, ok := filterSet[c]; !ok {
						continue
					}
				}
				result[c] = struct{}{}
			}
		}
		return sortedCols(result), nil
	}

	if idx.embedder == nil {
		return nil, apperr.Index("embedding model is not available for approximate search")
	}
	embedding, err := idx.embedder.Embed(ctx, name)
	if err != nil {
		return nil, apperr.Index("embedding %q: %v", name, err)
	}

	// If name exists as an exact vector, it would otherwise crowd out one
	// approximate neighbor slot; bump k so it doesn't.
	if _, exact := idx.nameToVec[name]; exact {
		k++
	}

	for _, neighbor := range idx.graph.Search(embedding, k) {
		for _, c := range idx.vecToCols[neighbor.Key] {
			if filterSet != nil {
				if _, ok := filterSet[c]; !ok {
					continue
				}
			}
			result[c] = struct{}{}
		}
	}
	return sortedCols(result), nil
}

func sortedCols(set map[ids.ColID]struct{}) []ids.ColID {
	out := make([]ids.ColID, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
