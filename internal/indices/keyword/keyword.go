// Package keyword adapts github.com/blevesearch/bleve/v2 to the engine's
// KeywordIndex contract. Index construction (ingesting dataset profiles)
// is out of scope for the query engine; Add exists only so tests and the
// demo REPL can populate a small in-memory index to search against.
package keyword

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"

	"github.com/ritamzico/dsearch/internal/apperr"
	"github.com/ritamzico/dsearch/internal/ids"
	"github.com/ritamzico/dsearch/internal/indices"
)

// Fields are the document fields searched and highlighted, matching the
// dataset profile shape described in spec §1.
var Fields = []string{"name", "description", "keywords", "creator", "publisher", "alternateName"}

// maxHits bounds how many documents a single search returns.
const maxHits = 1_000_000

// Doc is one dataset profile as indexed for full-text search.
type Doc struct {
	ID            ids.DocID
	Name          string
	Description   string
	Keywords      string
	Creator       string
	Publisher     string
	AlternateName string
}

// Index is a bleve-backed KeywordIndex.
type Index struct {
	bleve bleve.Index
}

// NewMemory builds an empty in-memory index.
func NewMemory() (*Index, error) {
	mapping := buildMapping()
	idx, err := bleve.NewMemOnly(mapping)
	if err != nil {
		return nil, fmt.Errorf("creating in-memory keyword index: %w", err)
	}
	return &Index{bleve: idx}, nil
}

// Open opens (or creates) a bleve index rooted at path.
func Open(path string) (*Index, error) {
	idx, err := bleve.Open(path)
	if err == nil {
		return &Index{bleve: idx}, nil
	}
	idx, err = bleve.New(path, buildMapping())
	if err != nil {
		return nil, fmt.Errorf("creating keyword index at %s: %w", path, err)
	}
	return &Index{bleve: idx}, nil
}

func buildMapping() *bleve.IndexMapping {
	docMapping := bleve.NewDocumentMapping()
	for _, field := range Fields {
		fieldMapping := bleve.NewTextFieldMapping()
		fieldMapping.Store = true
		fieldMapping.IncludeTermVectors = true
		docMapping.AddFieldMappingsAt(field, fieldMapping)
	}
	mapping := bleve.NewIndexMapping()
	mapping.DefaultMapping = docMapping
	return mapping
}

// Add indexes a single document, keyed by its decimal DocId string.
func (idx *Index) Add(d Doc) error {
	return idx.bleve.Index(strconv.FormatUint(uint64(d.ID), 10), map[string]any{
		"name":          d.Name,
		"description":   d.Description,
		"keywords":      d.Keywords,
		"creator":       d.Creator,
		"publisher":     d.Publisher,
		"alternateName": d.AlternateName,
	})
}

// Search implements indices.KeywordIndex. queryText is an opaque
// Lucene-style expression passed straight to bleve's query-string parser.
func (idx *Index) Search(ctx context.Context, queryText string, highlight bool, minScore float64, rankByScore bool) (indices.KeywordSearchResult, error) {
	q := bleve.NewQueryStringQuery(queryText)
	req := bleve.NewSearchRequestOptions(q, maxHits, 0, false)
	if highlight {
		req.Highlight = bleve.NewHighlightWithStyle("html")
		req.Highlight.Fields = Fields
	}

	res, err := idx.bleve.SearchInContext(ctx, req)
	if err != nil {
		return indices.KeywordSearchResult{}, apperr.Index("keyword search %q: %v", queryText, err)
	}

	out := indices.KeywordSearchResult{
		Highlights: make(map[ids.DocID]map[string]string),
	}
	for _, hit := range res.Hits {
		if hit.Score < minScore {
			continue
		}
		docID, err := parseDocID(hit.ID)
		if err != nil {
			return indices.KeywordSearchResult{}, apperr.Internal("keyword index returned malformed doc id %q: %v", hit.ID, err)
		}
		out.Docs = append(out.Docs, docID)
		out.Scores = append(out.Scores, hit.Score)

		if !highlight {
			continue
		}
		fields := make(map[string]string)
		for field, frags := range hit.Fragments {
			if len(frags) == 0 {
				continue
			}
			fieldName := field
			if field == "creator" || field == "publisher" {
				fieldName += "-name"
			}
			fields[fieldName] = strings.Join(frags, " ")
		}
		if len(fields) > 0 {
			out.Highlights[docID] = fields
		}
	}

	if rankByScore {
		sortByScoreDesc(out)
	}
	return out, nil
}

func sortByScoreDesc(r indices.KeywordSearchResult) {
	idx := make([]int, len(r.Docs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return r.Scores[idx[i]] > r.Scores[idx[j]] })

	docs := make([]ids.DocID, len(r.Docs))
	scores := make([]float64, len(r.Scores))
	for newPos, oldPos := range idx {
		docs[newPos] = r.Docs[oldPos]
		scores[newPos] = r.Scores[oldPos]
	}
	copy(r.Docs, docs)
	copy(r.Scores, scores)
}

func parseDocID(s string) (ids.DocID, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return ids.DocID(n), nil
}
