// Package cache is a bounded LRU over a query's (text, mode, highlight flag)
// key, value = the document set and highlights that query produced (spec
// §4.6). It wraps github.com/hashicorp/golang-lru/v2, the only LRU library
// the retrieved example pack exercises (dolthub-dolt's stats bucket cache).
package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ritamzico/dsearch/internal/highlight"
	"github.com/ritamzico/dsearch/internal/ids"
	"github.com/ritamzico/dsearch/internal/indices"
)

// Key identifies one cached query result. Mode and Highlight are part of
// the key because different modes legitimately return different results
// for percentile predicates, and highlighting changes what work the
// evaluator does (spec §9's "cache keys" note).
type Key struct {
	Query     string
	Mode      indices.Mode
	Highlight bool
}

// Entry is the cached value: the matching document IDs and whatever
// highlights the query produced.
type Entry struct {
	Docs       []ids.DocID
	Highlights highlight.Highlights
}

// LRU is a fixed-capacity result cache. A nil *LRU is valid and behaves as
// an always-miss cache, so the engine can disable caching by simply not
// constructing one (spec §4.6's "capacity 0 disables caching").
type LRU struct {
	inner *lru.Cache[Key, Entry]
}

// New builds an LRU cache holding at most capacity entries. capacity must
// be positive; callers wanting caching disabled should pass a nil *LRU
// around instead of calling New.
func New(capacity int) (*LRU, error) {
	inner, err := lru.New[Key, Entry](capacity)
	if err != nil {
		return nil, err
	}
	return &LRU{inner: inner}, nil
}

// Get reports whether key is cached and, if so, its value. A nil receiver
// always misses.
func (c *LRU) Get(key Key) (Entry, bool) {
	if c == nil {
		return Entry{}, false
	}
	return c.inner.Get(key)
}

// Put records value under key. Error outcomes are never cached — callers
// must not call Put after a failed query (spec §7). A nil receiver is a
// no-op.
func (c *LRU) Put(key Key, value Entry) {
	if c == nil {
		return
	}
	c.inner.Add(key, value)
}

// Invalidate drops every cached entry, used when the engine's metadata
// changes underneath it (spec §3's "Lifecycles" note).
func (c *LRU) Invalidate() {
	if c == nil {
		return
	}
	c.inner.Purge()
}
