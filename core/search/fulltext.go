package search

import (
	"strings"
	"sync"

	"github.com/blevesearch/bleve"

	"github.com/FocuswithJustin/Granthalaya/core/errors"
	"github.com/FocuswithJustin/Granthalaya/core/flatten"
)

// DefaultHitLimit bounds ranked queries when the caller passes no limit.
const DefaultHitLimit = 50

// Hit is a ranked full-text match.
type Hit struct {
	Verse flatten.SearchableVerse `json:"verse"`
	Score float64                 `json:"score"`
	Rank  int                     `json:"rank"`
}

// Index is an in-memory BM25 index over flattened verses. It is built once
// for a corpus and read concurrently; it never sees later corpus changes.
//
// Holders bracket their use with Acquire and Release. Close takes effect
// for new holders at once and releases the index after the last Release.
type Index struct {
	bleve       bleve.Index
	verses      map[string]flatten.SearchableVerse
	fingerprint string

	mu      sync.Mutex
	refs    int
	closing bool
}

// indexedVerse is the document shape handed to bleve.
type indexedVerse struct {
	Book        string `json:"book"`
	Original    string `json:"original"`
	Translation string `json:"translation"`
	Commentary  string `json:"commentary"`
}

// BuildIndex indexes verses. fingerprint identifies the corpus the index
// was built from.
func BuildIndex(verses []flatten.SearchableVerse, fingerprint string) (*Index, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, errors.Wrap(err, "create full-text index")
	}

	byID := make(map[string]flatten.SearchableVerse, len(verses))
	batch := idx.NewBatch()
	for _, v := range verses {
		// Colliding ids keep the first verse, matching listing order.
		if _, dup := byID[v.ID]; dup {
			continue
		}
		byID[v.ID] = v
		if err := batch.Index(v.ID, indexedVerse{
			Book:        v.Book,
			Original:    v.OriginalText,
			Translation: v.EnglishTranslation,
			Commentary:  v.CommentariesText,
		}); err != nil {
			idx.Close()
			return nil, errors.Wrapf(err, "index verse %s", v.ID)
		}
	}
	if err := idx.Batch(batch); err != nil {
		idx.Close()
		return nil, errors.Wrap(err, "commit full-text index")
	}

	return &Index{bleve: idx, verses: byID, fingerprint: fingerprint}, nil
}

// Fingerprint returns the corpus fingerprint the index was built from.
func (i *Index) Fingerprint() string {
	return i.fingerprint
}

// Len returns the number of indexed verses.
func (i *Index) Len() int {
	return len(i.verses)
}

// Query returns up to limit verses ranked by relevance to query.
func (i *Index) Query(query string, limit int) ([]Hit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultHitLimit
	}
	if !i.hold() {
		return nil, errors.Wrap(errors.ErrUnavailable, "full-text index closed")
	}
	defer i.Release()

	req := bleve.NewSearchRequestOptions(bleve.NewMatchQuery(query), limit, 0, false)
	res, err := i.bleve.Search(req)
	if err != nil {
		return nil, errors.Wrapf(err, "full-text query %q", query)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		v, ok := i.verses[h.ID]
		if !ok {
			continue
		}
		hits = append(hits, Hit{Verse: v, Score: h.Score, Rank: len(hits) + 1})
	}
	return hits, nil
}

// Acquire reserves the index. It reports false once Close has been called.
func (i *Index) Acquire() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closing {
		return false
	}
	i.refs++
	return true
}

// hold reserves the index unless it has already been freed. Holders that
// acquired before Close keep it alive, so their queries still succeed.
func (i *Index) hold() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closing && i.refs == 0 {
		return false
	}
	i.refs++
	return true
}

// Release ends a reservation taken by Acquire. The last Release after Close
// frees the index and returns the close error.
func (i *Index) Release() error {
	i.mu.Lock()
	i.refs--
	last := i.closing && i.refs == 0
	i.mu.Unlock()
	if last {
		return i.bleve.Close()
	}
	return nil
}

// Close stops new reservations and frees the index once no holder remains.
func (i *Index) Close() error {
	i.mu.Lock()
	if i.closing {
		i.mu.Unlock()
		return nil
	}
	i.closing = true
	idle := i.refs == 0
	i.mu.Unlock()
	if idle {
		return i.bleve.Close()
	}
	return nil
}
