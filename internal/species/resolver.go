// Package species resolves free-text species names against the synonym
// dictionary. Resolution is exact-match-after-normalization only; an
// unmatched name is reported, never auto-created.
package species

import (
	"time"

	"github.com/mkoivun/antdb-go/internal/datastore"
	"github.com/mkoivun/antdb-go/internal/errors"
	"github.com/mkoivun/antdb-go/internal/normalize"
	"github.com/patrickmn/go-cache"
)

// ErrSpeciesNotFound is returned when no synonym entry matches the
// normalized input name.
var ErrSpeciesNotFound = errors.NewStd("species not found")

const (
	cacheTTL     = 5 * time.Minute
	cacheCleanup = 10 * time.Minute
)

// SynonymStore is the slice of the datastore the resolver needs
type SynonymStore interface {
	FindSpeciesIDBySynonym(normalized string) (uint, error)
}

// Resolver is the read path over the species synonym dictionary. Hits are
// cached per process; only positive results are cached so a freshly
// registered synonym becomes visible without waiting out a negative entry.
type Resolver struct {
	store SynonymStore
	cache *cache.Cache
}

// NewResolver creates a resolver over the given store
func NewResolver(store SynonymStore) *Resolver {
	return &Resolver{
		store: store,
		cache: cache.New(cacheTTL, cacheCleanup),
	}
}

// Resolve maps a raw species name to its canonical species identity.
// Returns ErrSpeciesNotFound (wrapped with context) on a miss; the resolver
// never creates a species or synonym entry as a side effect.
func (r *Resolver) Resolve(rawName string) (uint, error) {
	normalized := normalize.Text(rawName)
	if normalized == "" {
		return 0, errors.Newf("species name must not be empty").
			Component("species").
			Category(errors.CategoryValidation).
			Build()
	}

	if v, found := r.cache.Get(normalized); found {
		return v.(uint), nil
	}

	id, err := r.store.FindSpeciesIDBySynonym(normalized)
	if err != nil {
		if datastore.IsNotFound(err) {
			return 0, errors.New(ErrSpeciesNotFound).
				Component("species").
				Category(errors.CategorySpeciesResolution).
				Priority(errors.PriorityLow).
				Context("raw_name", rawName).
				Context("normalized", normalized).
				Build()
		}
		return 0, err
	}

	r.cache.Set(normalized, id, cache.DefaultExpiration)
	return id, nil
}

// Invalidate drops all cached resolutions. Called after dictionary writes so
// the cache never masks an update.
func (r *Resolver) Invalidate() {
	r.cache.Flush()
}
