// research.go: literature reference deduplication.
package datastore

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/mkoivun/antdb-go/internal/normalize"
)

// ResearchHash computes the fallback identity for a reference with no
// persistent identifier: a SHA-256 over the normalized (title, author, year)
// tuple. Two imports of the same work hash identically even when spelling
// width or case differ.
func ResearchHash(title, author string, year int) string {
	input := fmt.Sprintf("%s|%s|%d", normalize.Text(title), normalize.Text(author), year)
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// GetOrCreateResearch deduplicates by DOI when present, otherwise by the
// computed unique hash. r is populated with the stored row either way.
func (ds *DataStore) GetOrCreateResearch(r *Research) (uint, bool, error) {
	if r.Title == "" || r.Author == "" {
		return 0, false, validationError("research requires title and author", "title", r.Title)
	}
	if r.UniqueHash == "" {
		r.UniqueHash = ResearchHash(r.Title, r.Author, r.Year)
	}

	var existing Research
	var err error
	if r.DOI != nil && *r.DOI != "" {
		err = ds.DB.Where("doi = ?", *r.DOI).First(&existing).Error
	} else {
		err = ds.DB.Where("unique_hash = ?", r.UniqueHash).First(&existing).Error
	}
	switch {
	case err == nil:
		*r = existing
		return existing.ID, false, nil
	case isNotFoundErr(err):
		// fall through to create
	default:
		return 0, false, dbError(err, "get_or_create_research", "", "unique_hash", r.UniqueHash)
	}

	if err := ds.DB.Create(r).Error; err != nil {
		if isConstraintViolation(err) {
			if lookupErr := ds.DB.Where("unique_hash = ?", r.UniqueHash).First(r).Error; lookupErr == nil {
				return r.ID, false, nil
			}
			return 0, false, conflictError(err, "create_research", "unique", "unique_hash", r.UniqueHash)
		}
		return 0, false, dbError(err, "create_research", "", "unique_hash", r.UniqueHash)
	}
	return r.ID, true, nil
}

// FindResearchByTitle resolves a normalized title to a research ID. The
// records feed references its source by title.
func (ds *DataStore) FindResearchByTitle(normalizedTitle string) (uint, error) {
	var row struct{ ID uint }
	err := ds.DB.Model(&Research{}).Select("id").
		Where("LOWER(title) = ?", normalizedTitle).First(&row).Error
	if err != nil {
		if isNotFoundErr(err) {
			return 0, notFoundError("research", normalizedTitle)
		}
		return 0, dbError(err, "find_research_by_title", "", "title", normalizedTitle)
	}
	return row.ID, nil
}
