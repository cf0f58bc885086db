// species.go: species and synonym dictionary operations.
//
// The dictionary is written only by explicit administrative operations, the
// import pipeline reads it and never registers anything as a side effect of
// resolution.
package datastore

import (
	"github.com/mkoivun/antdb-go/internal/normalize"
	"gorm.io/gorm"
)

// InsertSpecies creates a species unless one with the same scientific name
// exists, in which case sp is populated from the existing row. Returns
// whether a new row was created.
func (ds *DataStore) InsertSpecies(sp *Species) (bool, error) {
	if sp.ScientificName == "" {
		return false, validationError("scientific name must not be empty", "scientific_name", sp.ScientificName)
	}

	var existing Species
	err := ds.DB.Where("scientific_name = ?", sp.ScientificName).First(&existing).Error
	switch {
	case err == nil:
		*sp = existing
		return false, nil
	case isNotFoundErr(err):
		// fall through to create
	default:
		return false, dbError(err, "insert_species", "", "scientific_name", sp.ScientificName)
	}

	if err := ds.DB.Create(sp).Error; err != nil {
		if isConstraintViolation(err) {
			// lost a race, the row exists now
			if lookupErr := ds.DB.Where("scientific_name = ?", sp.ScientificName).First(sp).Error; lookupErr == nil {
				return false, nil
			}
			return false, conflictError(err, "insert_species", "unique", "scientific_name", sp.ScientificName)
		}
		return false, dbError(err, "insert_species", "", "scientific_name", sp.ScientificName)
	}
	return true, nil
}

// GetSpecies retrieves a species by its ID
func (ds *DataStore) GetSpecies(id uint) (Species, error) {
	var sp Species
	if err := ds.DB.Preload("Synonyms").First(&sp, id).Error; err != nil {
		if isNotFoundErr(err) {
			return Species{}, notFoundError("species", formatID(id))
		}
		return Species{}, dbError(err, "get_species", "", "species_id", id)
	}
	return sp, nil
}

// SearchSpecies finds species whose scientific name, vernacular name or any
// registered synonym contains pattern.
func (ds *DataStore) SearchSpecies(pattern string) ([]Species, error) {
	like := "%" + pattern + "%"
	var species []Species
	err := ds.DB.
		Joins("LEFT JOIN species_synonyms ON species_synonyms.species_id = species.id").
		Where("species.scientific_name LIKE ? OR species.vernacular_name LIKE ? OR species_synonyms.name LIKE ?",
			like, like, like).
		Group("species.id").
		Order("species.vernacular_name").
		Find(&species).Error
	if err != nil {
		return nil, dbError(err, "search_species", "", "pattern", pattern)
	}
	return species, nil
}

// DeleteSpecies removes a species and its synonyms. The deletion is rejected
// while any occurrence still references the species, regardless of driver
// level foreign key enforcement.
func (ds *DataStore) DeleteSpecies(id uint) error {
	return ds.DB.Transaction(func(tx *gorm.DB) error {
		var refs int64
		if err := tx.Model(&Occurrence{}).Where("species_id = ?", id).Count(&refs).Error; err != nil {
			return dbError(err, "delete_species", "", "species_id", id)
		}
		if refs > 0 {
			return conflictError(
				errNewf("species %d is referenced by %d occurrences", id, refs),
				"delete_species", "restrict", "species_id", id, "occurrence_count", refs)
		}

		if err := tx.Where("species_id = ?", id).Delete(&SpeciesSynonym{}).Error; err != nil {
			return dbError(err, "delete_species_synonyms", "", "species_id", id)
		}
		if err := tx.Delete(&Species{}, id).Error; err != nil {
			return dbError(err, "delete_species", "", "species_id", id)
		}
		return nil
	})
}

// InsertSynonym registers a display name for a species. The normalized form
// must be unique across the whole dictionary; a duplicate is rejected even
// when it would belong to the same species under a different display name.
func (ds *DataStore) InsertSynonym(speciesID uint, name, normalized, synType string) error {
	if normalized == "" {
		normalized = normalize.Text(name)
	}
	if normalized == "" {
		return validationError("synonym name must not be empty", "name", name)
	}

	var existing SpeciesSynonym
	err := ds.DB.Where("name_normalized = ?", normalized).First(&existing).Error
	switch {
	case err == nil:
		if existing.SpeciesID == speciesID {
			// already registered for this species, nothing to do
			return nil
		}
		return conflictError(
			errNewf("normalized name %q already maps to species %d", normalized, existing.SpeciesID),
			"insert_synonym", "unique",
			"name_normalized", normalized,
			"owning_species_id", existing.SpeciesID,
			"requested_species_id", speciesID)
	case isNotFoundErr(err):
		// fall through to create
	default:
		return dbError(err, "insert_synonym", "", "name_normalized", normalized)
	}

	syn := SpeciesSynonym{
		SpeciesID:      speciesID,
		Name:           name,
		NameNormalized: normalized,
		Type:           synType,
	}
	if err := ds.DB.Create(&syn).Error; err != nil {
		if isConstraintViolation(err) {
			return conflictError(err, "insert_synonym", "unique", "name_normalized", normalized)
		}
		return dbError(err, "insert_synonym", "", "name_normalized", normalized)
	}
	return nil
}

// FindSpeciesIDBySynonym resolves a normalized name to its owning species.
// The caller is expected to have normalized the input already.
func (ds *DataStore) FindSpeciesIDBySynonym(normalized string) (uint, error) {
	var syn SpeciesSynonym
	if err := ds.DB.Where("name_normalized = ?", normalized).First(&syn).Error; err != nil {
		if isNotFoundErr(err) {
			return 0, notFoundError("synonym", normalized)
		}
		return 0, dbError(err, "find_species_by_synonym", "", "name_normalized", normalized)
	}
	return syn.SpeciesID, nil
}

// SynonymsForSpecies lists the registered names of one species
func (ds *DataStore) SynonymsForSpecies(speciesID uint) ([]SpeciesSynonym, error) {
	var syns []SpeciesSynonym
	if err := ds.DB.Where("species_id = ?", speciesID).Order("id").Find(&syns).Error; err != nil {
		return nil, dbError(err, "synonyms_for_species", "", "species_id", speciesID)
	}
	return syns, nil
}
