// occurrence.go: observation record merge-by-addition.
package datastore

// MergeOccurrence locates an occurrence by its identity tuple and either
// creates it with the given abundance or adds the abundance to the existing
// row. Intended to run inside the per-row transaction scope so the lookup
// and the insert or update are atomic; a uniqueness violation from a
// concurrent insert of the same identity is retried as a re-read-and-merge
// instead of failing the row.
func (ds *DataStore) MergeOccurrence(siteID, speciesID, methodID, unitID uint, abundance int) (Occurrence, bool, error) {
	if abundance < 0 {
		return Occurrence{}, false, validationError("abundance must be non-negative", "abundance", abundance)
	}

	occ, err := ds.GetOccurrence(siteID, speciesID, methodID, unitID)
	switch {
	case err == nil:
		return ds.addAbundance(occ, abundance)
	case IsNotFound(err):
		// fall through to insert
	default:
		return Occurrence{}, false, err
	}

	occ = Occurrence{
		SiteID:    siteID,
		SpeciesID: speciesID,
		MethodID:  methodID,
		UnitID:    unitID,
		Abundance: abundance,
	}
	if err := ds.DB.Create(&occ).Error; err != nil {
		if isConstraintViolation(err) {
			// lost the insert race, merge into the winner
			existing, lookupErr := ds.GetOccurrence(siteID, speciesID, methodID, unitID)
			if lookupErr != nil {
				return Occurrence{}, false, conflictError(err, "merge_occurrence", "unique",
					"site_id", siteID, "species_id", speciesID)
			}
			return ds.addAbundance(existing, abundance)
		}
		return Occurrence{}, false, dbError(err, "create_occurrence", "",
			"site_id", siteID, "species_id", speciesID)
	}
	return occ, true, nil
}

// addAbundance applies the merge-by-addition policy to an existing row
func (ds *DataStore) addAbundance(occ Occurrence, abundance int) (Occurrence, bool, error) {
	newAbundance := occ.Abundance + abundance
	err := ds.DB.Model(&Occurrence{}).Where("id = ?", occ.ID).
		Update("abundance", newAbundance).Error
	if err != nil {
		return Occurrence{}, false, dbError(err, "update_abundance", "", "occurrence_id", occ.ID)
	}
	occ.Abundance = newAbundance
	getLogger().Debug("merged occurrence abundance",
		"occurrence_id", occ.ID, "added", abundance, "abundance", newAbundance)
	return occ, false, nil
}

// GetOccurrence retrieves an occurrence by its identity tuple
func (ds *DataStore) GetOccurrence(siteID, speciesID, methodID, unitID uint) (Occurrence, error) {
	var occ Occurrence
	err := ds.DB.
		Where("site_id = ? AND species_id = ? AND method_id = ? AND unit_id = ?",
			siteID, speciesID, methodID, unitID).
		First(&occ).Error
	if err != nil {
		if isNotFoundErr(err) {
			return Occurrence{}, notFoundError("occurrence", formatID(siteID))
		}
		return Occurrence{}, dbError(err, "get_occurrence", "", "site_id", siteID)
	}
	return occ, nil
}

// CountOccurrences returns the total number of occurrence rows
func (ds *DataStore) CountOccurrences() (int64, error) {
	var count int64
	if err := ds.DB.Model(&Occurrence{}).Count(&count).Error; err != nil {
		return 0, dbError(err, "count_occurrences", "")
	}
	return count, nil
}
