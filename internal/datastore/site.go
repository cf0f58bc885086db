// site.go: survey site identity resolution.
package datastore

import "gorm.io/gorm"

// SiteKey is the composite natural key that defines survey site identity.
// All fields participate exactly as provided, no rounding and no tolerance
// window; a later extension may introduce proximity matching but this
// resolver never does.
type SiteKey struct {
	ResearchID uint
	SiteName   string
	DateStart  string
	Latitude   float64
	Longitude  float64
	Elevation  int
}

// GetOrCreateSurveySite looks up a site by exact match on the full composite
// key and creates one when absent. Find-or-create, not a merge: sites carry
// no mergeable quantity. environmentTypeID and seasonID describe a new site
// but do not participate in identity.
func (ds *DataStore) GetOrCreateSurveySite(key SiteKey, environmentTypeID, seasonID *uint) (uint, bool, error) {
	if key.SiteName == "" {
		return 0, false, validationError("site name must not be empty", "site_name", key.SiteName)
	}

	id, err := ds.findSite(key)
	if err == nil {
		return id, false, nil
	}
	if !IsNotFound(err) {
		return 0, false, err
	}

	site := SurveySite{
		ResearchID:        key.ResearchID,
		SiteName:          key.SiteName,
		DateStart:         key.DateStart,
		EnvironmentTypeID: environmentTypeID,
		SeasonID:          seasonID,
		Latitude:          key.Latitude,
		Longitude:         key.Longitude,
		Elevation:         key.Elevation,
	}
	if err := ds.DB.Create(&site).Error; err != nil {
		if isConstraintViolation(err) {
			// another row created the same identity first, re-read
			id, lookupErr := ds.findSite(key)
			if lookupErr == nil {
				return id, false, nil
			}
			return 0, false, conflictError(err, "create_survey_site", "unique", "site_name", key.SiteName)
		}
		return 0, false, dbError(err, "create_survey_site", "", "site_name", key.SiteName)
	}
	getLogger().Debug("created survey site", "site_id", site.ID, "site_name", key.SiteName)
	return site.ID, true, nil
}

// findSite performs the exact composite key lookup
func (ds *DataStore) findSite(key SiteKey) (uint, error) {
	var row struct{ ID uint }
	err := ds.DB.Model(&SurveySite{}).Select("id").
		Where("research_id = ? AND site_name = ? AND date_start = ? AND latitude = ? AND longitude = ? AND elevation = ?",
			key.ResearchID, key.SiteName, key.DateStart, key.Latitude, key.Longitude, key.Elevation).
		First(&row).Error
	if err != nil {
		if isNotFoundErr(err) {
			return 0, notFoundError("survey_site", key.SiteName)
		}
		return 0, dbError(err, "find_survey_site", "", "site_name", key.SiteName)
	}
	return row.ID, nil
}

// DeleteSurveySite removes a site; its occurrences go with it. Both deletes
// commit in one transaction so a failure never strands an orphaned site.
func (ds *DataStore) DeleteSurveySite(id uint) error {
	return ds.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("site_id = ?", id).Delete(&Occurrence{}).Error; err != nil {
			return dbError(err, "delete_site_occurrences", "", "site_id", id)
		}
		if err := tx.Delete(&SurveySite{}, id).Error; err != nil {
			return dbError(err, "delete_survey_site", "", "site_id", id)
		}
		return nil
	})
}
