// analytics.go: read side queries over the normalized store. These back the
// query subcommands; sympatric co-occurrence is the primary analytical view
// the data model exists to support.
package datastore

// SympatricSpeciesRow is one species co-occurring with the queried one
type SympatricSpeciesRow struct {
	SpeciesID         uint
	ScientificName    string
	VernacularName    string
	Subfamily         string
	CoOccurrenceSites int
}

// HabitatStatsRow aggregates occurrences of a species per environment type
type HabitatStatsRow struct {
	Environment      string
	SiteCount        int
	TotalIndividuals int
	AvgAbundance     float64
	MinElevation     int
	MaxElevation     int
}

// ResearchSummaryRow is one literature source recording a species
type ResearchSummaryRow struct {
	ResearchID   uint
	Title        string
	Author       string
	Year         int
	DOI          string
	SiteCount    int
	TotalRecords int
}

// OccurrenceDetailRow is one observation of a species with its full site
// and literature context
type OccurrenceDetailRow struct {
	Research    string
	Year        int
	SiteName    string
	SurveyDate  string
	Latitude    float64
	Longitude   float64
	Elevation   int
	Environment string
	Method      string
	Unit        string
	Abundance   int
}

// SiteSpeciesRow is one species recorded at a site
type SiteSpeciesRow struct {
	ScientificName string
	VernacularName string
	Subfamily      string
	Abundance      int
	Unit           string
	Method         string
}

// Statistics summarizes the store contents
type Statistics struct {
	TotalSpecies       int64
	TotalResearch      int64
	TotalSites         int64
	TotalOccurrences   int64
	LatestResearchYear int
}

// SympatricSpecies lists species observed at the same sites as speciesID,
// ordered by the number of shared sites.
func (ds *DataStore) SympatricSpecies(speciesID uint, minSites int) ([]SympatricSpeciesRow, error) {
	if minSites < 1 {
		minSites = 1
	}

	var rows []SympatricSpeciesRow
	err := ds.DB.Table("occurrences AS o1").
		Select(`species.id AS species_id,
			species.scientific_name,
			species.vernacular_name,
			species.subfamily,
			COUNT(DISTINCT o2.site_id) AS co_occurrence_sites`).
		Joins("JOIN occurrences o2 ON o1.site_id = o2.site_id").
		Joins("JOIN species ON o2.species_id = species.id").
		Where("o1.species_id = ? AND o2.species_id != ?", speciesID, speciesID).
		Group("species.id").
		Having("COUNT(DISTINCT o2.site_id) >= ?", minSites).
		Order("co_occurrence_sites DESC, species.vernacular_name").
		Scan(&rows).Error
	if err != nil {
		return nil, dbError(err, "sympatric_species", "", "species_id", speciesID)
	}
	return rows, nil
}

// HabitatStats aggregates where a species has been recorded, per environment.
func (ds *DataStore) HabitatStats(speciesID uint) ([]HabitatStatsRow, error) {
	var rows []HabitatStatsRow
	err := ds.DB.Table("occurrences").
		Select(`environment_types.name AS environment,
			COUNT(DISTINCT survey_sites.id) AS site_count,
			SUM(occurrences.abundance) AS total_individuals,
			AVG(occurrences.abundance) AS avg_abundance,
			MIN(survey_sites.elevation) AS min_elevation,
			MAX(survey_sites.elevation) AS max_elevation`).
		Joins("JOIN survey_sites ON occurrences.site_id = survey_sites.id").
		Joins("LEFT JOIN environment_types ON survey_sites.environment_type_id = environment_types.id").
		Where("occurrences.species_id = ?", speciesID).
		Group("environment_types.id").
		Order("site_count DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, dbError(err, "habitat_stats", "", "species_id", speciesID)
	}
	return rows, nil
}

// ResearchForSpecies lists the literature sources that recorded a species.
func (ds *DataStore) ResearchForSpecies(speciesID uint) ([]ResearchSummaryRow, error) {
	var rows []ResearchSummaryRow
	err := ds.DB.Table("occurrences").
		Select(`research.id AS research_id,
			research.title,
			research.author,
			research.year,
			COALESCE(research.doi, '') AS doi,
			COUNT(DISTINCT survey_sites.id) AS site_count,
			SUM(occurrences.abundance) AS total_records`).
		Joins("JOIN survey_sites ON occurrences.site_id = survey_sites.id").
		Joins("JOIN research ON survey_sites.research_id = research.id").
		Where("occurrences.species_id = ?", speciesID).
		Group("research.id").
		Order("research.year DESC, research.title").
		Scan(&rows).Error
	if err != nil {
		return nil, dbError(err, "research_for_species", "", "species_id", speciesID)
	}
	return rows, nil
}

// OccurrenceDetails lists every observation of a species with the site and
// research it came from, newest literature first.
func (ds *DataStore) OccurrenceDetails(speciesID uint) ([]OccurrenceDetailRow, error) {
	var rows []OccurrenceDetailRow
	err := ds.DB.Table("occurrences").
		Select(`research.title AS research,
			research.year,
			survey_sites.site_name,
			survey_sites.date_start AS survey_date,
			survey_sites.latitude,
			survey_sites.longitude,
			survey_sites.elevation,
			environment_types.name AS environment,
			methods.name AS method,
			units.name AS unit,
			occurrences.abundance`).
		Joins("JOIN survey_sites ON occurrences.site_id = survey_sites.id").
		Joins("JOIN research ON survey_sites.research_id = research.id").
		Joins("LEFT JOIN environment_types ON survey_sites.environment_type_id = environment_types.id").
		Joins("LEFT JOIN methods ON occurrences.method_id = methods.id").
		Joins("LEFT JOIN units ON occurrences.unit_id = units.id").
		Where("occurrences.species_id = ?", speciesID).
		Order("research.year DESC, survey_sites.date_start DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, dbError(err, "occurrence_details", "", "species_id", speciesID)
	}
	return rows, nil
}

// SiteSpeciesList lists the species recorded at one site.
func (ds *DataStore) SiteSpeciesList(siteID uint) ([]SiteSpeciesRow, error) {
	var rows []SiteSpeciesRow
	err := ds.DB.Table("occurrences").
		Select(`species.scientific_name,
			species.vernacular_name,
			species.subfamily,
			occurrences.abundance,
			units.name AS unit,
			methods.name AS method`).
		Joins("JOIN species ON occurrences.species_id = species.id").
		Joins("LEFT JOIN units ON occurrences.unit_id = units.id").
		Joins("LEFT JOIN methods ON occurrences.method_id = methods.id").
		Where("occurrences.site_id = ?", siteID).
		Order("species.vernacular_name").
		Scan(&rows).Error
	if err != nil {
		return nil, dbError(err, "site_species_list", "", "site_id", siteID)
	}
	return rows, nil
}

// StatisticsSummary counts the stored entities.
func (ds *DataStore) StatisticsSummary() (Statistics, error) {
	var stats Statistics

	counts := []struct {
		model any
		dst   *int64
	}{
		{&Species{}, &stats.TotalSpecies},
		{&Research{}, &stats.TotalResearch},
		{&SurveySite{}, &stats.TotalSites},
		{&Occurrence{}, &stats.TotalOccurrences},
	}
	for _, c := range counts {
		if err := ds.DB.Model(c.model).Count(c.dst).Error; err != nil {
			return Statistics{}, dbError(err, "statistics_summary", "")
		}
	}

	var latest struct{ Year int }
	err := ds.DB.Model(&Research{}).Select("COALESCE(MAX(year), 0) AS year").Scan(&latest).Error
	if err != nil {
		return Statistics{}, dbError(err, "statistics_summary", "")
	}
	stats.LatestResearchYear = latest.Year

	return stats, nil
}
