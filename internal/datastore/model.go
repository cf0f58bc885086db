// model.go this code defines the data model for the application
package datastore

import "time"

// Species is a canonical species identity with a unique scientific name.
// Identity is immutable once created; descriptive attributes are edited
// through the species commands, never by the import pipeline.
type Species struct {
	ID             uint   `gorm:"primaryKey"`
	ScientificName string `gorm:"uniqueIndex;not null"`
	VernacularName string `gorm:"index"`
	Subfamily      string
	BodyLenMin     float64
	BodyLenMax     float64
	DistText       string
	ElevMin        int
	ElevMax        int
	RedList        string

	Synonyms []SpeciesSynonym `gorm:"foreignKey:SpeciesID;constraint:OnDelete:CASCADE"`
	// Deleting a species that still has occurrences is rejected, an
	// observation must never be orphaned by dictionary maintenance.
	Occurrences []Occurrence `gorm:"foreignKey:SpeciesID;constraint:OnDelete:RESTRICT"`
}

// SpeciesSynonym maps one display name to its owning species. NameNormalized
// is unique across the entire dictionary, not merely within a species, so a
// resolution hit is always unambiguous.
type SpeciesSynonym struct {
	ID             uint   `gorm:"primaryKey"`
	SpeciesID      uint   `gorm:"index;not null"`
	Name           string `gorm:"not null"`
	NameNormalized string `gorm:"uniqueIndex;not null"`
	Type           string `gorm:"type:varchar(20)"` // "primary" or "alias"
}

// EnvironmentType is a controlled vocabulary entry for survey environments
type EnvironmentType struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"uniqueIndex;not null"`
}

// Method is a controlled vocabulary entry for collection methods
type Method struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"uniqueIndex;not null"`
}

// Season is a controlled vocabulary entry for survey seasons
type Season struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"uniqueIndex;not null"`
}

// Unit is a controlled vocabulary entry for abundance units
type Unit struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"uniqueIndex;not null"`
}

// Research is a literature reference. Identity is the DOI when one exists,
// otherwise UniqueHash computed from (title, author, year), so re-importing
// the same source deduplicates instead of multiplying references.
type Research struct {
	ID         uint    `gorm:"primaryKey"`
	DOI        *string `gorm:"uniqueIndex"`
	Title      string  `gorm:"not null"`
	Author     string  `gorm:"not null"`
	Year       int     `gorm:"not null"`
	FilePath   string
	UniqueHash string `gorm:"uniqueIndex;not null"`

	Sites []SurveySite `gorm:"foreignKey:ResearchID;constraint:OnDelete:CASCADE"`
}

// TableName keeps the singular table name; the raw analytics joins and the
// upstream schema both use "research".
func (Research) TableName() string {
	return "research"
}

// SurveySite identity is the full composite natural key. Exact equality, no
// coordinate tolerance: any difference, however small, is a distinct site.
type SurveySite struct {
	ID                uint   `gorm:"primaryKey"`
	ResearchID        uint   `gorm:"index;not null;uniqueIndex:idx_sites_identity"`
	SiteName          string `gorm:"not null;uniqueIndex:idx_sites_identity"`
	DateStart         string `gorm:"uniqueIndex:idx_sites_identity"` // ISO 8601 date
	EnvironmentTypeID *uint
	SeasonID          *uint
	Latitude          float64 `gorm:"uniqueIndex:idx_sites_identity;check:latitude >= -90 AND latitude <= 90"`
	Longitude         float64 `gorm:"uniqueIndex:idx_sites_identity;check:longitude >= -180 AND longitude <= 180"`
	Elevation         int     `gorm:"uniqueIndex:idx_sites_identity;check:elevation > -500"`

	Occurrences []Occurrence `gorm:"foreignKey:SiteID;constraint:OnDelete:CASCADE"`
}

// Occurrence records an observed abundance of one species at one site.
// Identity is (site, species, method, unit); a duplicate-identity write
// increases Abundance instead of replacing or duplicating the row.
type Occurrence struct {
	ID        uint `gorm:"primaryKey"`
	SiteID    uint `gorm:"index;not null;uniqueIndex:idx_occurrences_identity"`
	SpeciesID uint `gorm:"index;not null;uniqueIndex:idx_occurrences_identity"`
	MethodID  uint `gorm:"not null;uniqueIndex:idx_occurrences_identity"`
	UnitID    uint `gorm:"not null;uniqueIndex:idx_occurrences_identity"`
	Abundance int  `gorm:"not null;check:abundance >= 0"`
}

// ImportFingerprint marks a row content hash as already merged. A record
// feed row whose fingerprint exists is skipped rather than added again, so
// re-running an identical input does not double abundances.
type ImportFingerprint struct {
	ID        uint   `gorm:"primaryKey"`
	RowHash   string `gorm:"uniqueIndex;not null;type:varchar(64)"`
	RunID     string `gorm:"index;type:varchar(36)"`
	CreatedAt time.Time
}
