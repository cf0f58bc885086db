// interfaces.go: this code defines the interface for the database operations
package datastore

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/mkoivun/antdb-go/internal/conf"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Interface abstracts the underlying database implementation and defines the
// operations the importer, dictionary commands and queries are built on.
type Interface interface {
	Open() error
	Close() error

	// species dictionary
	InsertSpecies(sp *Species) (created bool, err error)
	GetSpecies(id uint) (Species, error)
	SearchSpecies(pattern string) ([]Species, error)
	DeleteSpecies(id uint) error
	InsertSynonym(speciesID uint, name, normalized, synType string) error
	FindSpeciesIDBySynonym(normalized string) (uint, error)
	SynonymsForSpecies(speciesID uint) ([]SpeciesSynonym, error)

	// controlled vocabularies
	GetLookup(kind LookupKind, normalized string) (uint, error)
	GetOrCreateLookup(kind LookupKind, name string) (uint, error)

	// research references
	GetOrCreateResearch(r *Research) (uint, bool, error)
	FindResearchByTitle(normalizedTitle string) (uint, error)

	// per-row import scope; everything inside fn is atomic
	Transaction(ctx context.Context, fn func(tx *DataStore) error) error

	// import fingerprints
	SeenFingerprint(rowHash string) (bool, error)
	RecordFingerprint(rowHash, runID string) error

	// survey sites and occurrences; inside an import these run on the
	// transaction DataStore, the direct forms serve queries and tests
	GetOrCreateSurveySite(key SiteKey, environmentTypeID, seasonID *uint) (uint, bool, error)
	DeleteSurveySite(id uint) error
	MergeOccurrence(siteID, speciesID, methodID, unitID uint, abundance int) (Occurrence, bool, error)
	GetOccurrence(siteID, speciesID, methodID, unitID uint) (Occurrence, error)
	CountOccurrences() (int64, error)

	// analytics
	SympatricSpecies(speciesID uint, minSites int) ([]SympatricSpeciesRow, error)
	HabitatStats(speciesID uint) ([]HabitatStatsRow, error)
	ResearchForSpecies(speciesID uint) ([]ResearchSummaryRow, error)
	OccurrenceDetails(speciesID uint) ([]OccurrenceDetailRow, error)
	SiteSpeciesList(siteID uint) ([]SiteSpeciesRow, error)
	StatisticsSummary() (Statistics, error)
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB *gorm.DB // GORM database instance
}

// New creates a new datastore instance based on the provided settings.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{
			Settings: settings,
		}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{
			Settings: settings,
		}
	default:
		// conf.ValidateSettings rejects this case before we get here
		return nil
	}
}

// Transaction runs fn inside a single database transaction. The *DataStore
// handed to fn operates on the transaction connection, so a site resolved and
// an occurrence merged inside fn become visible together or not at all.
func (ds *DataStore) Transaction(ctx context.Context, fn func(tx *DataStore) error) error {
	return ds.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&DataStore{DB: tx})
	})
}

// performAutoMigration automates database migrations with error handling.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	if err := db.AutoMigrate(
		&Species{},
		&SpeciesSynonym{},
		&EnvironmentType{},
		&Method{},
		&Season{},
		&Unit{},
		&Research{},
		&SurveySite{},
		&Occurrence{},
		&ImportFingerprint{},
	); err != nil {
		return dbError(err, "auto_migrate", "critical", "db_type", dbType)
	}

	if debug {
		log.Printf("%s database connection initialized: %s", dbType, connectionInfo)
	}

	return nil
}

// createGormLogger configures and returns a new GORM logger instance.
func createGormLogger() logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: 200 * time.Millisecond,
			LogLevel:      logger.Warn,
			Colorful:      true,
		},
	)
}
