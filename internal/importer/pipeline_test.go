package importer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/mkoivun/antdb-go/internal/conf"
	"github.com/mkoivun/antdb-go/internal/datastore"
	"github.com/mkoivun/antdb-go/internal/normalize"
)

// newTestSettings points every path at a per-test temp directory
func newTestSettings(t *testing.T) *conf.Settings {
	t.Helper()

	dir := t.TempDir()
	return &conf.Settings{
		Output: conf.OutputSettings{
			SQLite: conf.SQLiteSettings{
				Enabled: true,
				Path:    filepath.Join(dir, "test.sqlite3"),
			},
		},
		Import: conf.ImportSettings{
			DataDir:         filepath.Join(dir, "data"),
			Workers:         1,
			Dedupe:          true,
			ErrorReportPath: filepath.Join(dir, "import_errors.csv"),
		},
	}
}

func openTestStore(t *testing.T, settings *conf.Settings) datastore.Interface {
	t.Helper()

	store := datastore.New(settings)
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// seedVocabulary registers the labels the record feeds reference
func seedVocabulary(t *testing.T, store datastore.Interface) {
	t.Helper()

	for kind, names := range map[datastore.LookupKind][]string{
		datastore.LookupEnvironment: {"森林", "市街地"},
		datastore.LookupMethod:      {"ハンドコレクション", "ピットフォールトラップ"},
		datastore.LookupSeason:      {"spring", "summer", "autumn", "winter"},
		datastore.LookupUnit:        {"worker"},
	} {
		for _, name := range names {
			_, err := store.GetOrCreateLookup(kind, name)
			require.NoError(t, err)
		}
	}
}

func writeFeed(t *testing.T, settings *conf.Settings, name, content string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(settings.Import.DataDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(settings.Import.DataDir, name), []byte(content), 0o644))
}

const speciesFeed = `scientific_name,japanese_name,subfamily,body_len_mm,red_list,synonyms
Lasius japonicus,トビイロケアリ,Formicinae,2.5,,
Formica japonica,クロヤマアリ,Formicinae,5.5,,Formica fusca japonica
`

const researchFeed = `title,author,year,doi,file_path
Ant fauna of Kanto lowlands,Tanaka,2019,,
`

func TestPipelineEndToEnd(t *testing.T) {
	settings := newTestSettings(t)
	store := openTestStore(t, settings)
	seedVocabulary(t, store)

	writeFeed(t, settings, "species.csv", speciesFeed)
	writeFeed(t, settings, "research.csv", researchFeed)
	writeFeed(t, settings, "records.csv",
		`research_title,site_name,survey_date,latitude,longitude,elevation_m,environment,method,species_name,abundance,unit
Ant fauna of Kanto lowlands,park,2019-05-01,35.68,139.76,10,市街地,ハンドコレクション,Lasius japonicus,5,worker
Ant fauna of Kanto lowlands,park,2019/05/01,35.68,139.76,10,市街地,ハンドコレクション,トビイロケアリ,3,worker
Ant fauna of Kanto lowlands,park,2019-05-01,35.68,139.76,10,市街地,ハンドコレクション,Unknown antus,2,worker
No such research,park,2019-05-01,35.68,139.76,10,市街地,ハンドコレクション,Lasius japonicus,1,worker
Ant fauna of Kanto lowlands,park,2019-05-01,135.68,139.76,10,市街地,ハンドコレクション,Lasius japonicus,1,worker
Ant fauna of Kanto lowlands,park,2019-05-01,35.68,139.76,10,市街地,掃除機,Lasius japonicus,1,worker
`)

	pipeline := New(settings, store)
	summary, err := pipeline.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.SpeciesRows)
	assert.Equal(t, 2, summary.SpeciesCreated)
	assert.Equal(t, 1, summary.ResearchRows)
	assert.Equal(t, 1, summary.ResearchCreated)
	assert.Equal(t, 6, summary.RecordRows)
	assert.Equal(t, 1, summary.OccurrencesNew)
	assert.Equal(t, 1, summary.OccurrencesAdded)
	assert.Equal(t, 4, summary.Rejected)

	// rows 1 and 2 target the same identity even though the date spelling
	// and species name differ; abundance merges by addition
	speciesID, err := store.FindSpeciesIDBySynonym(normalize.Text("トビイロケアリ"))
	require.NoError(t, err)
	researchID, err := store.FindResearchByTitle(normalize.Text("Ant fauna of Kanto lowlands"))
	require.NoError(t, err)
	siteID, created, err := store.GetOrCreateSurveySite(datastore.SiteKey{
		ResearchID: researchID, SiteName: "park", DateStart: "2019-05-01",
		Latitude: 35.68, Longitude: 139.76, Elevation: 10,
	}, nil, nil)
	require.NoError(t, err)
	assert.False(t, created)

	methodID, err := store.GetLookup(datastore.LookupMethod, normalize.Text("ハンドコレクション"))
	require.NoError(t, err)
	unitID, err := store.GetLookup(datastore.LookupUnit, "worker")
	require.NoError(t, err)
	occ, err := store.GetOccurrence(siteID, speciesID, methodID, unitID)
	require.NoError(t, err)
	assert.Equal(t, 8, occ.Abundance)

	count, err := store.CountOccurrences()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// the report lists the failures in input order with stable reasons
	rejections := pipeline.Sink().Rejections()
	require.Len(t, rejections, 4)
	assert.Equal(t, ReasonSpeciesNotFound, rejections[0].Reason)
	assert.Equal(t, 4, rejections[0].Line)
	assert.Equal(t, ReasonResearchNotFound, rejections[1].Reason)
	assert.Equal(t, ReasonValidationError, rejections[2].Reason)
	assert.Equal(t, ReasonValidationError, rejections[3].Reason)

	_, err = os.Stat(settings.Import.ErrorReportPath)
	assert.NoError(t, err)
}

func TestPipelineRerunSkipsExactResubmission(t *testing.T) {
	settings := newTestSettings(t)
	store := openTestStore(t, settings)
	seedVocabulary(t, store)

	writeFeed(t, settings, "species.csv", speciesFeed)
	writeFeed(t, settings, "research.csv", researchFeed)
	writeFeed(t, settings, "records.csv",
		`research_title,site_name,survey_date,latitude,longitude,elevation_m,environment,method,species_name,abundance,unit
Ant fauna of Kanto lowlands,park,2019-05-01,35.68,139.76,10,森林,ハンドコレクション,Lasius japonicus,5,worker
`)

	first, err := New(settings, store).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.OccurrencesNew)
	assert.Equal(t, 0, first.Skipped)

	second, err := New(settings, store).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.OccurrencesNew)
	assert.Equal(t, 0, second.OccurrencesAdded)
	assert.Equal(t, 1, second.Skipped)
	assert.Equal(t, 0, second.Rejected)

	count, err := store.CountOccurrences()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestPipelineDedupeDisabledMergesAgain(t *testing.T) {
	settings := newTestSettings(t)
	settings.Import.Dedupe = false
	store := openTestStore(t, settings)
	seedVocabulary(t, store)

	writeFeed(t, settings, "species.csv", speciesFeed)
	writeFeed(t, settings, "research.csv", researchFeed)
	writeFeed(t, settings, "records.csv",
		`research_title,site_name,survey_date,latitude,longitude,elevation_m,environment,method,species_name,abundance,unit
Ant fauna of Kanto lowlands,park,2019-05-01,35.68,139.76,10,森林,ハンドコレクション,Lasius japonicus,5,worker
`)

	_, err := New(settings, store).Run(context.Background())
	require.NoError(t, err)
	second, err := New(settings, store).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, second.OccurrencesAdded)

	speciesID, err := store.FindSpeciesIDBySynonym(normalize.Text("Lasius japonicus"))
	require.NoError(t, err)
	methodID, err := store.GetLookup(datastore.LookupMethod, normalize.Text("ハンドコレクション"))
	require.NoError(t, err)
	unitID, err := store.GetLookup(datastore.LookupUnit, "worker")
	require.NoError(t, err)
	researchID, err := store.FindResearchByTitle(normalize.Text("Ant fauna of Kanto lowlands"))
	require.NoError(t, err)
	siteID, _, err := store.GetOrCreateSurveySite(datastore.SiteKey{
		ResearchID: researchID, SiteName: "park", DateStart: "2019-05-01",
		Latitude: 35.68, Longitude: 139.76, Elevation: 10,
	}, nil, nil)
	require.NoError(t, err)

	occ, err := store.GetOccurrence(siteID, speciesID, methodID, unitID)
	require.NoError(t, err)
	assert.Equal(t, 10, occ.Abundance)
}

func TestPipelineConflictingSynonymRejectsRowOnly(t *testing.T) {
	settings := newTestSettings(t)
	store := openTestStore(t, settings)

	// the second row claims the first row's vernacular name AND lists its
	// scientific name as an alias; both conflicts collapse into a single
	// rejection and the run continues
	writeFeed(t, settings, "species.csv",
		`scientific_name,japanese_name,subfamily,body_len_mm,red_list,synonyms
Lasius japonicus,トビイロケアリ,Formicinae,,,
Lasius sakagamii,トビイロケアリ,Formicinae,,,Lasius japonicus
`)

	pipeline := New(settings, store)
	summary, err := pipeline.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.SpeciesCreated)
	require.Equal(t, 1, summary.Rejected)
	require.Len(t, pipeline.Sink().Rejections(), 1)
	rejection := pipeline.Sink().Rejections()[0]
	assert.Equal(t, ReasonConstraintViolation, rejection.Reason)
	assert.Equal(t, 3, rejection.Line)
	// the single message names each failing registration in normalized form
	assert.Contains(t, rejection.Message, "トビイロケアリ")
	assert.Contains(t, rejection.Message, "lasius japonicus")

	// the first registration still owns the name
	winner, err := store.FindSpeciesIDBySynonym(normalize.Text("トビイロケアリ"))
	require.NoError(t, err)
	loser, err := store.FindSpeciesIDBySynonym(normalize.Text("Lasius sakagamii"))
	require.NoError(t, err)
	assert.NotEqual(t, winner, loser)
}

func TestPipelineWorkersMergeDeterministically(t *testing.T) {
	// database/sql keeps a connection opener goroutine until the pool closes
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"))

	settings := newTestSettings(t)
	settings.Import.Workers = 4
	store := openTestStore(t, settings)
	seedVocabulary(t, store)

	writeFeed(t, settings, "species.csv", speciesFeed)
	writeFeed(t, settings, "research.csv", researchFeed)

	// 12 rows with the same occurrence identity plus 4 with another site;
	// partitioning keeps each identity on one worker so the sums are exact
	records := "research_title,site_name,survey_date,latitude,longitude,elevation_m,environment,method,species_name,abundance,unit\n"
	for i := 0; i < 12; i++ {
		records += "Ant fauna of Kanto lowlands,park,2019-05-01,35.68,139.76,10,森林,ハンドコレクション,Lasius japonicus," + string(rune('1'+i%3)) + ",worker\n"
	}
	for i := 0; i < 4; i++ {
		records += "Ant fauna of Kanto lowlands,woods,2019-05-02,35.70,139.40,350,森林,ハンドコレクション,Formica japonica,2,worker\n"
	}
	writeFeed(t, settings, "records.csv", records)

	settings.Import.Dedupe = false // identical rows must all merge
	summary, err := New(settings, store).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 16, summary.RecordRows)
	assert.Equal(t, 0, summary.Rejected)
	assert.Equal(t, 2, summary.OccurrencesNew)
	assert.Equal(t, 14, summary.OccurrencesAdded)

	speciesID, err := store.FindSpeciesIDBySynonym(normalize.Text("Lasius japonicus"))
	require.NoError(t, err)
	researchID, err := store.FindResearchByTitle(normalize.Text("Ant fauna of Kanto lowlands"))
	require.NoError(t, err)
	methodID, err := store.GetLookup(datastore.LookupMethod, normalize.Text("ハンドコレクション"))
	require.NoError(t, err)
	unitID, err := store.GetLookup(datastore.LookupUnit, "worker")
	require.NoError(t, err)
	siteID, _, err := store.GetOrCreateSurveySite(datastore.SiteKey{
		ResearchID: researchID, SiteName: "park", DateStart: "2019-05-01",
		Latitude: 35.68, Longitude: 139.76, Elevation: 10,
	}, nil, nil)
	require.NoError(t, err)

	occ, err := store.GetOccurrence(siteID, speciesID, methodID, unitID)
	require.NoError(t, err)
	// abundances cycle 1,2,3 over 12 rows
	assert.Equal(t, 24, occ.Abundance)
}

func TestPipelineCancelledContext(t *testing.T) {
	settings := newTestSettings(t)
	store := openTestStore(t, settings)
	seedVocabulary(t, store)

	writeFeed(t, settings, "species.csv", speciesFeed)
	writeFeed(t, settings, "records.csv",
		`research_title,site_name,survey_date,latitude,longitude,elevation_m,environment,method,species_name,abundance,unit
Ant fauna of Kanto lowlands,park,2019-05-01,35.68,139.76,10,森林,ハンドコレクション,Lasius japonicus,5,worker
`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pipeline := New(settings, store)
	summary, err := pipeline.Run(ctx)
	require.NoError(t, err)

	// nothing committed, every row is reported as not processed
	require.Equal(t, 3, summary.Rejected)
	for _, r := range pipeline.Sink().Rejections() {
		assert.Equal(t, ReasonNotProcessed, r.Reason)
	}
	count, err := store.CountOccurrences()
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestPipelineMissingDataDirIsFatal(t *testing.T) {
	settings := newTestSettings(t)
	store := openTestStore(t, settings)

	_, err := New(settings, store).Run(context.Background())
	require.Error(t, err)
}

func TestPipelineCleanRunRemovesStaleReport(t *testing.T) {
	settings := newTestSettings(t)
	store := openTestStore(t, settings)
	seedVocabulary(t, store)

	require.NoError(t, os.WriteFile(settings.Import.ErrorReportPath, []byte("stale"), 0o644))
	writeFeed(t, settings, "species.csv", speciesFeed)

	summary, err := New(settings, store).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Rejected)

	_, err = os.Stat(settings.Import.ErrorReportPath)
	assert.True(t, os.IsNotExist(err))
}
