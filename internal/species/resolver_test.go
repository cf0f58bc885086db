package species

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mkoivun/antdb-go/internal/datastore"
	"github.com/mkoivun/antdb-go/internal/errors"
	"github.com/mkoivun/antdb-go/internal/normalize"
)

func setupStore(t *testing.T) *datastore.DataStore {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&datastore.Species{}, &datastore.SpeciesSynonym{}))
	return &datastore.DataStore{DB: db}
}

func registerSpecies(t *testing.T, ds *datastore.DataStore, sci string, names ...string) uint {
	t.Helper()

	sp := datastore.Species{ScientificName: sci}
	_, err := ds.InsertSpecies(&sp)
	require.NoError(t, err)
	for _, name := range append([]string{sci}, names...) {
		require.NoError(t, ds.InsertSynonym(sp.ID, name, normalize.Text(name), "primary"))
	}
	return sp.ID
}

func TestResolveExactMatchAfterNormalization(t *testing.T) {
	t.Parallel()
	ds := setupStore(t)
	id := registerSpecies(t, ds, "Paraparatrechina sakurae", "サクラアリ")
	r := NewResolver(ds)

	// case, width and surrounding whitespace differences all resolve
	for _, input := range []string{
		"Paraparatrechina sakurae",
		"PARAPARATRECHINA SAKURAE",
		"  paraparatrechina   sakurae ",
		"サクラアリ",
		"ｻｸﾗｱﾘ",
	} {
		got, err := r.Resolve(input)
		require.NoError(t, err, "input %q", input)
		assert.Equal(t, id, got, "input %q", input)
	}
}

func TestResolveUnknownNameIsNotFound(t *testing.T) {
	t.Parallel()
	ds := setupStore(t)
	registerSpecies(t, ds, "Lasius japonicus")
	r := NewResolver(ds)

	// a fuzzy near-miss stays a miss, resolution is exact only
	_, err := r.Resolve("Lasius japonicum")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSpeciesNotFound))

	_, err = r.Resolve("")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrSpeciesNotFound))
}

func TestResolveCachesPositiveHits(t *testing.T) {
	t.Parallel()
	ds := setupStore(t)
	id := registerSpecies(t, ds, "Formica japonica", "クロヤマアリ")
	r := NewResolver(ds)

	got, err := r.Resolve("クロヤマアリ")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	// the cached entry answers even after the dictionary row is gone
	require.NoError(t, ds.DB.Where("species_id = ?", id).Delete(&datastore.SpeciesSynonym{}).Error)
	got, err = r.Resolve("クロヤマアリ")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	// invalidation makes the miss visible
	r.Invalidate()
	_, err = r.Resolve("クロヤマアリ")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSpeciesNotFound))
}

func TestResolveMissesAreNotCached(t *testing.T) {
	t.Parallel()
	ds := setupStore(t)
	r := NewResolver(ds)

	_, err := r.Resolve("Monomorium intrudens")
	require.Error(t, err)

	// registering afterwards makes the same input resolve without an
	// explicit invalidation
	id := registerSpecies(t, ds, "Monomorium intrudens")
	got, err := r.Resolve("Monomorium intrudens")
	require.NoError(t, err)
	assert.Equal(t, id, got)
}
