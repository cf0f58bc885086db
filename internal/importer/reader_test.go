package importer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFeed(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadSpeciesFeedStripsByteOrderMark(t *testing.T) {
	t.Parallel()

	// spreadsheet exports prefix the file with U+FEFF; the first header
	// cell must still resolve by name
	path := writeTempFeed(t, "species.csv",
		"\uFEFF"+`scientific_name,japanese_name,subfamily,body_len_mm,red_list,synonyms
Lasius japonicus,トビイロケアリ,Formicinae,2.5,,
`)

	rows, err := readSpeciesFeed(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Lasius japonicus", rows[0].ScientificName)
	assert.Equal(t, "トビイロケアリ", rows[0].VernacularName)
	assert.Equal(t, 2, rows[0].Line)
}

func TestReadRecordsFeedRaggedAndMissingColumns(t *testing.T) {
	t.Parallel()

	// a short row yields empty fields instead of a fatal parse error
	path := writeTempFeed(t, "records.csv",
		`research_title,site_name,survey_date,latitude,longitude,elevation_m,environment,method,species_name,abundance,unit
Some study,park,2019-05-01
`)

	rows, err := readRecordsFeed(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Some study", rows[0].ResearchTitle)
	assert.Empty(t, rows[0].SpeciesName)
}

func TestReadCSVMissingFileIsFatal(t *testing.T) {
	t.Parallel()

	_, err := readSpeciesFeed(filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
}
