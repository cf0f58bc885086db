package importer

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorSinkPreservesOrder(t *testing.T) {
	t.Parallel()

	sink := NewErrorSink()
	sink.Add(Rejection{Feed: "records.csv", Line: 2, Reason: ReasonSpeciesNotFound, Message: "first"})
	sink.Add(Rejection{Feed: "records.csv", Line: 5, Reason: ReasonValidationError, Message: "second"})
	sink.Add(Rejection{Feed: "records.csv", Line: 3, Reason: ReasonDuplicateRow, Message: "third"})

	got := sink.Rejections()
	require.Len(t, got, 3)
	// encounter order, not line order
	assert.Equal(t, "first", got[0].Message)
	assert.Equal(t, "second", got[1].Message)
	assert.Equal(t, "third", got[2].Message)
}

func TestErrorSinkWriteReport(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "report", "errors.csv")
	sink := NewErrorSink()
	sink.Add(Rejection{
		Feed:    "records.csv",
		Line:    7,
		Reason:  ReasonSpeciesNotFound,
		Message: "unknown species name: Unknown antus",
		Raw:     []string{"title", "park", "Unknown antus", "5"},
	})
	require.NoError(t, sink.WriteReport(path))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"feed", "line", "reason", "message", "row"}, records[0])
	assert.Equal(t, "records.csv", records[1][0])
	assert.Equal(t, "7", records[1][1])
	assert.Equal(t, "species_not_found", records[1][2])

	// the raw row survives a round trip through the report
	raw, err := csv.NewReader(strings.NewReader(records[1][4])).Read()
	require.NoError(t, err)
	assert.Equal(t, []string{"title", "park", "Unknown antus", "5"}, raw)
}

func TestErrorSinkEmptyRunRemovesReport(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "errors.csv")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	require.NoError(t, NewErrorSink().WriteReport(path))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// no report and nothing stale to remove is also a clean outcome
	require.NoError(t, NewErrorSink().WriteReport(path))
}
