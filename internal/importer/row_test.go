package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateLayouts(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"2019-05-01", "2019-05-01"},
		{"2019/05/01", "2019-05-01"},
		{"2019.05.01", "2019-05-01"},
		{"01-05-2019", "2019-05-01"},
		{"2019-05", "2019-05-01"},
		{"2019", "2019-01-01"},
		{"", ""},
	}
	for _, c := range cases {
		got, err := parseDate(c.in)
		require.NoError(t, err, "input %q", c.in)
		assert.Equal(t, c.want, got, "input %q", c.in)
	}

	_, err := parseDate("May 1st 2019")
	assert.Error(t, err)
}

func validRecordRow() recordRow {
	return recordRow{
		Line:          2,
		ResearchTitle: "Ant fauna of Kanto lowlands",
		SiteName:      "park",
		SurveyDate:    "2019-05-01",
		Latitude:      "35.68",
		Longitude:     "139.76",
		Elevation:     "10",
		Environment:   "森林",
		Method:        "ハンドコレクション",
		SpeciesName:   "Lasius japonicus",
		Abundance:     "5",
		Unit:          "worker",
	}
}

func TestRecordRowParse(t *testing.T) {
	t.Parallel()

	row := validRecordRow()
	p, err := row.parse()
	require.NoError(t, err)
	assert.Equal(t, "ant fauna of kanto lowlands", p.ResearchTitle)
	assert.Equal(t, "park", p.SiteName)
	assert.Equal(t, 35.68, p.Latitude)
	assert.Equal(t, 10, p.Elevation)
	assert.Equal(t, 5, p.Abundance)
}

func TestRecordRowParseRejections(t *testing.T) {
	t.Parallel()

	mutations := map[string]func(*recordRow){
		"missing title":      func(r *recordRow) { r.ResearchTitle = " " },
		"missing site":       func(r *recordRow) { r.SiteName = "" },
		"missing species":    func(r *recordRow) { r.SpeciesName = "" },
		"latitude range":     func(r *recordRow) { r.Latitude = "135.68" },
		"longitude range":    func(r *recordRow) { r.Longitude = "-200" },
		"latitude not a num": func(r *recordRow) { r.Latitude = "north" },
		"negative abundance": func(r *recordRow) { r.Abundance = "-3" },
		"missing method":     func(r *recordRow) { r.Method = "" },
		"missing unit":       func(r *recordRow) { r.Unit = "" },
		"bad date":           func(r *recordRow) { r.SurveyDate = "sometime" },
	}
	for name, mutate := range mutations {
		row := validRecordRow()
		mutate(&row)
		_, err := row.parse()
		assert.Error(t, err, name)
	}
}

func TestRecordRowParseDefaults(t *testing.T) {
	t.Parallel()

	row := validRecordRow()
	row.Abundance = ""
	row.Environment = ""
	row.SurveyDate = ""
	p, err := row.parse()
	require.NoError(t, err)

	// a record without a count still proves presence
	assert.Equal(t, 1, p.Abundance)
	assert.Empty(t, p.Environment)
	assert.Empty(t, p.SurveyDate)
}

func TestFingerprintStability(t *testing.T) {
	t.Parallel()

	a := validRecordRow()
	b := validRecordRow()
	// spelling differences that normalize away do not change identity
	b.SurveyDate = "2019/05/01"
	b.SpeciesName = "  Lasius   japonicus "
	b.ResearchTitle = "ANT FAUNA OF KANTO LOWLANDS"

	pa, err := a.parse()
	require.NoError(t, err)
	pb, err := b.parse()
	require.NoError(t, err)
	assert.Equal(t, pa.fingerprint(), pb.fingerprint())
	assert.Equal(t, pa.partitionKey(), pb.partitionKey())

	// a different abundance is a different submission
	c := validRecordRow()
	c.Abundance = "6"
	pc, err := c.parse()
	require.NoError(t, err)
	assert.NotEqual(t, pa.fingerprint(), pc.fingerprint())
	// but the same site partition
	assert.Equal(t, pa.partitionKey(), pc.partitionKey())
}
