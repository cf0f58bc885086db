// reader.go: CSV feed readers.
package importer

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/mkoivun/antdb-go/internal/errors"
)

// speciesRow is one species dictionary feed row
type speciesRow struct {
	Line int
	Raw  []string

	ScientificName string
	VernacularName string
	Subfamily      string
	BodyLenMM      string
	RedList        string
	Synonyms       string // comma separated aliases
}

// researchRow is one literature feed row
type researchRow struct {
	Line int
	Raw  []string

	Title    string
	Author   string
	Year     string
	DOI      string
	FilePath string
}

// csvTable is a header-indexed CSV file
type csvTable struct {
	header map[string]int
	rows   [][]string
	lines  []int // 1-based source line per row
}

// field returns the named column of row, or "" when the column is absent
func (t *csvTable) field(row []string, name string) string {
	idx, ok := t.header[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// readCSV loads the whole feed. Failing to open or parse the feed is a
// fatal, run-level condition, not a row rejection.
func readCSV(path string) (*csvTable, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.New(err).
			Component("importer").
			Category(errors.CategoryFileIO).
			Priority(errors.PriorityCritical).
			Context("path", path).
			Build()
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // ragged rows are a row-level concern

	headerRecord, err := reader.Read()
	if err != nil {
		return nil, errors.Newf("failed to read header of %s: %v", path, err).
			Component("importer").
			Category(errors.CategoryFileParsing).
			Priority(errors.PriorityCritical).
			Build()
	}

	table := &csvTable{header: make(map[string]int, len(headerRecord))}
	for i, name := range headerRecord {
		if i == 0 {
			// tolerate a UTF-8 byte order mark from spreadsheet exports
			name = strings.TrimPrefix(name, "\uFEFF")
		}
		table.header[strings.ToLower(strings.TrimSpace(name))] = i
	}

	line := 1
	for {
		record, err := reader.Read()
		line++
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Newf("failed to parse %s line %d: %v", path, line, err).
				Component("importer").
				Category(errors.CategoryFileParsing).
				Priority(errors.PriorityCritical).
				Build()
		}
		table.rows = append(table.rows, record)
		table.lines = append(table.lines, line)
	}

	return table, nil
}

// readSpeciesFeed loads species.csv
func readSpeciesFeed(path string) ([]speciesRow, error) {
	table, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	rows := make([]speciesRow, 0, len(table.rows))
	for i, record := range table.rows {
		rows = append(rows, speciesRow{
			Line:           table.lines[i],
			Raw:            record,
			ScientificName: table.field(record, "scientific_name"),
			VernacularName: table.field(record, "japanese_name"),
			Subfamily:      table.field(record, "subfamily"),
			BodyLenMM:      table.field(record, "body_len_mm"),
			RedList:        table.field(record, "red_list"),
			Synonyms:       table.field(record, "synonyms"),
		})
	}
	return rows, nil
}

// readResearchFeed loads research.csv
func readResearchFeed(path string) ([]researchRow, error) {
	table, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	rows := make([]researchRow, 0, len(table.rows))
	for i, record := range table.rows {
		rows = append(rows, researchRow{
			Line:     table.lines[i],
			Raw:      record,
			Title:    table.field(record, "title"),
			Author:   table.field(record, "author"),
			Year:     table.field(record, "year"),
			DOI:      table.field(record, "doi"),
			FilePath: table.field(record, "file_path"),
		})
	}
	return rows, nil
}

// readRecordsFeed loads records.csv
func readRecordsFeed(path string) ([]recordRow, error) {
	table, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	rows := make([]recordRow, 0, len(table.rows))
	for i, record := range table.rows {
		rows = append(rows, recordRow{
			Line:          table.lines[i],
			Raw:           record,
			ResearchTitle: table.field(record, "research_title"),
			SiteName:      table.field(record, "site_name"),
			SurveyDate:    table.field(record, "survey_date"),
			Latitude:      table.field(record, "latitude"),
			Longitude:     table.field(record, "longitude"),
			Elevation:     table.field(record, "elevation_m"),
			Environment:   table.field(record, "environment"),
			Method:        table.field(record, "method"),
			SpeciesName:   table.field(record, "species_name"),
			Abundance:     table.field(record, "abundance"),
			Unit:          table.field(record, "unit"),
		})
	}
	return rows, nil
}

