// row.go: record feed row parsing and validation.
package importer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mkoivun/antdb-go/internal/normalize"
)

// RowState tracks a record row through the pipeline
type RowState string

const (
	StatePending         RowState = "pending"
	StateNormalized      RowState = "normalized"
	StateSpeciesResolved RowState = "species_resolved"
	StateSiteResolved    RowState = "site_resolved"
	StateMerged          RowState = "merged" // terminal success
	StateRejected        RowState = "rejected"
	StateSkipped         RowState = "skipped" // duplicate resubmission
)

// recordRow is one observation feed row with raw field values attached
type recordRow struct {
	Line int
	Raw  []string

	ResearchTitle string
	SiteName      string
	SurveyDate    string
	Latitude      string
	Longitude     string
	Elevation     string
	Environment   string
	Method        string
	SpeciesName   string
	Abundance     string
	Unit          string
}

// parsedRow holds the validated, typed values of a record row
type parsedRow struct {
	ResearchTitle string // normalized for matching
	SiteName      string // display form
	SurveyDate    string // ISO 8601 or empty
	Latitude      float64
	Longitude     float64
	Elevation     int
	Environment   string // normalized label
	Method        string // normalized label
	SpeciesName   string // raw, resolver normalizes
	Abundance     int
	Unit          string // normalized label
}

// rowResult is the tagged outcome of one row
type rowResult struct {
	State     RowState
	Reason    ReasonCode
	Message   string
	Created   bool
	SpeciesID uint
	SiteID    uint

	// fatal carries a store failure that must stop the run; row-level
	// failures never set it.
	fatal error
}

// dateLayouts are the accepted survey date spellings, trialed in order.
var dateLayouts = []string{
	"2006-01-02", "2006/01/02", "2006.01.02",
	"02-01-2006", "02/01/2006", "02.01.2006",
	"2006-01", "2006/01",
	"2006",
}

// parseDate canonicalizes a survey date to ISO 8601. A year-only value maps
// to January 1st and a year-month value to the 1st, matching how partially
// dated literature records are keyed. Empty input is allowed and stays empty.
func parseDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		return t.Format("2006-01-02"), nil
	}
	return "", fmt.Errorf("unrecognized date format: %q", s)
}

// parse validates and converts the raw row. Field errors are returned with
// the offending field named so the rejection entry is actionable.
func (r *recordRow) parse() (parsedRow, error) {
	var p parsedRow

	p.ResearchTitle = normalize.Text(r.ResearchTitle)
	if p.ResearchTitle == "" {
		return p, fmt.Errorf("missing required field: research_title")
	}
	p.SiteName = normalize.Display(r.SiteName)
	if p.SiteName == "" {
		return p, fmt.Errorf("missing required field: site_name")
	}
	p.SpeciesName = strings.TrimSpace(r.SpeciesName)
	if p.SpeciesName == "" {
		return p, fmt.Errorf("missing required field: species_name")
	}

	date, err := parseDate(r.SurveyDate)
	if err != nil {
		return p, fmt.Errorf("invalid survey_date: %w", err)
	}
	p.SurveyDate = date

	if s := strings.TrimSpace(r.Latitude); s != "" {
		p.Latitude, err = strconv.ParseFloat(s, 64)
		if err != nil {
			return p, fmt.Errorf("invalid latitude: %q", r.Latitude)
		}
		if p.Latitude < -90 || p.Latitude > 90 {
			return p, fmt.Errorf("latitude out of range: %v", p.Latitude)
		}
	}
	if s := strings.TrimSpace(r.Longitude); s != "" {
		p.Longitude, err = strconv.ParseFloat(s, 64)
		if err != nil {
			return p, fmt.Errorf("invalid longitude: %q", r.Longitude)
		}
		if p.Longitude < -180 || p.Longitude > 180 {
			return p, fmt.Errorf("longitude out of range: %v", p.Longitude)
		}
	}
	if s := strings.TrimSpace(r.Elevation); s != "" {
		// elevations sometimes arrive as "1200.0"
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return p, fmt.Errorf("invalid elevation_m: %q", r.Elevation)
		}
		p.Elevation = int(f)
	}

	abundance := strings.TrimSpace(r.Abundance)
	if abundance == "" {
		// an observation row with no count defaults to a single record
		p.Abundance = 1
	} else {
		p.Abundance, err = strconv.Atoi(abundance)
		if err != nil {
			return p, fmt.Errorf("invalid abundance: %q", r.Abundance)
		}
		if p.Abundance < 0 {
			return p, fmt.Errorf("abundance must be non-negative: %d", p.Abundance)
		}
	}

	p.Environment = normalize.Text(r.Environment)
	p.Method = normalize.Text(r.Method)
	p.Unit = normalize.Text(r.Unit)
	if p.Method == "" {
		return p, fmt.Errorf("missing required field: method")
	}
	if p.Unit == "" {
		return p, fmt.Errorf("missing required field: unit")
	}

	return p, nil
}

// fingerprint hashes the row's identity and quantity content. Two rows with
// the same fingerprint are the same submission, not two observations, so the
// second one is skipped when dedupe is enabled.
func (p *parsedRow) fingerprint() string {
	input := strings.Join([]string{
		p.ResearchTitle,
		normalize.Text(p.SiteName),
		p.SurveyDate,
		strconv.FormatFloat(p.Latitude, 'f', -1, 64),
		strconv.FormatFloat(p.Longitude, 'f', -1, 64),
		strconv.Itoa(p.Elevation),
		normalize.Text(p.SpeciesName),
		p.Method,
		p.Unit,
		strconv.Itoa(p.Abundance),
	}, "|")
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// partitionKey returns the site identity string used to route colliding rows
// to the same worker.
func (p *parsedRow) partitionKey() string {
	return strings.Join([]string{
		p.ResearchTitle,
		normalize.Text(p.SiteName),
		p.SurveyDate,
		strconv.FormatFloat(p.Latitude, 'f', -1, 64),
		strconv.FormatFloat(p.Longitude, 'f', -1, 64),
		strconv.Itoa(p.Elevation),
	}, "|")
}
