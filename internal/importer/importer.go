// Package importer implements the CSV import and reconciliation pipeline.
//
// Three feeds are processed in dependency order: the species dictionary,
// the literature references, then the observation records. Every row is
// handled independently: it either commits in full inside its own store
// transaction or is diverted to the error sink, and the batch never aborts
// on a row-level failure.
package importer

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/mkoivun/antdb-go/internal/conf"
	"github.com/mkoivun/antdb-go/internal/datastore"
	"github.com/mkoivun/antdb-go/internal/errors"
	"github.com/mkoivun/antdb-go/internal/logging"
	"github.com/mkoivun/antdb-go/internal/normalize"
	"github.com/mkoivun/antdb-go/internal/species"
)

// Feed file names inside the import data directory.
const (
	speciesFeedFile  = "species.csv"
	researchFeedFile = "research.csv"
	recordsFeedFile  = "records.csv"
)

// RunSummary reports what one import run did
type RunSummary struct {
	RunID            string
	SpeciesRows      int
	SpeciesCreated   int
	ResearchRows     int
	ResearchCreated  int
	RecordRows       int
	OccurrencesNew   int
	OccurrencesAdded int // merged into an existing occurrence
	Skipped          int // exact resubmissions
	Rejected         int
}

// Pipeline orchestrates one import run. It holds no row state between rows;
// everything persistent lives in the store.
type Pipeline struct {
	store    datastore.Interface
	resolver *species.Resolver
	settings *conf.Settings
	sink     *ErrorSink
	runID    string
	log      *slog.Logger
}

// New creates a pipeline over an opened store
func New(settings *conf.Settings, store datastore.Interface) *Pipeline {
	return &Pipeline{
		store:    store,
		resolver: species.NewResolver(store),
		settings: settings,
		sink:     NewErrorSink(),
		runID:    uuid.NewString(),
		log:      logging.ForService("importer"),
	}
}

// Sink exposes the error sink for reporting
func (p *Pipeline) Sink() *ErrorSink {
	return p.sink
}

// Run processes every feed present in the configured data directory and
// writes the rejected-row report. Only a missing data directory or a store
// failure aborts the run; row failures are collected and the run continues.
func (p *Pipeline) Run(ctx context.Context) (*RunSummary, error) {
	dataDir := p.settings.Import.DataDir
	if _, err := os.Stat(dataDir); err != nil {
		return nil, errors.New(err).
			Component("importer").
			Category(errors.CategoryFileIO).
			Priority(errors.PriorityCritical).
			Context("data_dir", dataDir).
			Build()
	}

	summary := &RunSummary{RunID: p.runID}
	p.logInfo("import run starting", "run_id", p.runID, "data_dir", dataDir)

	// Feed order matters: records reference species and research.
	if path := filepath.Join(dataDir, speciesFeedFile); fileExists(path) {
		if err := p.importSpecies(ctx, path, summary); err != nil {
			return nil, err
		}
	}
	if path := filepath.Join(dataDir, researchFeedFile); fileExists(path) {
		if err := p.importResearch(ctx, path, summary); err != nil {
			return nil, err
		}
	}
	if path := filepath.Join(dataDir, recordsFeedFile); fileExists(path) {
		if err := p.importRecords(ctx, path, summary); err != nil {
			return nil, err
		}
	}

	summary.Rejected = p.sink.Len()
	if err := p.sink.WriteReport(p.settings.Import.ErrorReportPath); err != nil {
		return nil, err
	}

	p.logInfo("import run finished",
		"run_id", p.runID,
		"record_rows", summary.RecordRows,
		"occurrences_new", summary.OccurrencesNew,
		"occurrences_added", summary.OccurrencesAdded,
		"skipped", summary.Skipped,
		"rejected", summary.Rejected)
	return summary, nil
}

// importSpecies loads the species dictionary feed. This is the controlled
// setup path that is allowed to create species and synonym entries.
func (p *Pipeline) importSpecies(ctx context.Context, path string, summary *RunSummary) error {
	rows, err := readSpeciesFeed(path)
	if err != nil {
		return err
	}
	summary.SpeciesRows = len(rows)

	for _, row := range rows {
		if ctx.Err() != nil {
			p.reject(speciesFeedFile, row.Line, ReasonNotProcessed, "run cancelled", row.Raw)
			continue
		}

		sci := normalize.Display(row.ScientificName)
		if sci == "" {
			p.reject(speciesFeedFile, row.Line, ReasonValidationError,
				"missing required field: scientific_name", row.Raw)
			continue
		}
		vern := normalize.Display(row.VernacularName)

		sp := datastore.Species{
			ScientificName: sci,
			VernacularName: vern,
			Subfamily:      normalize.Display(row.Subfamily),
			RedList:        normalize.Display(row.RedList),
		}
		if s := strings.TrimSpace(row.BodyLenMM); s != "" {
			if v, err := strconv.ParseFloat(s, 64); err == nil {
				sp.BodyLenMin = v
				sp.BodyLenMax = v
			} else {
				p.reject(speciesFeedFile, row.Line, ReasonValidationError,
					"invalid body_len_mm: "+s, row.Raw)
				continue
			}
		}

		created, err := p.store.InsertSpecies(&sp)
		if err != nil {
			if rejectable(err) {
				p.rejectErr(speciesFeedFile, row.Line, err, row.Raw)
				continue
			}
			return err
		}
		if created {
			summary.SpeciesCreated++
		}

		// The scientific and vernacular names register as primary synonyms,
		// the comma separated aliases as plain ones.
		names := []struct{ name, typ string }{
			{sci, "primary"},
			{vern, "primary"},
		}
		for _, alias := range strings.Split(row.Synonyms, ",") {
			if a := strings.TrimSpace(alias); a != "" {
				names = append(names, struct{ name, typ string }{a, "alias"})
			}
		}
		// One sink entry per row: every failing name contributes to a single
		// rejection rather than one entry apiece.
		var nameErrs []string
		constraint := false
		for _, n := range names {
			if n.name == "" {
				continue
			}
			if err := p.store.InsertSynonym(sp.ID, n.name, normalize.Text(n.name), n.typ); err != nil {
				if !rejectable(err) {
					return err
				}
				nameErrs = append(nameErrs, err.Error())
				if datastore.IsConstraint(err) {
					constraint = true
				}
			}
		}
		if len(nameErrs) > 0 {
			reason := ReasonValidationError
			if constraint {
				reason = ReasonConstraintViolation
			}
			p.reject(speciesFeedFile, row.Line, reason, strings.Join(nameErrs, "; "), row.Raw)
		}
	}

	// dictionary changed, cached resolutions may be stale
	p.resolver.Invalidate()
	return nil
}

// importResearch loads the literature feed, deduplicating by DOI or by the
// computed (title, author, year) hash.
func (p *Pipeline) importResearch(ctx context.Context, path string, summary *RunSummary) error {
	rows, err := readResearchFeed(path)
	if err != nil {
		return err
	}
	summary.ResearchRows = len(rows)

	for _, row := range rows {
		if ctx.Err() != nil {
			p.reject(researchFeedFile, row.Line, ReasonNotProcessed, "run cancelled", row.Raw)
			continue
		}

		title := normalize.Display(row.Title)
		author := normalize.Display(row.Author)
		if title == "" || author == "" {
			p.reject(researchFeedFile, row.Line, ReasonValidationError,
				"missing required field: title or author", row.Raw)
			continue
		}
		year, err := strconv.Atoi(strings.TrimSpace(row.Year))
		if err != nil {
			p.reject(researchFeedFile, row.Line, ReasonValidationError,
				"invalid year: "+row.Year, row.Raw)
			continue
		}

		r := datastore.Research{
			Title:    title,
			Author:   author,
			Year:     year,
			FilePath: strings.TrimSpace(row.FilePath),
		}
		if doi := strings.TrimSpace(row.DOI); doi != "" {
			r.DOI = &doi
		}

		_, created, err := p.store.GetOrCreateResearch(&r)
		if err != nil {
			if rejectable(err) {
				p.rejectErr(researchFeedFile, row.Line, err, row.Raw)
				continue
			}
			return err
		}
		if created {
			summary.ResearchCreated++
		}
	}
	return nil
}

// reject adds a sink entry and logs it
func (p *Pipeline) reject(feed string, line int, reason ReasonCode, message string, raw []string) {
	p.sink.Add(Rejection{Feed: feed, Line: line, Reason: reason, Message: message, Raw: raw})
	p.logWarn("row rejected", "feed", feed, "line", line, "reason", string(reason), "detail", message)
}

// rejectErr maps a store error to a sink entry
func (p *Pipeline) rejectErr(feed string, line int, err error, raw []string) {
	reason := ReasonValidationError
	if datastore.IsConstraint(err) {
		reason = ReasonConstraintViolation
	}
	p.reject(feed, line, reason, err.Error(), raw)
}

// rejectable reports whether a store error is a row-level condition. A
// validation or constraint failure belongs to the row; anything else means
// the store itself is unhealthy and the run must stop.
func rejectable(err error) bool {
	switch errors.CategoryOf(err) {
	case errors.CategoryValidation, errors.CategoryConstraint, errors.CategoryNotFound:
		return true
	}
	return datastore.IsConstraint(err)
}

func (p *Pipeline) logInfo(msg string, args ...any) {
	if p.log != nil {
		p.log.Info(msg, args...)
	}
}

func (p *Pipeline) logWarn(msg string, args ...any) {
	if p.log != nil {
		p.log.Warn(msg, args...)
	}
}

func (p *Pipeline) logDebug(msg string, args ...any) {
	if p.log != nil && p.settings.Debug {
		p.log.Debug(msg, args...)
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
