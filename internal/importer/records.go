package importer

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/mkoivun/antdb-go/internal/datastore"
	"github.com/mkoivun/antdb-go/internal/errors"
	"github.com/mkoivun/antdb-go/internal/species"
)

// workItem pairs a parsed row with its input position
type workItem struct {
	idx int
	row parsedRow
}

// importRecords loads the observation feed. Rows are parsed up front, then
// processed by a pool of workers partitioned on the site identity so that
// rows targeting the same site or occurrence never race across workers.
// Results are collected by input position and reported in input order.
func (p *Pipeline) importRecords(ctx context.Context, path string, summary *RunSummary) error {
	rows, err := readRecordsFeed(path)
	if err != nil {
		return err
	}
	summary.RecordRows = len(rows)

	results := make([]rowResult, len(rows))
	items := make([]workItem, 0, len(rows))
	for i := range rows {
		parsed, err := rows[i].parse()
		if err != nil {
			results[i] = rowResult{State: StateRejected, Reason: ReasonValidationError, Message: err.Error()}
			continue
		}
		results[i] = rowResult{State: StateNormalized}
		items = append(items, workItem{idx: i, row: parsed})
	}

	workers := p.settings.Import.Workers
	if workers < 1 {
		workers = 1
	}
	if workers == 1 {
		for _, item := range items {
			results[item.idx] = p.processRecord(ctx, &item.row)
		}
	} else {
		p.processPartitioned(ctx, items, workers, results)
	}

	for i := range rows {
		res := &results[i]
		switch res.State {
		case StateMerged:
			if res.Created {
				summary.OccurrencesNew++
			} else {
				summary.OccurrencesAdded++
			}
		case StateSkipped:
			summary.Skipped++
			p.logDebug("row skipped", "feed", recordsFeedFile, "line", rows[i].Line, "reason", string(res.Reason))
		case StateRejected:
			p.reject(recordsFeedFile, rows[i].Line, res.Reason, res.Message, rows[i].Raw)
		default:
			msg := res.Message
			if msg == "" {
				msg = "run cancelled"
			}
			p.reject(recordsFeedFile, rows[i].Line, ReasonNotProcessed, msg, rows[i].Raw)
		}
		if res.fatal != nil && err == nil {
			err = res.fatal
		}
	}
	return err
}

// processPartitioned fans items out to per-worker channels keyed by the FNV
// hash of the site identity. One worker owns each partition, so two rows for
// the same site identity are always applied sequentially.
func (p *Pipeline) processPartitioned(ctx context.Context, items []workItem, workers int, results []rowResult) {
	channels := make([]chan workItem, workers)
	for i := range channels {
		channels[i] = make(chan workItem, 16)
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(in <-chan workItem) {
			defer wg.Done()
			for item := range in {
				results[item.idx] = p.processRecord(ctx, &item.row)
			}
		}(channels[i])
	}

	for _, item := range items {
		h := fnv.New32a()
		h.Write([]byte(item.row.partitionKey()))
		channels[h.Sum32()%uint32(workers)] <- item
	}
	for _, ch := range channels {
		close(ch)
	}
	wg.Wait()
}

// processRecord runs the per-row state machine. The row walks forward
// through resolution stages and any failure diverts it to the rejected
// state with a reason code; it never partially commits, all writes happen
// in one transaction at the end.
func (p *Pipeline) processRecord(ctx context.Context, row *parsedRow) rowResult {
	if ctx.Err() != nil {
		return rowResult{State: StatePending, Reason: ReasonNotProcessed}
	}

	fp := row.fingerprint()
	if p.settings.Import.Dedupe {
		seen, err := p.store.SeenFingerprint(fp)
		if err != nil {
			return fatalResult(err)
		}
		if seen {
			return rowResult{State: StateSkipped, Reason: ReasonDuplicateRow}
		}
	}

	speciesID, err := p.resolver.Resolve(row.SpeciesName)
	if err != nil {
		if errors.Is(err, species.ErrSpeciesNotFound) {
			return rowResult{
				State:   StateRejected,
				Reason:  ReasonSpeciesNotFound,
				Message: "unknown species name: " + row.SpeciesName,
			}
		}
		if rejectable(err) {
			return rowResult{State: StateRejected, Reason: ReasonValidationError, Message: err.Error()}
		}
		return fatalResult(err)
	}

	researchID, err := p.store.FindResearchByTitle(row.ResearchTitle)
	if err != nil {
		if datastore.IsNotFound(err) {
			return rowResult{
				State:   StateRejected,
				Reason:  ReasonResearchNotFound,
				Message: "unknown research title: " + row.ResearchTitle,
			}
		}
		return fatalResultAt(StateSpeciesResolved, err)
	}

	methodID, res := p.lookupLabel(datastore.LookupMethod, row.Method, "method")
	if res != nil {
		return *res
	}
	unitID, res := p.lookupLabel(datastore.LookupUnit, row.Unit, "unit")
	if res != nil {
		return *res
	}

	var envID *uint
	if row.Environment != "" {
		id, res := p.lookupLabel(datastore.LookupEnvironment, row.Environment, "environment")
		if res != nil {
			return *res
		}
		envID = &id
	}
	seasonID := p.seasonFor(row.SurveyDate)

	key := datastore.SiteKey{
		ResearchID: researchID,
		SiteName:   row.SiteName,
		DateStart:  row.SurveyDate,
		Latitude:   row.Latitude,
		Longitude:  row.Longitude,
		Elevation:  row.Elevation,
	}

	var result rowResult
	err = p.store.Transaction(ctx, func(tx *datastore.DataStore) error {
		siteID, _, err := tx.GetOrCreateSurveySite(key, envID, seasonID)
		if err != nil {
			return err
		}
		result.State = StateSiteResolved
		_, created, err := tx.MergeOccurrence(siteID, speciesID, methodID, unitID, row.Abundance)
		if err != nil {
			return err
		}
		if p.settings.Import.Dedupe {
			if err := tx.RecordFingerprint(fp, p.runID); err != nil {
				return err
			}
		}
		result = rowResult{
			State:     StateMerged,
			Created:   created,
			SpeciesID: speciesID,
			SiteID:    siteID,
		}
		return nil
	})
	if err != nil {
		if datastore.IsConstraint(err) {
			return rowResult{State: StateRejected, Reason: ReasonConstraintViolation, Message: err.Error()}
		}
		if rejectable(err) {
			return rowResult{State: StateRejected, Reason: ReasonValidationError, Message: err.Error()}
		}
		return fatalResultAt(result.State, err)
	}
	return result
}

// lookupLabel resolves a controlled vocabulary label. The import path never
// creates labels, an unknown one rejects the row.
func (p *Pipeline) lookupLabel(kind datastore.LookupKind, normalized, field string) (uint, *rowResult) {
	id, err := p.store.GetLookup(kind, normalized)
	if err != nil {
		if datastore.IsNotFound(err) {
			return 0, &rowResult{
				State:   StateRejected,
				Reason:  ReasonValidationError,
				Message: "unknown " + field + ": " + normalized,
			}
		}
		res := fatalResult(err)
		return 0, &res
	}
	return id, nil
}

// seasonFor maps a survey month to the seeded season labels. Dates without a
// match, or missing season rows, leave the site season unset.
func (p *Pipeline) seasonFor(isoDate string) *uint {
	if isoDate == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", isoDate)
	if err != nil {
		return nil
	}
	var name string
	switch t.Month() {
	case time.March, time.April, time.May:
		name = "spring"
	case time.June, time.July, time.August:
		name = "summer"
	case time.September, time.October, time.November:
		name = "autumn"
	default:
		name = "winter"
	}
	id, err := p.store.GetLookup(datastore.LookupSeason, name)
	if err != nil {
		return nil
	}
	return &id
}

// fatalResult tags a result whose error must stop the run
func fatalResult(err error) rowResult {
	return fatalResultAt(StatePending, err)
}

// fatalResultAt records how far the row got before the store failed
func fatalResultAt(state RowState, err error) rowResult {
	return rowResult{
		State:   state,
		Reason:  ReasonNotProcessed,
		Message: err.Error(),
		fatal:   err,
	}
}
