// errorsink.go: durable record of rejected rows.
//
// The sink accumulates one entry per rejected row in encounter order and is
// written out once at the end of a run. It never throttles or stops the
// pipeline; a full input file of rejects still produces a complete report.
package importer

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ReasonCode is a stable machine-readable rejection reason
type ReasonCode string

const (
	ReasonValidationError     ReasonCode = "validation_error"
	ReasonSpeciesNotFound     ReasonCode = "species_not_found"
	ReasonResearchNotFound    ReasonCode = "research_not_found"
	ReasonConstraintViolation ReasonCode = "constraint_violation"
	ReasonDuplicateRow        ReasonCode = "duplicate_row"
	ReasonNotProcessed        ReasonCode = "not_processed"
)

// Rejection is one rejected row with enough of the original field values for
// a human to correct and resubmit it.
type Rejection struct {
	Feed    string     // which input feed the row came from
	Line    int        // 1-based line number within the feed
	Reason  ReasonCode // stable reason code
	Message string     // human readable detail
	Raw     []string   // original field values as read
}

// ErrorSink collects rejections in row-encounter order. The pipeline adds
// entries only after per-feed results are collected back into input order,
// so worker interleaving never scrambles the report.
type ErrorSink struct {
	mu         sync.Mutex
	rejections []Rejection
}

// NewErrorSink creates an empty sink
func NewErrorSink() *ErrorSink {
	return &ErrorSink{}
}

// Add records one rejection
func (s *ErrorSink) Add(r Rejection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejections = append(s.rejections, r)
}

// Len returns the number of collected rejections
func (s *ErrorSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rejections)
}

// Rejections returns a copy of the collected entries
func (s *ErrorSink) Rejections() []Rejection {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Rejection, len(s.rejections))
	copy(out, s.rejections)
	return out
}

// WriteReport writes the complete report to path, replacing any previous
// run's report. Writing happens once, after the run, so a partially written
// file is never mistaken for a finished one.
func (s *ErrorSink) WriteReport(path string) error {
	rejections := s.Rejections()
	if len(rejections) == 0 {
		// No report file for a clean run; remove a stale one if present.
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove stale error report: %w", err)
		}
		return nil
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create error report: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write([]string{"feed", "line", "reason", "message", "row"}); err != nil {
		return fmt.Errorf("failed to write report header: %w", err)
	}
	for _, r := range rejections {
		record := []string{
			r.Feed,
			fmt.Sprintf("%d", r.Line),
			string(r.Reason),
			r.Message,
			encodeRaw(r.Raw),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write report row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush error report: %w", err)
	}
	return nil
}

// encodeRaw re-encodes the original row as a single CSV value
func encodeRaw(raw []string) string {
	var b strings.Builder
	w := csv.NewWriter(&b)
	_ = w.Write(raw)
	w.Flush()
	return strings.TrimRight(b.String(), "\n")
}
