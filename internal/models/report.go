package models

import (
	"fmt"
	"sort"
	"strings"
)

// SkipReason says why a cell, row or column was left out of a tidy table.
type SkipReason string

// Skip reasons recorded by the extractor and the normalizer.
const (
	SkipUnknownIndicator SkipReason = "unknown_indicator"
	SkipYearLabel        SkipReason = "non_numeric_year"
	SkipEmptyValue       SkipReason = "empty_value"
	SkipMalformedValue   SkipReason = "malformed_value"
	SkipDuplicate        SkipReason = "duplicate"
	SkipNameConflict     SkipReason = "country_name_conflict"
)

// DefaultSampleLimit caps the number of Skip entries kept verbatim in a report.
const DefaultSampleLimit = 20

// Skip is one dropped cell, row or column.
type Skip struct {
	// Row is the 1-based data row in the source table, 0 for a whole column.
	Row    int
	Column string
	Reason SkipReason
	Value  string
}

func (s Skip) String() string {
	if s.Row == 0 {
		return fmt.Sprintf("column %q: %s", s.Column, s.Reason)
	}

	return fmt.Sprintf("row %d column %q: %s (%q)", s.Row, s.Column, s.Reason, s.Value)
}

// Report is the audit trail of one transform: what was kept and, per reason,
// what was dropped. Dropping never fails a transform; the report is how the
// drops stay observable.
type Report struct {
	RowsRead  int
	RowsOut   int
	CellsKept int
	Counts    map[SkipReason]int
	// Samples keeps the first skips verbatim. Empty cells and unknown
	// indicator rows are only counted; they are the bulk of any WDI file.
	Samples        []Skip
	DroppedColumns []string
	// MissingIndicators lists catalog names that produced no column.
	MissingIndicators []string

	sampleLimit int
}

// NewReport creates a report keeping at most sampleLimit samples.
func NewReport(sampleLimit int) *Report {
	if sampleLimit < 0 {
		sampleLimit = 0
	}

	return &Report{
		Counts:      make(map[SkipReason]int),
		sampleLimit: sampleLimit,
	}
}

// Record counts a skip and keeps it as a sample while there is room.
func (r *Report) Record(s Skip) {
	r.Counts[s.Reason]++

	if s.Reason == SkipEmptyValue || s.Reason == SkipUnknownIndicator {
		return
	}

	if len(r.Samples) < r.sampleLimit {
		r.Samples = append(r.Samples, s)
	}
}

// DropColumn records a whole column being discarded.
func (r *Report) DropColumn(name string, reason SkipReason) {
	r.DroppedColumns = append(r.DroppedColumns, name)
	r.Record(Skip{Column: name, Reason: reason})
}

// Skipped returns the total number of recorded skips.
func (r *Report) Skipped() int {
	n := 0
	for _, c := range r.Counts {
		n += c
	}

	return n
}

// Count returns the number of skips recorded for reason.
func (r *Report) Count(reason SkipReason) int {
	return r.Counts[reason]
}

// LogAttrs flattens the report into slog key/value pairs in a stable order.
func (r *Report) LogAttrs() []any {
	attrs := []any{"rows_read", r.RowsRead, "rows_out", r.RowsOut, "cells_kept", r.CellsKept}

	reasons := make([]string, 0, len(r.Counts))
	for reason := range r.Counts {
		reasons = append(reasons, string(reason))
	}

	sort.Strings(reasons)

	for _, reason := range reasons {
		attrs = append(attrs, "skipped_"+reason, r.Counts[SkipReason(reason)])
	}

	if len(r.DroppedColumns) > 0 {
		attrs = append(attrs, "dropped_columns", strings.Join(r.DroppedColumns, ";"))
	}

	if len(r.MissingIndicators) > 0 {
		attrs = append(attrs, "missing_indicators", strings.Join(r.MissingIndicators, ";"))
	}

	return attrs
}
