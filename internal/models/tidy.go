package models

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"cropdata/internal/table"
)

// Column names of the tidy tables.
const (
	ColCountryName = "Country Name"
	ColCountryCode = "Country Code"
	ColYear        = "year"
	ColTempAnomaly = "temp_anomaly"
)

// Columns the sinks add or rename when loading a merged table.
const (
	ColRunID          = "run_id"
	SQLColCountryName = "country_name"
	SQLColCountryCode = "country_code"
)

// Value is a numeric cell that may be missing.
type Value struct {
	Float float64
	Valid bool
}

// Some wraps a present value.
func Some(f float64) Value {
	return Value{Float: f, Valid: true}
}

// Missing is the absent-value sentinel.
var Missing = Value{}

// String renders the value the way it is written to CSV: empty when missing,
// otherwise the shortest decimal that round-trips.
func (v Value) String() string {
	if !v.Valid {
		return ""
	}

	return FormatFloat(v.Float)
}

// FormatFloat renders f without exponent and without trailing zeros.
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ParseValue reads a cell back: "" is missing, anything else must be a finite number.
func ParseValue(s string) (Value, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Missing, nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Missing, err
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Missing, fmt.Errorf("non-finite value %q", s)
	}

	return Some(f), nil
}

// IndicatorRow is one (country, year) observation with a value per indicator
// column of the owning table.
type IndicatorRow struct {
	CountryName string
	CountryCode string
	Year        int
	Values      []Value
}

// IndicatorTable is the tidy output of the extractor.
type IndicatorTable struct {
	// Indicators are the friendly column names, aligned with IndicatorRow.Values.
	Indicators []string
	Rows       []IndicatorRow
}

// Header returns the identifying columns followed by the indicator columns.
func (t *IndicatorTable) Header() []string {
	header := make([]string, 0, 3+len(t.Indicators))
	header = append(header, ColCountryName, ColCountryCode, ColYear)

	return append(header, t.Indicators...)
}

// Table renders the tidy table for serialization.
func (t *IndicatorTable) Table() *table.Table {
	out := table.New(t.Header()...)
	out.Rows = make([][]string, 0, len(t.Rows))

	for _, r := range t.Rows {
		out.Rows = append(out.Rows, r.cells(len(t.Indicators)))
	}

	return out
}

func (r IndicatorRow) cells(width int) []string {
	cells := make([]string, 0, 3+width)
	cells = append(cells, r.CountryName, r.CountryCode, strconv.Itoa(r.Year))

	for i := 0; i < width; i++ {
		v := Missing
		if i < len(r.Values) {
			v = r.Values[i]
		}

		cells = append(cells, v.String())
	}

	return cells
}

// ParseIndicatorTable reads a serialized tidy indicator table. Every column
// after the identifying ones is an indicator column.
func ParseIndicatorTable(t *table.Table) (*IndicatorTable, error) {
	idx, err := t.Indices(ColCountryName, ColCountryCode, ColYear)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	ids := map[int]bool{idx[0]: true, idx[1]: true, idx[2]: true}

	var valueCols []int

	out := &IndicatorTable{}

	for i, h := range t.Header {
		if ids[i] {
			continue
		}

		valueCols = append(valueCols, i)
		out.Indicators = append(out.Indicators, h)
	}

	out.Rows = make([]IndicatorRow, 0, t.Len())

	for r := range t.Rows {
		year, err := strconv.Atoi(strings.TrimSpace(t.Cell(r, idx[2])))
		if err != nil {
			return nil, fmt.Errorf("row %d: year %q: %w", r+1, t.Cell(r, idx[2]), err)
		}

		row := IndicatorRow{
			CountryName: t.Cell(r, idx[0]),
			CountryCode: t.Cell(r, idx[1]),
			Year:        year,
			Values:      make([]Value, len(valueCols)),
		}

		for j, c := range valueCols {
			v, err := ParseValue(t.Cell(r, c))
			if err != nil {
				return nil, fmt.Errorf("row %d: column %q: %w", r+1, t.Header[c], err)
			}

			row.Values[j] = v
		}

		out.Rows = append(out.Rows, row)
	}

	return out, nil
}

// AnomalyRow is one year of the global temperature anomaly series.
type AnomalyRow struct {
	Year    int
	Anomaly float64
}

// AnomalyTable is the tidy output of the anomaly normalizer.
type AnomalyTable struct {
	Rows []AnomalyRow
}

// Table renders the anomaly table for serialization.
func (t *AnomalyTable) Table() *table.Table {
	out := table.New(ColYear, ColTempAnomaly)
	out.Rows = make([][]string, 0, len(t.Rows))

	for _, r := range t.Rows {
		out.Append(strconv.Itoa(r.Year), FormatFloat(r.Anomaly))
	}

	return out
}

// ParseAnomalyTable reads a serialized tidy anomaly table.
func ParseAnomalyTable(t *table.Table) (*AnomalyTable, error) {
	idx, err := t.Indices(ColYear, ColTempAnomaly)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	out := &AnomalyTable{Rows: make([]AnomalyRow, 0, t.Len())}

	for r := range t.Rows {
		year, err := strconv.Atoi(strings.TrimSpace(t.Cell(r, idx[0])))
		if err != nil {
			return nil, fmt.Errorf("row %d: year %q: %w", r+1, t.Cell(r, idx[0]), err)
		}

		v, err := ParseValue(t.Cell(r, idx[1]))
		if err != nil || !v.Valid {
			return nil, fmt.Errorf("row %d: anomaly %q is not a number", r+1, t.Cell(r, idx[1]))
		}

		out.Rows = append(out.Rows, AnomalyRow{Year: year, Anomaly: v.Float})
	}

	return out, nil
}

// MergedRow is an indicator row with the anomaly of its year attached.
type MergedRow struct {
	IndicatorRow
	Anomaly Value
}

// MergedTable is the final analysis-ready dataset.
type MergedTable struct {
	Indicators []string
	Rows       []MergedRow
}

// Header returns the indicator table header followed by temp_anomaly.
func (t *MergedTable) Header() []string {
	ind := IndicatorTable{Indicators: t.Indicators}

	return append(ind.Header(), ColTempAnomaly)
}

// Table renders the merged table for serialization.
func (t *MergedTable) Table() *table.Table {
	out := table.New(t.Header()...)
	out.Rows = make([][]string, 0, len(t.Rows))

	for _, r := range t.Rows {
		out.Rows = append(out.Rows, append(r.cells(len(t.Indicators)), r.Anomaly.String()))
	}

	return out
}

// ParseMergedTable reads a serialized merged table back.
func ParseMergedTable(t *table.Table) (*MergedTable, error) {
	if _, err := t.Index(ColTempAnomaly); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	ind, err := ParseIndicatorTable(t)
	if err != nil {
		return nil, err
	}

	pos := slices.Index(ind.Indicators, ColTempAnomaly)

	out := &MergedTable{
		Indicators: slices.Delete(slices.Clone(ind.Indicators), pos, pos+1),
		Rows:       make([]MergedRow, 0, len(ind.Rows)),
	}

	for _, r := range ind.Rows {
		anomaly := r.Values[pos]
		r.Values = slices.Delete(r.Values, pos, pos+1)

		out.Rows = append(out.Rows, MergedRow{IndicatorRow: r, Anomaly: anomaly})
	}

	return out, nil
}
