package wdi

import (
	"fmt"

	"cropdata/internal/models"
)

type countryYear struct {
	code string
	year int
}

// cell accumulates the source values of one (country, indicator, year).
type cell struct {
	sum   float64
	count int
	value float64
}

type pivotRow struct {
	name  string
	code  string
	year  int
	cells []cell
}

// Pivot spreads observations into one row per (country, year) with one cell
// per catalog indicator. Rows appear in the order their key is first seen.
// Only indicators with at least one value become columns, in catalog order,
// and are renamed to their friendly names.
//
// Rows are keyed on country code and year. A country code seen under a second
// name keeps its first name and the conflict is recorded.
func Pivot(obs []Observation, catalog models.Catalog, policy DuplicatePolicy, report *models.Report) (*models.IndicatorTable, error) {
	positions := catalog.Positions()
	index := make(map[countryYear]int)

	var rows []*pivotRow

	for _, o := range obs {
		pos, ok := positions[o.Code]
		if !ok {
			continue
		}

		key := countryYear{code: o.CountryCode, year: o.Year}

		i, seen := index[key]
		if !seen {
			i = len(rows)
			index[key] = i
			rows = append(rows, &pivotRow{
				name:  o.CountryName,
				code:  o.CountryCode,
				year:  o.Year,
				cells: make([]cell, len(catalog)),
			})
		}

		row := rows[i]
		if row.name != o.CountryName {
			report.Record(models.Skip{Row: o.Row, Column: ColCountryName, Reason: models.SkipNameConflict, Value: o.CountryName})
		}

		c := &row.cells[pos]
		if c.count > 0 {
			if policy == PolicyError {
				return nil, fmt.Errorf("%w: %s %s %d (source row %d)",
					ErrDuplicateKey, o.CountryCode, o.Code, o.Year, o.Row)
			}

			report.Record(models.Skip{Row: o.Row, Column: fmt.Sprint(o.Year), Reason: models.SkipDuplicate, Value: models.FormatFloat(o.Value)})
		}

		c.add(o.Value, policy)
	}

	present := make([]bool, len(catalog))

	for _, row := range rows {
		for j, c := range row.cells {
			if c.count > 0 {
				present[j] = true
			}
		}
	}

	out := &models.IndicatorTable{Rows: make([]models.IndicatorRow, 0, len(rows))}

	var cols []int

	for j, ind := range catalog {
		if present[j] {
			cols = append(cols, j)
			out.Indicators = append(out.Indicators, ind.Name)
		} else {
			report.MissingIndicators = append(report.MissingIndicators, ind.Name)
		}
	}

	for _, row := range rows {
		values := make([]models.Value, len(cols))

		for k, j := range cols {
			if c := row.cells[j]; c.count > 0 {
				values[k] = models.Some(c.result(policy))
				report.CellsKept++
			}
		}

		out.Rows = append(out.Rows, models.IndicatorRow{
			CountryName: row.name,
			CountryCode: row.code,
			Year:        row.year,
			Values:      values,
		})
	}

	report.RowsOut = len(out.Rows)

	return out, nil
}

func (c *cell) add(v float64, policy DuplicatePolicy) {
	c.count++
	c.sum += v

	switch {
	case c.count == 1:
		c.value = v
	case policy == PolicyLast:
		c.value = v
	}
}

func (c cell) result(policy DuplicatePolicy) float64 {
	if policy == PolicyMean {
		return c.sum / float64(c.count)
	}

	return c.value
}
