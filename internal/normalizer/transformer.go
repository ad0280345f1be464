package normalizer

import (
	"strconv"
	"strings"

	"cropdata/internal/models"
	"cropdata/internal/table"
)

// Transformer coerces the year and annual-mean columns into a tidy series.
type Transformer struct{}

// NewTransformer creates a new transformer instance.
func NewTransformer() *Transformer {
	return &Transformer{}
}

// Transform keeps rows whose year is an integer and whose anomaly is a finite
// number. "***" and other non-numeric anomalies are the missing marker and
// drop the row. The first row for a year wins.
func (t *Transformer) Transform(raw *table.Table, yearCol, annualCol int, report *models.Report) *models.AnomalyTable {
	out := &models.AnomalyTable{Rows: make([]models.AnomalyRow, 0, raw.Len())}
	seen := make(map[int]struct{}, raw.Len())

	header := raw.Header

	for r := range raw.Rows {
		report.RowsRead++

		yearCell := strings.TrimSpace(raw.Cell(r, yearCol))
		if yearCell == "" {
			report.Record(models.Skip{Row: r + 1, Column: header[yearCol], Reason: models.SkipEmptyValue})

			continue
		}

		year, err := strconv.Atoi(yearCell)
		if err != nil {
			report.Record(models.Skip{Row: r + 1, Column: header[yearCol], Reason: models.SkipMalformedValue, Value: yearCell})

			continue
		}

		cell := raw.Cell(r, annualCol)

		v, err := models.ParseValue(cell)
		if err != nil {
			report.Record(models.Skip{Row: r + 1, Column: header[annualCol], Reason: models.SkipMalformedValue, Value: cell})

			continue
		}

		if !v.Valid {
			report.Record(models.Skip{Row: r + 1, Column: header[annualCol], Reason: models.SkipEmptyValue})

			continue
		}

		if _, dup := seen[year]; dup {
			report.Record(models.Skip{Row: r + 1, Column: header[yearCol], Reason: models.SkipDuplicate, Value: yearCell})

			continue
		}

		seen[year] = struct{}{}

		out.Rows = append(out.Rows, models.AnomalyRow{Year: year, Anomaly: v.Float})
		report.CellsKept++
	}

	report.RowsOut = len(out.Rows)

	return out
}
