package wdi

import (
	"fmt"
	"strconv"
	"strings"

	"cropdata/internal/models"
	"cropdata/internal/table"
)

// Source columns of the WDI data member.
const (
	ColCountryName   = "Country Name"
	ColCountryCode   = "Country Code"
	ColIndicatorCode = "Indicator Code"
	// ColIndicatorName is optional; when present it is an identifying column.
	ColIndicatorName = "Indicator Name"
)

// Observation is one row of the long table: a single indicator value for a
// country and year.
type Observation struct {
	// Row is the 1-based data row of the wide table it came from.
	Row         int
	CountryName string
	CountryCode string
	Code        string
	Year        int
	Value       float64
}

type yearColumn struct {
	index int
	label string
	year  int
}

// ParseYearLabel accepts labels made only of ASCII digits ("1992"). Anything
// else ("n/a", "Unnamed: 68", " 1992", "-5") is not a year.
func ParseYearLabel(label string) (int, bool) {
	if label == "" {
		return 0, false
	}

	for i := 0; i < len(label); i++ {
		if label[i] < '0' || label[i] > '9' {
			return 0, false
		}
	}

	year, err := strconv.Atoi(label)
	if err != nil {
		return 0, false
	}

	return year, true
}

// yearColumns splits every non-identifying column into a year column or a
// dropped column. The decision is per header, so a footnote column is dropped
// once rather than once per row.
func yearColumns(header []string, ids map[int]bool, report *models.Report) []yearColumn {
	var cols []yearColumn

	for i, label := range header {
		if ids[i] {
			continue
		}

		year, ok := ParseYearLabel(label)
		if !ok {
			report.DropColumn(label, models.SkipYearLabel)

			continue
		}

		cols = append(cols, yearColumn{index: i, label: label, year: year})
	}

	return cols
}

// Unpivot filters wide rows to the catalog's codes and turns each year column
// into observations, walking row by row and, within a row, column by column.
// Empty and non-numeric cells are recorded in report and left out.
//
// It fails with models.ErrNotFound when an identifying column is absent or no
// row carries a catalog code.
func Unpivot(wide *table.Table, catalog models.Catalog, report *models.Report) ([]Observation, error) {
	idx, err := wide.Indices(ColCountryName, ColCountryCode, ColIndicatorCode)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrNotFound, err)
	}

	nameCol, codeCol, indCol := idx[0], idx[1], idx[2]

	wanted := catalog.Positions()
	ids := map[int]bool{nameCol: true, codeCol: true, indCol: true}
	if i, err := wide.Index(ColIndicatorName); err == nil {
		ids[i] = true
	}

	years := yearColumns(wide.Header, ids, report)

	report.RowsRead += wide.Len()

	var (
		out       []Observation
		qualified int
	)

	for r := range wide.Rows {
		code := strings.TrimSpace(wide.Cell(r, indCol))
		if _, ok := wanted[code]; !ok {
			report.Record(models.Skip{Row: r + 1, Column: ColIndicatorCode, Reason: models.SkipUnknownIndicator, Value: code})

			continue
		}

		qualified++

		countryName := wide.Cell(r, nameCol)
		countryCode := wide.Cell(r, codeCol)

		for _, yc := range years {
			cell := wide.Cell(r, yc.index)

			v, err := models.ParseValue(cell)
			if err != nil {
				report.Record(models.Skip{Row: r + 1, Column: yc.label, Reason: models.SkipMalformedValue, Value: cell})

				continue
			}

			if !v.Valid {
				report.Record(models.Skip{Row: r + 1, Column: yc.label, Reason: models.SkipEmptyValue})

				continue
			}

			out = append(out, Observation{
				Row:         r + 1,
				CountryName: countryName,
				CountryCode: countryCode,
				Code:        code,
				Year:        yc.year,
				Value:       v.Float,
			})
		}
	}

	if qualified == 0 {
		return nil, fmt.Errorf("%w: none of %d catalog indicators present in %d rows",
			models.ErrNotFound, len(catalog), wide.Len())
	}

	return out, nil
}
