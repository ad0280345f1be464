// Package merger left-joins the tidy indicator table with the anomaly series
// on year.
package merger

import (
	"cropdata/internal/models"
)

// Merge attaches the anomaly of each row's year to every indicator row.
// Output rows match ind one to one and keep its order. A year missing from
// anom leaves the anomaly unset. If anom repeats a year, the first row wins.
func Merge(ind *models.IndicatorTable, anom *models.AnomalyTable) *models.MergedTable {
	byYear := make(map[int]float64)

	if anom != nil {
		for _, r := range anom.Rows {
			if _, ok := byYear[r.Year]; !ok {
				byYear[r.Year] = r.Anomaly
			}
		}
	}

	out := &models.MergedTable{}
	if ind == nil {
		return out
	}

	out.Indicators = append([]string(nil), ind.Indicators...)
	out.Rows = make([]models.MergedRow, 0, len(ind.Rows))

	for _, r := range ind.Rows {
		m := models.MergedRow{IndicatorRow: r, Anomaly: models.Missing}
		if a, ok := byYear[r.Year]; ok {
			m.Anomaly = models.Some(a)
		}

		out.Rows = append(out.Rows, m)
	}

	return out
}

// Coverage counts merged rows with and without an anomaly value.
func Coverage(t *models.MergedTable) (matched, unmatched int) {
	for _, r := range t.Rows {
		if r.Anomaly.Valid {
			matched++
		} else {
			unmatched++
		}
	}

	return matched, unmatched
}
