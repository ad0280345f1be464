// Package wdi turns the World Bank WDI bulk table (one row per country and
// indicator, one column per year) into a tidy table with one row per country
// and year and one column per requested indicator.
package wdi

import (
	"fmt"

	"cropdata/internal/models"
	"cropdata/internal/table"
)

// Extractor filters, unpivots and pivots a wide WDI table for a fixed catalog.
type Extractor struct {
	catalog     models.Catalog
	policy      DuplicatePolicy
	sampleLimit int
}

// NewExtractor creates an extractor. An empty policy means PolicyFirst.
func NewExtractor(catalog models.Catalog, policy DuplicatePolicy) *Extractor {
	if policy == "" {
		policy = PolicyFirst
	}

	return &Extractor{
		catalog:     catalog,
		policy:      policy,
		sampleLimit: models.DefaultSampleLimit,
	}
}

// Catalog returns the catalog the extractor filters on.
func (e *Extractor) Catalog() models.Catalog {
	return e.catalog
}

// Extract runs filter, unpivot, year filtering, pivot and rename over wide.
// The report is returned even when extraction fails, so callers can log what
// was seen before the failure.
func (e *Extractor) Extract(wide *table.Table) (*models.IndicatorTable, *models.Report, error) {
	report := models.NewReport(e.sampleLimit)

	if err := e.catalog.Validate(); err != nil {
		return nil, report, fmt.Errorf("catalog: %w", err)
	}

	obs, err := Unpivot(wide, e.catalog, report)
	if err != nil {
		return nil, report, err
	}

	tidy, err := Pivot(obs, e.catalog, e.policy, report)
	if err != nil {
		return nil, report, err
	}

	return tidy, report, nil
}
