// Package normalizer turns the GISTEMP year-by-month anomaly table into a
// tidy (year, temp_anomaly) series.
package normalizer

import (
	"cropdata/internal/models"
	"cropdata/internal/table"
)

// Processor validates then transforms a raw anomaly table.
type Processor struct {
	validator   *Validator
	transformer *Transformer
	sampleLimit int
}

// NewProcessor creates a processor reading the given annual-mean column
// ("" means J-D).
func NewProcessor(annualColumn string) *Processor {
	return &Processor{
		validator:   NewValidator(annualColumn),
		transformer: NewTransformer(),
		sampleLimit: models.DefaultSampleLimit,
	}
}

// Process returns the tidy anomaly series and the audit of dropped rows.
// Only a missing column is an error.
func (p *Processor) Process(raw *table.Table) (*models.AnomalyTable, *models.Report, error) {
	report := models.NewReport(p.sampleLimit)

	yearCol, annualCol, err := p.validator.Validate(raw)
	if err != nil {
		return nil, report, err
	}

	return p.transformer.Transform(raw, yearCol, annualCol, report), report, nil
}
