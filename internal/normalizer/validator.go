package normalizer

import (
	"errors"
	"fmt"

	"cropdata/internal/models"
	"cropdata/internal/table"
)

// Source columns of the GISTEMP table.
const (
	ColYear = "Year"
	// DefaultAnnualColumn is the January-December mean.
	DefaultAnnualColumn = "J-D"
)

// ErrNilTable is returned when there is no table to validate.
var ErrNilTable = errors.New("anomaly table is nil")

// Validator checks that the raw anomaly table carries the two columns the
// transformer reads. Cell contents are not checked here.
type Validator struct {
	annualColumn string
}

// NewValidator creates a validator for the given annual-mean column label.
func NewValidator(annualColumn string) *Validator {
	if annualColumn == "" {
		annualColumn = DefaultAnnualColumn
	}

	return &Validator{annualColumn: annualColumn}
}

// Validate returns the positions of the year and annual-mean columns.
func (v *Validator) Validate(raw *table.Table) (yearCol, annualCol int, err error) {
	if raw == nil {
		return 0, 0, ErrNilTable
	}

	idx, err := raw.Indices(ColYear, v.annualColumn)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %w", models.ErrNotFound, err)
	}

	return idx[0], idx[1], nil
}
