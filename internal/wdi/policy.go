package wdi

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDuplicateKey is returned under PolicyError when a (country, indicator,
// year) cell has more than one source value.
var ErrDuplicateKey = errors.New("duplicate indicator value")

// ErrUnknownPolicy is returned for an unrecognized policy name.
var ErrUnknownPolicy = errors.New("unknown duplicate policy")

// DuplicatePolicy decides how the pivot resolves several source values for
// the same (country, indicator, year) cell.
type DuplicatePolicy string

// Duplicate policies.
const (
	// PolicyFirst keeps the value from the earliest source row.
	PolicyFirst DuplicatePolicy = "first"
	// PolicyLast keeps the value from the latest source row.
	PolicyLast DuplicatePolicy = "last"
	// PolicyMean averages all values.
	PolicyMean DuplicatePolicy = "mean"
	// PolicyError aborts the extraction.
	PolicyError DuplicatePolicy = "error"
)

// ParseDuplicatePolicy reads a policy name; empty means PolicyFirst.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch p := DuplicatePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyFirst, nil
	case PolicyFirst, PolicyLast, PolicyMean, PolicyError:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q (want first, last, mean or error)", ErrUnknownPolicy, s)
	}
}
