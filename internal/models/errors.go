package models

import "errors"

// Structural errors abort a run. Bad individual cells never surface as errors;
// they are dropped and recorded in a stage report instead.
var (
	// ErrNotFound marks an absent source column, archive member, or an input
	// with no qualifying rows at all.
	ErrNotFound = errors.New("not found")
	// ErrAmbiguousSource marks a selection rule matching more than one archive member.
	ErrAmbiguousSource = errors.New("ambiguous source")
)
