// Package errs holds the error taxonomy shared by the content packages.
// Callers wrap these with context and test with errors.Is.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks startup defects such as a duplicate content id.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound marks an unknown content id or world.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTarget marks a location or argument the host cannot use.
	ErrInvalidTarget = errors.New("invalid target")
	// ErrPatternMismatch marks live blocks that do not match a structure pattern.
	ErrPatternMismatch = errors.New("pattern mismatch")
	// ErrOverlapConflict marks a placement that would share a cell with a live structure.
	ErrOverlapConflict = errors.New("overlap conflict")
	// ErrPersistenceCorruption marks saved data that could not be read back.
	ErrPersistenceCorruption = errors.New("persistence corruption")
)

// ErrUnknownWorld is the ErrNotFound reported for a world id the host does
// not know.
var ErrUnknownWorld = fmt.Errorf("unknown world: %w", ErrNotFound)
