package domain

import (
	"errors"
	"fmt"

	m "gooze.dev/pkg/poison/internal/model"
)

var (
	// ErrUsage is returned when no scan context can be determined: no explicit
	// file was given and no caller frame outside the scanner exists.
	ErrUsage = errors.New("poison must be called from a source file or given an explicit file")

	// ErrViolation is matched by every ViolationError through errors.Is.
	ErrViolation = errors.New("poisoned name found")
)

// ViolationError aborts a traversal at the first forbidden identifier.
type ViolationError struct {
	Violation m.Violation
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("poisoned name %q found in %s on line %d", e.Violation.Name, e.Violation.File, e.Violation.Line)
}

// Is makes errors.Is(err, ErrViolation) hold.
func (e *ViolationError) Is(target error) bool {
	return target == ErrViolation
}
