package model

// Status is the outcome of one top-level traversal.
type Status string

const (
	// StatusClean means the target and everything it imports are clean.
	StatusClean Status = "clean"
	// StatusViolation means a forbidden identifier was found.
	StatusViolation Status = "violation"
	// StatusError means the traversal could not complete.
	StatusError Status = "error"
)

// Report records the result of checking one target.
type Report struct {
	Target    Path       `yaml:"target"`
	Names     []string   `yaml:"names"`
	Status    Status     `yaml:"status"`
	Violation *Violation `yaml:"violation,omitempty"`
	Files     []File     `yaml:"files,omitempty"`
	Error     string     `yaml:"error,omitempty"`
}
