package solution

import (
	"errors"
	"fmt"
)

var (
	ErrEmptySolution     = errors.New("no solution descriptor")
	ErrMissingID         = errors.New("missing project id")
	ErrInvalidID         = errors.New("invalid project id")
	ErrDuplicateProject  = errors.New("duplicate project id")
	ErrUnknownDependency = errors.New("unknown dependency")
	ErrUnsupportedFormat = errors.New("unsupported descriptor format")
	ErrSchema            = errors.New("descriptor does not match schema")
)

// LoadError records why a project could not be loaded. It is also used for
// malformed descriptors, in which case ProjectID may be empty.
type LoadError struct {
	ProjectID string
	Cause     error
}

func (e *LoadError) Error() string {
	if e.ProjectID == "" {
		return fmt.Sprintf("load: %v", e.Cause)
	}
	return fmt.Sprintf("load %s: %v", e.ProjectID, e.Cause)
}

func (e *LoadError) Unwrap() error { return e.Cause }
