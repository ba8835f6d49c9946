package extractor

import (
	"errors"
	"fmt"
)

var ErrUnsupportedLanguage = errors.New("unsupported language")

// ParseError reports a file the front end could not parse.
type ParseError struct {
	Path   string
	Line   int
	Column int
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("parse %s:%d:%d: syntax error", e.Path, e.Line, e.Column)
}

func (e *ParseError) Unwrap() error { return e.Err }
