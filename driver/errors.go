package driver

import (
	"fmt"
	"strings"
)

// DriverError wraps a failure that occurred while the driver was resolving
// paths, reading/writing a file, or consulting the build cache for one
// source -- as opposed to a *parser.SyntaxError, which comes from inside the
// parse of that source's content.
type DriverError struct {
	Path string
	Err  error
}

func (e *DriverError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Err)
}

func (e *DriverError) Unwrap() error { return e.Err }

// MultiError aggregates the failures of a multi-file run, the same role
// SQLCodeParseErrors plays for a multi-file SQL parse.
type MultiError struct {
	Errors []error
}

func (e *MultiError) Error() string {
	var msg strings.Builder
	fmt.Fprintf(&msg, "iheaders: %d file(s) failed:\n", len(e.Errors))
	for _, err := range e.Errors {
		fmt.Fprintf(&msg, "  %s\n", err)
	}
	return msg.String()
}

func (e *MultiError) Unwrap() []error { return e.Errors }
