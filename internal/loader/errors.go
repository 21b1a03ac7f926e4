package loader

import (
	"fmt"
	"strings"
)

// MalformedDocumentError reports a source document whose metadata header is
// absent, incomplete or unparseable.
type MalformedDocumentError struct {
	Path   string
	Field  string // empty when the problem is the header as a whole
	Reason string
	Err    error
}

func (e *MalformedDocumentError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "malformed document %s", e.Path)
	if e.Field != "" {
		fmt.Fprintf(&b, ": %s", e.Field)
	}
	fmt.Fprintf(&b, ": %s", e.Reason)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *MalformedDocumentError) Unwrap() error {
	return e.Err
}

// Failure is a document that was skipped in lenient mode.
type Failure struct {
	Path string
	Err  error
}

func (f Failure) Error() string {
	return f.Err.Error()
}
