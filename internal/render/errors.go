package render

import (
	"fmt"
	"strings"
)

// TemplateError means a page could not be produced. It indicates a bug or a
// broken layout rather than bad input, so builds treat it as fatal.
type TemplateError struct {
	Page     string
	Template string
	Reason   string
	Err      error
}

func (e *TemplateError) Error() string {
	parts := []string{"render"}
	if e.Page != "" {
		parts = append(parts, e.Page)
	}
	if e.Template != "" {
		parts = append(parts, "layout "+e.Template)
	}
	msg := strings.Join(parts, " ") + ": " + e.Reason
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *TemplateError) Unwrap() error {
	return e.Err
}
