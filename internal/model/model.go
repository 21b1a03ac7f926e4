package model

import (
	"time"
)

// Document is one parsed article. Documents are created by the loader and
// are read-only for the rest of a build.
type Document struct {
	// ID is unique within a collection. It is the explicit slug when the
	// header names one, otherwise the source path without its extension.
	ID         string
	Title      string
	Date       time.Time
	Tags       []string // sorted, no duplicates
	Body       string   // verbatim, never interpreted by the loader
	SourcePath string
	Summary    string
	Draft      bool
}

// Permalink is the site-relative URL of the document page.
func (d *Document) Permalink() string {
	return "/" + d.ID + "/"
}

// SiteData holds the site-wide values every layout can reach.
type SiteData struct {
	Title   string
	BaseURL string
	Params  map[string]interface{}
}
