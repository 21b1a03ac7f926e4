package model

// RenderedPage is the final output of one document or listing.
type RenderedPage struct {
	// Path is relative to the output root, using forward slashes.
	Path    string
	Title   string
	Content []byte
}
