// Package index derives the chronological and per-tag views of a document
// collection.
package index

import (
	"errors"
	"sort"

	"github.com/Bitlatte/pressroom/internal/model"
	"github.com/Bitlatte/pressroom/internal/slug"
)

// ErrEmptyCollection is matched by every EmptyCollectionError.
var ErrEmptyCollection = errors.New("empty document collection")

// EmptyCollectionError is returned by Build when RequireDocuments is set and
// no documents were supplied.
type EmptyCollectionError struct{}

func (*EmptyCollectionError) Error() string {
	return "content index: no documents found and at least one is required"
}

func (*EmptyCollectionError) Is(target error) bool {
	return target == ErrEmptyCollection
}

// Options controls Build.
type Options struct {
	RequireDocuments bool
}

// ContentIndex is an immutable view over a document collection. Accessors
// return fresh slices; the documents themselves are shared and must be
// treated as read-only.
type ContentIndex struct {
	docs  []*model.Document
	byTag map[string][]*model.Document // keyed by slug.Tag
	label map[string]string
	byID  map[string]*model.Document
	tags  []string
}

// Build orders documents newest first, breaking ties by ascending ID, and
// groups them by tag in that same order. Tags are grouped by slug.Tag, so
// "Python" and "python" form one group labelled with the spelling that sorts
// first. The input slice is not modified.
func Build(documents []*model.Document, opts Options) (*ContentIndex, error) {
	if len(documents) == 0 && opts.RequireDocuments {
		return nil, &EmptyCollectionError{}
	}

	docs := make([]*model.Document, len(documents))
	copy(docs, documents)
	sort.SliceStable(docs, func(i, j int) bool {
		return Less(docs[i], docs[j])
	})

	idx := &ContentIndex{
		docs:  docs,
		byTag: make(map[string][]*model.Document),
		label: make(map[string]string),
		byID:  make(map[string]*model.Document, len(docs)),
	}
	for _, d := range docs {
		idx.byID[d.ID] = d
		grouped := make(map[string]bool, len(d.Tags))
		for _, tag := range d.Tags {
			key := slug.Tag(tag)
			if l, ok := idx.label[key]; !ok || tag < l {
				idx.label[key] = tag
			}
			if grouped[key] {
				continue
			}
			grouped[key] = true
			idx.byTag[key] = append(idx.byTag[key], d)
		}
	}
	for _, l := range idx.label {
		idx.tags = append(idx.tags, l)
	}
	sort.Strings(idx.tags)

	return idx, nil
}

// Less reports whether a sorts before b: later date first, then lower ID.
func Less(a, b *model.Document) bool {
	if !a.Date.Equal(b.Date) {
		return a.Date.After(b.Date)
	}
	return a.ID < b.ID
}

// Documents returns every document, newest first.
func (idx *ContentIndex) Documents() []*model.Document {
	return clone(idx.docs)
}

// Tagged returns the documents bearing tag, or any spelling of it, in index
// order. It returns nil for an unknown tag.
func (idx *ContentIndex) Tagged(tag string) []*model.Document {
	return clone(idx.byTag[slug.Tag(tag)])
}

// Tags returns one label per tag group in lexical order.
func (idx *ContentIndex) Tags() []string {
	out := make([]string, len(idx.tags))
	copy(out, idx.tags)
	return out
}

// Lookup finds a document by ID.
func (idx *ContentIndex) Lookup(id string) (*model.Document, bool) {
	d, ok := idx.byID[id]
	return d, ok
}

func (idx *ContentIndex) Len() int {
	return len(idx.docs)
}

func clone(docs []*model.Document) []*model.Document {
	if docs == nil {
		return nil
	}
	out := make([]*model.Document, len(docs))
	copy(out, docs)
	return out
}
