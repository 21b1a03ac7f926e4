// Package loader discovers Markdown source documents and parses each one
// into a model.Document.
package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Bitlatte/pressroom/internal/logging"
	"github.com/Bitlatte/pressroom/internal/model"
	"github.com/Bitlatte/pressroom/internal/slug"
)

var utf8BOM = []byte("\ufeff")

// Mode selects what LoadAll does with a document that fails to load.
type Mode int

const (
	// Lenient skips the document and records a Failure.
	Lenient Mode = iota
	// Strict fails the whole batch.
	Strict
)

func (m Mode) String() string {
	if m == Strict {
		return "strict"
	}
	return "lenient"
}

// Options configures a Loader. The zero value is lenient with one worker.
type Options struct {
	Mode    Mode
	Workers int
	Logger  logrus.FieldLogger
	// Reserved lists identifiers owned by generated pages. A document whose
	// identifier equals one of them, or lies beneath it, fails to load.
	Reserved []string
}

// Loader reads documents from a file system rooted at the content directory.
type Loader struct {
	fsys     fs.FS
	mode     Mode
	workers  int
	reserved []string
	log      *logrus.Entry
}

// Result is the outcome of LoadAll. Documents keep the order of the input
// locations.
type Result struct {
	Documents []*model.Document
	Failures  []Failure
}

// New returns a Loader reading from fsys.
func New(fsys fs.FS, opts Options) *Loader {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	return &Loader{
		fsys:     fsys,
		mode:     opts.Mode,
		workers:  workers,
		reserved: opts.Reserved,
		log:      logging.Component(opts.Logger, "loader"),
	}
}

// Discover lists the Markdown files beneath root in lexical order. Files and
// directories whose name starts with a dot are skipped.
func (l *Loader) Discover(root string) ([]string, error) {
	var paths []string
	err := fs.WalkDir(l.fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("error accessing path '%s' during walk: %w", p, err)
		}
		if p != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}
		paths = append(paths, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// Load parses the document at p. The header must carry a title and a date;
// tags default to an empty set. The body is kept verbatim.
func (l *Loader) Load(p string) (*model.Document, error) {
	data, err := fs.ReadFile(l.fsys, p)
	if err != nil {
		return nil, fmt.Errorf("failed to read file '%s': %w", p, err)
	}
	return Parse(p, data)
}

// Parse builds a Document from the raw bytes of the source at p.
func Parse(p string, data []byte) (*model.Document, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	var h header
	body, err := frontmatter.MustParse(bytes.NewReader(data), &h, headerFormats...)
	if err != nil {
		if errors.Is(err, frontmatter.ErrNotFound) {
			return nil, &MalformedDocumentError{Path: p, Reason: "missing metadata header"}
		}
		return nil, &MalformedDocumentError{Path: p, Reason: "unreadable metadata header", Err: err}
	}

	title := strings.TrimSpace(h.Title)
	if title == "" {
		return nil, &MalformedDocumentError{Path: p, Field: "title", Reason: "missing or empty"}
	}
	if h.Date.IsZero() {
		return nil, &MalformedDocumentError{Path: p, Field: "date", Reason: "missing"}
	}

	id := identifier(p, h.Slug)
	if id == "" {
		field := "slug"
		if h.Slug == "" {
			field = "path"
		}
		return nil, &MalformedDocumentError{Path: p, Field: field, Reason: "does not yield a usable identifier"}
	}

	return &model.Document{
		ID:         id,
		Title:      title,
		Date:       h.Date.Time,
		Tags:       normalizeTags(h.Tags),
		Body:       string(body),
		SourcePath: p,
		Summary:    strings.TrimSpace(h.Summary),
		Draft:      h.Draft,
	}, nil
}

// LoadAll loads every location with up to Options.Workers reads in flight.
// Duplicate identifiers are resolved in input order: the first document
// keeps the identifier and later ones fail. Reserved identifiers always fail.
func (l *Loader) LoadAll(ctx context.Context, paths []string) (*Result, error) {
	type outcome struct {
		doc *model.Document
		err error
	}
	outcomes := make([]outcome, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			doc, err := l.Load(p)
			outcomes[i] = outcome{doc: doc, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{Documents: make([]*model.Document, 0, len(paths))}
	owners := make(map[string]string, len(paths))
	for i, o := range outcomes {
		err := o.err
		if err == nil {
			if owner := l.reservedBy(o.doc.ID); owner != "" {
				err = &MalformedDocumentError{
					Path:   paths[i],
					Field:  "id",
					Reason: fmt.Sprintf("identifier %q collides with the generated %q pages", o.doc.ID, owner),
				}
			} else if owner, taken := owners[o.doc.ID]; taken {
				err = &MalformedDocumentError{
					Path:   paths[i],
					Field:  "id",
					Reason: fmt.Sprintf("identifier %q already used by %s", o.doc.ID, owner),
				}
			} else {
				owners[o.doc.ID] = paths[i]
			}
		}

		if err != nil {
			if l.mode == Strict {
				return nil, fmt.Errorf("strict mode: %w", err)
			}
			l.log.WithField("path", paths[i]).WithError(err).Warn("Skipping document")
			result.Failures = append(result.Failures, Failure{Path: paths[i], Err: err})
			continue
		}
		result.Documents = append(result.Documents, o.doc)
	}

	l.log.WithFields(logrus.Fields{
		"loaded":  len(result.Documents),
		"skipped": len(result.Failures),
		"mode":    l.mode.String(),
	}).Debug("Documents loaded")
	return result, nil
}

func (l *Loader) reservedBy(id string) string {
	for _, r := range l.reserved {
		if id == r || strings.HasPrefix(id, r+"/") {
			return r
		}
	}
	return ""
}

func identifier(p, explicit string) string {
	if explicit != "" {
		return slug.Path(explicit)
	}
	id := strings.TrimSuffix(p, path.Ext(p))
	if path.Base(id) == "index" {
		id = path.Dir(id)
	}
	return slug.Path(id)
}

// normalizeTags trims tags, drops blanks and sorts them. Spellings that share
// a grouping key collapse to the one that sorts first.
func normalizeTags(raw []string) []string {
	tags := make([]string, 0, len(raw))
	for _, t := range raw {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	sort.Strings(tags)

	seen := make(map[string]struct{}, len(tags))
	out := tags[:0]
	for _, t := range tags {
		key := slug.Tag(t)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}
