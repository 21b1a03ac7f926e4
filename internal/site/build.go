// Package site runs a full build: load, index, render, publish.
package site

import (
	"context"
	"fmt"
	"io/fs"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/Bitlatte/pressroom/internal/config"
	"github.com/Bitlatte/pressroom/internal/index"
	"github.com/Bitlatte/pressroom/internal/loader"
	"github.com/Bitlatte/pressroom/internal/logging"
	"github.com/Bitlatte/pressroom/internal/model"
	"github.com/Bitlatte/pressroom/internal/render"
)

// Report summarises a successful build.
type Report struct {
	OutputDir string
	Documents int
	Tags      int
	Pages     int
	Drafts    int
	// Failures are the documents skipped in lenient mode.
	Failures []loader.Failure
	Duration time.Duration
}

// Builder builds the site described by a Config. Every call to Build starts
// from the sources on disk; nothing carries over between builds.
type Builder struct {
	cfg    config.Config
	fs     afero.Fs
	logger logrus.FieldLogger
	log    *logrus.Entry
}

func NewBuilder(cfg *config.Config, fs afero.Fs, logger logrus.FieldLogger) *Builder {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Builder{
		cfg:    *cfg,
		fs:     fs,
		logger: logger,
		log:    logging.Component(logger, "site"),
	}
}

// Build runs every stage in order. Cancellation is checked between stages;
// a cancelled or failed build publishes nothing.
func (b *Builder) Build(ctx context.Context) (*Report, error) {
	started := time.Now()
	report := &Report{OutputDir: b.cfg.OutputDir}

	b.log.WithFields(logrus.Fields{
		"contentDir": b.cfg.ContentDir,
		"outputDir":  b.cfg.OutputDir,
		"strict":     b.cfg.Strict,
	}).Info("Starting build")

	docs, err := b.load(ctx, report)
	if err != nil {
		return nil, err
	}
	if err := checkpoint(ctx, "load"); err != nil {
		return nil, err
	}

	idx, err := index.Build(docs, index.Options{RequireDocuments: b.cfg.RequireDocuments})
	if err != nil {
		return nil, &BuildError{Stage: "index", Err: err}
	}
	report.Documents = idx.Len()
	report.Tags = len(idx.Tags())
	if err := checkpoint(ctx, "index"); err != nil {
		return nil, err
	}

	pages, err := b.render(ctx, idx)
	if err != nil {
		return nil, err
	}
	if err := checkpoint(ctx, "render"); err != nil {
		return nil, err
	}

	publisher := NewPublisher(b.fs, b.logger)
	if err := publisher.Publish(b.cfg.OutputDir, b.cfg.StaticDir, pages); err != nil {
		return nil, &BuildError{Stage: "publish", Err: err}
	}

	report.Pages = len(pages)
	report.Duration = time.Since(started)
	b.log.WithFields(logrus.Fields{
		"documents": report.Documents,
		"tags":      report.Tags,
		"pages":     report.Pages,
		"skipped":   len(report.Failures),
		"duration":  report.Duration.String(),
	}).Info("Build completed")
	return report, nil
}

func (b *Builder) load(ctx context.Context, report *Report) ([]*model.Document, error) {
	exists, err := afero.DirExists(b.fs, b.cfg.ContentDir)
	if err != nil {
		return nil, &BuildError{Stage: "discover", Err: err}
	}
	if !exists {
		return nil, &BuildError{
			Stage: "discover",
			Err:   fmt.Errorf("content directory '%s' not found, create it and add your Markdown files", b.cfg.ContentDir),
		}
	}

	mode := loader.Lenient
	if b.cfg.Strict {
		mode = loader.Strict
	}
	l := loader.New(b.sourceFS(b.cfg.ContentDir), loader.Options{
		Mode:     mode,
		Workers:  b.cfg.Workers,
		Logger:   b.logger,
		Reserved: render.ReservedIDs(),
	})

	paths, err := l.Discover(".")
	if err != nil {
		return nil, &BuildError{Stage: "discover", Err: err}
	}
	b.log.WithField("count", len(paths)).Debug("Discovered sources")

	result, err := l.LoadAll(ctx, paths)
	if err != nil {
		return nil, &BuildError{Stage: "load", Err: err}
	}
	report.Failures = result.Failures

	docs := result.Documents
	if !b.cfg.BuildDrafts {
		published := docs[:0:0]
		for _, d := range docs {
			if d.Draft {
				report.Drafts++
				continue
			}
			published = append(published, d)
		}
		docs = published
	}
	return docs, nil
}

func (b *Builder) render(ctx context.Context, idx *index.ContentIndex) ([]*model.RenderedPage, error) {
	opts := render.Options{
		Site: model.SiteData{
			Title:   b.cfg.SiteTitle,
			BaseURL: b.cfg.BaseURL,
			Params:  b.cfg.Params,
		},
		FeedLimit: b.cfg.FeedLimit,
	}
	if b.cfg.LayoutsDir != "" {
		exists, err := afero.DirExists(b.fs, b.cfg.LayoutsDir)
		if err != nil {
			return nil, &BuildError{Stage: "render", Err: err}
		}
		if !exists {
			return nil, &BuildError{Stage: "render", Err: fmt.Errorf("layouts directory '%s' not found", b.cfg.LayoutsDir)}
		}
		opts.Layouts = b.sourceFS(b.cfg.LayoutsDir)
	}

	r, err := render.New(opts)
	if err != nil {
		return nil, &BuildError{Stage: "render", Err: err}
	}

	docs := idx.Documents()
	pages := make([]*model.RenderedPage, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.Workers)
	for i, doc := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			page, err := r.RenderDocument(doc)
			if err != nil {
				return err
			}
			pages[i] = page
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, &BuildError{Stage: "render", Err: err}
	}

	// Listings need the whole index, so they run after the join.
	listings := []func() (*model.RenderedPage, error){
		func() (*model.RenderedPage, error) { return r.RenderIndexPage(idx) },
		func() (*model.RenderedPage, error) { return r.RenderTagsPage(idx) },
		func() (*model.RenderedPage, error) { return r.RenderFeed(idx) },
	}
	for _, tag := range idx.Tags() {
		listings = append(listings, func() (*model.RenderedPage, error) { return r.RenderTagPage(tag, idx) })
	}
	for _, fn := range listings {
		page, err := fn()
		if err != nil {
			return nil, &BuildError{Stage: "render", Err: err}
		}
		pages = append(pages, page)
	}

	return pages, nil
}

// sourceFS exposes dir of the builder's file system as an io/fs tree.
func (b *Builder) sourceFS(dir string) fs.FS {
	return afero.NewIOFS(afero.NewBasePathFs(b.fs, dir))
}

func checkpoint(ctx context.Context, after string) error {
	if err := ctx.Err(); err != nil {
		return &BuildError{Stage: after, Err: fmt.Errorf("cancelled: %w", err)}
	}
	return nil
}
