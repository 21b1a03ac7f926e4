// Package render turns documents and content indexes into HTML pages and an
// RSS feed.
//
// Markdown bodies go through goldmark with GitHub-flavoured extensions.
// Fenced code is emitted as escaped <pre><code> text; nothing in a body is
// ever evaluated, and raw HTML in a body is dropped.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/url"
	"strings"

	"github.com/patrickmn/go-cache"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/Bitlatte/pressroom/internal/index"
	"github.com/Bitlatte/pressroom/internal/model"
	"github.com/Bitlatte/pressroom/internal/slug"
)

//go:embed layouts/*.html
var builtinLayouts embed.FS

const (
	baseLayout   = "base.html"
	singleLayout = "single.html"
	listLayout   = "list.html"
	tagsLayout   = "tags.html"

	dateFormat = "January 2, 2006"
	isoFormat  = "2006-01-02"
)

// Options configures a Renderer.
type Options struct {
	Site model.SiteData
	// Layouts overrides built-in layouts by file name. Files it lacks fall
	// back to the built-in set.
	Layouts   fs.FS
	FeedLimit int
}

// Renderer produces pages. It is safe for concurrent use.
type Renderer struct {
	site      model.SiteData
	basePath  string
	md        goldmark.Markdown
	layouts   map[string]*template.Template
	feedLimit int
	summaries *cache.Cache
}

// New parses the layouts and prepares the Markdown converter.
func New(opts Options) (*Renderer, error) {
	var layouts fs.FS
	sub, err := fs.Sub(builtinLayouts, "layouts")
	if err != nil {
		return nil, fmt.Errorf("failed to open built-in layouts: %w", err)
	}
	layouts = sub
	if opts.Layouts != nil {
		layouts = overlayFS{upper: opts.Layouts, lower: sub}
	}

	base, err := template.New(baseLayout).ParseFS(layouts, baseLayout)
	if err != nil {
		return nil, &TemplateError{Template: baseLayout, Reason: "failed to parse", Err: err}
	}

	r := &Renderer{
		site:      opts.Site,
		basePath:  basePath(opts.Site.BaseURL),
		feedLimit: opts.FeedLimit,
		layouts:   make(map[string]*template.Template, 3),
		summaries: cache.New(cache.NoExpiration, 0),
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(
				parser.WithAutoHeadingID(),
			),
			goldmark.WithRendererOptions(
				gmhtml.WithHardWraps(),
			),
		),
	}

	for _, name := range []string{singleLayout, listLayout, tagsLayout} {
		t, err := base.Clone()
		if err != nil {
			return nil, &TemplateError{Template: name, Reason: "failed to clone base layout", Err: err}
		}
		if _, err := t.ParseFS(layouts, name); err != nil {
			return nil, &TemplateError{Template: name, Reason: "failed to parse", Err: err}
		}
		r.layouts[name] = t
	}

	return r, nil
}

type tagLink struct {
	Name  string
	Label string
	URL   string
	Count int
}

type documentView struct {
	Title   string
	Date    string
	ISODate string
	Tags    []tagLink
	Content template.HTML
}

type listItem struct {
	ID      string
	Title   string
	URL     string
	Date    string
	ISODate string
	Summary string
}

type pageData struct {
	Site     model.SiteData
	Title    string
	Heading  string
	HomeURL  string
	TagsURL  string
	FeedURL  string
	Document *documentView
	Items    []listItem
	Tags     []tagLink
}

// RenderDocument renders the page of a single document.
func (r *Renderer) RenderDocument(doc *model.Document) (*model.RenderedPage, error) {
	if err := checkDocument(doc); err != nil {
		return nil, err
	}

	body, err := r.markdown(doc)
	if err != nil {
		return nil, err
	}
	if _, err := r.summaryOf(doc, body); err != nil {
		return nil, err
	}

	view := &documentView{
		Title:   doc.Title,
		Date:    doc.Date.Format(dateFormat),
		ISODate: doc.Date.Format(isoFormat),
		Content: template.HTML(body),
	}
	for _, tag := range doc.Tags {
		view.Tags = append(view.Tags, r.tagLink(tag, 0))
	}

	data := r.newPageData(doc.Title)
	data.Document = view
	return r.execute(singleLayout, DocumentPath(doc), doc.Title, data)
}

// RenderIndexPage renders the listing of every document, newest first.
func (r *Renderer) RenderIndexPage(idx *index.ContentIndex) (*model.RenderedPage, error) {
	items, err := r.listItems(idx.Documents())
	if err != nil {
		return nil, err
	}
	data := r.newPageData(r.site.Title)
	data.Heading = r.site.Title
	data.Items = items
	return r.execute(listLayout, "index.html", r.site.Title, data)
}

// RenderTagPage renders the listing of the documents carrying tag, in index
// order.
func (r *Renderer) RenderTagPage(tag string, idx *index.ContentIndex) (*model.RenderedPage, error) {
	docs := idx.Tagged(tag)
	if len(docs) == 0 {
		return nil, &TemplateError{Page: TagPath(tag), Template: listLayout, Reason: fmt.Sprintf("unknown tag %q", tag)}
	}
	items, err := r.listItems(docs)
	if err != nil {
		return nil, err
	}

	title := "Tagged " + TagLabel(tag)
	data := r.newPageData(title)
	data.Heading = title
	data.Items = items
	return r.execute(listLayout, TagPath(tag), title, data)
}

// RenderTagsPage renders the list of all tags with their document counts.
func (r *Renderer) RenderTagsPage(idx *index.ContentIndex) (*model.RenderedPage, error) {
	data := r.newPageData("Tags")
	data.Heading = "Tags"
	for _, tag := range idx.Tags() {
		data.Tags = append(data.Tags, r.tagLink(tag, len(idx.Tagged(tag))))
	}
	return r.execute(tagsLayout, "tags/index.html", "Tags", data)
}

// ReservedIDs are the document identifiers whose pages would overwrite
// generated listings.
func ReservedIDs() []string {
	return []string{"tags"}
}

// DocumentPath is the output path of a document page.
func DocumentPath(doc *model.Document) string {
	return doc.ID + "/index.html"
}

// TagPath is the output path of a tag page.
func TagPath(tag string) string {
	return "tags/" + slug.Tag(tag) + "/index.html"
}

// TagLabel is the display form of a tag.
func TagLabel(tag string) string {
	// Casers are stateful; one per call keeps Renderer safe to share.
	return cases.Title(language.English).String(tag)
}

func (r *Renderer) tagLink(tag string, count int) tagLink {
	return tagLink{
		Name:  tag,
		Label: TagLabel(tag),
		URL:   r.url("tags/" + slug.Tag(tag) + "/"),
		Count: count,
	}
}

func (r *Renderer) newPageData(title string) *pageData {
	return &pageData{
		Site:    r.site,
		Title:   title,
		HomeURL: r.url(""),
		TagsURL: r.url("tags/"),
		FeedURL: r.url("feed.xml"),
	}
}

func (r *Renderer) listItems(docs []*model.Document) ([]listItem, error) {
	items := make([]listItem, 0, len(docs))
	for _, doc := range docs {
		if err := checkDocument(doc); err != nil {
			return nil, err
		}
		summary, err := r.summary(doc)
		if err != nil {
			return nil, err
		}
		items = append(items, listItem{
			ID:      doc.ID,
			Title:   doc.Title,
			URL:     r.basePath + doc.Permalink(),
			Date:    doc.Date.Format(dateFormat),
			ISODate: doc.Date.Format(isoFormat),
			Summary: summary,
		})
	}
	return items, nil
}

func (r *Renderer) markdown(doc *model.Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(doc.Body), &buf); err != nil {
		return nil, &TemplateError{Page: DocumentPath(doc), Reason: "failed to convert markdown", Err: err}
	}
	return buf.Bytes(), nil
}

func (r *Renderer) execute(layout, path, title string, data *pageData) (*model.RenderedPage, error) {
	var buf bytes.Buffer
	if err := r.layouts[layout].ExecuteTemplate(&buf, baseLayout, data); err != nil {
		return nil, &TemplateError{Page: path, Template: layout, Reason: "failed to execute", Err: err}
	}
	return &model.RenderedPage{Path: path, Title: title, Content: buf.Bytes()}, nil
}

// url joins rel onto the path of the configured base URL.
func (r *Renderer) url(rel string) string {
	return r.basePath + "/" + rel
}

// absURL is url made absolute when a base URL is configured.
func (r *Renderer) absURL(rel string) string {
	base := strings.TrimSuffix(r.site.BaseURL, "/")
	if base == "" {
		return r.url(rel)
	}
	return base + "/" + rel
}

func basePath(baseURL string) string {
	if baseURL == "" {
		return ""
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	return strings.TrimSuffix(u.Path, "/")
}

func checkDocument(doc *model.Document) error {
	if doc == nil {
		return &TemplateError{Reason: "nil document"}
	}
	page := doc.ID
	var missing []string
	if doc.ID == "" {
		missing = append(missing, "id")
		page = doc.SourcePath
	}
	if strings.TrimSpace(doc.Title) == "" {
		missing = append(missing, "title")
	}
	if doc.Date.IsZero() {
		missing = append(missing, "date")
	}
	if len(missing) > 0 {
		return &TemplateError{Page: page, Reason: "document lacks " + strings.Join(missing, ", ")}
	}
	return nil
}
