package render

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/patrickmn/go-cache"

	"github.com/Bitlatte/pressroom/internal/model"
)

const summaryLimit = 200

type cachedSummary struct {
	doc  *model.Document
	text string
}

// summary returns the header summary, or the text of the first paragraph of
// the rendered body cut at a word boundary. Derived summaries are kept per
// document, so each body is converted at most once per Renderer.
func (r *Renderer) summary(doc *model.Document) (string, error) {
	if doc.Summary != "" {
		return doc.Summary, nil
	}
	if text, ok := r.cachedSummary(doc); ok {
		return text, nil
	}
	body, err := r.markdown(doc)
	if err != nil {
		return "", err
	}
	return r.summaryOf(doc, body)
}

// summaryOf derives the summary of doc from its converted body and caches it.
func (r *Renderer) summaryOf(doc *model.Document, body []byte) (string, error) {
	if doc.Summary != "" {
		return doc.Summary, nil
	}
	if text, ok := r.cachedSummary(doc); ok {
		return text, nil
	}

	page, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", &TemplateError{Page: DocumentPath(doc), Reason: "failed to read rendered body", Err: err}
	}
	text := truncate(strings.Join(strings.Fields(page.Find("p").First().Text()), " "), summaryLimit)
	r.summaries.Set(doc.ID, cachedSummary{doc: doc, text: text}, cache.NoExpiration)
	return text, nil
}

// cachedSummary only accepts entries made from the same document value.
func (r *Renderer) cachedSummary(doc *model.Document) (string, bool) {
	v, ok := r.summaries.Get(doc.ID)
	if !ok {
		return "", false
	}
	entry, ok := v.(cachedSummary)
	if !ok || entry.doc != doc {
		return "", false
	}
	return entry.text, true
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)[:limit]
	cut := string(runes)
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:.") + "…"
}
