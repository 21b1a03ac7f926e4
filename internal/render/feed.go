package render

import (
	"bytes"
	"encoding/xml"
	"strings"
	"time"

	"github.com/Bitlatte/pressroom/internal/index"
	"github.com/Bitlatte/pressroom/internal/model"
)

type rss struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	Items         []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	GUID        string   `xml:"guid"`
	PubDate     string   `xml:"pubDate"`
	Description string   `xml:"description,omitempty"`
	Categories  []string `xml:"category"`
}

// RenderFeed renders an RSS 2.0 feed of the newest documents. The build date
// is the newest publication date so the output depends only on the index.
func (r *Renderer) RenderFeed(idx *index.ContentIndex) (*model.RenderedPage, error) {
	docs := idx.Documents()
	if r.feedLimit > 0 && len(docs) > r.feedLimit {
		docs = docs[:r.feedLimit]
	}

	feed := rss{
		Version: "2.0",
		Channel: rssChannel{
			Title:       r.site.Title,
			Link:        r.absURL(""),
			Description: "Recent posts from " + r.site.Title,
		},
	}
	if len(docs) > 0 {
		feed.Channel.LastBuildDate = docs[0].Date.Format(time.RFC1123Z)
	}

	for _, doc := range docs {
		if err := checkDocument(doc); err != nil {
			return nil, err
		}
		summary, err := r.summary(doc)
		if err != nil {
			return nil, err
		}
		link := r.absURL(strings.TrimPrefix(doc.Permalink(), "/"))
		feed.Channel.Items = append(feed.Channel.Items, rssItem{
			Title:       doc.Title,
			Link:        link,
			GUID:        link,
			PubDate:     doc.Date.Format(time.RFC1123Z),
			Description: summary,
			Categories:  doc.Tags,
		})
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(feed); err != nil {
		return nil, &TemplateError{Page: "feed.xml", Reason: "failed to encode feed", Err: err}
	}
	buf.WriteByte('\n')

	return &model.RenderedPage{Path: "feed.xml", Title: r.site.Title, Content: buf.Bytes()}, nil
}
