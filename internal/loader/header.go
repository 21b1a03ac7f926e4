package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// header is the metadata block at the top of a source document. Unknown keys
// are rejected by both decoders.
type header struct {
	Title   string   `yaml:"title" toml:"title"`
	Date    Date     `yaml:"date" toml:"date"`
	Tags    []string `yaml:"tags" toml:"tags"`
	Slug    string   `yaml:"slug" toml:"slug"`
	Summary string   `yaml:"summary" toml:"summary"`
	Draft   bool     `yaml:"draft" toml:"draft"`
}

// headerFormats lists the accepted delimiters: YAML between "---" lines and
// TOML between "+++" lines.
var headerFormats = []*frontmatter.Format{
	frontmatter.NewFormat("---", "---", unmarshalYAMLStrict),
	frontmatter.NewFormat("+++", "+++", unmarshalTOMLStrict),
}

func unmarshalYAMLStrict(data []byte, v interface{}) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func unmarshalTOMLStrict(data []byte, v interface{}) error {
	return toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields().Decode(v)
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Date is a calendar date. The time of day and zone of the source value are
// dropped; the stored instant is midnight UTC.
type Date struct {
	Time time.Time
}

// ParseDate accepts YYYY-MM-DD and the common date-time layouts.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q, use YYYY-MM-DD or RFC 3339", s)
}

func (d *Date) UnmarshalText(text []byte) error {
	t, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d *Date) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: date must be a scalar", node.Line)
	}
	return d.UnmarshalText([]byte(node.Value))
}

func (d Date) IsZero() bool {
	return d.Time.IsZero()
}
