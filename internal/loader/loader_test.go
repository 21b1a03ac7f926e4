package loader

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bitlatte/pressroom/internal/logging"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestLoader(files fstest.MapFS, mode Mode) *Loader {
	return New(files, Options{Mode: mode, Workers: 3, Logger: logging.Discard()})
}

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		source    string
		wantID    string
		wantTitle string
		wantDate  time.Time
		wantTags  []string
		wantBody  string
		wantField string // set when a MalformedDocumentError is expected
		wantErr   string
	}{
		{
			name: "yaml header",
			path: "posts/gunicorn-timeouts.md",
			source: "---\ntitle: Gunicorn worker timeouts\ndate: 2024-09-21\ntags: [python, gunicorn]\n---\n" +
				"Body text.\n",
			wantID:    "posts/gunicorn-timeouts",
			wantTitle: "Gunicorn worker timeouts",
			wantDate:  date(2024, time.September, 21),
			wantTags:  []string{"gunicorn", "python"},
			wantBody:  "Body text.\n",
		},
		{
			name: "toml header",
			path: "posts/asgi.md",
			source: "+++\ntitle = \"ASGI frameworks\"\ndate = 2024-10-12\ntags = [\"python\", \"asgi\"]\n+++\n" +
				"Body.\n",
			wantID:    "posts/asgi",
			wantTitle: "ASGI frameworks",
			wantDate:  date(2024, time.October, 12),
			wantTags:  []string{"asgi", "python"},
			wantBody:  "Body.\n",
		},
		{
			name:      "quoted rfc3339 date keeps calendar day",
			path:      "posts/mro.md",
			source:    "---\ntitle: MRO\ndate: \"2024-11-20T23:30:00-05:00\"\n---\n",
			wantID:    "posts/mro",
			wantTitle: "MRO",
			wantDate:  date(2024, time.November, 20),
			wantTags:  []string{},
		},
		{
			name:      "byte order mark before header",
			path:      "a.md",
			source:    "\ufeff---\ntitle: A\ndate: 2024-01-01\n---\nBody\n",
			wantID:    "a",
			wantTitle: "A",
			wantDate:  date(2024, time.January, 1),
			wantTags:  []string{},
		},
		{
			name:      "explicit slug wins over path",
			path:      "posts/2024/metaclasses.md",
			source:    "---\ntitle: Metaclasses\ndate: 2024-01-02\nslug: python/Metaclasses Explained\n---\n",
			wantID:    "python/metaclasses-explained",
			wantTitle: "Metaclasses",
			wantDate:  date(2024, time.January, 2),
			wantTags:  []string{},
		},
		{
			name:      "index file takes the directory name",
			path:      "posts/type-hints/index.md",
			source:    "---\ntitle: Type hints\ndate: 2024-03-04\n---\n",
			wantID:    "posts/type-hints",
			wantTitle: "Type hints",
			wantDate:  date(2024, time.March, 4),
			wantTags:  []string{},
		},
		{
			name:      "duplicate and blank tags collapse",
			path:      "a.md",
			source:    "---\ntitle: A\ndate: 2024-01-01\ntags: [python, ' python ', '', asyncio]\n---\n",
			wantID:    "a",
			wantTitle: "A",
			wantDate:  date(2024, time.January, 1),
			wantTags:  []string{"asyncio", "python"},
		},
		{
			name:      "tags differing only in case collapse",
			path:      "a.md",
			source:    "---\ntitle: A\ndate: 2024-01-01\ntags: [python, Python, asyncio]\n---\n",
			wantID:    "a",
			wantTitle: "A",
			wantDate:  date(2024, time.January, 1),
			wantTags:  []string{"Python", "asyncio"},
		},
		{
			name:      "empty tag list is not an error",
			path:      "a.md",
			source:    "---\ntitle: A\ndate: 2024-01-01\ntags: []\n---\n",
			wantID:    "a",
			wantTitle: "A",
			wantDate:  date(2024, time.January, 1),
			wantTags:  []string{},
		},
		{
			name: "code blocks stay verbatim",
			path: "a.md",
			source: "---\ntitle: A\ndate: 2024-01-01\n---\n" +
				"```python\nimport os; os.system('rm -rf /')\n```\n",
			wantID:    "a",
			wantTitle: "A",
			wantDate:  date(2024, time.January, 1),
			wantTags:  []string{},
			wantBody:  "```python\nimport os; os.system('rm -rf /')\n```\n",
		},
		{
			name:      "missing title",
			path:      "a.md",
			source:    "---\ndate: 2024-01-01\n---\n",
			wantField: "title",
		},
		{
			name:      "blank title",
			path:      "a.md",
			source:    "---\ntitle: '   '\ndate: 2024-01-01\n---\n",
			wantField: "title",
		},
		{
			name:      "missing date",
			path:      "a.md",
			source:    "---\ntitle: A\n---\n",
			wantField: "date",
		},
		{
			name:    "impossible date",
			path:    "a.md",
			source:  "---\ntitle: A\ndate: 2024-02-30\n---\n",
			wantErr: "unrecognised date",
		},
		{
			name:    "unknown field",
			path:    "a.md",
			source:  "---\ntitle: A\ndate: 2024-01-01\nauthor: someone\n---\n",
			wantErr: "author",
		},
		{
			name:    "no header",
			path:    "a.md",
			source:  "# Just markdown\n",
			wantErr: "missing metadata header",
		},
		{
			name:      "path without usable identifier",
			path:      "index.md",
			source:    "---\ntitle: Home\ndate: 2024-01-01\n---\n",
			wantField: "path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse(tt.path, []byte(tt.source))

			if tt.wantField != "" || tt.wantErr != "" {
				require.Error(t, err)
				assert.Nil(t, doc)

				var malformed *MalformedDocumentError
				require.True(t, errors.As(err, &malformed), "want MalformedDocumentError, got %T", err)
				assert.Equal(t, tt.path, malformed.Path)
				if tt.wantField != "" {
					assert.Equal(t, tt.wantField, malformed.Field)
				}
				if tt.wantErr != "" {
					assert.Contains(t, err.Error(), tt.wantErr)
				}
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantID, doc.ID)
			assert.Equal(t, tt.wantTitle, doc.Title)
			assert.True(t, tt.wantDate.Equal(doc.Date), "date %s, want %s", doc.Date, tt.wantDate)
			assert.Equal(t, tt.wantTags, doc.Tags)
			assert.Equal(t, tt.path, doc.SourcePath)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, doc.Body)
			}
		})
	}
}

func TestParseOptionalFields(t *testing.T) {
	doc, err := Parse("a.md", []byte("---\ntitle: A\ndate: 2024-01-01\nsummary: ' short '\ndraft: true\n---\nx\n"))
	require.NoError(t, err)
	assert.Equal(t, "short", doc.Summary)
	assert.True(t, doc.Draft)
}

func TestDiscover(t *testing.T) {
	files := fstest.MapFS{
		"posts/b.md":          {Data: []byte("b")},
		"posts/a.MD":          {Data: []byte("a")},
		"posts/notes.txt":     {Data: []byte("n")},
		"posts/.hidden.md":    {Data: []byte("h")},
		".drafts/secret.md":   {Data: []byte("s")},
		"about.md":            {Data: []byte("about")},
		"posts/deep/inner.md": {Data: []byte("i")},
	}

	paths, err := newTestLoader(files, Lenient).Discover(".")
	require.NoError(t, err)
	assert.Equal(t, []string{"about.md", "posts/a.MD", "posts/b.md", "posts/deep/inner.md"}, paths)
}

func TestDiscoverMissingRoot(t *testing.T) {
	_, err := newTestLoader(fstest.MapFS{}, Lenient).Discover("content")
	assert.Error(t, err)
}

func fiveDocuments() (fstest.MapFS, []string) {
	files := fstest.MapFS{
		"a.md": {Data: []byte("---\ntitle: A\ndate: 2024-09-21\n---\n")},
		"b.md": {Data: []byte("---\ntitle: B\ndate: 2024-10-12\n---\n")},
		"c.md": {Data: []byte("---\ntitle: C\n---\n")},
		"d.md": {Data: []byte("---\ntitle: D\ndate: 2024-11-20\n---\n")},
		"e.md": {Data: []byte("---\ntitle: E\ndate: 2024-12-01\n---\n")},
	}
	return files, []string{"a.md", "b.md", "c.md", "d.md", "e.md"}
}

func TestLoadAllLenient(t *testing.T) {
	files, paths := fiveDocuments()

	result, err := newTestLoader(files, Lenient).LoadAll(context.Background(), paths)
	require.NoError(t, err)

	require.Len(t, result.Documents, 4)
	ids := make([]string, 0, len(result.Documents))
	for _, d := range result.Documents {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{"a", "b", "d", "e"}, ids)

	require.Len(t, result.Failures, 1)
	assert.Equal(t, "c.md", result.Failures[0].Path)
	var malformed *MalformedDocumentError
	require.True(t, errors.As(result.Failures[0].Err, &malformed))
	assert.Equal(t, "date", malformed.Field)
}

func TestLoadAllStrict(t *testing.T) {
	files, paths := fiveDocuments()

	result, err := newTestLoader(files, Strict).LoadAll(context.Background(), paths)
	require.Error(t, err)
	assert.Nil(t, result)

	var malformed *MalformedDocumentError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, "c.md", malformed.Path)
}

func TestLoadAllUnreadable(t *testing.T) {
	files, paths := fiveDocuments()
	paths = append(paths, "missing.md")

	result, err := newTestLoader(files, Lenient).LoadAll(context.Background(), paths)
	require.NoError(t, err)
	assert.Len(t, result.Documents, 4)
	require.Len(t, result.Failures, 2)
	assert.Equal(t, "missing.md", result.Failures[1].Path)
}

func TestLoadAllDuplicateIdentifier(t *testing.T) {
	files := fstest.MapFS{
		"a.md": {Data: []byte("---\ntitle: A\ndate: 2024-01-01\nslug: shared\n---\n")},
		"b.md": {Data: []byte("---\ntitle: B\ndate: 2024-01-02\nslug: shared\n---\n")},
		"c.md": {Data: []byte("---\ntitle: C\ndate: 2024-01-03\n---\n")},
	}
	paths := []string{"a.md", "b.md", "c.md"}

	result, err := newTestLoader(files, Lenient).LoadAll(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, result.Documents, 2)
	assert.Equal(t, "a.md", result.Documents[0].SourcePath)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "b.md", result.Failures[0].Path)
	assert.Contains(t, result.Failures[0].Error(), "already used by a.md")

	_, err = newTestLoader(files, Strict).LoadAll(context.Background(), paths)
	assert.Error(t, err)
}

func TestLoadAllReservedIdentifier(t *testing.T) {
	files := fstest.MapFS{
		"tags.md":        {Data: []byte("---\ntitle: Tags explained\ndate: 2024-01-01\n---\n")},
		"tags/python.md": {Data: []byte("---\ntitle: Python\ndate: 2024-01-02\n---\n")},
		"tagsoup.md":     {Data: []byte("---\ntitle: Soup\ndate: 2024-01-03\n---\n")},
		"a.md":           {Data: []byte("---\ntitle: A\ndate: 2024-01-04\nslug: Tags/Index\n---\n")},
	}
	paths := []string{"a.md", "tags.md", "tags/python.md", "tagsoup.md"}
	opts := Options{Workers: 2, Logger: logging.Discard(), Reserved: []string{"tags"}}

	result, err := New(files, opts).LoadAll(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, result.Documents, 1)
	assert.Equal(t, "tagsoup", result.Documents[0].ID)

	var failed []string
	for _, f := range result.Failures {
		failed = append(failed, f.Path)
		var malformed *MalformedDocumentError
		require.True(t, errors.As(f.Err, &malformed))
		assert.Equal(t, "id", malformed.Field)
	}
	assert.Equal(t, []string{"a.md", "tags.md", "tags/python.md"}, failed)

	opts.Mode = Strict
	_, err = New(files, opts).LoadAll(context.Background(), paths)
	assert.ErrorContains(t, err, `generated "tags" pages`)
}

func TestLoadAllCancelled(t *testing.T) {
	files, paths := fiveDocuments()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := newTestLoader(files, Lenient).LoadAll(ctx, paths)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result)
}

func TestLoadAllEmpty(t *testing.T) {
	result, err := newTestLoader(fstest.MapFS{}, Strict).LoadAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, result.Documents)
	assert.Empty(t, result.Failures)
}
