package importer_test

import (
	"reflect"
	"testing"

	"github.com/webhoard/webhoard/internal/importer"
)

func TestParseURLs_PlainText(t *testing.T) {
	t.Parallel()

	raw := `
https://example.com/one
some commentary https://example.com/two trailing text
ftp://example.com/skipped
https://example.com/one
`
	got := importer.ParseURLs(raw)
	want := []string{"https://example.com/one", "https://example.com/two"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseURLs = %v, want %v", got, want)
	}
}

func TestParseURLs_JSONArray(t *testing.T) {
	t.Parallel()

	got := importer.ParseURLs(`["https://example.com/a", "https://example.com/b"]`)
	want := []string{"https://example.com/a", "https://example.com/b"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseURLs = %v, want %v", got, want)
	}
}

func TestParseURLs_JSONObjects(t *testing.T) {
	t.Parallel()

	raw := `[{"url": "https://example.com/a", "title": "A"}, {"url": "https://example.com/b"}]`
	got := importer.ParseURLs(raw)
	want := []string{"https://example.com/a", "https://example.com/b"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseURLs = %v, want %v", got, want)
	}
}

func TestParseURLs_HTMLBookmarks(t *testing.T) {
	t.Parallel()

	raw := `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<DL><p>
  <DT><A HREF="https://example.com/a" ADD_DATE="1712345678">A</A>
  <DT><A HREF="https://example.com/b">B</A>
  <DT><A HREF="/relative">skipped</A>
</DL>`
	got := importer.ParseURLs(raw)
	want := []string{"https://example.com/a", "https://example.com/b"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseURLs = %v, want %v", got, want)
	}
}

func TestParseURLs_RSSFeed(t *testing.T) {
	t.Parallel()

	raw := `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Feed</title>
    <item><title>One</title><link>https://example.com/one</link></item>
    <item><title>Two</title><link>https://example.com/two</link></item>
  </channel>
</rss>`
	got := importer.ParseURLs(raw)
	want := []string{"https://example.com/one", "https://example.com/two"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseURLs = %v, want %v", got, want)
	}
}

func TestParseURLs_AtomFeed(t *testing.T) {
	t.Parallel()

	raw := `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Feed</title>
  <entry><title>One</title><link href="https://example.com/one"/></entry>
</feed>`
	got := importer.ParseURLs(raw)
	want := []string{"https://example.com/one"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseURLs = %v, want %v", got, want)
	}
}

func TestParseURLs_Empty(t *testing.T) {
	t.Parallel()

	if got := importer.ParseURLs("   \n  "); got != nil {
		t.Fatalf("ParseURLs = %v, want nil", got)
	}
}
