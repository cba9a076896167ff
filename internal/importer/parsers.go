package importer

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

// urlPattern matches http(s) URLs embedded in arbitrary text.
var urlPattern = regexp.MustCompile(`https?://[^\s<>"']+`)

// ParseURLs extracts archivable URLs from raw input, auto-detecting the
// format: RSS/Atom feeds, HTML (including Netscape bookmark exports),
// JSON URL lists, or plain text. Discovery order is preserved and
// within-input duplicates are dropped.
func ParseURLs(raw string) []string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}

	var candidates []string
	switch {
	case looksLikeFeed(trimmed):
		candidates = parseFeedURLs(trimmed)
	case looksLikeJSON(trimmed):
		candidates = parseJSONURLs(trimmed)
	case looksLikeHTML(trimmed):
		candidates = parseHTMLURLs(trimmed)
	default:
		candidates = urlPattern.FindAllString(trimmed, -1)
	}

	return dedupeValid(candidates)
}

func looksLikeFeed(raw string) bool {
	head := raw
	if len(head) > 512 {
		head = head[:512]
	}
	return strings.Contains(head, "<rss") ||
		strings.Contains(head, "<feed") ||
		strings.Contains(head, "<rdf:RDF")
}

func looksLikeJSON(raw string) bool {
	return strings.HasPrefix(raw, "[") || strings.HasPrefix(raw, "{")
}

func looksLikeHTML(raw string) bool {
	lower := strings.ToLower(raw)
	return strings.HasPrefix(lower, "<!doctype") ||
		strings.Contains(lower, "<html") ||
		strings.Contains(lower, "<a href")
}

// parseFeedURLs extracts item links from an RSS or Atom feed body.
// Entries without a usable link are silently skipped.
func parseFeedURLs(raw string) []string {
	parsed, err := gofeed.NewParser().ParseString(raw)
	if err != nil {
		// Fall back to scraping raw URLs out of the malformed feed.
		return urlPattern.FindAllString(raw, -1)
	}

	urls := make([]string, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		switch {
		case item.Link != "":
			urls = append(urls, item.Link)
		case strings.HasPrefix(item.GUID, "http"):
			urls = append(urls, item.GUID)
		}
	}
	return urls
}

// parseJSONURLs accepts either a plain array of URL strings or an
// array of objects with a "url" field (browser bookmark exports).
func parseJSONURLs(raw string) []string {
	var plain []string
	if err := json.Unmarshal([]byte(raw), &plain); err == nil {
		return plain
	}

	var objects []struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal([]byte(raw), &objects); err == nil {
		urls := make([]string, 0, len(objects))
		for _, obj := range objects {
			if obj.URL != "" {
				urls = append(urls, obj.URL)
			}
		}
		return urls
	}

	return urlPattern.FindAllString(raw, -1)
}

// parseHTMLURLs harvests anchor hrefs from an HTML document. This
// covers Netscape bookmark exports, which are plain <DT><A HREF=...>
// lists.
func parseHTMLURLs(raw string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return urlPattern.FindAllString(raw, -1)
	}

	var urls []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		if href, ok := sel.Attr("href"); ok {
			urls = append(urls, href)
		}
	})
	return urls
}

// dedupeValid keeps only well-formed absolute http(s) URLs, dropping
// repeats while preserving order.
func dedupeValid(candidates []string) []string {
	seen := make(map[string]struct{}, len(candidates))
	urls := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		parsed, err := url.Parse(candidate)
		if err != nil || parsed.Host == "" {
			continue
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			continue
		}
		if _, dup := seen[candidate]; dup {
			continue
		}
		seen[candidate] = struct{}{}
		urls = append(urls, candidate)
	}
	return urls
}
