package extractor

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/webhoard/webhoard/internal/snapshot"
)

// titleOutputFile stores the extracted title text.
const titleOutputFile = "title.txt"

// Title extracts the page <title>. It updates snapshot metadata only
// and does not count as an archival output.
type Title struct {
	client    *http.Client
	userAgent string
}

// NewTitle creates the title extractor.
func NewTitle(client *http.Client, userAgent string) *Title {
	return &Title{client: client, userAgent: userAgent}
}

// Name returns the method name.
func (t *Title) Name() string { return snapshot.TitleMethod }

// Run fetches the page and records its title text.
func (t *Title) Run(ctx context.Context, rawURL, dir string) Result {
	resp, err := fetch(ctx, t.client, rawURL, t.userAgent)
	if err != nil {
		return failure(err)
	}
	defer drainAndClose(resp.Body)

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return failure(err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		return failure(errors.New("page has no title"))
	}

	if err := os.WriteFile(filepath.Join(dir, titleOutputFile), []byte(title+"\n"), 0o644); err != nil {
		return failure(err)
	}

	result := success(titleOutputFile)
	result.Title = title
	return result
}
