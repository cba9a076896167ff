package extractor

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// domOutputFile stores the raw page HTML.
const domOutputFile = "output.html"

// DOM saves the raw HTML body of the page.
type DOM struct {
	client    *http.Client
	userAgent string
}

// NewDOM creates the DOM extractor.
func NewDOM(client *http.Client, userAgent string) *DOM {
	return &DOM{client: client, userAgent: userAgent}
}

// Name returns the method name.
func (d *DOM) Name() string { return "dom" }

// Run fetches the page and writes its body to output.html.
func (d *DOM) Run(ctx context.Context, rawURL, dir string) Result {
	resp, err := fetch(ctx, d.client, rawURL, d.userAgent)
	if err != nil {
		return failure(err)
	}
	defer drainAndClose(resp.Body)

	out, err := os.Create(filepath.Join(dir, domOutputFile))
	if err != nil {
		return failure(err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return failure(err)
	}
	return success(domOutputFile)
}
