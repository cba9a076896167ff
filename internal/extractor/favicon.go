package extractor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
)

// faviconOutputFile stores the site favicon bytes.
const faviconOutputFile = "favicon.ico"

// Favicon downloads the site's /favicon.ico.
type Favicon struct {
	client    *http.Client
	userAgent string
}

// NewFavicon creates the favicon extractor.
func NewFavicon(client *http.Client, userAgent string) *Favicon {
	return &Favicon{client: client, userAgent: userAgent}
}

// Name returns the method name.
func (f *Favicon) Name() string { return "favicon" }

// Run downloads the favicon from the page's origin.
func (f *Favicon) Run(ctx context.Context, rawURL, dir string) Result {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return failure(fmt.Errorf("invalid url %q", rawURL))
	}

	faviconURL := parsed.Scheme + "://" + parsed.Host + "/favicon.ico"
	resp, err := fetch(ctx, f.client, faviconURL, f.userAgent)
	if err != nil {
		return failure(err)
	}
	defer drainAndClose(resp.Body)

	out, err := os.Create(filepath.Join(dir, faviconOutputFile))
	if err != nil {
		return failure(err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return failure(err)
	}
	return success(faviconOutputFile)
}
