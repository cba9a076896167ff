package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
)

// headersOutputFile stores the response status and header map.
const headersOutputFile = "headers.json"

// Headers records the HTTP response status line and headers.
type Headers struct {
	client    *http.Client
	userAgent string
}

// NewHeaders creates the headers extractor.
func NewHeaders(client *http.Client, userAgent string) *Headers {
	return &Headers{client: client, userAgent: userAgent}
}

// Name returns the method name.
func (h *Headers) Name() string { return "headers" }

type headersDocument struct {
	URL        string      `json:"url"`
	StatusCode int         `json:"status_code"`
	Headers    http.Header `json:"headers"`
}

// Run issues a HEAD request and writes the response headers as JSON.
func (h *Headers) Run(ctx context.Context, rawURL, dir string) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, http.NoBody)
	if err != nil {
		return failure(fmt.Errorf("build request: %w", err))
	}
	if h.userAgent != "" {
		req.Header.Set("User-Agent", h.userAgent)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return failure(fmt.Errorf("head %s: %w", rawURL, err))
	}
	drainAndClose(resp.Body)

	doc := headersDocument{
		URL:        rawURL,
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return failure(err)
	}
	if err := os.WriteFile(filepath.Join(dir, headersOutputFile), data, 0o644); err != nil {
		return failure(err)
	}
	return success(headersOutputFile)
}
