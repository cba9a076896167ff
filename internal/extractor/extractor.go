// Package extractor defines the uniform contract every archive method
// implements and the registry that resolves methods by name. Methods
// are added by registering an implementation, never by branching on
// method names.
package extractor

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// Result is the outcome of one extractor invocation. OutputPath is
// relative to the directory the extractor was given.
type Result struct {
	Succeeded  bool
	OutputPath string
	Err        error
	// Title carries the extracted page title for methods that discover
	// one; the orchestrator copies it onto the snapshot.
	Title string
}

// Extractor is a single archive capability. Run captures the URL into
// dir, honoring ctx for cancellation and timeout; it must not write
// outside dir.
type Extractor interface {
	Name() string
	Run(ctx context.Context, rawURL, dir string) Result
}

func failure(err error) Result {
	return Result{Err: err}
}

func success(outputPath string) Result {
	return Result{Succeeded: true, OutputPath: outputPath}
}

// fetch issues a GET with the configured user agent and returns the
// response. The caller closes the body.
func fetch(ctx context.Context, client *http.Client, rawURL, userAgent string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}
	return resp, nil
}

// drainAndClose discards any unread body so the connection can be
// reused, then closes it.
func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
