// Package importer converts raw input (URL lists, bookmark exports,
// feeds, crawl results) into new index entries, deduplicated against
// the snapshots that already exist.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/webhoard/webhoard/internal/config"
	"github.com/webhoard/webhoard/internal/index"
	"github.com/webhoard/webhoard/internal/logger"
	"github.com/webhoard/webhoard/internal/snapshot"
)

// maxCrawlBody bounds how much of a fetched page is parsed for links
// during depth-1 expansion.
const maxCrawlBody = 5 << 20

// IndexStore is the slice of the index the importer needs.
type IndexStore interface {
	ExistingURLs(ctx context.Context) (map[string]struct{}, error)
	ExistingTimestamps(ctx context.Context) (map[snapshot.Timestamp]struct{}, error)
	Insert(ctx context.Context, snap *snapshot.Snapshot) error
}

// Importer turns raw source input into new snapshots.
type Importer struct {
	sourcesDir string
	store      IndexStore
	client     *http.Client
	userAgent  string
	logger     logger.Interface
}

// New creates an importer that keeps write-ahead copies of raw input
// under sourcesDir.
func New(cfg config.ImporterConfig, sourcesDir string, store IndexStore, log logger.Interface) *Importer {
	return &Importer{
		sourcesDir: sourcesDir,
		store:      store,
		client:     &http.Client{Timeout: cfg.FetchTimeout},
		userAgent:  cfg.UserAgent,
		logger:     log,
	}
}

// ImportFile reads a local file and imports its contents.
func (im *Importer) ImportFile(ctx context.Context, path string, depth int) ([]*snapshot.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read import file: %w", err)
	}
	return im.Import(ctx, string(data), depth)
}

// Import parses raw input into URLs, optionally expands them one crawl
// level, and creates a snapshot for every URL not already indexed. Each
// new snapshot gets a fresh, strictly increasing timestamp. The raw
// input is persisted to the sources directory before any parsing.
func (im *Importer) Import(ctx context.Context, raw string, depth int) ([]*snapshot.Snapshot, error) {
	if depth != 0 && depth != 1 {
		return nil, fmt.Errorf("%w: got %d", ErrDepthUnsupported, depth)
	}

	if err := im.saveSource(raw, "import"); err != nil {
		return nil, err
	}

	discovered := ParseURLs(raw)
	im.logger.Info("parsed import input", "urls", len(discovered), "depth", depth)

	if depth == 1 {
		discovered = append(discovered, im.crawlOneLevel(ctx, discovered)...)
	}

	existingURLs, err := im.store.ExistingURLs(ctx)
	if err != nil {
		return nil, err
	}
	existingTimestamps, err := im.store.ExistingTimestamps(ctx)
	if err != nil {
		return nil, err
	}

	gen := snapshot.NewGenerator(func(ts snapshot.Timestamp) bool {
		_, taken := existingTimestamps[ts]
		return taken
	})

	seen := make(map[string]struct{}, len(discovered))
	var created []*snapshot.Snapshot
	for _, rawURL := range discovered {
		if _, indexed := existingURLs[rawURL]; indexed {
			continue
		}
		if _, dup := seen[rawURL]; dup {
			continue
		}
		seen[rawURL] = struct{}{}

		snap := snapshot.New(rawURL, gen.Next())
		if insertErr := im.store.Insert(ctx, snap); insertErr != nil {
			if errors.Is(insertErr, index.ErrConflict) {
				// Lost a race with a concurrent import of the same URL.
				im.logger.Warn("skipping conflicting url", "url", rawURL)
				continue
			}
			return created, insertErr
		}
		created = append(created, snap)
	}

	im.logger.Info("import finished", "new_snapshots", len(created))
	return created, nil
}

// crawlOneLevel fetches each discovered URL and harvests further links
// from its body. Exactly one level: the harvested links are never
// fetched themselves. Fetch failures skip the page, they do not fail
// the import.
func (im *Importer) crawlOneLevel(ctx context.Context, urls []string) []string {
	var expanded []string
	for _, rawURL := range urls {
		if ctx.Err() != nil {
			break
		}

		body, err := im.fetchPage(ctx, rawURL)
		if err != nil {
			im.logger.Warn("crawl fetch failed", "url", rawURL, "error", err)
			continue
		}

		if err := im.saveSource(body, "crawl-"+sanitizeName(rawURL)); err != nil {
			im.logger.Warn("saving crawl source failed", "url", rawURL, "error", err)
		}
		expanded = append(expanded, ParseURLs(body)...)
	}
	return expanded
}

func (im *Importer) fetchPage(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return "", err
	}
	if im.userAgent != "" {
		req.Header.Set("User-Agent", im.userAgent)
	}

	resp, err := im.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCrawlBody))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// saveSource writes a verbatim copy of raw input into the sources
// directory before it is parsed, so a failed import can be replayed.
func (im *Importer) saveSource(content, label string) error {
	if err := os.MkdirAll(im.sourcesDir, 0o755); err != nil {
		return fmt.Errorf("create sources dir: %w", err)
	}

	name := fmt.Sprintf("%d-%s-%s.txt",
		time.Now().Unix(), label, uuid.NewString()[:8])
	if err := os.WriteFile(filepath.Join(im.sourcesDir, name), []byte(content), 0o644); err != nil {
		return fmt.Errorf("save source copy: %w", err)
	}
	return nil
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// sanitizeName makes a URL safe to embed in a source filename.
func sanitizeName(rawURL string) string {
	name := unsafeNameChars.ReplaceAllString(rawURL, "-")
	if len(name) > 80 {
		name = name[:80]
	}
	return name
}
