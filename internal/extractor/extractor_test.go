package extractor_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/webhoard/webhoard/internal/config"
	"github.com/webhoard/webhoard/internal/extractor"
	"github.com/webhoard/webhoard/internal/snapshot"
)

const testUserAgent = "webhoard-test/1.0"

func testClient() *http.Client {
	return &http.Client{Timeout: 2 * time.Second}
}

func TestTitle_ExtractsAndWrites(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != testUserAgent {
			t.Errorf("User-Agent = %q, want %q", got, testUserAgent)
		}
		fmt.Fprint(w, `<html><head><title>  Example Domain  </title></head><body></body></html>`)
	}))
	defer server.Close()

	dir := t.TempDir()
	result := extractor.NewTitle(testClient(), testUserAgent).Run(t.Context(), server.URL, dir)

	if !result.Succeeded {
		t.Fatalf("title run failed: %v", result.Err)
	}
	if result.Title != "Example Domain" {
		t.Fatalf("Title = %q, want trimmed title", result.Title)
	}

	body, err := os.ReadFile(filepath.Join(dir, result.OutputPath))
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "Example Domain\n" {
		t.Fatalf("title.txt = %q", body)
	}
}

func TestTitle_NoTitleFails(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body>untitled</body></html>`)
	}))
	defer server.Close()

	result := extractor.NewTitle(testClient(), testUserAgent).Run(t.Context(), server.URL, t.TempDir())
	if result.Succeeded {
		t.Fatal("expected failure for page without title")
	}
}

func TestDOM_SavesBody(t *testing.T) {
	t.Parallel()

	const page = `<html><body><p>hello</p></body></html>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, page)
	}))
	defer server.Close()

	dir := t.TempDir()
	result := extractor.NewDOM(testClient(), testUserAgent).Run(t.Context(), server.URL, dir)

	if !result.Succeeded {
		t.Fatalf("dom run failed: %v", result.Err)
	}
	body, err := os.ReadFile(filepath.Join(dir, result.OutputPath))
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != page {
		t.Fatalf("output.html = %q", body)
	}
}

func TestDOM_ServerErrorFails(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer server.Close()

	result := extractor.NewDOM(testClient(), testUserAgent).Run(t.Context(), server.URL, t.TempDir())
	if result.Succeeded {
		t.Fatal("expected failure on 4xx status")
	}
}

func TestHeaders_RecordsStatusAndHeaders(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("method = %s, want HEAD", r.Method)
		}
		w.Header().Set("X-Custom", "value")
	}))
	defer server.Close()

	dir := t.TempDir()
	result := extractor.NewHeaders(testClient(), testUserAgent).Run(t.Context(), server.URL, dir)
	if !result.Succeeded {
		t.Fatalf("headers run failed: %v", result.Err)
	}

	data, err := os.ReadFile(filepath.Join(dir, result.OutputPath))
	if err != nil {
		t.Fatal(err)
	}
	var doc struct {
		URL        string              `json:"url"`
		StatusCode int                 `json:"status_code"`
		Headers    map[string][]string `json:"headers"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("headers.json unparsable: %v", err)
	}
	if doc.StatusCode != http.StatusOK || doc.Headers["X-Custom"][0] != "value" {
		t.Fatalf("headers.json = %+v", doc)
	}
}

func TestDefault_RegistersBuiltins(t *testing.T) {
	t.Parallel()

	cfg := config.ArchiverConfig{MethodTimeout: time.Minute}
	registry := extractor.Default(cfg)

	names := registry.Names()
	want := []string{snapshot.TitleMethod, "favicon", "headers", "dom"}
	if len(names) != len(want) {
		t.Fatalf("Names() = %v, want %v", names, want)
	}
	for i, name := range want {
		if names[i] != name {
			t.Fatalf("Names() = %v, want %v", names, want)
		}
	}

	// Subprocess methods appear only when a binary is configured.
	cfg.WgetBinary = "/usr/bin/wget"
	cfg.MediaBinary = "/usr/bin/yt-dlp"
	registry = extractor.Default(cfg)
	names = registry.Names()
	if len(names) != 6 || names[4] != "wget" || names[5] != "media" {
		t.Fatalf("Names() = %v, want wget and media appended", names)
	}
}

func TestCommand_NoOutputFails(t *testing.T) {
	t.Parallel()

	// "true" exits 0 without producing files, which must not count as
	// a successful capture.
	result := extractor.NewMedia("true").Run(t.Context(), "https://example.com", t.TempDir())
	if result.Succeeded {
		t.Fatal("empty output directory must fail the method")
	}
}

func TestRegistry_RejectsDuplicates(t *testing.T) {
	t.Parallel()

	registry := extractor.NewRegistry()
	first := extractor.NewDOM(testClient(), "")
	if err := registry.Register(first); err != nil {
		t.Fatal(err)
	}
	if err := registry.Register(extractor.NewDOM(testClient(), "")); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
}
