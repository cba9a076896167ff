package folders_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/webhoard/webhoard/internal/folders"
	"github.com/webhoard/webhoard/internal/snapshot"
)

func newStore(t *testing.T) *folders.Store {
	t.Helper()
	return folders.NewStore(filepath.Join(t.TempDir(), "archive"))
}

func mkFolder(t *testing.T, store *folders.Store, name string) string {
	t.Helper()
	dir := store.Dir(name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create folder: %v", err)
	}
	return dir
}

func TestList_MissingRootIsEmpty(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	names, err := store.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(names) != 0 {
		t.Fatalf("expected empty archive, got %v", names)
	}
}

func TestList_IgnoresPlainFiles(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	if err := store.EnsureRoot(); err != nil {
		t.Fatal(err)
	}
	mkFolder(t, store, "100.0")
	if err := os.WriteFile(filepath.Join(store.Root(), "stray.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	names, err := store.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(names) != 1 || names[0] != "100.0" {
		t.Fatalf("List() = %v, want [100.0]", names)
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	dir := mkFolder(t, store, "100.0")

	snap := snapshot.New("https://example.com", "100.0")
	snap.Title = "Example"
	snap.SetResult("dom", snapshot.ExtractorResult{Succeeded: true, OutputPath: "output.html"})

	if err := store.WriteMetadata(dir, snap); err != nil {
		t.Fatalf("WriteMetadata() error = %v", err)
	}

	got, err := store.ReadMetadata("100.0")
	if err != nil {
		t.Fatalf("ReadMetadata() error = %v", err)
	}
	if got.URL != snap.URL || got.Timestamp != snap.Timestamp || got.Title != snap.Title {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if !got.IsArchived() {
		t.Fatal("expected archived after round trip")
	}
}

func TestReadMetadata_Missing(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	mkFolder(t, store, "100.0")

	_, err := store.ReadMetadata("100.0")
	if !errors.Is(err, folders.ErrNoMetadata) {
		t.Fatalf("expected ErrNoMetadata, got %v", err)
	}
}

func TestReadMetadata_Corrupt(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	dir := mkFolder(t, store, "100.0")

	tests := map[string]string{
		"not json":        "{{{",
		"missing url":     `{"timestamp":"100.0"}`,
		"bad timestamp":   `{"url":"https://example.com","timestamp":"abc"}`,
		"empty timestamp": `{"url":"https://example.com"}`,
	}
	for name, body := range tests {
		if err := os.WriteFile(filepath.Join(dir, folders.MetadataFileName), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := store.ReadMetadata("100.0"); !errors.Is(err, folders.ErrCorruptMetadata) {
			t.Errorf("%s: expected ErrCorruptMetadata, got %v", name, err)
		}
	}
}

func TestHasOutputs(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	dir := mkFolder(t, store, "100.0")

	if store.HasOutputs("100.0") {
		t.Fatal("empty folder should have no outputs")
	}

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if store.HasOutputs("100.0") {
		t.Fatal("unknown file should not count as output")
	}

	if err := os.WriteFile(filepath.Join(dir, "output.html"), []byte("<html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !store.HasOutputs("100.0") {
		t.Fatal("output.html should count as output")
	}
}

func TestRenameAndRemove(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	mkFolder(t, store, "100.5")

	if err := store.Rename("100.5", "100.500000"); err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	if store.Exists("100.5") || !store.Exists("100.500000") {
		t.Fatal("rename did not move the folder")
	}

	if err := store.Remove("100.500000"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if store.Exists("100.500000") {
		t.Fatal("remove left the folder behind")
	}
}

func TestNormalizeName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"100.0", "100.0"},
		{" 100.0 ", "100.0"},
		{"100.0/", "100.0"},
		{"ABC", "abc"},
	}
	for _, tt := range tests {
		if got := folders.NormalizeName(tt.in); got != tt.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
