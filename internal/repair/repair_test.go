package repair_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/webhoard/webhoard/internal/folders"
	"github.com/webhoard/webhoard/internal/index"
	"github.com/webhoard/webhoard/internal/logger"
	"github.com/webhoard/webhoard/internal/repair"
	"github.com/webhoard/webhoard/internal/snapshot"
)

// memIndex is an in-memory stand-in for the index store.
type memIndex struct {
	mu         sync.Mutex
	byURL      map[string]struct{}
	timestamps map[snapshot.Timestamp]struct{}
	inserted   []*snapshot.Snapshot
}

func newMemIndex() *memIndex {
	return &memIndex{
		byURL:      make(map[string]struct{}),
		timestamps: make(map[snapshot.Timestamp]struct{}),
	}
}

func (m *memIndex) add(url string, ts snapshot.Timestamp) {
	m.byURL[url] = struct{}{}
	m.timestamps[ts] = struct{}{}
}

func (m *memIndex) ExistingURLs(context.Context) (map[string]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	urls := make(map[string]struct{}, len(m.byURL))
	for url := range m.byURL {
		urls[url] = struct{}{}
	}
	return urls, nil
}

func (m *memIndex) ExistingTimestamps(context.Context) (map[snapshot.Timestamp]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	timestamps := make(map[snapshot.Timestamp]struct{}, len(m.timestamps))
	for ts := range m.timestamps {
		timestamps[ts] = struct{}{}
	}
	return timestamps, nil
}

func (m *memIndex) Insert(_ context.Context, snap *snapshot.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byURL[snap.URL]; exists {
		return fmt.Errorf("%w: url already indexed", index.ErrConflict)
	}
	m.byURL[snap.URL] = struct{}{}
	m.timestamps[snap.Timestamp] = struct{}{}
	m.inserted = append(m.inserted, snap)
	return nil
}

func newEngine(t *testing.T, store *memIndex) (*repair.Engine, *folders.Store) {
	t.Helper()
	folderStore := folders.NewStore(filepath.Join(t.TempDir(), "archive"))
	if err := folderStore.EnsureRoot(); err != nil {
		t.Fatal(err)
	}
	return repair.New(folderStore, store, logger.NewNoop()), folderStore
}

func writeFolder(t *testing.T, store *folders.Store, name string, snap *snapshot.Snapshot) {
	t.Helper()
	dir := store.Dir(name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := store.WriteMetadata(dir, snap); err != nil {
		t.Fatal(err)
	}
}

func archivedSnap(url string, ts snapshot.Timestamp) *snapshot.Snapshot {
	snap := snapshot.New(url, ts)
	snap.SetResult("dom", snapshot.ExtractorResult{Succeeded: true, OutputPath: "output.html"})
	return snap
}

func TestRepair_RelocatesMisnamedFolder(t *testing.T) {
	t.Parallel()

	store := newMemIndex()
	store.add("https://example.com", "100.0")
	engine, folderStore := newEngine(t, store)

	// Folder name drifted from the recorded timestamp.
	writeFolder(t, folderStore, "100.5", archivedSnap("https://example.com", "100.0"))

	result, err := engine.Repair(context.Background())
	if err != nil {
		t.Fatalf("Repair() error = %v", err)
	}

	if len(result.Fixed) != 1 || result.Fixed[0].From != "100.5" || result.Fixed[0].To != "100.0" {
		t.Fatalf("Fixed = %+v, want 100.5 -> 100.0", result.Fixed)
	}
	if folderStore.Exists("100.5") || !folderStore.Exists("100.0") {
		t.Fatal("folder was not moved on disk")
	}
}

func TestRepair_OccupiedDestinationIsConflict(t *testing.T) {
	t.Parallel()

	store := newMemIndex()
	store.add("https://a.example.com", "100.0")
	engine, folderStore := newEngine(t, store)

	writeFolder(t, folderStore, "100.0", archivedSnap("https://a.example.com", "100.0"))
	// Second folder claims the same timestamp under a different name.
	writeFolder(t, folderStore, "100.0-copy", archivedSnap("https://b.example.com", "100.0"))

	result, err := engine.Repair(context.Background())
	if err != nil {
		t.Fatalf("Repair() error = %v", err)
	}

	if len(result.Fixed) != 0 {
		t.Fatalf("nothing should be renamed, got %+v", result.Fixed)
	}
	if len(result.Unfixable) != 1 || result.Unfixable[0].Folder != "100.0-copy" {
		t.Fatalf("Unfixable = %+v, want the copy reported", result.Unfixable)
	}
	// Both folders untouched.
	if !folderStore.Exists("100.0") || !folderStore.Exists("100.0-copy") {
		t.Fatal("conflicting folders must be left in place")
	}
}

func TestRepair_AdoptsOrphan(t *testing.T) {
	t.Parallel()

	store := newMemIndex()
	engine, folderStore := newEngine(t, store)

	orphan := archivedSnap("https://orphan.example.com", "200.0")
	writeFolder(t, folderStore, "200.0", orphan)

	result, err := engine.Repair(context.Background())
	if err != nil {
		t.Fatalf("Repair() error = %v", err)
	}

	if len(result.Adopted) != 1 || result.Adopted[0] != "200.0" {
		t.Fatalf("Adopted = %v, want [200.0]", result.Adopted)
	}
	if len(store.inserted) != 1 || store.inserted[0].URL != orphan.URL {
		t.Fatalf("inserted = %+v, want the orphan metadata", store.inserted)
	}
}

func TestRepair_OrphanWithClaimedURLIsConflict(t *testing.T) {
	t.Parallel()

	store := newMemIndex()
	store.add("https://example.com", "100.0")
	engine, folderStore := newEngine(t, store)

	writeFolder(t, folderStore, "100.0", archivedSnap("https://example.com", "100.0"))
	// An orphan claiming a URL the index already has elsewhere.
	writeFolder(t, folderStore, "300.0", archivedSnap("https://example.com", "300.0"))

	result, err := engine.Repair(context.Background())
	if err != nil {
		t.Fatalf("Repair() error = %v", err)
	}

	if len(result.Adopted) != 0 {
		t.Fatalf("conflicting orphan must not be adopted: %v", result.Adopted)
	}
	if len(result.Unfixable) != 1 || result.Unfixable[0].Folder != "300.0" {
		t.Fatalf("Unfixable = %+v", result.Unfixable)
	}
}

func TestRepair_RelocateThenAdopt(t *testing.T) {
	t.Parallel()

	// A misnamed orphan is first renamed, then adopted under its
	// recorded timestamp.
	store := newMemIndex()
	engine, folderStore := newEngine(t, store)

	writeFolder(t, folderStore, "misnamed", archivedSnap("https://example.com", "400.0"))

	result, err := engine.Repair(context.Background())
	if err != nil {
		t.Fatalf("Repair() error = %v", err)
	}

	if len(result.Fixed) != 1 || result.Fixed[0].To != "400.0" {
		t.Fatalf("Fixed = %+v", result.Fixed)
	}
	if len(result.Adopted) != 1 || result.Adopted[0] != "400.0" {
		t.Fatalf("Adopted = %v", result.Adopted)
	}
	if !folderStore.Exists("400.0") {
		t.Fatal("folder should live under its recorded timestamp")
	}
}

func TestRepair_IgnoresUnreadableFolders(t *testing.T) {
	t.Parallel()

	store := newMemIndex()
	engine, folderStore := newEngine(t, store)

	// No metadata at all: the classifier's concern, not repair's.
	if err := os.MkdirAll(folderStore.Dir("junk"), 0o755); err != nil {
		t.Fatal(err)
	}

	result, err := engine.Repair(context.Background())
	if err != nil {
		t.Fatalf("Repair() error = %v", err)
	}
	if len(result.Fixed)+len(result.Adopted)+len(result.Unfixable) != 0 {
		t.Fatalf("unreadable folder should be untouched: %+v", result)
	}
	if !folderStore.Exists("junk") {
		t.Fatal("repair must never delete folders")
	}
}
