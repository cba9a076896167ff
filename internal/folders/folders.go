// Package folders provides read and write access to the on-disk archive
// root, where each snapshot owns one directory named by its timestamp.
package folders

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/webhoard/webhoard/internal/snapshot"
)

// MetadataFileName is the per-folder metadata file describing the
// snapshot the folder claims to represent.
const MetadataFileName = "index.json"

// ErrNoMetadata is returned when a folder has no metadata file.
var ErrNoMetadata = errors.New("folder has no metadata file")

// ErrCorruptMetadata is returned when a folder's metadata file exists
// but cannot be parsed.
var ErrCorruptMetadata = errors.New("folder metadata is unparsable")

// knownOutputNames are file or directory names produced by registered
// extraction methods. A folder containing any of these has a
// recognizable archive shape even without a metadata file.
var knownOutputNames = map[string]bool{
	"title.txt":      true,
	"favicon.ico":    true,
	"headers.json":   true,
	"output.html":    true,
	"output.pdf":     true,
	"screenshot.png": true,
	"wget":           true,
	"media":          true,
	"warc":           true,
}

// Store is a view of the archive root. All methods except WriteMetadata,
// Rename and Remove are read-only.
type Store struct {
	root string
}

// NewStore creates a folder store rooted at the archive directory.
func NewStore(archiveDir string) *Store {
	return &Store{root: archiveDir}
}

// Root returns the archive root directory.
func (s *Store) Root() string {
	return s.root
}

// EnsureRoot creates the archive root if it does not exist.
func (s *Store) EnsureRoot() error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("create archive root: %w", err)
	}
	return nil
}

// Dir returns the absolute path of the folder with the given name.
func (s *Store) Dir(name string) string {
	return filepath.Join(s.root, name)
}

// List enumerates the names of all subdirectories of the archive root.
// A missing root is treated as an empty archive.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list archive root: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// Exists reports whether a folder with the given name is present.
func (s *Store) Exists(name string) bool {
	info, err := os.Stat(s.Dir(name))
	return err == nil && info.IsDir()
}

// ReadMetadata parses the folder's metadata file into a snapshot.
// Returns ErrNoMetadata if the file is absent and ErrCorruptMetadata if
// it cannot be parsed or lacks the required identity fields.
func (s *Store) ReadMetadata(name string) (*snapshot.Snapshot, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir(name), MetadataFileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoMetadata
		}
		return nil, fmt.Errorf("read metadata for %s: %w", name, err)
	}

	var snap snapshot.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCorruptMetadata, name)
	}
	if snap.URL == "" || !snap.Timestamp.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrCorruptMetadata, name)
	}
	return &snap, nil
}

// WriteMetadata writes the snapshot's metadata file into dir atomically
// (write to a temp file, then rename into place).
func (s *Store) WriteMetadata(dir string, snap *snapshot.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	tmp, err := os.CreateTemp(dir, MetadataFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write metadata: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write metadata: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(dir, MetadataFileName)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

// HasOutputs reports whether the folder contains any file or directory
// produced by a known extraction method.
func (s *Store) HasOutputs(name string) bool {
	entries, err := os.ReadDir(s.Dir(name))
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if knownOutputNames[entry.Name()] {
			return true
		}
	}
	return false
}

// Size returns the total byte size of all files under the folder.
func (s *Store) Size(name string) int64 {
	var total int64
	_ = filepath.WalkDir(s.Dir(name), func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, infoErr := d.Info(); infoErr == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}

// Rename moves a folder to a new name within the archive root.
func (s *Store) Rename(oldName, newName string) error {
	if err := os.Rename(s.Dir(oldName), s.Dir(newName)); err != nil {
		return fmt.Errorf("rename folder %s to %s: %w", oldName, newName, err)
	}
	return nil
}

// Remove deletes a folder and everything under it.
func (s *Store) Remove(name string) error {
	if err := os.RemoveAll(s.Dir(name)); err != nil {
		return fmt.Errorf("remove folder %s: %w", name, err)
	}
	return nil
}

// NormalizeName canonicalizes a folder name for collision detection:
// surrounding whitespace and trailing path separators are stripped and
// the name is lowercased.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(name), "/"))
}
