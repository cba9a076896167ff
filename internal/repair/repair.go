// Package repair reconciles archive folders with the index: folders
// whose directory name disagrees with their recorded timestamp are
// relocated, and orphaned folders with readable metadata are adopted
// back into the index.
package repair

import (
	"context"
	"errors"
	"fmt"

	"github.com/webhoard/webhoard/internal/folders"
	"github.com/webhoard/webhoard/internal/index"
	"github.com/webhoard/webhoard/internal/logger"
	"github.com/webhoard/webhoard/internal/snapshot"
)

// IndexStore is the slice of the index the repair engine needs. Orphan
// adoption is the only path by which repair mutates the index.
type IndexStore interface {
	ExistingTimestamps(ctx context.Context) (map[snapshot.Timestamp]struct{}, error)
	ExistingURLs(ctx context.Context) (map[string]struct{}, error)
	Insert(ctx context.Context, snap *snapshot.Snapshot) error
}

// Relocation records a folder rename performed to match its recorded
// timestamp.
type Relocation struct {
	From string
	To   string
}

// Conflict records a repair that could not be performed. The folder is
// left untouched on disk.
type Conflict struct {
	Folder      string
	Destination string
	Reason      string
}

// Result is the outcome of one repair pass.
type Result struct {
	Fixed     []Relocation
	Adopted   []snapshot.Timestamp
	Unfixable []Conflict
}

// Engine performs repair passes over the archive root.
type Engine struct {
	folders *folders.Store
	store   IndexStore
	logger  logger.Interface
}

// New creates a repair engine.
func New(folderStore *folders.Store, store IndexStore, log logger.Interface) *Engine {
	return &Engine{folders: folderStore, store: store, logger: log}
}

// Repair runs both passes: relocation of misnamed folders, then
// adoption of orphaned folders into the index.
func (e *Engine) Repair(ctx context.Context) (*Result, error) {
	names, err := e.folders.List()
	if err != nil {
		return nil, err
	}

	result := &Result{}

	// Pass 1: rename folders whose directory name disagrees with the
	// timestamp recorded in their metadata. An occupied destination is
	// a conflict, never an overwrite.
	located := make(map[string]*snapshot.Snapshot, len(names))
	for _, name := range names {
		meta, metaErr := e.folders.ReadMetadata(name)
		if metaErr != nil {
			// Unreadable folders are the classifier's concern.
			continue
		}

		if meta.Timestamp.Equivalent(snapshot.Timestamp(name)) {
			located[name] = meta
			continue
		}

		dest := string(meta.Timestamp)
		if e.folders.Exists(dest) {
			result.Unfixable = append(result.Unfixable, Conflict{
				Folder:      name,
				Destination: dest,
				Reason:      "destination folder already exists",
			})
			located[name] = meta
			continue
		}

		if renameErr := e.folders.Rename(name, dest); renameErr != nil {
			result.Unfixable = append(result.Unfixable, Conflict{
				Folder:      name,
				Destination: dest,
				Reason:      renameErr.Error(),
			})
			located[name] = meta
			continue
		}

		e.logger.Info("relocated folder", "from", name, "to", dest)
		result.Fixed = append(result.Fixed, Relocation{From: name, To: dest})
		located[dest] = meta
	}

	// Pass 2: synthesize index entries for orphaned folders whose
	// metadata is readable.
	existingTimestamps, err := e.store.ExistingTimestamps(ctx)
	if err != nil {
		return result, err
	}
	existingURLs, err := e.store.ExistingURLs(ctx)
	if err != nil {
		return result, err
	}

	for name, meta := range located {
		if _, indexed := existingTimestamps[meta.Timestamp]; indexed {
			continue
		}
		if _, claimed := existingURLs[meta.URL]; claimed {
			result.Unfixable = append(result.Unfixable, Conflict{
				Folder: name,
				Reason: fmt.Sprintf("url %s already indexed under another timestamp", meta.URL),
			})
			continue
		}

		if insertErr := e.store.Insert(ctx, meta); insertErr != nil {
			if errors.Is(insertErr, index.ErrConflict) {
				result.Unfixable = append(result.Unfixable, Conflict{
					Folder: name,
					Reason: insertErr.Error(),
				})
				continue
			}
			return result, insertErr
		}

		e.logger.Info("adopted orphaned folder", "timestamp", meta.Timestamp, "url", meta.URL)
		result.Adopted = append(result.Adopted, meta.Timestamp)
		existingURLs[meta.URL] = struct{}{}
		existingTimestamps[meta.Timestamp] = struct{}{}
	}

	return result, nil
}
