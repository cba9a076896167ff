// Package status classifies every archive folder and index entry into
// the archive health taxonomy. Classification is read-only, idempotent
// and safe to run while archiving is in flight.
package status

import (
	"fmt"
	"sort"

	"github.com/webhoard/webhoard/internal/snapshot"
)

// Status identifies one classification set.
type Status string

const (
	// Indexed is every snapshot in the index (the baseline set).
	Indexed Status = "indexed"
	// Archived is indexed snapshots with at least one successful
	// non-title extractor output.
	Archived Status = "archived"
	// Unarchived is indexed snapshots with no successful output yet.
	Unarchived Status = "unarchived"
	// Present is every directory that physically exists under the
	// archive root.
	Present Status = "present"
	// Valid is present, indexed folders whose metadata parses and
	// whose recorded timestamp equals the directory name.
	Valid Status = "valid"
	// Duplicate is folders whose metadata claims a URL another folder
	// also claims, or whose names collide after normalization.
	Duplicate Status = "duplicate"
	// Orphaned is present folders with no matching index entry.
	Orphaned Status = "orphaned"
	// Corrupted is present, indexed folders whose metadata is missing,
	// unparsable, or records no successful extractor output.
	Corrupted Status = "corrupted"
	// Unrecognized is present folders matching no known archive shape:
	// no usable metadata, not indexed, yet holding method output files.
	Unrecognized Status = "unrecognized"
	// Invalid is the union of duplicate, orphaned, corrupted and
	// unrecognized.
	Invalid Status = "invalid"
)

// All lists every status in display order.
var All = []Status{
	Indexed, Archived, Unarchived,
	Present, Valid,
	Invalid, Duplicate, Orphaned, Corrupted, Unrecognized,
}

// Parse validates a status name.
func Parse(name string) (Status, error) {
	for _, st := range All {
		if string(st) == name {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", name)
}

// FolderReader is the read-only view of the archive root the classifier
// needs. *folders.Store satisfies it.
type FolderReader interface {
	List() ([]string, error)
	ReadMetadata(name string) (*snapshot.Snapshot, error)
	HasOutputs(name string) bool
}

// NameNormalizer canonicalizes folder names for collision detection.
type NameNormalizer func(name string) string

// Report maps each status to the keys it contains. Snapshot-derived
// sets are keyed by timestamp, folder-derived sets by directory name; a
// key's representative is the best-known snapshot for it (nil when the
// folder has no readable identity).
type Report map[Status]map[string]*snapshot.Snapshot

// Count returns the number of keys in one status set.
func (r Report) Count(st Status) int {
	return len(r[st])
}

// Keys returns the sorted keys of one status set.
func (r Report) Keys(st Status) []string {
	keys := make([]string, 0, len(r[st]))
	for key := range r[st] {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Classify computes the full status report from the complete snapshot
// collection and the archive root. Each folder's metadata is read
// exactly once; the index is never re-queried per folder.
func Classify(snaps []*snapshot.Snapshot, store FolderReader, normalize NameNormalizer) (Report, error) {
	report := make(Report, len(All))
	for _, st := range All {
		report[st] = make(map[string]*snapshot.Snapshot)
	}

	// Index-side sets, keyed by timestamp. The lookup map is keyed by
	// canonical form so a folder named "100.5" matches an index entry
	// recorded as "100.500000".
	indexTimestamps := make(map[string]*snapshot.Snapshot, len(snaps))
	for _, snap := range snaps {
		key := string(snap.Timestamp)
		indexTimestamps[string(snap.Timestamp.Canonical())] = snap
		report[Indexed][key] = snap
		if snap.IsArchived() {
			report[Archived][key] = snap
		} else {
			report[Unarchived][key] = snap
		}
	}

	folderNames, err := store.List()
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}

	// Folder-side sets, keyed by directory name. Metadata is parsed
	// once per folder and reused across all set computations.
	metaByFolder := make(map[string]*snapshot.Snapshot, len(folderNames))
	urlClaims := make(map[string][]string)
	nameClaims := make(map[string][]string)

	for _, name := range folderNames {
		meta, metaErr := store.ReadMetadata(name)
		if metaErr == nil {
			metaByFolder[name] = meta
			urlClaims[meta.URL] = append(urlClaims[meta.URL], name)
		}

		indexed := indexTimestamps[string(snapshot.Timestamp(name).Canonical())]
		representative := meta
		if representative == nil {
			representative = indexed
		}
		report[Present][name] = representative

		if normalize != nil {
			normalized := normalize(name)
			nameClaims[normalized] = append(nameClaims[normalized], name)
		}

		switch {
		case indexed != nil:
			if meta != nil && meta.Timestamp.Equivalent(snapshot.Timestamp(name)) {
				report[Valid][name] = meta
			}
			if meta == nil || !meta.IsArchived() {
				report[Corrupted][name] = representative
			}
		case meta != nil:
			// Readable identity but no index entry: repair can adopt
			// it, so orphaned wins over any other classification.
			report[Orphaned][name] = meta
		case store.HasOutputs(name):
			report[Unrecognized][name] = nil
		default:
			report[Orphaned][name] = nil
		}
	}

	// Duplicates: two distinct folders claiming the same logical
	// identity, by metadata URL or by normalized directory name.
	markDuplicates(report, urlClaims, metaByFolder)
	markDuplicates(report, nameClaims, metaByFolder)

	for _, st := range []Status{Duplicate, Orphaned, Corrupted, Unrecognized} {
		for key, representative := range report[st] {
			report[Invalid][key] = representative
		}
	}

	return report, nil
}

func markDuplicates(report Report, claims map[string][]string, metaByFolder map[string]*snapshot.Snapshot) {
	for _, names := range claims {
		if len(names) < 2 {
			continue
		}
		for _, name := range names {
			report[Duplicate][name] = metaByFolder[name]
		}
	}
}
