package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/webhoard/webhoard/internal/snapshot"
)

// snapshotRow mirrors the snapshots table.
type snapshotRow struct {
	Timestamp   string `db:"timestamp"`
	URL         string `db:"url"`
	Title       string `db:"title"`
	Tags        string `db:"tags"`
	NumOutputs  int    `db:"num_outputs"`
	ArchiveSize int64  `db:"archive_size"`
}

// resultRow mirrors the extractor_results table.
type resultRow struct {
	SnapshotTimestamp string    `db:"snapshot_timestamp"`
	Method            string    `db:"method"`
	Succeeded         bool      `db:"succeeded"`
	OutputPath        string    `db:"output_path"`
	Error             string    `db:"error"`
	StartedAt         time.Time `db:"started_at"`
	DurationNS        int64     `db:"duration_ns"`
}

func (r snapshotRow) toSnapshot() *snapshot.Snapshot {
	snap := snapshot.New(r.URL, snapshot.Timestamp(r.Timestamp))
	snap.Title = r.Title
	snap.NumOutputs = r.NumOutputs
	snap.ArchiveSize = r.ArchiveSize
	if r.Tags != "" {
		snap.Tags = strings.Split(r.Tags, ",")
	}
	return snap
}

func (r resultRow) toResult() snapshot.ExtractorResult {
	return snapshot.ExtractorResult{
		Succeeded:  r.Succeeded,
		OutputPath: r.OutputPath,
		Error:      r.Error,
		StartedAt:  r.StartedAt,
		Duration:   time.Duration(r.DurationNS),
	}
}

// isConstraintErr reports whether err is a sqlite uniqueness violation.
func isConstraintErr(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}

// Insert creates a new snapshot record and its extractor results.
// Colliding url or timestamp values return ErrConflict.
func (s *Store) Insert(ctx context.Context, snap *snapshot.Snapshot) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin insert: %v", ErrStore, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO snapshots (timestamp, url, title, tags, num_outputs, archive_size)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		string(snap.Timestamp), snap.URL, snap.Title,
		strings.Join(snap.Tags, ","), snap.NumOutputs, snap.ArchiveSize,
	)
	if err != nil {
		if isConstraintErr(err) {
			return fmt.Errorf("%w: %s (%s)", ErrConflict, snap.URL, snap.Timestamp)
		}
		return fmt.Errorf("%w: insert snapshot: %v", ErrStore, err)
	}

	for method, result := range snap.ExtractorResults {
		if err := upsertResultTx(ctx, tx, snap.Timestamp, method, result); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit insert: %v", ErrStore, err)
	}
	return nil
}

// Delete removes a snapshot record; its extractor results cascade.
func (s *Store) Delete(ctx context.Context, ts snapshot.Timestamp) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE timestamp = ?`, string(ts))
	if err != nil {
		return fmt.Errorf("%w: delete snapshot: %v", ErrStore, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %v", ErrStore, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, ts)
	}
	return nil
}

// All returns every snapshot with its extractor results, ordered by
// ascending timestamp (numeric order, not lexicographic).
func (s *Store) All(ctx context.Context) ([]*snapshot.Snapshot, error) {
	var rows []snapshotRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT timestamp, url, title, tags, num_outputs, archive_size FROM snapshots`)
	if err != nil {
		return nil, fmt.Errorf("%w: list snapshots: %v", ErrStore, err)
	}

	var results []resultRow
	err = s.db.SelectContext(ctx, &results,
		`SELECT snapshot_timestamp, method, succeeded, output_path, error, started_at, duration_ns
		 FROM extractor_results`)
	if err != nil {
		return nil, fmt.Errorf("%w: list extractor results: %v", ErrStore, err)
	}

	byTimestamp := make(map[string]*snapshot.Snapshot, len(rows))
	snaps := make([]*snapshot.Snapshot, 0, len(rows))
	for _, row := range rows {
		snap := row.toSnapshot()
		byTimestamp[row.Timestamp] = snap
		snaps = append(snaps, snap)
	}
	for _, row := range results {
		if snap, ok := byTimestamp[row.SnapshotTimestamp]; ok {
			snap.SetResult(row.Method, row.toResult())
		}
	}

	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].Timestamp.Before(snaps[j].Timestamp)
	})
	return snaps, nil
}

// GetByTimestamp retrieves one snapshot by its timestamp key.
func (s *Store) GetByTimestamp(ctx context.Context, ts snapshot.Timestamp) (*snapshot.Snapshot, error) {
	return s.getOne(ctx,
		`SELECT timestamp, url, title, tags, num_outputs, archive_size
		 FROM snapshots WHERE timestamp = ?`, string(ts))
}

// GetByURL retrieves one snapshot by its unique URL.
func (s *Store) GetByURL(ctx context.Context, url string) (*snapshot.Snapshot, error) {
	return s.getOne(ctx,
		`SELECT timestamp, url, title, tags, num_outputs, archive_size
		 FROM snapshots WHERE url = ?`, url)
}

func (s *Store) getOne(ctx context.Context, query string, arg any) (*snapshot.Snapshot, error) {
	var row snapshotRow
	if err := s.db.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %v", ErrNotFound, arg)
		}
		return nil, fmt.Errorf("%w: get snapshot: %v", ErrStore, err)
	}
	snap := row.toSnapshot()

	var results []resultRow
	err := s.db.SelectContext(ctx, &results,
		`SELECT snapshot_timestamp, method, succeeded, output_path, error, started_at, duration_ns
		 FROM extractor_results WHERE snapshot_timestamp = ?`, row.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("%w: get extractor results: %v", ErrStore, err)
	}
	for _, r := range results {
		snap.SetResult(r.Method, r.toResult())
	}
	return snap, nil
}

// ExistingURLs returns the set of all indexed URLs.
func (s *Store) ExistingURLs(ctx context.Context) (map[string]struct{}, error) {
	var urls []string
	if err := s.db.SelectContext(ctx, &urls, `SELECT url FROM snapshots`); err != nil {
		return nil, fmt.Errorf("%w: list urls: %v", ErrStore, err)
	}
	set := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		set[u] = struct{}{}
	}
	return set, nil
}

// ExistingTimestamps returns the set of all indexed timestamps.
func (s *Store) ExistingTimestamps(ctx context.Context) (map[snapshot.Timestamp]struct{}, error) {
	var raw []string
	if err := s.db.SelectContext(ctx, &raw, `SELECT timestamp FROM snapshots`); err != nil {
		return nil, fmt.Errorf("%w: list timestamps: %v", ErrStore, err)
	}
	set := make(map[snapshot.Timestamp]struct{}, len(raw))
	for _, ts := range raw {
		set[snapshot.Timestamp(ts)] = struct{}{}
	}
	return set, nil
}

// SetTitle updates only the title field, so concurrent per-method
// writes never clobber it.
func (s *Store) SetTitle(ctx context.Context, ts snapshot.Timestamp, title string) error {
	return s.updateField(ctx,
		`UPDATE snapshots SET title = ?, updated_at = CURRENT_TIMESTAMP WHERE timestamp = ?`,
		title, string(ts))
}

// SetTags updates only the tags field.
func (s *Store) SetTags(ctx context.Context, ts snapshot.Timestamp, tags []string) error {
	return s.updateField(ctx,
		`UPDATE snapshots SET tags = ?, updated_at = CURRENT_TIMESTAMP WHERE timestamp = ?`,
		strings.Join(tags, ","), string(ts))
}

// SetAggregates updates only the derived num_outputs/archive_size pair.
func (s *Store) SetAggregates(ctx context.Context, ts snapshot.Timestamp, numOutputs int, archiveSize int64) error {
	return s.updateField(ctx,
		`UPDATE snapshots SET num_outputs = ?, archive_size = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE timestamp = ?`,
		numOutputs, archiveSize, string(ts))
}

func (s *Store) updateField(ctx context.Context, query string, args ...any) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: update snapshot: %v", ErrStore, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %v", ErrStore, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertResult persists a single method outcome without touching any
// other field of the snapshot record.
func (s *Store) UpsertResult(ctx context.Context, ts snapshot.Timestamp, method string, result snapshot.ExtractorResult) error {
	return upsertResultTx(ctx, s.db, ts, method, result)
}

// execer covers both *sqlx.DB and *sqlx.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertResultTx(ctx context.Context, db execer, ts snapshot.Timestamp, method string, result snapshot.ExtractorResult) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO extractor_results
			(snapshot_timestamp, method, succeeded, output_path, error, started_at, duration_ns)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (snapshot_timestamp, method) DO UPDATE SET
			succeeded = excluded.succeeded,
			output_path = excluded.output_path,
			error = excluded.error,
			started_at = excluded.started_at,
			duration_ns = excluded.duration_ns`,
		string(ts), method, result.Succeeded, result.OutputPath,
		result.Error, result.StartedAt, int64(result.Duration),
	)
	if err != nil {
		return fmt.Errorf("%w: upsert result %s/%s: %v", ErrStore, ts, method, err)
	}
	return nil
}
