// Package archiver orchestrates archive method runs over batches of
// snapshots: a bounded worker pool processes snapshots concurrently
// while the methods for one snapshot run sequentially, each isolated
// behind its own timeout.
package archiver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/webhoard/webhoard/internal/config"
	"github.com/webhoard/webhoard/internal/extractor"
	"github.com/webhoard/webhoard/internal/folders"
	"github.com/webhoard/webhoard/internal/logger"
	"github.com/webhoard/webhoard/internal/snapshot"
)

// stagingPrefix names the per-method scratch directory inside a
// snapshot folder. New output lands here and replaces the old output
// only after the method reports success.
const stagingPrefix = ".staging-"

// IndexStore is the slice of the index the orchestrator writes through.
// Writes are per-field so they never clobber concurrent edits to other
// fields of the same record.
type IndexStore interface {
	UpsertResult(ctx context.Context, ts snapshot.Timestamp, method string, result snapshot.ExtractorResult) error
	SetTitle(ctx context.Context, ts snapshot.Timestamp, title string) error
	SetAggregates(ctx context.Context, ts snapshot.Timestamp, numOutputs int, archiveSize int64) error
}

// Options control one Archive invocation.
type Options struct {
	// Methods to run; empty means every registered method minus the
	// globally disabled ones.
	Methods []string
	// Overwrite forces re-invocation even over recorded successes.
	Overwrite bool
	// ResumeAfter, when set, restricts the batch to snapshots with
	// timestamp >= the threshold, processed in ascending order.
	ResumeAfter snapshot.Timestamp
}

// MethodOutcome is the result of one (snapshot, method) invocation.
type MethodOutcome struct {
	Timestamp snapshot.Timestamp
	URL       string
	Method    string
	Skipped   bool
	Succeeded bool
	TimedOut  bool
	Err       error
}

// BatchResult summarizes one Archive invocation.
type BatchResult struct {
	Selected int
	Outcomes []MethodOutcome
}

// Invoked counts outcomes that actually ran an extractor.
func (r *BatchResult) Invoked() int {
	count := 0
	for _, outcome := range r.Outcomes {
		if !outcome.Skipped {
			count++
		}
	}
	return count
}

// Archiver runs archive methods for snapshots and persists the
// per-method results.
type Archiver struct {
	cfg      config.ArchiverConfig
	registry *extractor.Registry
	store    IndexStore
	folders  *folders.Store
	logger   logger.Interface
	inflight *keyedMutex
}

// New creates an archiver.
func New(cfg config.ArchiverConfig, registry *extractor.Registry, store IndexStore, folderStore *folders.Store, log logger.Interface) *Archiver {
	return &Archiver{
		cfg:      cfg,
		registry: registry,
		store:    store,
		folders:  folderStore,
		logger:   log,
		inflight: newKeyedMutex(),
	}
}

// Archive runs the requested methods for each selected snapshot.
// Snapshot selection (resume filter, ascending order) is deterministic;
// completion order across snapshots is not. A single method failure or
// timeout never aborts the batch.
func (a *Archiver) Archive(ctx context.Context, snaps []*snapshot.Snapshot, opts Options) (*BatchResult, error) {
	methods, err := a.resolveMethods(opts.Methods)
	if err != nil {
		return nil, err
	}

	selected, err := selectSnapshots(snaps, opts.ResumeAfter)
	if err != nil {
		return nil, err
	}

	if err := a.folders.EnsureRoot(); err != nil {
		return nil, err
	}

	a.logger.Info("archiving batch",
		"snapshots", len(selected),
		"methods", methods,
		"overwrite", opts.Overwrite,
	)

	result := &BatchResult{Selected: len(selected)}
	var resultMu sync.Mutex

	sem := make(chan struct{}, a.cfg.PoolSize)
	var wg sync.WaitGroup

	for _, snap := range selected {
		// Cancellation stops issuing new snapshots promptly.
		if ctx.Err() != nil {
			break
		}
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(snap *snapshot.Snapshot) {
			defer func() {
				<-sem
				wg.Done()
			}()

			outcomes := a.archiveSnapshot(ctx, snap, methods, opts.Overwrite)

			resultMu.Lock()
			result.Outcomes = append(result.Outcomes, outcomes...)
			resultMu.Unlock()
		}(snap)
	}

	wg.Wait()
	return result, nil
}

// resolveMethods expands the default method set and validates
// explicitly requested names before any work starts.
func (a *Archiver) resolveMethods(requested []string) ([]string, error) {
	if len(requested) == 0 {
		disabled := make(map[string]bool, len(a.cfg.DisabledMethods))
		for _, name := range a.cfg.DisabledMethods {
			disabled[name] = true
		}
		var methods []string
		for _, name := range a.registry.Names() {
			if !disabled[name] {
				methods = append(methods, name)
			}
		}
		return methods, nil
	}

	for _, name := range requested {
		if _, ok := a.registry.Get(name); !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, name)
		}
	}
	return requested, nil
}

// selectSnapshots applies the resume threshold and fixes the processing
// order to ascending timestamp.
func selectSnapshots(snaps []*snapshot.Snapshot, resumeAfter snapshot.Timestamp) ([]*snapshot.Snapshot, error) {
	selected := make([]*snapshot.Snapshot, 0, len(snaps))
	if resumeAfter != "" {
		if !resumeAfter.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidResume, resumeAfter)
		}
		for _, snap := range snaps {
			if snap.Timestamp.AtOrAfter(resumeAfter) {
				selected = append(selected, snap)
			}
		}
	} else {
		selected = append(selected, snaps...)
	}

	sort.Slice(selected, func(i, j int) bool {
		return selected[i].Timestamp.Before(selected[j].Timestamp)
	})
	return selected, nil
}

// archiveSnapshot runs all methods for one snapshot sequentially, then
// recomputes and persists the snapshot's aggregate fields and metadata
// file. Persistence of completed work survives batch cancellation.
func (a *Archiver) archiveSnapshot(ctx context.Context, snap *snapshot.Snapshot, methods []string, overwrite bool) []MethodOutcome {
	dir := a.folders.Dir(string(snap.Timestamp))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return []MethodOutcome{{
			Timestamp: snap.Timestamp,
			URL:       snap.URL,
			Err:       fmt.Errorf("create snapshot folder: %w", err),
		}}
	}

	outcomes := make([]MethodOutcome, 0, len(methods))
	for _, method := range methods {
		// Stop issuing new invocations once the batch is canceled;
		// already-recorded outcomes stay as they are.
		if ctx.Err() != nil {
			break
		}
		outcomes = append(outcomes, a.runMethod(ctx, snap, method, dir, overwrite))
	}

	// Completed method results must still land in the index even when
	// the batch context was canceled right after they finished.
	persistCtx := context.WithoutCancel(ctx)

	snap.RecomputeAggregates(a.folders.Size(string(snap.Timestamp)))
	if err := a.store.SetAggregates(persistCtx, snap.Timestamp, snap.NumOutputs, snap.ArchiveSize); err != nil {
		a.logger.Error("persist aggregates failed", "timestamp", snap.Timestamp, "error", err)
	}
	if err := a.folders.WriteMetadata(dir, snap); err != nil {
		a.logger.Error("write snapshot metadata failed", "timestamp", snap.Timestamp, "error", err)
	}

	return outcomes
}

// runMethod executes one extractor with staging, timeout and in-flight
// exclusion, and persists its result.
func (a *Archiver) runMethod(ctx context.Context, snap *snapshot.Snapshot, method, dir string, overwrite bool) MethodOutcome {
	outcome := MethodOutcome{
		Timestamp: snap.Timestamp,
		URL:       snap.URL,
		Method:    method,
	}

	prior, hasPrior := snap.Result(method)
	if hasPrior && prior.Succeeded && !overwrite {
		outcome.Skipped = true
		return outcome
	}

	ext, ok := a.registry.Get(method)
	if !ok {
		outcome.Err = fmt.Errorf("%w: %q", ErrUnknownMethod, method)
		return outcome
	}

	// One extraction in flight per (url, method) across the process.
	key := snap.URL + "\x00" + method
	a.inflight.lock(key)
	defer a.inflight.unlock(key)

	staging := filepath.Join(dir, stagingPrefix+method)
	if err := os.MkdirAll(staging, 0o755); err != nil {
		outcome.Err = fmt.Errorf("create staging dir: %w", err)
		return outcome
	}
	defer os.RemoveAll(staging)

	methodCtx, cancel := context.WithTimeout(ctx, a.cfg.MethodTimeout)
	defer cancel()

	started := time.Now()
	extResult := ext.Run(methodCtx, snap.URL, staging)
	duration := time.Since(started)

	persistCtx := context.WithoutCancel(ctx)

	if extResult.Succeeded {
		if err := promote(staging, dir); err != nil {
			extResult = extractor.Result{Err: fmt.Errorf("promote output: %w", err)}
		}
	}

	if extResult.Succeeded {
		recorded := snapshot.ExtractorResult{
			Succeeded:  true,
			OutputPath: extResult.OutputPath,
			StartedAt:  started,
			Duration:   duration,
		}
		snap.SetResult(method, recorded)
		if extResult.Title != "" {
			snap.Title = extResult.Title
			if err := a.store.SetTitle(persistCtx, snap.Timestamp, extResult.Title); err != nil {
				a.logger.Error("persist title failed", "timestamp", snap.Timestamp, "error", err)
			}
		}
		if err := a.store.UpsertResult(persistCtx, snap.Timestamp, method, recorded); err != nil {
			a.logger.Error("persist result failed",
				"timestamp", snap.Timestamp, "method", method, "error", err)
		}
		outcome.Succeeded = true
		a.logger.Debug("method succeeded",
			"url", snap.URL, "method", method, "duration", duration)
		return outcome
	}

	// Failure path. Classify timeouts, then decide what to record.
	err := extResult.Err
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(methodCtx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %s after %s", ErrTimeout, method, a.cfg.MethodTimeout)
		outcome.TimedOut = true
	}
	if err == nil {
		err = errors.New("extractor reported failure")
	}
	outcome.Err = err

	a.logger.Warn("method failed",
		"url", snap.URL, "method", method, "duration", duration, "error", err)

	if hasPrior && prior.Succeeded {
		// Overwrite attempt failed: the prior successful output was
		// never deleted, so the prior record stands.
		return outcome
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		// Batch canceled mid-method: roll back to the prior recorded
		// state instead of recording an induced failure.
		return outcome
	}

	recorded := snapshot.ExtractorResult{
		Error:     err.Error(),
		StartedAt: started,
		Duration:  duration,
	}
	snap.SetResult(method, recorded)
	if persistErr := a.store.UpsertResult(persistCtx, snap.Timestamp, method, recorded); persistErr != nil {
		a.logger.Error("persist result failed",
			"timestamp", snap.Timestamp, "method", method, "error", persistErr)
	}
	return outcome
}

// promote moves every entry from the staging directory into the
// snapshot folder, replacing previous outputs of the same name. Old
// output is only removed here, after the new invocation succeeded.
func promote(staging, dir string) error {
	entries, err := os.ReadDir(staging)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		src := filepath.Join(staging, entry.Name())
		dest := filepath.Join(dir, entry.Name())
		if err := os.RemoveAll(dest); err != nil {
			return err
		}
		if err := os.Rename(src, dest); err != nil {
			return err
		}
	}
	return nil
}
