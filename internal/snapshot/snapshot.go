// Package snapshot provides the domain model for archived pages.
package snapshot

import (
	"time"
)

// TitleMethod is the extractor that records the page title. It does not
// count toward IsArchived because it produces no archival output.
const TitleMethod = "title"

// ExtractorResult describes the outcome of one extraction method run.
type ExtractorResult struct {
	Succeeded  bool          `json:"succeeded"`
	OutputPath string        `json:"output_path,omitempty"`
	Error      string        `json:"error,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
}

// Snapshot is the unit of archival work: one URL captured at one
// timestamp, with the per-method extraction outcomes recorded so far.
type Snapshot struct {
	URL              string                     `json:"url" db:"url"`
	Timestamp        Timestamp                  `json:"timestamp" db:"timestamp"`
	Title            string                     `json:"title,omitempty" db:"title"`
	Tags             []string                   `json:"tags,omitempty"`
	ExtractorResults map[string]ExtractorResult `json:"extractor_results,omitempty"`
	NumOutputs       int                        `json:"num_outputs" db:"num_outputs"`
	ArchiveSize      int64                      `json:"archive_size" db:"archive_size"`
}

// New creates a snapshot for a URL at the given timestamp.
func New(url string, ts Timestamp) *Snapshot {
	return &Snapshot{
		URL:              url,
		Timestamp:        ts,
		ExtractorResults: make(map[string]ExtractorResult),
	}
}

// IsArchived reports whether at least one non-title extractor succeeded.
func (s *Snapshot) IsArchived() bool {
	for method, result := range s.ExtractorResults {
		if method == TitleMethod {
			continue
		}
		if result.Succeeded {
			return true
		}
	}
	return false
}

// SetResult records an extractor outcome, initializing the result map
// if needed.
func (s *Snapshot) SetResult(method string, result ExtractorResult) {
	if s.ExtractorResults == nil {
		s.ExtractorResults = make(map[string]ExtractorResult)
	}
	s.ExtractorResults[method] = result
}

// Result returns the recorded outcome for a method, if any.
func (s *Snapshot) Result(method string) (ExtractorResult, bool) {
	result, ok := s.ExtractorResults[method]
	return result, ok
}

// RecomputeAggregates refreshes the derived fields from the recorded
// results and the measured on-disk size of the snapshot folder.
func (s *Snapshot) RecomputeAggregates(archiveSize int64) {
	outputs := 0
	for _, result := range s.ExtractorResults {
		if result.Succeeded && result.OutputPath != "" {
			outputs++
		}
	}
	s.NumOutputs = outputs
	s.ArchiveSize = archiveSize
}
