// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metadata provides functionality for tracking and persisting
// summaries of scheduler cycles. It records how many repositories were
// checked, skipped and failed, how many new items were found and delivered,
// and whether the cycle's state reached the config store.
//
// Summaries are printed by the check command and, when a summary directory
// is configured, saved as JSON files that link to the previous cycle.
package metadata

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Tracker collects per-repository results during a cycle. Create one at the
// start of each cycle. It is safe for concurrent use.
type Tracker struct {
	mu        sync.Mutex
	cycleID   string
	startTime time.Time
	repos     []RepoResult
	persisted bool
	now       func() time.Time
}

// New creates a tracker for the cycle identified by cycleID and starts its
// clock.
func New(cycleID string) *Tracker {
	return newWithClock(cycleID, time.Now)
}

func newWithClock(cycleID string, now func() time.Time) *Tracker {
	return &Tracker{
		cycleID:   cycleID,
		startTime: now(),
		now:       now,
	}
}

// CycleID returns the id the tracker was created with.
func (t *Tracker) CycleID() string {
	return t.cycleID
}

// Record adds one repository's result.
func (t *Tracker) Record(r RepoResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.repos = append(t.repos, r)
}

// SetPersisted records whether the cycle's state was written.
func (t *Tracker) SetPersisted(ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.persisted = ok
}

// Generate creates the summary of everything recorded so far.
func (t *Tracker) Generate(version, kind string, previous *CycleRef) *CycleSummary {
	t.mu.Lock()
	defer t.mu.Unlock()

	completedAt := t.now()
	results := CycleResults{
		Persisted:   t.persisted,
		Duration:    completedAt.Sub(t.startTime).String(),
		StartedAt:   t.startTime,
		CompletedAt: completedAt,
	}
	for _, r := range t.repos {
		switch r.Outcome {
		case OutcomeSkipped:
			results.Skipped++
		case OutcomeFailed:
			results.Failed++
			results.Checked++
		default:
			results.Checked++
		}
		results.NewItems += r.NewItems
		results.Notified += r.Notified
		results.NotifyFailures += r.NotifyFailures
		if r.Changed {
			results.Changed++
		}
	}

	return &CycleSummary{
		WatchVersion:  version,
		CycleID:       t.cycleID,
		Kind:          kind,
		Results:       results,
		Repositories:  append([]RepoResult{}, t.repos...),
		PreviousCycle: previous,
	}
}

// Ref returns a reference to s for linking the next summary.
func (s *CycleSummary) Ref() *CycleRef {
	return &CycleRef{CycleID: s.CycleID, CompletedAt: s.Results.CompletedAt}
}

// SaveSummary persists a summary to a JSON file in dir. The file is written
// atomically using a temporary file and rename. The filename includes the
// start time in nanoseconds so files sort by cycle.
//
// The summary file will be named: cycle-summary-{timestamp}.json
func SaveSummary(summary *CycleSummary, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create summary directory: %w", err)
	}

	name := fmt.Sprintf("cycle-summary-%d.json", summary.Results.StartedAt.UnixNano())
	path := filepath.Join(dir, name)

	tmpFile := path + ".tmp"
	file, err := os.Create(tmpFile)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(summary); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpFile)
		return fmt.Errorf("failed to write summary: %w", err)
	}

	if err := file.Close(); err != nil {
		_ = os.Remove(tmpFile)
		return fmt.Errorf("failed to close summary file: %w", err)
	}

	if err := os.Rename(tmpFile, path); err != nil {
		return fmt.Errorf("failed to save summary file: %w", err)
	}

	return nil
}

// LoadLatestSummary loads the summary with the latest completion time from
// dir. Returns nil if there is none.
func LoadLatestSummary(dir string) (*CycleSummary, error) {
	files, err := filepath.Glob(filepath.Join(dir, "cycle-summary-*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list summary files: %w", err)
	}

	var latest *CycleSummary
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			continue
		}
		var s CycleSummary
		if err := json.Unmarshal(data, &s); err != nil {
			continue
		}
		if latest == nil || s.Results.CompletedAt.After(latest.Results.CompletedAt) {
			latest = &s
		}
	}
	return latest, nil
}

// WriteSummaryToWriter serializes a summary as indented JSON to w.
func WriteSummaryToWriter(summary *CycleSummary, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(summary)
}
