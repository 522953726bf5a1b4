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

// Package metadata types define the structures used for summarizing
// scheduler cycles. A summary records what one cycle checked, what it found
// and how long it took.
package metadata

import (
	"time"
)

// Cycle kinds.
const (
	KindBootstrap = "bootstrap"
	KindCycle     = "cycle"
)

// Repository outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// CycleSummary is the record of one scheduler cycle.
type CycleSummary struct {
	WatchVersion  string       `json:"watch_version"`
	CycleID       string       `json:"cycle_id"`
	Kind          string       `json:"kind"`
	Results       CycleResults `json:"results"`
	Repositories  []RepoResult `json:"repositories"`
	PreviousCycle *CycleRef    `json:"previous_cycle,omitempty"`
}

// CycleResults aggregates the per-repository results of a cycle.
type CycleResults struct {
	Checked        int       `json:"checked"`
	Skipped        int       `json:"skipped"`
	Failed         int       `json:"failed"`
	NewItems       int       `json:"new_items"`
	Notified       int       `json:"notified"`
	NotifyFailures int       `json:"notify_failures"`
	Changed        int       `json:"changed"`
	Persisted      bool      `json:"persisted"`
	Duration       string    `json:"duration"`
	StartedAt      time.Time `json:"started_at"`
	CompletedAt    time.Time `json:"completed_at"`
}

// RepoResult is the outcome of one repository within a cycle.
type RepoResult struct {
	Repository     string `json:"repository"`
	Outcome        string `json:"outcome"`
	NewItems       int    `json:"new_items"`
	Notified       int    `json:"notified"`
	NotifyFailures int    `json:"notify_failures"`
	Changed        bool   `json:"changed"`
	Category       string `json:"category,omitempty"`
	Error          string `json:"error,omitempty"`
}

// CycleRef links a summary to the one written before it.
type CycleRef struct {
	CycleID     string    `json:"cycle_id"`
	CompletedAt time.Time `json:"completed_at"`
}
