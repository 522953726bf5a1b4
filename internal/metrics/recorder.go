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

package metrics

import "time"

// Feed labels.
const (
	FeedEvents   = "events"
	FeedReleases = "releases"
)

// CheckResult labels a repository check.
type CheckResult string

const (
	CheckOK      CheckResult = "ok"
	CheckSkipped CheckResult = "skipped"
	CheckFailed  CheckResult = "failed"
)

// CycleOutcome labels a scheduler cycle.
type CycleOutcome string

const (
	CycleOK       CycleOutcome = "ok"
	CycleDegraded CycleOutcome = "degraded"
	CyclePanic    CycleOutcome = "panic"
)

// Recorder receives watcher and scheduler observations. Implementations must
// be safe for concurrent use.
type Recorder interface {
	ObserveCycleDuration(d time.Duration)
	IncCycle(outcome CycleOutcome)
	IncCheck(repo string, result CheckResult)
	IncFetch(feed string, status int)
	IncFailure(category string)
	AddNotifications(feed string, n int)
	IncNotifyFailure(feed string)
	IncCursorReset(feed string)
	SetQuotaRemaining(n int)
	IncPersist(success bool)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveCycleDuration(time.Duration) {}
func (NoopRecorder) IncCycle(CycleOutcome) {}
func (NoopRecorder) IncCheck(string, CheckResult) {}
func (NoopRecorder) IncFetch(string, int) {}
func (NoopRecorder) IncFailure(string) {}
func (NoopRecorder) AddNotifications(string, int) {}
func (NoopRecorder) IncNotifyFailure(string) {}
func (NoopRecorder) IncCursorReset(string) {}
func (NoopRecorder) SetQuotaRemaining(int) {}
func (NoopRecorder) IncPersist(bool) {}
