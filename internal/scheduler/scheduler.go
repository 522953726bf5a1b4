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

// Package scheduler drives watcher checks on a fixed interval. Each cycle
// checks every repository in order, isolates per-repository failures and
// writes all cursor state back to the config store in one batch.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	watcherrors "github.com/sirseerhq/sirseer-watch/internal/errors"
	"github.com/sirseerhq/sirseer-watch/internal/giterror"
	"github.com/sirseerhq/sirseer-watch/internal/logfields"
	"github.com/sirseerhq/sirseer-watch/internal/metadata"
	"github.com/sirseerhq/sirseer-watch/internal/metrics"
	"github.com/sirseerhq/sirseer-watch/internal/store"
	"github.com/sirseerhq/sirseer-watch/internal/watcher"
)

// DefaultInterval is the time between the start of two cycles.
const DefaultInterval = 300 * time.Second

// Saver persists cursor state. *store.Store implements it.
type Saver interface {
	Save(snapshots []store.Snapshot) error
}

// Options configures a Scheduler.
type Options struct {
	Interval time.Duration
	// PersistEachChange saves after every repository whose state changed,
	// in addition to the end-of-cycle batch.
	PersistEachChange bool
	// SummaryDir receives a JSON summary per cycle when set.
	SummaryDir string
	Version    string
	Logger     *slog.Logger
	Recorder   metrics.Recorder
	// NewCycleID defaults to uuid.NewString.
	NewCycleID func() string
}

// Scheduler owns the watchers and runs their checks one cycle at a time.
type Scheduler struct {
	watchers []*watcher.Watcher
	saver    Saver
	opts     Options
	logger   *slog.Logger
	recorder metrics.Recorder

	// mu serializes cycles, whether started by a tick or directly.
	mu       sync.Mutex
	previous *metadata.CycleRef

	cron gocron.Scheduler
}

// New creates a scheduler over watchers that persists through saver.
func New(watchers []*watcher.Watcher, saver Saver, opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	if opts.NewCycleID == nil {
		opts.NewCycleID = uuid.NewString
	}

	s := &Scheduler{
		watchers: watchers,
		saver:    saver,
		opts:     opts,
		logger:   opts.Logger,
		recorder: opts.Recorder,
	}

	if opts.SummaryDir != "" {
		last, err := metadata.LoadLatestSummary(opts.SummaryDir)
		if err != nil {
			s.logger.Warn("Failed to load previous cycle summary", logfields.Path(opts.SummaryDir), logfields.Error(err))
		} else if last != nil {
			s.previous = last.Ref()
		}
	}
	return s
}

// Watchers returns the watchers in check order.
func (s *Scheduler) Watchers() []*watcher.Watcher {
	return s.watchers
}

// Bootstrap initializes every watcher once and persists the result. Failures
// are logged and leave the affected feed to be reset on its first check.
func (s *Scheduler) Bootstrap(ctx context.Context) *metadata.CycleSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	tracker := metadata.New(s.opts.NewCycleID())
	log := s.logger.With(logfields.CycleID(tracker.CycleID()))
	log.Info("Initializing watchers", logfields.Count(len(s.watchers)))

	for _, w := range s.watchers {
		if ctx.Err() != nil {
			break
		}
		result := metadata.RepoResult{Repository: w.Name(), Outcome: metadata.OutcomeOK}
		before := w.State()
		if err := guard(w.Name(), func() error { return w.Initialize(ctx) }); err != nil {
			result.Outcome = metadata.OutcomeFailed
			result.Category = giterror.Classify(err)
			result.Error = err.Error()
			log.Error("Failed to initialize repository", logfields.Repository(w.Name()),
				logfields.Category(result.Category), logfields.Error(err))
		}
		result.Changed = w.State() != before
		tracker.Record(result)
	}

	if len(s.watchers) > 0 {
		tracker.SetPersisted(s.persist(log))
	}
	return s.finish(log, tracker, metadata.KindBootstrap)
}

// RunCycle checks every watcher once, then persists all state in one batch.
// A failing or panicking repository is logged and counted without stopping
// the batch. A panic outside the checks is recovered and logged so the next
// cycle runs normally.
func (s *Scheduler) RunCycle(ctx context.Context) (summary *metadata.CycleSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	tracker := metadata.New(s.opts.NewCycleID())
	log := s.logger.With(logfields.CycleID(tracker.CycleID()))

	defer func() {
		if r := recover(); r != nil {
			log.Error("Cycle panicked", logfields.Error(fmt.Errorf("panic: %v", r)))
			s.recorder.IncCycle(metrics.CyclePanic)
			s.recorder.ObserveCycleDuration(time.Since(start))
			summary = s.finish(log, tracker, metadata.KindCycle)
		}
	}()

	log.Debug("Starting cycle", logfields.Count(len(s.watchers)))

	degraded := false
	for _, w := range s.watchers {
		if ctx.Err() != nil {
			log.Info("Cycle cancelled", logfields.Error(ctx.Err()))
			break
		}
		result := s.check(ctx, log, w)
		if result.Outcome == metadata.OutcomeFailed {
			degraded = true
		}
		tracker.Record(result)
	}

	if len(s.watchers) > 0 {
		ok := s.persist(log)
		tracker.SetPersisted(ok)
		if !ok {
			degraded = true
		}
	}

	outcome := metrics.CycleOK
	if degraded {
		outcome = metrics.CycleDegraded
	}
	s.recorder.IncCycle(outcome)
	s.recorder.ObserveCycleDuration(time.Since(start))

	return s.finish(log, tracker, metadata.KindCycle)
}

// check runs one watcher and converts its outcome to a summary row.
func (s *Scheduler) check(ctx context.Context, log *slog.Logger, w *watcher.Watcher) metadata.RepoResult {
	var res watcher.CheckResult
	err := guard(w.Name(), func() (err error) {
		res, err = w.Check(ctx)
		return err
	})
	result := metadata.RepoResult{
		Repository:     w.Name(),
		Outcome:        metadata.OutcomeOK,
		NewItems:       res.New,
		Notified:       res.Notified,
		NotifyFailures: res.NotifyFailures,
		Changed:        res.Changed,
	}

	switch {
	case res.Skipped || errors.Is(err, watcherrors.ErrQuotaReserve):
		result.Outcome = metadata.OutcomeSkipped
		result.Category = giterror.CategoryQuota
		s.recorder.IncCheck(w.Name(), metrics.CheckSkipped)
	case err != nil:
		result.Outcome = metadata.OutcomeFailed
		result.Category = giterror.Classify(err)
		result.Error = err.Error()
		s.recorder.IncCheck(w.Name(), metrics.CheckFailed)
		log.Error("Repository check failed", logfields.Repository(w.Name()),
			logfields.Category(result.Category), logfields.Error(err))
	default:
		s.recorder.IncCheck(w.Name(), metrics.CheckOK)
	}

	if res.Changed && s.opts.PersistEachChange {
		s.persist(log)
	}
	return result
}

// guard runs fn for one repository, turning a panic into an error so the
// repository is recorded as failed and the rest of the cycle still runs.
func guard(repo string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: panicked: %v", repo, r)
		}
	}()
	return fn()
}

// persist writes every watcher's state. Failures are logged and reported
// but never stop the scheduler.
func (s *Scheduler) persist(log *slog.Logger) bool {
	snapshots := make([]store.Snapshot, len(s.watchers))
	for i, w := range s.watchers {
		snapshots[i] = w.Snapshot()
	}

	if err := s.saver.Save(snapshots); err != nil {
		s.recorder.IncPersist(false)
		log.Error("Failed to save repository state", logfields.Error(err))
		return false
	}
	s.recorder.IncPersist(true)
	log.Debug("Saved repository state", logfields.Count(len(snapshots)))
	return true
}

// finish builds the summary, logs it and writes it to the summary directory.
func (s *Scheduler) finish(log *slog.Logger, tracker *metadata.Tracker, kind string) *metadata.CycleSummary {
	summary := tracker.Generate(s.opts.Version, kind, s.previous)
	r := summary.Results
	log.Info("Cycle complete",
		slog.String("kind", kind),
		slog.Int("checked", r.Checked),
		slog.Int("skipped", r.Skipped),
		slog.Int("failed", r.Failed),
		slog.Int("notified", r.Notified),
		logfields.DurationMS(float64(r.CompletedAt.Sub(r.StartedAt).Microseconds())/1000))

	if s.opts.SummaryDir != "" {
		if err := metadata.SaveSummary(summary, s.opts.SummaryDir); err != nil {
			log.Warn("Failed to save cycle summary", logfields.Path(s.opts.SummaryDir), logfields.Error(err))
		}
	}
	s.previous = summary.Ref()
	return summary
}

// Start schedules RunCycle every interval, starting immediately. A tick
// that comes due while a cycle is still running is rescheduled instead of
// overlapping it. Cycles use ctx; cancel it and call Stop to shut down.
func (s *Scheduler) Start(ctx context.Context) error {
	cron, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	_, err = cron.NewJob(
		gocron.DurationJob(s.opts.Interval),
		gocron.NewTask(func() { s.RunCycle(ctx) }),
		gocron.WithName("watch-cycle"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = cron.Shutdown()
		return fmt.Errorf("failed to create watch job: %w", err)
	}

	s.cron = cron
	s.logger.Info("Starting scheduler", slog.Duration("interval", s.opts.Interval),
		logfields.Count(len(s.watchers)))
	cron.Start()
	return nil
}

// Stop shuts down the scheduler, waiting for a running cycle to return.
func (s *Scheduler) Stop() error {
	if s.cron == nil {
		return nil
	}
	s.logger.Info("Stopping scheduler")
	return s.cron.Shutdown()
}
