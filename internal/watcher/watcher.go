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

package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	watcherrors "github.com/sirseerhq/sirseer-watch/internal/errors"
	"github.com/sirseerhq/sirseer-watch/internal/giterror"
	"github.com/sirseerhq/sirseer-watch/internal/github"
	"github.com/sirseerhq/sirseer-watch/internal/logfields"
	"github.com/sirseerhq/sirseer-watch/internal/metrics"
	"github.com/sirseerhq/sirseer-watch/internal/notify"
	"github.com/sirseerhq/sirseer-watch/internal/render"
	"github.com/sirseerhq/sirseer-watch/internal/store"
)

// DefaultQuotaReserve is the remaining-request threshold at or below which a
// repository check is deferred.
const DefaultQuotaReserve = 10

// Config is the static description of a watched repository.
type Config struct {
	// Index is the repository's position in the config store document.
	Index        int
	Name         string
	EventsURL    string
	ReleasesURL  string
	TrackedKinds []string
}

// State is the mutable cursor state of both feeds. Cursors are opaque ids;
// "" and "0" mean uninitialized.
type State struct {
	EventsETag    string
	LastEventID   string
	ReleasesETag  string
	LastReleaseID string
}

// Options carries the collaborators shared by all watchers.
type Options struct {
	Fetcher  github.Fetcher
	Notifier notify.Notifier
	// Quota is probed before each check. Nil disables the guard.
	Quota github.QuotaSource
	// QuotaReserve defaults to DefaultQuotaReserve when zero.
	QuotaReserve int
	// FetchTimeout bounds each request. Zero means no extra bound.
	FetchTimeout time.Duration
	Logger       *slog.Logger
	Recorder     metrics.Recorder
}

// CheckResult summarizes one Check.
type CheckResult struct {
	// New counts items newer than the cursors, tracked or not.
	New int
	// Notified counts messages delivered.
	Notified int
	// NotifyFailures counts items that could not be rendered or delivered.
	NotifyFailures int
	// Changed reports whether State differs from before the check.
	Changed bool
	// Skipped reports a check deferred by the quota guard.
	Skipped bool
}

// Watcher owns the state of one repository's two feeds.
type Watcher struct {
	cfg     Config
	state   State
	tracked map[string]struct{}

	fetcher      github.Fetcher
	notifier     notify.Notifier
	quota        github.QuotaSource
	reserve      int
	fetchTimeout time.Duration
	logger       *slog.Logger
	recorder     metrics.Recorder
}

// New creates a watcher. Missing Name and ReleasesURL are derived from
// EventsURL.
func New(cfg Config, state State, opts Options) *Watcher {
	if cfg.Name == "" {
		cfg.Name = DefaultName(cfg.EventsURL)
	}
	if cfg.ReleasesURL == "" {
		cfg.ReleasesURL = DefaultReleasesURL(cfg.EventsURL)
	}
	if opts.QuotaReserve == 0 {
		opts.QuotaReserve = DefaultQuotaReserve
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}

	tracked := make(map[string]struct{}, len(cfg.TrackedKinds))
	for _, kind := range cfg.TrackedKinds {
		tracked[kind] = struct{}{}
	}

	return &Watcher{
		cfg:          cfg,
		state:        state,
		tracked:      tracked,
		fetcher:      opts.Fetcher,
		notifier:     opts.Notifier,
		quota:        opts.Quota,
		reserve:      opts.QuotaReserve,
		fetchTimeout: opts.FetchTimeout,
		logger:       opts.Logger.With(logfields.Repository(cfg.Name)),
		recorder:     opts.Recorder,
	}
}

// FromEntry creates a watcher from a config store entry.
func FromEntry(e store.Entry, opts Options) *Watcher {
	return New(Config{
		Index:        e.Index,
		Name:         e.Name,
		EventsURL:    e.URL,
		ReleasesURL:  e.ReleasesURL,
		TrackedKinds: e.TrackedEvents,
	}, State{
		EventsETag:    e.ETag,
		LastEventID:   string(e.LastEventID),
		ReleasesETag:  e.ReleasesETag,
		LastReleaseID: string(e.LastReleaseID),
	}, opts)
}

// DefaultName derives owner/repo from an events URL such as
// https://api.github.com/repos/owner/repo/events.
func DefaultName(eventsURL string) string {
	name := eventsURL
	if _, rest, ok := strings.Cut(name, "/repos/"); ok {
		name = rest
	}
	return strings.TrimSuffix(name, "/events")
}

// DefaultReleasesURL derives the releases feed URL from an events URL.
func DefaultReleasesURL(eventsURL string) string {
	if strings.HasSuffix(eventsURL, "/events") {
		return strings.TrimSuffix(eventsURL, "/events") + "/releases"
	}
	return strings.Replace(eventsURL, "/events", "/releases", 1)
}

// Name returns the repository name.
func (w *Watcher) Name() string { return w.cfg.Name }

// Config returns the static configuration.
func (w *Watcher) Config() Config { return w.cfg }

// State returns a copy of the current state.
func (w *Watcher) State() State { return w.state }

// Snapshot returns the state in config store form.
func (w *Watcher) Snapshot() store.Snapshot {
	return store.Snapshot{
		Index:         w.cfg.Index,
		ETag:          w.state.EventsETag,
		LastEventID:   w.state.LastEventID,
		ReleasesETag:  w.state.ReleasesETag,
		LastReleaseID: w.state.LastReleaseID,
	}
}

// tracksReleases reports whether the releases feed is polled.
func (w *Watcher) tracksReleases() bool {
	_, ok := w.tracked[github.KindRelease]
	return ok
}

// tracksEvents reports whether any kind besides releases is tracked.
func (w *Watcher) tracksEvents() bool {
	for kind := range w.tracked {
		if kind != github.KindRelease {
			return true
		}
	}
	return false
}

// rendersEvent reports whether an events feed item of kind is rendered.
// Releases come from the releases feed, so ReleaseEvent is never rendered
// from the events feed.
func (w *Watcher) rendersEvent(kind string) bool {
	if kind == github.KindRelease {
		return false
	}
	_, ok := w.tracked[kind]
	return ok
}

func (w *Watcher) eventsFeed() *feed[github.Event] {
	return &feed[github.Event]{
		name:   metrics.FeedEvents,
		url:    w.cfg.EventsURL,
		etag:   &w.state.EventsETag,
		cursor: &w.state.LastEventID,
		decode: github.DecodeEvents,
		render: render.Event,
		track:  w.rendersEvent,
	}
}

func (w *Watcher) releasesFeed() *feed[github.Release] {
	return &feed[github.Release]{
		name:   metrics.FeedReleases,
		url:    w.cfg.ReleasesURL,
		etag:   &w.state.ReleasesETag,
		cursor: &w.state.LastReleaseID,
		decode: github.DecodeReleases,
		render: func(r github.Release) (render.Message, bool, error) {
			return render.Release(r, w.cfg.Name), true, nil
		},
		track: func(string) bool { return true },
	}
}

// Initialize captures the head of each feed whose cursor or validator is
// missing. A failure leaves that feed's state unchanged; the next check then
// resets it through drift detection instead.
func (w *Watcher) Initialize(ctx context.Context) error {
	var errs []error

	if uninitialized(w.state.LastEventID) || w.state.EventsETag == "" {
		errs = append(errs, initializeFeed(ctx, w, w.eventsFeed()))
	} else {
		w.logger.Debug("Using saved event state", logfields.Cursor(w.state.LastEventID))
	}

	if w.tracksReleases() {
		if uninitialized(w.state.LastReleaseID) || w.state.ReleasesETag == "" {
			errs = append(errs, initializeFeed(ctx, w, w.releasesFeed()))
		} else {
			w.logger.Debug("Using saved release state", logfields.Cursor(w.state.LastReleaseID))
		}
	}

	return errors.Join(errs...)
}

// Check runs one check of both feeds. A quota at or below the reserve skips
// the repository and returns an error wrapping ErrQuotaReserve. Both feeds
// are attempted even if one fails; their errors are joined. Notification
// failures are counted in the result, not returned.
func (w *Watcher) Check(ctx context.Context) (CheckResult, error) {
	var result CheckResult
	before := w.state

	if w.quota != nil {
		if skip, err := w.quotaExhausted(ctx); skip {
			result.Skipped = true
			return result, err
		}
	}

	var errs []error
	if w.tracksReleases() {
		res, err := checkFeed(ctx, w, w.releasesFeed())
		result.add(res)
		errs = append(errs, err)
	}
	if w.tracksEvents() {
		res, err := checkFeed(ctx, w, w.eventsFeed())
		result.add(res)
		errs = append(errs, err)
	}

	result.Changed = w.state != before
	err := errors.Join(errs...)
	if err != nil {
		for _, e := range errs {
			if e != nil {
				w.recorder.IncFailure(giterror.Classify(e))
			}
		}
	}
	return result, err
}

// quotaExhausted probes the remaining quota. A failed probe is logged and
// does not block the check.
func (w *Watcher) quotaExhausted(ctx context.Context) (bool, error) {
	if w.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.fetchTimeout)
		defer cancel()
	}

	remaining, err := w.quota.Remaining(ctx)
	if err != nil {
		w.logger.Warn("Rate limit check failed, checking anyway", logfields.Error(err))
		return false, nil
	}
	w.recorder.SetQuotaRemaining(remaining)

	if remaining <= w.reserve {
		w.logger.Warn("Rate limit reserve reached, skipping check", logfields.Remaining(remaining))
		return true, fmt.Errorf("%s: %d requests left: %w", w.cfg.Name, remaining, watcherrors.ErrQuotaReserve)
	}
	w.logger.Debug("Rate limit remaining", logfields.Remaining(remaining))
	return false, nil
}

func (r *CheckResult) add(f feedResult) {
	r.New += f.newItems
	r.Notified += f.notified
	r.NotifyFailures += f.notifyFailures
}

// TrackedKinds returns the tracked kinds in sorted order.
func (w *Watcher) TrackedKinds() []string {
	kinds := make([]string, 0, len(w.tracked))
	for kind := range w.tracked {
		kinds = append(kinds, kind)
	}
	slices.Sort(kinds)
	return kinds
}
