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

	watcherrors "github.com/sirseerhq/sirseer-watch/internal/errors"
	"github.com/sirseerhq/sirseer-watch/internal/giterror"
	"github.com/sirseerhq/sirseer-watch/internal/github"
	"github.com/sirseerhq/sirseer-watch/internal/logfields"
	"github.com/sirseerhq/sirseer-watch/internal/render"
)

// feed binds one feed's URL, state fields and item handling.
type feed[T github.Item] struct {
	name   string
	url    string
	etag   *string
	cursor *string
	decode func([]byte) ([]T, error)
	render func(T) (render.Message, bool, error)
	// track reports whether an item of kind is rendered.
	track func(kind string) bool
}

// feedResult summarizes one feed check.
type feedResult struct {
	newItems       int
	notified       int
	notifyFailures int
}

// uninitialized reports whether cursor is the zero cursor.
func uninitialized(cursor string) bool {
	return cursor == "" || cursor == "0"
}

// cursorInWindow reports whether cursor is the id of one of items. Ids are
// compared as opaque strings; an uninitialized cursor is never found.
func cursorInWindow[T github.Item](items []T, cursor string) bool {
	if uninitialized(cursor) {
		return false
	}
	for _, item := range items {
		if item.ItemID() == cursor {
			return true
		}
	}
	return false
}

// newSince returns the items before the first one whose id equals cursor,
// oldest first. items is newest first.
func newSince[T github.Item](items []T, cursor string) []T {
	var fresh []T
	for _, item := range items {
		if item.ItemID() == cursor {
			break
		}
		fresh = append(fresh, item)
	}
	for i, j := 0, len(fresh)-1; i < j; i, j = i+1, j-1 {
		fresh[i], fresh[j] = fresh[j], fresh[i]
	}
	return fresh
}

// fetch runs one conditional request under the per-fetch timeout and
// decodes a 200 body. A nil item slice with a nil error means 304.
func fetch[T github.Item](ctx context.Context, w *Watcher, f *feed[T], validator string) ([]T, *github.FetchResult, error) {
	if w.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.fetchTimeout)
		defer cancel()
	}

	res, err := w.fetcher.Fetch(ctx, f.url, validator)
	if err != nil {
		w.recorder.IncFetch(f.name, statusOf(err))
		return nil, nil, fmt.Errorf("%s feed: %w", f.name, err)
	}
	w.recorder.IncFetch(f.name, res.Status)

	if res.NotModified() {
		return nil, res, nil
	}
	items, err := f.decode(res.Body)
	if err != nil {
		return nil, nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, res, nil
}

// initializeFeed captures the current head of f as its cursor.
func initializeFeed[T github.Item](ctx context.Context, w *Watcher, f *feed[T]) error {
	log := w.logger.With(logfields.Feed(f.name))
	log.Info("Initializing feed", logfields.Cursor(*f.cursor))

	items, res, err := fetch(ctx, w, f, "")
	if err != nil {
		log.Error("Failed to initialize feed", logfields.Category(giterror.Classify(err)), logfields.Error(err))
		w.recorder.IncFailure(giterror.Classify(err))
		return err
	}
	if res.NotModified() {
		return nil
	}
	if len(items) == 0 {
		log.Info("No items in feed, cursor left uninitialized")
		return nil
	}

	*f.cursor = items[0].ItemID()
	*f.etag = res.ETag
	log.Info("Initialized feed", logfields.Cursor(*f.cursor))
	return nil
}

// checkFeed fetches f and notifies new items. State is changed only after a
// successful fetch and decode, and cursor and validator move together.
func checkFeed[T github.Item](ctx context.Context, w *Watcher, f *feed[T]) (feedResult, error) {
	var result feedResult
	log := w.logger.With(logfields.Feed(f.name))

	items, res, err := fetch(ctx, w, f, *f.etag)
	if err != nil {
		return result, err
	}
	if res.NotModified() {
		log.Debug("Feed not modified", logfields.Status(res.Status))
		return result, nil
	}
	if len(items) == 0 {
		log.Debug("No items in feed")
		return result, nil
	}

	head := items[0].ItemID()
	prev := *f.cursor

	if !cursorInWindow(items, prev) {
		*f.cursor = head
		*f.etag = res.ETag
		w.recorder.IncCursorReset(f.name)
		log.Warn("Cursor not in feed window, reset to head without notifying",
			logfields.PrevCursor(prev), logfields.Cursor(head), logfields.Count(len(items)))
		return result, nil
	}

	fresh := newSince(items, prev)
	if len(fresh) == 0 {
		log.Debug("No new items")
		return result, nil
	}
	result.newItems = len(fresh)

	for _, item := range fresh {
		itemLog := log.With(logfields.Kind(item.Kind()), logfields.ItemID(item.ItemID()))
		if !f.track(item.Kind()) {
			itemLog.Debug("Skipping untracked item")
			continue
		}

		var (
			msg render.Message
			ok  bool
		)
		err := recovered(func() (err error) {
			msg, ok, err = f.render(item)
			return err
		})
		if err != nil {
			result.notifyFailures++
			w.recorder.IncNotifyFailure(f.name)
			itemLog.Warn("Failed to render item", logfields.Error(err))
			continue
		}
		if !ok {
			itemLog.Debug("Skipping item without a renderer")
			continue
		}

		if err := recovered(func() error { return w.notifier.Send(ctx, msg) }); err != nil {
			result.notifyFailures++
			w.recorder.IncNotifyFailure(f.name)
			w.recorder.IncFailure(giterror.Classify(err))
			itemLog.Error("Failed to send notification", logfields.Error(err))
			continue
		}
		result.notified++
		itemLog.Info("Sent notification")
	}

	*f.cursor = head
	*f.etag = res.ETag
	w.recorder.AddNotifications(f.name, result.notified)
	log.Info("Updated cursor",
		logfields.PrevCursor(prev), logfields.Cursor(head),
		logfields.Count(result.newItems), slog.Int("notified", result.notified))
	return result, nil
}

// recovered runs fn and turns a panic into an ErrNotify error, so a
// misbehaving renderer or sink counts as one failed delivery.
func recovered(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v: %w", r, watcherrors.ErrNotify)
		}
	}()
	return fn()
}

// statusOf extracts the HTTP status from an error, or 0 for transport failures.
func statusOf(err error) int {
	var apiErr *github.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
