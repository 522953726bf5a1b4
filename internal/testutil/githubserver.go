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

// Package testutil provides common test helpers for sirseer-watch: fake
// GitHub and Discord servers, feed item builders and file helpers.
package testutil

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/sirseerhq/sirseer-watch/internal/github"
)

// Feed names accepted by the fake GitHub server.
const (
	FeedEvents   = "events"
	FeedReleases = "releases"
)

type fakeFeed struct {
	body       []byte
	etag       string
	status     int
	failures   int
	failStatus int
}

// FakeGitHub serves repository events and releases feeds with ETag
// validation, plus the REST and GraphQL rate limit endpoints.
type FakeGitHub struct {
	*httptest.Server

	mu        sync.Mutex
	feeds     map[string]*fakeFeed
	requests  map[string]int
	remaining int
	token     string
}

// NewFakeGitHub starts a fake GitHub API that is closed when the test ends.
// The quota starts at 5000.
func NewFakeGitHub(t *testing.T) *FakeGitHub {
	t.Helper()
	f := &FakeGitHub{
		feeds:     make(map[string]*fakeFeed),
		requests:  make(map[string]int),
		remaining: 5000,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/{owner}/{repo}/{feed}", f.serveFeed)
	mux.HandleFunc("GET /rate_limit", f.serveRateLimit)
	mux.HandleFunc("POST /graphql", f.serveGraphQL)
	f.Server = httptest.NewServer(f.authenticate(mux))
	t.Cleanup(f.Close)
	return f
}

// EventsURL returns the events feed URL of repo ("owner/name").
func (f *FakeGitHub) EventsURL(repo string) string {
	return f.URL + "/repos/" + repo + "/events"
}

// ReleasesURL returns the releases feed URL of repo.
func (f *FakeGitHub) ReleasesURL(repo string) string {
	return f.URL + "/repos/" + repo + "/releases"
}

// RequireToken makes every request without "Authorization: token <tok>"
// fail with 401.
func (f *FakeGitHub) RequireToken(tok string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = tok
}

// SetRemaining sets the quota reported by the rate limit endpoints.
func (f *FakeGitHub) SetRemaining(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.remaining = n
}

// SetEvents serves events, newest first, as repo's events feed.
func (f *FakeGitHub) SetEvents(repo string, events ...github.Event) {
	f.setFeed(repo, FeedEvents, events)
}

// SetReleases serves releases, newest first, as repo's releases feed.
func (f *FakeGitHub) SetReleases(repo string, releases ...github.Release) {
	f.setFeed(repo, FeedReleases, releases)
}

// SetStatus makes a feed answer with status until it is set again.
func (f *FakeGitHub) SetStatus(repo, feed string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feed(repo, feed).status = status
}

// FailTimes makes the next n requests for a feed answer with status.
func (f *FakeGitHub) FailTimes(repo, feed string, n, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ff := f.feed(repo, feed)
	ff.failures = n
	ff.failStatus = status
}

// ETag returns the validator currently served for a feed.
func (f *FakeGitHub) ETag(repo, feed string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.feed(repo, feed).etag
}

// Requests returns how many requests reached path, for example
// "/repos/octo/repo/events" or "/rate_limit".
func (f *FakeGitHub) Requests(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[path]
}

func (f *FakeGitHub) setFeed(repo, feed string, items any) {
	body, err := json.Marshal(items)
	if err != nil {
		panic(err)
	}
	sum := sha256.Sum256(body)

	f.mu.Lock()
	defer f.mu.Unlock()
	ff := f.feed(repo, feed)
	ff.body = body
	ff.etag = `W/"` + hex.EncodeToString(sum[:8]) + `"`
}

// feed returns the feed, creating it. Callers hold mu.
func (f *FakeGitHub) feed(repo, feed string) *fakeFeed {
	key := repo + "/" + feed
	ff, ok := f.feeds[key]
	if !ok {
		ff = &fakeFeed{}
		f.feeds[key] = ff
	}
	return ff
}

func (f *FakeGitHub) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests[r.URL.Path]++
		token := f.token
		f.mu.Unlock()

		if token != "" && r.Header.Get("Authorization") != "token "+token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Bad credentials"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *FakeGitHub) serveFeed(w http.ResponseWriter, r *http.Request) {
	repo := r.PathValue("owner") + "/" + r.PathValue("repo")

	f.mu.Lock()
	ff, ok := f.feeds[repo+"/"+r.PathValue("feed")]
	var (
		body      []byte
		etag      string
		status    int
		remaining = f.remaining
	)
	if ok {
		body, etag, status = ff.body, ff.etag, ff.status
		if ff.failures > 0 {
			ff.failures--
			status = ff.failStatus
		}
	}
	f.mu.Unlock()

	w.Header().Set("X-RateLimit-Limit", "5000")
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

	switch {
	case !ok:
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
	case status != 0 && status != http.StatusOK:
		writeJSON(w, status, map[string]string{"message": http.StatusText(status)})
	case etag != "" && r.Header.Get("If-None-Match") == etag:
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
	default:
		w.Header().Set("ETag", etag)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}
}

func (f *FakeGitHub) serveRateLimit(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	remaining := f.remaining
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"resources": map[string]any{
			"core": map[string]int{"limit": 5000, "remaining": remaining},
		},
	})
}

func (f *FakeGitHub) serveGraphQL(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	remaining := f.remaining
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"rateLimit": map[string]int{"remaining": remaining},
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		panic(fmt.Sprintf("testutil: encode response: %v", err))
	}
}
