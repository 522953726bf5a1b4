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

package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	watcherrors "github.com/sirseerhq/sirseer-watch/internal/errors"
)

// MockFeed is the state the mock serves for one URL.
type MockFeed struct {
	// Body is served on 200.
	Body []byte
	// ETag is returned with 200 and compared against If-None-Match.
	ETag string
	// Status overrides the response status when it is neither 0 nor 200.
	Status int
	// Err is returned instead of a response.
	Err error
}

// MockCall records one Fetch invocation.
type MockCall struct {
	URL       string
	Validator string
}

// MockFetcher is a mock implementation of Fetcher for testing. It answers
// 304 when the validator matches the feed's ETag, like GitHub does.
type MockFetcher struct {
	mu    sync.Mutex
	feeds map[string]*MockFeed
	calls []MockCall
}

// MockFetcherOption allows configuring the mock fetcher
type MockFetcherOption func(*MockFetcher)

// NewMockFetcher creates a mock fetcher with options
func NewMockFetcher(opts ...MockFetcherOption) *MockFetcher {
	m := &MockFetcher{feeds: make(map[string]*MockFeed)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// WithFeed serves body with etag at url.
func WithFeed(url, etag string, body []byte) MockFetcherOption {
	return func(m *MockFetcher) {
		m.feeds[url] = &MockFeed{Body: body, ETag: etag}
	}
}

// WithFetchError makes every fetch of url fail with err.
func WithFetchError(url string, err error) MockFetcherOption {
	return func(m *MockFetcher) {
		m.feeds[url] = &MockFeed{Err: err}
	}
}

// SetFeed replaces what url serves.
func (m *MockFetcher) SetFeed(url string, feed MockFeed) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feeds[url] = &feed
}

// SetEvents serves events as a JSON array at url.
func (m *MockFetcher) SetEvents(url, etag string, events ...Event) {
	m.SetFeed(url, MockFeed{Body: mustJSON(events), ETag: etag})
}

// SetReleases serves releases as a JSON array at url.
func (m *MockFetcher) SetReleases(url, etag string, releases ...Release) {
	m.SetFeed(url, MockFeed{Body: mustJSON(releases), ETag: etag})
}

// Calls returns the recorded invocations.
func (m *MockFetcher) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), m.calls...)
}

// CallCount returns how many times url was fetched.
func (m *MockFetcher) CallCount(url string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.URL == url {
			n++
		}
	}
	return n
}

// Fetch implements Fetcher.
func (m *MockFetcher) Fetch(ctx context.Context, url, validator string) (*FetchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, MockCall{URL: url, Validator: validator})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("GET %s: %v: %w", url, ctx.Err(), watcherrors.ErrNetworkFailure)
	default:
	}

	feed, ok := m.feeds[url]
	if !ok {
		return nil, &APIError{StatusCode: http.StatusNotFound, Message: "Not Found"}
	}
	if feed.Err != nil {
		return nil, feed.Err
	}
	if feed.Status != 0 && feed.Status != http.StatusOK {
		return nil, &APIError{StatusCode: feed.Status, Message: http.StatusText(feed.Status)}
	}
	if validator != "" && validator == feed.ETag {
		return &FetchResult{Status: http.StatusNotModified, ETag: validator}, nil
	}
	return &FetchResult{
		Status: http.StatusOK,
		Body:   append([]byte(nil), feed.Body...),
		ETag:   feed.ETag,
	}, nil
}

// StaticQuota is a QuotaSource that always reports the same value.
type StaticQuota int

// Remaining implements QuotaSource.
func (q StaticQuota) Remaining(context.Context) (int, error) { return int(q), nil }

// QuotaFunc adapts a function to QuotaSource.
type QuotaFunc func(ctx context.Context) (int, error)

// Remaining implements QuotaSource.
func (f QuotaFunc) Remaining(ctx context.Context) (int, error) { return f(ctx) }

func mustJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
