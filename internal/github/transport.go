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
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/sirseerhq/sirseer-watch/internal/giterror"
)

// maxResponseBytes caps response bodies. The events feed returns at most
// 30 items per page, well under this.
const maxResponseBytes = 10 * 1024 * 1024

// RateInfo is the request quota reported in the X-RateLimit-* headers of the
// most recent response.
type RateInfo struct {
	Limit     int
	Remaining int
	Reset     time.Time
	// Known is false until a response carrying the headers has been seen.
	Known bool
}

// rateTracker records the rate limit headers of each response.
type rateTracker struct {
	mu   sync.Mutex
	info RateInfo
}

func (r *rateTracker) update(h http.Header) {
	remaining := h.Get("X-RateLimit-Remaining")
	if remaining == "" {
		return
	}
	n, err := strconv.Atoi(remaining)
	if err != nil {
		return
	}
	info := RateInfo{Remaining: n, Known: true}
	if limit, err := strconv.Atoi(h.Get("X-RateLimit-Limit")); err == nil {
		info.Limit = limit
	}
	if reset, err := strconv.ParseInt(h.Get("X-RateLimit-Reset"), 10, 64); err == nil {
		info.Reset = time.Unix(reset, 0)
	}

	r.mu.Lock()
	r.info = info
	r.mu.Unlock()
}

func (r *rateTracker) get() RateInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.info
}

// limitedReader wraps a ReadCloser with a size limit to prevent excessive memory usage.
type limitedReader struct {
	io.ReadCloser
	limit int64
	read  int64
}

// Read implements io.Reader with size limit enforcement.
func (lr *limitedReader) Read(p []byte) (n int, err error) {
	if lr.read >= lr.limit {
		return 0, fmt.Errorf("response size exceeded limit of %d bytes", lr.limit)
	}

	remaining := lr.limit - lr.read
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}

	n, err = lr.ReadCloser.Read(p)
	lr.read += int64(n)

	return n, err
}

// authTransport adds authentication and API headers and safety limits to HTTP requests.
type authTransport struct {
	token     string
	userAgent string
	rate      *rateTracker
	base      http.RoundTripper
}

// RoundTrip implements http.RoundTripper
func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone the request to avoid modifying the original
	req = req.Clone(req.Context())

	if t.token != "" {
		req.Header.Set("Authorization", "token "+t.token)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/vnd.github+json")
	}
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("User-Agent", t.userAgent)

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if t.rate != nil {
		t.rate.update(resp.Header)
	}

	if resp.Body != nil {
		resp.Body = &limitedReader{
			ReadCloser: resp.Body,
			limit:      maxResponseBytes,
		}
	}

	return resp, nil
}

// retryTransport adds exponential backoff retry logic for transient failures.
// The request context bounds the whole sequence, so retries never outlive the
// per-fetch timeout.
type retryTransport struct {
	base      http.RoundTripper
	config    *RetryConfig
	inspector giterror.Inspector
}

// newRetryTransport creates a new transport with retry logic.
func newRetryTransport(base http.RoundTripper, cfg *RetryConfig) http.RoundTripper {
	if cfg == nil {
		cfg = DefaultRetryConfig()
	}
	return &retryTransport{
		base:      base,
		config:    cfg,
		inspector: giterror.NewErrorChainInspector(giterror.NewInspector()),
	}
}

// RoundTrip implements http.RoundTripper with retry logic. When the attempts
// run out on a retryable status, the last response is returned unchanged so
// the caller sees the real status code.
func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	attempts := t.config.MaxRetries + 1
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		attemptReq := req.Clone(req.Context())
		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			attemptReq.Body = body
		}

		resp, err := t.base.RoundTrip(attemptReq)

		if err == nil && (!isRetryableStatusCode(resp.StatusCode) || attempt == attempts-1) {
			return resp, nil
		}

		if err != nil {
			if !t.inspector.IsNetworkError(err) || req.Context().Err() != nil {
				return nil, err
			}
			lastErr = giterror.WithRetryInfo(err, attempt+1, attempts)
		} else {
			lastErr = giterror.WithRetryInfo(
				fmt.Errorf("received status %d", resp.StatusCode),
				attempt+1, attempts)
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		if attempt < attempts-1 {
			select {
			case <-time.After(t.config.backoff(attempt)):
			case <-req.Context().Done():
				return nil, req.Context().Err()
			}
		}
	}

	return nil, giterror.WithUserAction(lastErr,
		"Network connection failed. Please check your internet connection and try again")
}

// isRetryableStatusCode checks if an HTTP status code should trigger a retry.
func isRetryableStatusCode(code int) bool {
	switch code {
	case http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
