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
	"fmt"
	"io"
	"net/http"
	"time"

	watcherrors "github.com/sirseerhq/sirseer-watch/internal/errors"
	"github.com/sirseerhq/sirseer-watch/internal/giterror"
)

// DefaultAPIEndpoint is the public GitHub REST API.
const DefaultAPIEndpoint = "https://api.github.com"

// apiVersion is sent as X-GitHub-Api-Version on every request.
const apiVersion = "2022-11-28"

// Fetcher issues conditional GET requests against a feed URL.
// This interface allows for easy mocking in tests.
type Fetcher interface {
	// Fetch requests url, sending validator as If-None-Match when it is not
	// empty. A 200 or 304 response returns a FetchResult; any other status
	// returns an *APIError wrapping ErrUnexpectedStatus.
	Fetch(ctx context.Context, url, validator string) (*FetchResult, error)
}

// FetchResult is the outcome of one conditional request.
type FetchResult struct {
	// Status is the HTTP status code, 200 or 304.
	Status int
	// Body is the response body; nil on 304.
	Body []byte
	// ETag is the fresh validator. On 304 it repeats the validator sent.
	ETag string
}

// NotModified reports whether the upstream answered 304.
func (r *FetchResult) NotModified() bool {
	return r.Status == http.StatusNotModified
}

// Options configures a Client.
type Options struct {
	// Token authenticates requests. Empty sends unauthenticated requests.
	Token string
	// UserAgent identifies the client. Defaults to "sirseer-watch".
	UserAgent string
	// Retry configures transient failure retries. Nil uses DefaultRetryConfig.
	Retry *RetryConfig
	// Transport is the base round tripper. Nil uses a pooled transport.
	Transport http.RoundTripper
}

// Client implements Fetcher against the GitHub REST API.
type Client struct {
	http      *http.Client
	rate      *rateTracker
	inspector giterror.Inspector
}

// NewClient creates a REST client. The transport chain is
// retry -> auth/size limit -> base, so each retry is re-authenticated.
func NewClient(opts Options) *Client {
	base := opts.Transport
	if base == nil {
		base = &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			ForceAttemptHTTP2:   true,
		}
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "sirseer-watch"
	}

	rate := &rateTracker{}
	auth := &authTransport{
		token:     opts.Token,
		userAgent: userAgent,
		rate:      rate,
		base:      base,
	}

	return &Client{
		http:      &http.Client{Transport: newRetryTransport(auth, opts.Retry)},
		rate:      rate,
		inspector: giterror.NewErrorChainInspector(giterror.NewInspector()),
	}
}

// HTTPClient returns the authenticated client, for callers such as the
// GraphQL quota probe that need the same transport chain.
func (c *Client) HTTPClient() *http.Client { return c.http }

// Rate returns the rate limit reported by the most recent response.
func (c *Client) Rate() RateInfo { return c.rate.get() }

// Fetch implements Fetcher.
func (c *Client) Fetch(ctx context.Context, url, validator string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", url, err)
	}
	if validator != "" {
		req.Header.Set("If-None-Match", validator)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.mapTransportError(err, url)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		_, _ = io.Copy(io.Discard, resp.Body)
		etag := resp.Header.Get("ETag")
		if etag == "" {
			etag = validator
		}
		return &FetchResult{Status: resp.StatusCode, ETag: etag}, nil
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, c.mapTransportError(err, url)
		}
		return &FetchResult{
			Status: resp.StatusCode,
			Body:   body,
			ETag:   resp.Header.Get("ETag"),
		}, nil
	default:
		return nil, newAPIError(resp)
	}
}

// mapTransportError wraps connection-level failures so they classify as
// network errors.
func (c *Client) mapTransportError(err error, url string) error {
	if c.inspector.IsNetworkError(err) {
		return fmt.Errorf("GET %s: %v: %w", url, err, watcherrors.ErrNetworkFailure)
	}
	return fmt.Errorf("GET %s: %w", url, err)
}
