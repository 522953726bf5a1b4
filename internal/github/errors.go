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
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	watcherrors "github.com/sirseerhq/sirseer-watch/internal/errors"
)

// APIError is a response other than 200 or 304. It wraps
// ErrUnexpectedStatus and answers the giterror inspector probes.
type APIError struct {
	StatusCode int
	Message    string
	// RetryAfter is parsed from the Retry-After header when present.
	RetryAfter time.Duration
	// QuotaExhausted is set when X-RateLimit-Remaining was 0.
	QuotaExhausted bool
}

func newAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var body struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &body) == nil && body.Message != "" {
		apiErr.Message = body.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(data))
	}

	if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
		apiErr.RetryAfter = time.Duration(secs) * time.Second
	}
	apiErr.QuotaExhausted = resp.Header.Get("X-RateLimit-Remaining") == "0"
	return apiErr
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("github returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("github returned status %d: %s", e.StatusCode, e.Message)
}

// Unwrap lets errors.Is match ErrUnexpectedStatus.
func (e *APIError) Unwrap() error { return watcherrors.ErrUnexpectedStatus }

// IsAuthError reports a rejected or missing token.
func (e *APIError) IsAuthError() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// IsNotFoundError reports a missing or inaccessible repository.
func (e *APIError) IsNotFoundError() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsRateLimitError reports primary or secondary rate limiting. GitHub uses
// 403 for both rate limits and permission errors, so 403 only counts when
// the quota headers or message say so.
func (e *APIError) IsRateLimitError() bool {
	if e.StatusCode == http.StatusTooManyRequests {
		return true
	}
	if e.StatusCode != http.StatusForbidden {
		return false
	}
	return e.QuotaExhausted || strings.Contains(strings.ToLower(e.Message), "rate limit")
}
