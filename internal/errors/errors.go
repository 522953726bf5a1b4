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

// Package errors defines sentinel errors for consistent error handling across the application.
// Watcher and scheduler code wraps these with %w so callers can classify failures
// with errors.Is, and the CLI maps a subset of them to exit codes.
package errors

import "errors"

// Sentinel errors for consistent error handling and exit code mapping
var (
	// ErrInvalidToken indicates GitHub or chat authentication failed.
	// Maps to exit code 2.
	ErrInvalidToken = errors.New("invalid token")

	// ErrRepoNotFound indicates the specified repository does not exist or is not accessible.
	ErrRepoNotFound = errors.New("repository not found")

	// ErrNetworkFailure indicates a network connection problem or a fetch timeout.
	// Maps to exit code 3.
	ErrNetworkFailure = errors.New("network connection failed")

	// ErrRateLimit indicates GitHub API rate limit has been exceeded.
	ErrRateLimit = errors.New("github rate limit exceeded")

	// ErrQuotaReserve indicates the remaining request quota is at or below the
	// configured reserve. The repository check is deferred to the next cycle.
	ErrQuotaReserve = errors.New("request quota at reserve")

	// ErrUnexpectedStatus indicates a response that was neither 2xx nor 304.
	ErrUnexpectedStatus = errors.New("unexpected response status")

	// ErrMalformedResponse indicates a response body that could not be decoded.
	ErrMalformedResponse = errors.New("malformed response body")

	// ErrNotify indicates a notification could not be delivered.
	ErrNotify = errors.New("notification delivery failed")

	// ErrInvalidConfig indicates unusable settings at startup.
	// Maps to exit code 2.
	ErrInvalidConfig = errors.New("invalid configuration")
)
