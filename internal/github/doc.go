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

// Package github fetches the GitHub REST feeds sirseer-watch polls. It
// issues conditional GET requests carrying the previous ETag, returns the
// status, body and fresh validator, and reports the remaining request quota
// through either the REST or the GraphQL API.
//
// The package includes:
//   - A Fetcher interface and the REST Client implementing it
//   - Transports adding authentication, retries and response size limits
//   - QuotaSource implementations for /rate_limit and GraphQL rateLimit
//   - Event and Release feed item types
//   - A mock fetcher for testing
//
// Basic usage:
//
//	client := github.NewClient(github.Options{Token: token})
//	res, err := client.Fetch(ctx, "https://api.github.com/repos/golang/go/events", etag)
//	if err != nil {
//	    // Handle error
//	}
//	if res.NotModified() {
//	    // Nothing changed since etag
//	}
package github
