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

// Package watcher tracks one repository's events and releases feeds.
//
// Each feed has a validator (the last ETag) and a cursor (the id of the newest
// item already processed). A check fetches the feed conditionally, finds the
// items newer than the cursor, notifies them oldest-first and advances the
// cursor to the head. A cursor that is uninitialized or no longer visible in
// the returned window is reset to the head without notifying, so a stale
// state never floods the channel.
//
// A Watcher is not safe for concurrent use; the scheduler drives one check
// at a time.
package watcher
