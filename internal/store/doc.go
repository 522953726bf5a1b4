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

// Package store persists the repository list and per-repository cursor state.
//
// The store is a single document (JSON, or YAML when the file name ends in
// .yaml/.yml) holding an ordered list of repository entries:
//
//	{
//	  "repositories": [
//	    {
//	      "url": "https://api.github.com/repos/octo/hello/events",
//	      "name": "octo/hello",
//	      "etag": "W/\"abc\"",
//	      "last_event_id": "31415926535",
//	      "tracked_events": ["PushEvent", "ReleaseEvent"],
//	      "releases_url": "https://api.github.com/repos/octo/hello/releases",
//	      "releases_etag": "",
//	      "last_release_id": 0
//	    }
//	  ]
//	}
//
// The document is operator-edited, so writes re-read the file first, update
// only the state fields of each entry by position and keep everything else.
// Every write is atomic, using a write-to-temp-and-rename pattern to prevent
// corruption during crashes or power loss.
package store
