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

package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID is an opaque item identifier. GitHub returns event ids as strings and
// release ids as numbers; both decode into ID so cursors compare as strings.
type ID string

// UnmarshalJSON accepts a JSON string, number or null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Entry is the typed view of one repository in the store document.
type Entry struct {
	// Index is the entry's position in the document's repository list.
	Index int `json:"-"`

	URL           string   `json:"url"`
	Name          string   `json:"name"`
	ETag          string   `json:"etag"`
	LastEventID   ID       `json:"last_event_id"`
	TrackedEvents []string `json:"tracked_events"`
	ReleasesURL   string   `json:"releases_url"`
	ReleasesETag  string   `json:"releases_etag"`
	LastReleaseID ID       `json:"last_release_id"`
}

// Snapshot carries the mutable cursor state of one repository back to the
// store. Index refers to Entry.Index.
type Snapshot struct {
	Index         int
	ETag          string
	LastEventID   string
	ReleasesETag  string
	LastReleaseID string
}

// fields returns the document keys written for a snapshot. Event ids stay
// strings; release ids are written as numbers when numeric so existing
// files keep their shape.
func (s Snapshot) fields() map[string]any {
	lastEvent := s.LastEventID
	if lastEvent == "" {
		lastEvent = "0"
	}
	var lastRelease any = s.LastReleaseID
	if s.LastReleaseID == "" {
		lastRelease = 0
	} else if n, err := strconv.ParseInt(s.LastReleaseID, 10, 64); err == nil {
		lastRelease = n
	}
	return map[string]any{
		"etag":            s.ETag,
		"last_event_id":   lastEvent,
		"releases_etag":   s.ReleasesETag,
		"last_release_id": lastRelease,
	}
}
