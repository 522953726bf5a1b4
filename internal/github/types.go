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
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	watcherrors "github.com/sirseerhq/sirseer-watch/internal/errors"
)

// KindRelease is the event kind that enables release polling. Items of the
// releases feed report it as their kind.
const KindRelease = "ReleaseEvent"

// Item is one entry of a newest-first feed. IDs are opaque strings.
type Item interface {
	ItemID() string
	Kind() string
}

// Actor is the user that caused an event.
type Actor struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
}

// RepoRef names the repository an event belongs to.
type RepoRef struct {
	Name string `json:"name"`
}

// Event is one entry of the repository events feed. Payload is kept raw and
// decoded per kind by the renderer.
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Actor     Actor           `json:"actor"`
	Repo      RepoRef         `json:"repo"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// UnmarshalJSON accepts the id as a JSON string or number.
func (e *Event) UnmarshalJSON(data []byte) error {
	type plain Event
	aux := struct {
		*plain
		ID json.RawMessage `json:"id"`
	}{plain: (*plain)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	id, err := opaqueID(aux.ID)
	if err != nil {
		return fmt.Errorf("event id: %w", err)
	}
	e.ID = id
	return nil
}

// ItemID implements Item.
func (e Event) ItemID() string { return e.ID }

// Kind implements Item.
func (e Event) Kind() string { return e.Type }

// User is a release author.
type User struct {
	Login     string `json:"login"`
	HTMLURL   string `json:"html_url"`
	AvatarURL string `json:"avatar_url"`
}

// Release is one entry of the repository releases feed. GitHub sends a
// numeric id; it is kept as json.Number so large ids survive unchanged.
type Release struct {
	ID          json.Number `json:"id"`
	TagName     string      `json:"tag_name"`
	Name        string      `json:"name"`
	HTMLURL     string      `json:"html_url"`
	Body        string      `json:"body"`
	Author      User        `json:"author"`
	Prerelease  bool        `json:"prerelease"`
	Draft       bool        `json:"draft"`
	PublishedAt *time.Time  `json:"published_at"`
}

// ItemID implements Item.
func (r Release) ItemID() string { return r.ID.String() }

// Kind implements Item.
func (r Release) Kind() string { return KindRelease }

// opaqueID renders a JSON string, number or null id as a string.
func opaqueID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("must be a string or number: %w", err)
	}
	return n.String(), nil
}

// DecodeEvents parses an events feed body.
func DecodeEvents(body []byte) ([]Event, error) {
	var events []Event
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("events feed: %v: %w", err, watcherrors.ErrMalformedResponse)
	}
	return events, nil
}

// DecodeReleases parses a releases feed body.
func DecodeReleases(body []byte) ([]Release, error) {
	var releases []Release
	if err := json.Unmarshal(body, &releases); err != nil {
		return nil, fmt.Errorf("releases feed: %v: %w", err, watcherrors.ErrMalformedResponse)
	}
	return releases, nil
}
