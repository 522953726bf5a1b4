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

package testutil

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/sirseerhq/sirseer-watch/internal/github"
)

// EventBuilder provides a fluent API for creating test events.
type EventBuilder struct {
	ev github.Event
}

// NewEvent creates a WatchEvent by user1 on octo/repo.
func NewEvent(id string) *EventBuilder {
	return &EventBuilder{ev: github.Event{
		ID:        id,
		Type:      "WatchEvent",
		Actor:     github.Actor{Login: "user1", AvatarURL: "https://avatars.githubusercontent.com/u/1"},
		Repo:      github.RepoRef{Name: "octo/repo"},
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}}
}

// WithType sets the event type.
func (b *EventBuilder) WithType(kind string) *EventBuilder {
	b.ev.Type = kind
	return b
}

// WithActor sets the actor login.
func (b *EventBuilder) WithActor(login string) *EventBuilder {
	b.ev.Actor.Login = login
	return b
}

// WithRepo sets the repository name.
func (b *EventBuilder) WithRepo(name string) *EventBuilder {
	b.ev.Repo.Name = name
	return b
}

// WithPayload sets the payload from any JSON-encodable value.
func (b *EventBuilder) WithPayload(payload any) *EventBuilder {
	data, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	b.ev.Payload = data
	return b
}

// Build returns the event.
func (b *EventBuilder) Build() github.Event {
	return b.ev
}

// IssueOpened creates an IssuesEvent opening issue number.
func IssueOpened(id string, number int, title string) github.Event {
	return NewEvent(id).WithType("IssuesEvent").WithPayload(map[string]any{
		"action": "opened",
		"issue": map[string]any{
			"number":   number,
			"title":    title,
			"body":     fmt.Sprintf("Body of issue %d", number),
			"html_url": fmt.Sprintf("https://github.com/octo/repo/issues/%d", number),
		},
	}).Build()
}

// Events creates n WatchEvents with ids from first+n-1 down to first,
// newest first as GitHub lists them.
func Events(first, n int) []github.Event {
	events := make([]github.Event, 0, n)
	for id := first + n - 1; id >= first; id-- {
		events = append(events, NewEvent(strconv.Itoa(id)).Build())
	}
	return events
}

// ReleaseBuilder provides a fluent API for creating test releases.
type ReleaseBuilder struct {
	rel github.Release
}

// NewRelease creates a published release tagged v<id>.
func NewRelease(id int) *ReleaseBuilder {
	published := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return &ReleaseBuilder{rel: github.Release{
		ID:          json.Number(strconv.Itoa(id)),
		TagName:     fmt.Sprintf("v%d", id),
		HTMLURL:     fmt.Sprintf("https://github.com/octo/repo/releases/tag/v%d", id),
		Body:        fmt.Sprintf("Changes in v%d", id),
		Author:      github.User{Login: "user1", HTMLURL: "https://github.com/user1"},
		PublishedAt: &published,
	}}
}

// WithName sets the release name.
func (b *ReleaseBuilder) WithName(name string) *ReleaseBuilder {
	b.rel.Name = name
	return b
}

// WithBody sets the release notes.
func (b *ReleaseBuilder) WithBody(body string) *ReleaseBuilder {
	b.rel.Body = body
	return b
}

// Prerelease marks the release as a pre-release.
func (b *ReleaseBuilder) Prerelease() *ReleaseBuilder {
	b.rel.Prerelease = true
	return b
}

// Build returns the release.
func (b *ReleaseBuilder) Build() github.Release {
	return b.rel
}
