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

package render

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirseerhq/sirseer-watch/internal/github"
)

func event(kind, payload string) github.Event {
	return github.Event{
		ID:      "1001",
		Type:    kind,
		Actor:   github.Actor{Login: "alice", AvatarURL: "https://avatars/alice"},
		Repo:    github.RepoRef{Name: "octo/hello"},
		Payload: json.RawMessage(payload),
	}
}

func TestEvent_Variants(t *testing.T) {
	tests := []struct {
		name      string
		kind      string
		payload   string
		wantTitle string
		wantDesc  string
		wantURL   string
	}{
		{
			name:     "watch",
			kind:     "WatchEvent",
			payload:  `{"action":"started"}`,
			wantDesc: "[alice](https://github.com/alice) starred octo/hello!",
		},
		{
			name:      "issue comment created",
			kind:      "IssueCommentEvent",
			payload:   `{"action":"created","issue":{"number":7,"html_url":"https://github.com/octo/hello/issues/7"},"comment":{"body":"looks good"}}`,
			wantTitle: "alice commented on octo/hello#7",
			wantDesc:  "looks good",
			wantURL:   "https://github.com/octo/hello/issues/7",
		},
		{
			name:      "issue opened",
			kind:      "IssuesEvent",
			payload:   `{"action":"opened","issue":{"number":8,"title":"Crash on start","body":"stack trace","html_url":"https://github.com/octo/hello/issues/8"}}`,
			wantTitle: "alice opened issue: octo/hello#8 Crash on start",
			wantDesc:  "stack trace",
			wantURL:   "https://github.com/octo/hello/issues/8",
		},
		{
			name:      "issue closed",
			kind:      "IssuesEvent",
			payload:   `{"action":"closed","issue":{"number":8,"state_reason":"completed","html_url":"https://github.com/octo/hello/issues/8"}}`,
			wantTitle: "alice closed issue: octo/hello#8",
			wantDesc:  "reason: completed",
			wantURL:   "https://github.com/octo/hello/issues/8",
		},
		{
			name:      "pull request opened",
			kind:      "PullRequestEvent",
			payload:   `{"action":"opened","number":9,"pull_request":{"title":"Add feature","body":"details","html_url":"https://github.com/octo/hello/pull/9"}}`,
			wantTitle: "alice opened pull request: octo/hello#9 Add feature",
			wantDesc:  "details",
			wantURL:   "https://github.com/octo/hello/pull/9",
		},
		{
			name:      "pull request closed",
			kind:      "PullRequestEvent",
			payload:   `{"action":"closed","number":9,"pull_request":{"merged":true,"html_url":"https://github.com/octo/hello/pull/9"}}`,
			wantTitle: "alice closed pull request: octo/hello#9",
			wantDesc:  "merged: true",
			wantURL:   "https://github.com/octo/hello/pull/9",
		},
		{
			name:      "fork",
			kind:      "ForkEvent",
			payload:   `{"forkee":{"full_name":"alice/hello"}}`,
			wantTitle: "alice forked octo/hello",
			wantURL:   "https://github.com/alice/hello",
		},
		{
			name:      "release event",
			kind:      "ReleaseEvent",
			payload:   `{"action":"published","release":{"tag_name":"v2.0.0","body":"notes","html_url":"https://github.com/octo/hello/releases/tag/v2.0.0"}}`,
			wantTitle: "alice published a release for octo/hello: v2.0.0",
			wantDesc:  "notes",
			wantURL:   "https://github.com/octo/hello/releases/tag/v2.0.0",
		},
		{
			name: "push",
			kind: "PushEvent",
			payload: `{"before":"aaa111","head":"bbb222","size":2,"commits":[
				{"sha":"abcdef123456","message":"first","url":"https://api.github.com/repos/octo/hello/commits/abcdef123456","author":{"name":"Alice"}},
				{"sha":"123456abcdef","message":"second","url":"https://api.github.com/repos/octo/hello/commits/123456abcdef","author":{"name":"Bob"}}]}`,
			wantTitle: "alice pushed 2 commit(s) to octo/hello",
			wantDesc: "[abcdef](https://github.com/octo/hello/commit/abcdef123456) - first - Alice \n" +
				"[123456](https://github.com/octo/hello/commit/123456abcdef) - second - Bob \n",
			wantURL: "https://github.com/octo/hello/compare/aaa111..bbb222",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, ok, err := Event(event(tt.kind, tt.payload))
			require.NoError(t, err)
			require.True(t, ok)

			assert.Equal(t, tt.wantTitle, msg.Embed.Title)
			assert.Equal(t, tt.wantDesc, msg.Embed.Description)
			assert.Equal(t, tt.wantURL, msg.Embed.URL)
			assert.Equal(t, ColorEvent, msg.Embed.Color)
			require.NotNil(t, msg.Embed.Thumbnail)
			assert.Equal(t, "https://avatars/alice", msg.Embed.Thumbnail.URL)

			assert.Equal(t, "octo/hello", msg.Repository)
			assert.Equal(t, tt.kind, msg.Kind)
			assert.Equal(t, "1001", msg.ItemID)
		})
	}
}

func TestEvent_Absent(t *testing.T) {
	tests := []struct {
		name    string
		kind    string
		payload string
	}{
		{"unknown kind", "GollumEvent", `{}`},
		{"create event", "CreateEvent", `{"ref_type":"branch"}`},
		{"comment edited", "IssueCommentEvent", `{"action":"edited"}`},
		{"issue reopened", "IssuesEvent", `{"action":"reopened","issue":{"number":1}}`},
		{"pull request synchronize", "PullRequestEvent", `{"action":"synchronize","number":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok, err := Event(event(tt.kind, tt.payload))
			assert.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestEvent_MalformedPayload(t *testing.T) {
	_, ok, err := Event(event("IssuesEvent", `{"action": 5}`))
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("PushEvent"))
	assert.True(t, Supported(github.KindRelease))
	assert.False(t, Supported("MemberEvent"))
}

func TestEvent_Limits(t *testing.T) {
	longBody := strings.Repeat("x", MaxDescriptionLength+1)
	msg, ok, err := Event(event("IssueCommentEvent",
		`{"action":"created","issue":{"number":1},"comment":{"body":"`+longBody+`"}}`))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, DescriptionTooLong, msg.Embed.Description)

	exact := strings.Repeat("\u00e9", MaxDescriptionLength)
	msg, _, err = Event(event("IssueCommentEvent",
		`{"action":"created","issue":{"number":1},"comment":{"body":"`+exact+`"}}`))
	require.NoError(t, err)
	assert.Equal(t, exact, msg.Embed.Description, "limits count characters, not bytes")

	longTitle := strings.Repeat("t", MaxTitleLength)
	msg, _, err = Event(event("IssuesEvent",
		`{"action":"opened","issue":{"number":1,"title":"`+longTitle+`"}}`))
	require.NoError(t, err)
	assert.Equal(t, TitleTooLong, msg.Embed.Title)
}

func TestRelease(t *testing.T) {
	published := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	rel := github.Release{
		ID:          "555",
		TagName:     "v1.0.0",
		Name:        "First stable",
		HTMLURL:     "https://github.com/octo/hello/releases/tag/v1.0.0",
		Body:        "Changes <img src=\"x.png\"> and <a href=\"https://x\">link</a>\n\n\n\nmore",
		Author:      github.User{Login: "carol", HTMLURL: "https://github.com/carol", AvatarURL: "https://avatars/carol"},
		PublishedAt: &published,
	}

	msg := Release(rel, "octo/hello")

	assert.Equal(t, "octo/hello", msg.Repository)
	assert.Equal(t, github.KindRelease, msg.Kind)
	assert.Equal(t, "555", msg.ItemID)

	e := msg.Embed
	assert.Equal(t, "Release v1.0.0", e.Title)
	assert.Equal(t, rel.HTMLURL, e.URL)
	assert.Equal(t, ColorRelease, e.Color)
	assert.Equal(t, &published, e.Timestamp)
	assert.Equal(t, "**[octo/hello](https://github.com/octo/hello)**\n**First stable**\n\nChanges  and link\n\nmore", e.Description)
	require.NotNil(t, e.Author)
	assert.Equal(t, Author{Name: "carol", URL: "https://github.com/carol", IconURL: "https://avatars/carol"}, *e.Author)
	assert.Equal(t, []Field{{Name: "Type", Value: "Release", Inline: true}}, e.Fields)
	require.NotNil(t, e.Footer)
	assert.Equal(t, "GitHub", e.Footer.Text)
}

func TestRelease_Type(t *testing.T) {
	tests := []struct {
		rel  github.Release
		want string
	}{
		{github.Release{TagName: "v1", Prerelease: true}, "Pre-release"},
		{github.Release{TagName: "v1", Draft: true}, "Draft"},
		{github.Release{TagName: "v1", Prerelease: true, Draft: true}, "Pre-release"},
		{github.Release{TagName: "v1"}, "Release"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			msg := Release(tt.rel, "o/r")
			assert.Equal(t, tt.want, msg.Embed.Fields[0].Value)
		})
	}
}

func TestRelease_NameEqualToTagIsOmitted(t *testing.T) {
	msg := Release(github.Release{TagName: "v1", Name: "v1"}, "o/r")
	assert.Equal(t, "**[o/r](https://github.com/o/r)**\n", msg.Embed.Description)
}

func TestRelease_LongBodyIsCut(t *testing.T) {
	msg := Release(github.Release{TagName: "v1", Body: strings.Repeat("b", 600)}, "o/r")
	assert.True(t, strings.HasSuffix(msg.Embed.Description, strings.Repeat("b", 500)+"..."))
	assert.NotContains(t, msg.Embed.Description, strings.Repeat("b", 501))
}

func TestSanitizeReleaseBody(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain markdown", "## Fixes\n- one\n- two", "## Fixes\n- one\n- two"},
		{"strips images", "before <img src=\"a.png\" alt=\"a\"/> after", "before  after"},
		{"keeps link text", "see <a href=\"https://x\">the docs</a>", "see the docs"},
		{"line breaks", "one<br>two", "one\ntwo"},
		{"collapses blank lines", "a\n\n\n\n\nb", "a\n\nb"},
		{"unescapes entities", "a &amp; b", "a & b"},
		{"trims", "\n\n  text  \n\n", "text"},
		{"bold", "<b>bold</b> and <strong>strong</strong>", "**bold** and **strong**"},
		{"italic", "<i>a</i> <em>b</em>", "*a* *b*"},
		{"inline code", "run <code>make test</code>", "run `make test`"},
		{"strikethrough", "<del>old</del> new", "~~old~~ new"},
		{"list items", "<ul><li>one</li><li>two</li></ul>", "- one\n- two"},
		{"code block", "<pre><code>go test ./...</code></pre>", "```\ngo test ./...\n```"},
		{"bold link text", "<a href=\"https://x\"><b>docs</b></a>", "**docs**"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeReleaseBody(tt.in))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc...", truncate("abcdef", 3))
	assert.Equal(t, "\u00e9\u00e9\u00e9...", truncate("\u00e9\u00e9\u00e9\u00e9\u00e9\u00e9", 3))
	assert.Equal(t, "aaaa...", truncate("aaaae\u0301zzz", 5), "combining mark stays with its base")
}

func TestMessageJSONShape(t *testing.T) {
	msg := Release(github.Release{ID: "1", TagName: "v1"}, "o/r")
	data, err := json.Marshal(msg.Embed)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Contains(t, got, "title")
	assert.Contains(t, got, "author")
	assert.Contains(t, got, "footer")
	assert.NotContains(t, got, "thumbnail")
	assert.NotContains(t, got, "timestamp")
}
