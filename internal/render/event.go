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
	"fmt"
	"strconv"
	"strings"

	"github.com/sirseerhq/sirseer-watch/internal/github"
)

const githubWeb = "https://github.com/"

// payload is one variant of the event tagged union.
type payload interface {
	embed(ev github.Event) (Embed, bool)
}

// variants maps an event kind to a constructor for its payload variant.
var variants = map[string]func() payload{
	"WatchEvent":        func() payload { return &watchPayload{} },
	"IssueCommentEvent": func() payload { return &issueCommentPayload{} },
	"IssuesEvent":       func() payload { return &issuesPayload{} },
	"PullRequestEvent":  func() payload { return &pullRequestPayload{} },
	"ForkEvent":         func() payload { return &forkPayload{} },
	"ReleaseEvent":      func() payload { return &releaseEventPayload{} },
	"PushEvent":         func() payload { return &pushPayload{} },
}

// Supported reports whether kind has a renderer.
func Supported(kind string) bool {
	_, ok := variants[kind]
	return ok
}

// Event renders an events feed item. It returns false when the kind or
// action has no renderer; the error is set only for a payload that does
// not match its kind.
func Event(ev github.Event) (Message, bool, error) {
	newPayload, ok := variants[ev.Type]
	if !ok {
		return Message{}, false, nil
	}

	p := newPayload()
	if len(ev.Payload) > 0 {
		if err := json.Unmarshal(ev.Payload, p); err != nil {
			return Message{}, false, fmt.Errorf("%s %s payload: %w", ev.Type, ev.ID, err)
		}
	}

	embed, ok := p.embed(ev)
	if !ok {
		return Message{}, false, nil
	}
	embed.Color = ColorEvent
	if ev.Actor.AvatarURL != "" {
		embed.Thumbnail = &Image{URL: ev.Actor.AvatarURL}
	}
	embed.applyLimits()

	return Message{
		Repository: ev.Repo.Name,
		Kind:       ev.Type,
		ItemID:     ev.ID,
		Embed:      embed,
	}, true, nil
}

type watchPayload struct{}

func (watchPayload) embed(ev github.Event) (Embed, bool) {
	user := ev.Actor.Login
	return Embed{
		Description: fmt.Sprintf("[%s](%s%s) starred %s!", user, githubWeb, user, ev.Repo.Name),
	}, true
}

type issue struct {
	Number      int    `json:"number"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	HTMLURL     string `json:"html_url"`
	StateReason string `json:"state_reason"`
}

type issueCommentPayload struct {
	Action  string `json:"action"`
	Issue   issue  `json:"issue"`
	Comment struct {
		Body string `json:"body"`
	} `json:"comment"`
}

func (p *issueCommentPayload) embed(ev github.Event) (Embed, bool) {
	if p.Action != "created" {
		return Embed{}, false
	}
	return Embed{
		Title:       fmt.Sprintf("%s commented on %s#%d", ev.Actor.Login, ev.Repo.Name, p.Issue.Number),
		Description: p.Comment.Body,
		URL:         p.Issue.HTMLURL,
	}, true
}

type issuesPayload struct {
	Action string `json:"action"`
	Issue  issue  `json:"issue"`
}

func (p *issuesPayload) embed(ev github.Event) (Embed, bool) {
	ref := fmt.Sprintf("%s#%d", ev.Repo.Name, p.Issue.Number)
	switch p.Action {
	case "opened":
		return Embed{
			Title:       fmt.Sprintf("%s opened issue: %s %s", ev.Actor.Login, ref, p.Issue.Title),
			Description: p.Issue.Body,
			URL:         p.Issue.HTMLURL,
		}, true
	case "closed":
		return Embed{
			Title:       fmt.Sprintf("%s closed issue: %s", ev.Actor.Login, ref),
			Description: "reason: " + orNone(p.Issue.StateReason),
			URL:         p.Issue.HTMLURL,
		}, true
	default:
		return Embed{}, false
	}
}

type pullRequestPayload struct {
	Action      string `json:"action"`
	Number      int    `json:"number"`
	PullRequest struct {
		Title   string `json:"title"`
		Body    string `json:"body"`
		HTMLURL string `json:"html_url"`
		Merged  bool   `json:"merged"`
	} `json:"pull_request"`
}

func (p *pullRequestPayload) embed(ev github.Event) (Embed, bool) {
	ref := fmt.Sprintf("%s#%d", ev.Repo.Name, p.Number)
	switch p.Action {
	case "opened":
		return Embed{
			Title:       fmt.Sprintf("%s opened pull request: %s %s", ev.Actor.Login, ref, p.PullRequest.Title),
			Description: p.PullRequest.Body,
			URL:         p.PullRequest.HTMLURL,
		}, true
	case "closed":
		return Embed{
			Title:       fmt.Sprintf("%s closed pull request: %s", ev.Actor.Login, ref),
			Description: "merged: " + strconv.FormatBool(p.PullRequest.Merged),
			URL:         p.PullRequest.HTMLURL,
		}, true
	default:
		return Embed{}, false
	}
}

type forkPayload struct {
	Forkee struct {
		FullName string `json:"full_name"`
	} `json:"forkee"`
}

func (p *forkPayload) embed(ev github.Event) (Embed, bool) {
	return Embed{
		Title: fmt.Sprintf("%s forked %s", ev.Actor.Login, ev.Repo.Name),
		URL:   githubWeb + p.Forkee.FullName,
	}, true
}

type releaseEventPayload struct {
	Release struct {
		TagName string `json:"tag_name"`
		Body    string `json:"body"`
		HTMLURL string `json:"html_url"`
	} `json:"release"`
}

func (p *releaseEventPayload) embed(ev github.Event) (Embed, bool) {
	return Embed{
		Title:       fmt.Sprintf("%s published a release for %s: %s", ev.Actor.Login, ev.Repo.Name, p.Release.TagName),
		Description: p.Release.Body,
		URL:         p.Release.HTMLURL,
	}, true
}

type pushPayload struct {
	Before  string `json:"before"`
	Head    string `json:"head"`
	Size    int    `json:"size"`
	Commits []struct {
		SHA     string `json:"sha"`
		Message string `json:"message"`
		URL     string `json:"url"`
		Author  struct {
			Name string `json:"name"`
		} `json:"author"`
	} `json:"commits"`
}

func (p *pushPayload) embed(ev github.Event) (Embed, bool) {
	size := p.Size
	if size == 0 {
		size = len(p.Commits)
	}

	var b strings.Builder
	for _, c := range p.Commits {
		fmt.Fprintf(&b, "[%s](%s) - %s - %s \n", shortSHA(c.SHA), commitLink(c.URL), c.Message, c.Author.Name)
	}

	return Embed{
		Title:       fmt.Sprintf("%s pushed %d commit(s) to %s", ev.Actor.Login, size, ev.Repo.Name),
		Description: b.String(),
		URL:         fmt.Sprintf("%s%s/compare/%s..%s", githubWeb, ev.Repo.Name, p.Before, p.Head),
	}, true
}

func shortSHA(sha string) string {
	if len(sha) > 6 {
		return sha[:6]
	}
	return sha
}

// commitLink turns an API commit URL into its web page.
func commitLink(apiURL string) string {
	link := strings.ReplaceAll(apiURL, "api.", "")
	link = strings.ReplaceAll(link, "repos/", "")
	return strings.ReplaceAll(link, "commits", "commit")
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
