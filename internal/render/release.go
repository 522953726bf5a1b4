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
	"fmt"
	"strings"

	"github.com/sirseerhq/sirseer-watch/internal/github"
)

const (
	footerText = "GitHub"
	footerIcon = "https://github.githubassets.com/images/modules/logos_page/GitHub-Mark.png"

	// maxReleaseBody bounds the release notes excerpt in the embed.
	maxReleaseBody = 500
)

// Release renders a releases feed item for repo (owner/name).
func Release(rel github.Release, repo string) Message {
	var desc strings.Builder
	fmt.Fprintf(&desc, "**[%s](%s%s)**\n", repo, githubWeb, repo)
	if rel.Name != "" && rel.Name != rel.TagName {
		fmt.Fprintf(&desc, "**%s**\n", rel.Name)
	}
	if body := SanitizeReleaseBody(rel.Body); body != "" {
		desc.WriteString("\n")
		desc.WriteString(truncate(body, maxReleaseBody))
	}

	kind := "Release"
	switch {
	case rel.Prerelease:
		kind = "Pre-release"
	case rel.Draft:
		kind = "Draft"
	}

	embed := Embed{
		Title:       "Release " + rel.TagName,
		Description: desc.String(),
		URL:         rel.HTMLURL,
		Color:       ColorRelease,
		Timestamp:   rel.PublishedAt,
		Author: &Author{
			Name:    rel.Author.Login,
			URL:     rel.Author.HTMLURL,
			IconURL: rel.Author.AvatarURL,
		},
		Fields: []Field{{Name: "Type", Value: kind, Inline: true}},
		Footer: &Footer{Text: footerText, IconURL: footerIcon},
	}
	embed.applyLimits()

	return Message{
		Repository: repo,
		Kind:       github.KindRelease,
		ItemID:     rel.ItemID(),
		Embed:      embed,
	}
}
