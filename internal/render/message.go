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

// Package render turns feed items into chat messages. Each event kind has
// its own payload variant and render function; kinds without one produce no
// message.
package render

import (
	"time"
	"unicode/utf8"
)

// Embed colors.
const (
	ColorEvent   = 0x43f770
	ColorRelease = 0x238636
)

// Discord embed limits and the placeholders used when they are exceeded.
const (
	MaxTitleLength       = 256
	MaxDescriptionLength = 4096

	TitleTooLong       = "[title was too long, click here]"
	DescriptionTooLong = "[body was too long, please visit the link]"
)

// Message is one notification. Repository, Kind and ItemID route and
// identify it; Embed is what the channel shows.
type Message struct {
	Repository string `json:"repository"`
	Kind       string `json:"kind"`
	ItemID     string `json:"item_id"`
	Embed      Embed  `json:"embed"`
}

// Embed mirrors the Discord embed object so it can be sent as is.
type Embed struct {
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description,omitempty"`
	URL         string     `json:"url,omitempty"`
	Color       int        `json:"color,omitempty"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
	Thumbnail   *Image     `json:"thumbnail,omitempty"`
	Author      *Author    `json:"author,omitempty"`
	Fields      []Field    `json:"fields,omitempty"`
	Footer      *Footer    `json:"footer,omitempty"`
}

// Image is an embed thumbnail.
type Image struct {
	URL string `json:"url"`
}

// Author is the embed author block.
type Author struct {
	Name    string `json:"name"`
	URL     string `json:"url,omitempty"`
	IconURL string `json:"icon_url,omitempty"`
}

// Field is an embed field.
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// Footer is the embed footer.
type Footer struct {
	Text    string `json:"text"`
	IconURL string `json:"icon_url,omitempty"`
}

// applyLimits replaces a title or description that Discord would reject.
func (e *Embed) applyLimits() {
	if utf8.RuneCountInString(e.Description) > MaxDescriptionLength {
		e.Description = DescriptionTooLong
	}
	if utf8.RuneCountInString(e.Title) > MaxTitleLength {
		e.Title = TitleTooLong
	}
}
