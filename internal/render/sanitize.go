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
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/unicode/norm"
)

var excessNewlines = regexp.MustCompile(`\n{3,}`)

// inlineMarkers maps inline HTML tags to the markdown that replaces them.
var inlineMarkers = map[atom.Atom]string{
	atom.B:      "**",
	atom.Strong: "**",
	atom.I:      "*",
	atom.Em:     "*",
	atom.Code:   "`",
	atom.S:      "~~",
	atom.Del:    "~~",
	atom.Strike: "~~",
}

// SanitizeReleaseBody converts inline HTML in release notes to markdown.
// Emphasis and code tags become markdown markers, images are dropped, links
// keep their text, list items become bullets, block tags become line breaks
// and runs of blank lines collapse to one.
func SanitizeReleaseBody(body string) string {
	if body == "" {
		return ""
	}

	z := html.NewTokenizer(strings.NewReader(body))
	var b strings.Builder
	inPre := false
	for {
		switch z.Next() {
		case html.ErrorToken:
			out := strings.ReplaceAll(b.String(), "\r\n", "\n")
			out = excessNewlines.ReplaceAllString(out, "\n\n")
			return strings.TrimSpace(out)
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := atom.Lookup(name)
			if marker, ok := inlineMarkers[tag]; ok {
				if !inPre {
					b.WriteString(marker)
				}
				continue
			}
			switch tag {
			case atom.Li:
				b.WriteString("\n- ")
			case atom.Pre:
				inPre = true
				b.WriteString("\n```\n")
			case atom.Br, atom.P, atom.Div, atom.Ul, atom.Ol,
				atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
				b.WriteString("\n")
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := atom.Lookup(name)
			if marker, ok := inlineMarkers[tag]; ok {
				if !inPre {
					b.WriteString(marker)
				}
				continue
			}
			switch tag {
			case atom.Pre:
				inPre = false
				b.WriteString("\n```\n")
			case atom.P, atom.Div, atom.Ul, atom.Ol,
				atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
				b.WriteString("\n")
			}
		}
	}
}

// truncate cuts s to at most n runes plus an ellipsis, backing off to a
// normalization boundary so a combining mark is never separated from its base.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	cut := 0
	for i := 0; i < n; i++ {
		_, size := utf8.DecodeRuneInString(s[cut:])
		cut += size
	}
	prefix := []byte(s[:cut])
	if !norm.NFC.PropertiesString(s[cut:]).BoundaryBefore() {
		if b := norm.NFC.LastBoundary(prefix); b > 0 {
			prefix = prefix[:b]
		}
	}
	return string(prefix) + "..."
}
