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

package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

const timeLayout = "2006-01-02 15:04:05"

type palette struct {
	timestamp lipgloss.Style
	errorMsg  lipgloss.Style
	warnMsg   lipgloss.Style
	header    lipgloss.Style
	success   lipgloss.Style
	quiet     lipgloss.Style
	plain     lipgloss.Style
	key       lipgloss.Style
}

func newPalette(r *lipgloss.Renderer) palette {
	return palette{
		timestamp: r.NewStyle().Foreground(lipgloss.Color("8")),
		errorMsg:  r.NewStyle().Foreground(lipgloss.Color("9")),
		warnMsg:   r.NewStyle().Foreground(lipgloss.Color("11")),
		header:    r.NewStyle().Foreground(lipgloss.Color("14")).Bold(true),
		success:   r.NewStyle().Foreground(lipgloss.Color("10")),
		quiet:     r.NewStyle().Foreground(lipgloss.Color("8")),
		plain:     r.NewStyle(),
		key:       r.NewStyle().Foreground(lipgloss.Color("12")),
	}
}

// ConsoleHandler is a slog.Handler producing one colored line per record:
// "<timestamp> <message> key=value ...". The color follows the level and a
// few message prefixes used by the watcher ("Checking", "Found new", ...).
// Color is dropped automatically when w is not a terminal.
type ConsoleHandler struct {
	mu     *sync.Mutex
	w      io.Writer
	opts   slog.HandlerOptions
	colors palette
	attrs  []slog.Attr
	group  string
}

// NewConsoleHandler creates a ConsoleHandler writing to w.
func NewConsoleHandler(w io.Writer, opts *slog.HandlerOptions) *ConsoleHandler {
	h := &ConsoleHandler{
		mu:     &sync.Mutex{},
		w:      w,
		colors: newPalette(lipgloss.NewRenderer(w)),
	}
	if opts != nil {
		h.opts = *opts
	}
	return h
}

// Enabled implements slog.Handler.
func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

// Handle implements slog.Handler.
func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer

	if !r.Time.IsZero() {
		buf.WriteString(h.colors.timestamp.Render(r.Time.Format(timeLayout)))
		buf.WriteByte(' ')
	}
	if r.Level >= slog.LevelWarn {
		buf.WriteString(r.Level.String())
		buf.WriteByte(' ')
	}
	buf.WriteString(h.styleFor(r.Level, r.Message).Render(r.Message))

	for _, a := range h.attrs {
		h.appendAttr(&buf, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		h.appendAttr(&buf, h.group, a)
		return true
	})
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

// WithAttrs implements slog.Handler.
func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	clone.attrs = append(clone.attrs, h.attrs...)
	for _, a := range attrs {
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		clone.attrs = append(clone.attrs, a)
	}
	return &clone
}

// WithGroup implements slog.Handler.
func (h *ConsoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	if clone.group != "" {
		clone.group += "." + name
	} else {
		clone.group = name
	}
	return &clone
}

func (h *ConsoleHandler) appendAttr(buf *bytes.Buffer, group string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if group != "" {
		key = group + "." + key
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			h.appendAttr(buf, key, ga)
		}
		return
	}
	val := a.Value.String()
	if strings.ContainsAny(val, " \t\"=") {
		val = fmt.Sprintf("%q", val)
	}
	buf.WriteByte(' ')
	buf.WriteString(h.colors.key.Render(key))
	buf.WriteByte('=')
	buf.WriteString(val)
}

func (h *ConsoleHandler) styleFor(level slog.Level, msg string) lipgloss.Style {
	switch {
	case level >= slog.LevelError:
		return h.colors.errorMsg
	case strings.Contains(msg, "Rate limit") || strings.Contains(msg, "quota"):
		return h.colors.warnMsg
	case level >= slog.LevelWarn:
		return h.colors.warnMsg
	case hasAnyPrefix(msg, "Starting", "Loading", "Initializing", "Checking"):
		return h.colors.header
	case hasAnyPrefix(msg, "Found new", "Sent", "Updated", "Saved") || strings.Contains(msg, "completed"):
		return h.colors.success
	case hasAnyPrefix(msg, "Skipping", "No new") || strings.Contains(msg, "not modified"):
		return h.colors.quiet
	default:
		return h.colors.plain
	}
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
