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

// Package logging builds the process-wide slog logger. Console output uses a
// colored handler styled with lipgloss; text and JSON formats fall back to the
// standard slog handlers for log shippers.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Supported --log-format values.
const (
	FormatConsole = "console"
	FormatText    = "text"
	FormatJSON    = "json"
)

// Options configures New.
type Options struct {
	Format  string
	Verbose bool
}

// New returns a logger writing to w in the requested format.
func New(w io.Writer, opts Options) (*slog.Logger, error) {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(opts.Format) {
	case "", FormatConsole:
		return slog.New(NewConsoleHandler(w, handlerOpts)), nil
	case FormatText:
		return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q (want console, text or json)", opts.Format)
	}
}
