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

// Package logfields holds canonical log attribute names so every package
// logs repositories, feeds and cursors under the same keys.
package logfields

import "log/slog"

const (
	KeyRepo       = "repository"
	KeyFeed       = "feed"
	KeyCursor     = "cursor"
	KeyPrevCursor = "previous_cursor"
	KeyStatus     = "status"
	KeyKind       = "kind"
	KeyItemID     = "item_id"
	KeyCount      = "count"
	KeyRemaining  = "remaining"
	KeyCycleID    = "cycle_id"
	KeyDurationMS = "duration_ms"
	KeyPath       = "path"
	KeyCategory   = "category"
	KeyError      = "error"
)

func Repository(r string) slog.Attr    { return slog.String(KeyRepo, r) }
func Feed(f string) slog.Attr          { return slog.String(KeyFeed, f) }
func Cursor(c string) slog.Attr        { return slog.String(KeyCursor, c) }
func PrevCursor(c string) slog.Attr    { return slog.String(KeyPrevCursor, c) }
func Status(code int) slog.Attr        { return slog.Int(KeyStatus, code) }
func Kind(k string) slog.Attr          { return slog.String(KeyKind, k) }
func ItemID(id string) slog.Attr       { return slog.String(KeyItemID, id) }
func Count(n int) slog.Attr            { return slog.Int(KeyCount, n) }
func Remaining(n int) slog.Attr        { return slog.Int(KeyRemaining, n) }
func CycleID(id string) slog.Attr      { return slog.String(KeyCycleID, id) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func Category(c string) slog.Attr      { return slog.String(KeyCategory, c) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
