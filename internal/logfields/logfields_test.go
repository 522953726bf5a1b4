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

package logfields

import (
	"errors"
	"log/slog"
	"testing"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"Repository", KeyRepo, "octo/hello", Repository("octo/hello")},
		{"Feed", KeyFeed, "events", Feed("events")},
		{"Cursor", KeyCursor, "105", Cursor("105")},
		{"PrevCursor", KeyPrevCursor, "100", PrevCursor("100")},
		{"Kind", KeyKind, "PushEvent", Kind("PushEvent")},
		{"ItemID", KeyItemID, "42", ItemID("42")},
		{"CycleID", KeyCycleID, "c1", CycleID("c1")},
		{"Path", KeyPath, "/tmp/config.json", Path("/tmp/config.json")},
		{"Category", KeyCategory, "transport", Category("transport")},
	}

	for _, tc := range cases {
		if tc.attr.Key != tc.attrKey {
			t.Fatalf("%s: expected key %s, got %s", tc.name, tc.attrKey, tc.attr.Key)
		}
		if got := tc.attr.Value.String(); got != tc.attrVal {
			t.Fatalf("%s: expected value %s, got %s", tc.name, tc.attrVal, got)
		}
	}
}

func TestNumericHelpers(t *testing.T) {
	if a := Status(304); a.Key != KeyStatus || a.Value.Int64() != 304 {
		t.Fatalf("Status: got %v", a)
	}
	if a := Remaining(10); a.Key != KeyRemaining || a.Value.Int64() != 10 {
		t.Fatalf("Remaining: got %v", a)
	}
	if a := Count(3); a.Key != KeyCount || a.Value.Int64() != 3 {
		t.Fatalf("Count: got %v", a)
	}
}

func TestErrorHelper(t *testing.T) {
	if a := Error(nil); a.Value.String() != "" {
		t.Fatalf("Error(nil) should be empty, got %q", a.Value.String())
	}
	if a := Error(errors.New("boom")); a.Key != KeyError || a.Value.String() != "boom" {
		t.Fatalf("Error: got %v", a)
	}
}
