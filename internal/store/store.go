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

package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrUnreadable reports a missing or malformed store document. Open still
// returns a usable, empty Store alongside it.
var ErrUnreadable = errors.New("config store unreadable")

// Store is the file-backed repository document.
type Store struct {
	path string

	mu  sync.Mutex
	doc map[string]any
}

// Open reads the document at path. A missing or malformed document degrades
// to an empty repository list: Open then returns a non-nil, empty Store and
// an error wrapping ErrUnreadable that callers are expected to log and ignore.
func Open(path string) (*Store, error) {
	s := &Store{path: path, doc: emptyDocument()}

	doc, err := readDocument(path)
	if err != nil {
		return s, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	s.doc = doc
	return s, nil
}

// Path returns the document location.
func (s *Store) Path() string { return s.path }

// Entries returns the typed repository entries. Null entries and entries
// without a url are skipped; Index keeps the original position. Entries that
// do not decode are skipped too and reported in the returned error, which
// never stops the remaining entries from loading.
func (s *Store) Entries() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw := repositories(s.doc)
	entries := make([]Entry, 0, len(raw))
	var errs []error
	for i, item := range raw {
		m, ok := item.(map[string]any)
		if !ok || m == nil {
			continue
		}
		data, err := json.Marshal(m)
		if err != nil {
			errs = append(errs, fmt.Errorf("repository %d: %w", i, err))
			continue
		}
		var entry Entry
		if err := json.Unmarshal(data, &entry); err != nil {
			errs = append(errs, fmt.Errorf("repository %d: %w", i, err))
			continue
		}
		if entry.URL == "" {
			continue
		}
		entry.Index = i
		entries = append(entries, entry)
	}
	return entries, errors.Join(errs...)
}

// Save writes snapshots back to the document. The file is re-read first so
// operator edits made while running are kept; if it cannot be read the last
// loaded document is used. Snapshots whose index is past the end of the
// list are ignored.
func (s *Store) Save(snapshots []Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := readDocument(s.path)
	if err != nil {
		doc = s.doc
	}

	raw := repositories(doc)
	for _, snap := range snapshots {
		if snap.Index < 0 || snap.Index >= len(raw) {
			continue
		}
		m, ok := raw[snap.Index].(map[string]any)
		if !ok || m == nil {
			continue
		}
		for k, v := range snap.fields() {
			m[k] = v
		}
	}

	if err := writeDocument(s.path, doc); err != nil {
		return err
	}
	s.doc = doc
	return nil
}

// Init writes a starter document with a single example repository. It
// refuses to overwrite an existing file unless force is set.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config store %s already exists (use --force to overwrite)", path)
	}
	doc := map[string]any{
		"repositories": []any{
			map[string]any{
				"url":             "https://api.github.com/repos/octocat/Hello-World/events",
				"name":            "octocat/Hello-World",
				"etag":            "",
				"last_event_id":   "0",
				"tracked_events":  []any{"PushEvent", "PullRequestEvent", "IssuesEvent", "ReleaseEvent"},
				"releases_url":    "",
				"releases_etag":   "",
				"last_release_id": 0,
			},
		},
	}
	return writeDocument(path, doc)
}

func emptyDocument() map[string]any {
	return map[string]any{"repositories": []any{}}
}

func repositories(doc map[string]any) []any {
	raw, _ := doc["repositories"].([]any)
	return raw
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func readDocument(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config store %s: %w", path, err)
	}

	var doc map[string]any
	if isYAML(path) {
		err = yaml.Unmarshal(data, &doc)
	} else {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		err = dec.Decode(&doc)
	}
	if err != nil {
		return nil, fmt.Errorf("config store %s is corrupted: %w", path, err)
	}
	if doc == nil {
		doc = emptyDocument()
	}
	if _, ok := doc["repositories"]; !ok {
		doc["repositories"] = []any{}
	} else if _, ok := doc["repositories"].([]any); !ok {
		return nil, fmt.Errorf("config store %s: repositories must be a list", path)
	}
	return doc, nil
}

// writeDocument atomically saves the document using a write-to-temp,
// fsync and rename sequence.
func writeDocument(path string, doc map[string]any) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(doc)
	} else {
		data, err = json.MarshalIndent(doc, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config store: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if mkdirErr := os.MkdirAll(dir, 0o755); mkdirErr != nil {
			return fmt.Errorf("failed to create config store directory: %w", mkdirErr)
		}
	}

	tempFile := path + ".tmp"

	file, err := os.OpenFile(tempFile, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create temporary config store: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		_ = file.Close()
		_ = os.Remove(tempFile)
		return fmt.Errorf("failed to write temporary config store: %w", err)
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		_ = os.Remove(tempFile)
		return fmt.Errorf("failed to sync temporary config store: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tempFile)
		return fmt.Errorf("failed to close temporary config store: %w", err)
	}

	if err := os.Rename(tempFile, path); err != nil {
		_ = os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary config store: %w", err)
	}
	return nil
}
