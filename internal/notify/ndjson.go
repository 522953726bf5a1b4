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

package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/sirseerhq/sirseer-watch/internal/render"
)

// Record is one NDJSON line.
type Record struct {
	Time    time.Time      `json:"time"`
	Message render.Message `json:"message"`
}

// Writer writes each message as one NDJSON record. It backs --dry-run and
// file archiving. Safe for concurrent use.
type Writer struct {
	mu        sync.Mutex
	encoder   *json.Encoder
	count     int
	closeFunc func() error
	now       func() time.Time
}

// NewWriter creates a new NDJSON writer that writes to the specified output.
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		encoder: json.NewEncoder(w),
		now:     time.Now,
	}
}

// NewFileWriter creates a new NDJSON writer appending to a file.
// The caller must call Close() when done to ensure the file is properly closed.
func NewFileWriter(filename string) (*Writer, error) {
	file, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open output file: %w", err)
	}

	w := NewWriter(file)
	w.closeFunc = file.Close
	return w, nil
}

// Send implements Notifier. Each record is written immediately.
func (w *Writer) Send(_ context.Context, msg render.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.encoder.Encode(Record{Time: w.now().UTC(), Message: msg}); err != nil {
		return notifyError("ndjson", fmt.Errorf("failed to write record: %w", err))
	}

	w.count++
	return nil
}

// Count returns the number of records written.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Close closes the underlying writer if it's a file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closeFunc != nil {
		return w.closeFunc()
	}
	return nil
}
