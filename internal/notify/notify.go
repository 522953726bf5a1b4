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

// Package notify delivers rendered messages. A Notifier failure is reported
// to the caller but never feeds back into cursor tracking.
package notify

import (
	"context"
	"errors"
	"fmt"

	watcherrors "github.com/sirseerhq/sirseer-watch/internal/errors"
	"github.com/sirseerhq/sirseer-watch/internal/render"
)

// Notifier sends one message to a destination.
type Notifier interface {
	Send(ctx context.Context, msg render.Message) error
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, msg render.Message) error

// Send implements Notifier.
func (f Func) Send(ctx context.Context, msg render.Message) error { return f(ctx, msg) }

// Multi fans a message out to every notifier. All notifiers are attempted;
// the failures are joined.
type Multi []Notifier

// Send implements Notifier.
func (m Multi) Send(ctx context.Context, msg render.Message) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// notifyError wraps err so it classifies as a delivery failure.
func notifyError(sink string, err error) error {
	if errors.Is(err, watcherrors.ErrNotify) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", sink, watcherrors.ErrNotify, err)
}
