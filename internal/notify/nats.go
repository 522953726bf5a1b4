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
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/sirseerhq/sirseer-watch/internal/render"
)

// publisher is the subset of *nats.Conn the NATS notifier uses.
type publisher interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
}

// NATS publishes each message as JSON on <prefix>.<owner>.<repo>.
type NATS struct {
	conn   publisher
	close  func()
	prefix string
}

// NewNATS connects to url and returns a notifier publishing under prefix.
func NewNATS(url, prefix string) (*NATS, error) {
	conn, err := nats.Connect(url, nats.Name("sirseer-watch"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	slog.Info("NATS notifier connected", "url", url, "subject_prefix", prefix)
	return &NATS{conn: conn, close: conn.Close, prefix: prefix}, nil
}

// Subject returns the subject a message for repo is published on. Dots and
// wildcard characters in repository names are replaced so each name stays
// two subject tokens.
func (n *NATS) Subject(repo string) string {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok {
		owner, name = "_", repo
	}
	return n.prefix + "." + subjectToken(owner) + "." + subjectToken(name)
}

// Send implements Notifier.
func (n *NATS) Send(ctx context.Context, msg render.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return notifyError("nats", fmt.Errorf("failed to marshal message: %w", err))
	}

	subject := n.Subject(msg.Repository)
	if err := n.conn.Publish(subject, data); err != nil {
		return notifyError("nats", fmt.Errorf("failed to publish to %s: %w", subject, err))
	}
	if err := n.conn.FlushWithContext(ctx); err != nil {
		return notifyError("nats", fmt.Errorf("failed to flush %s: %w", subject, err))
	}

	slog.Debug("Published notification", "subject", subject, "item_id", msg.ItemID)
	return nil
}

// Close closes the NATS connection.
func (n *NATS) Close() error {
	if n.close != nil {
		n.close()
	}
	return nil
}

var subjectReplacer = strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_")

func subjectToken(s string) string {
	if s == "" {
		return "_"
	}
	return subjectReplacer.Replace(s)
}
