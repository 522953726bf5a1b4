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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	watcherrors "github.com/sirseerhq/sirseer-watch/internal/errors"
	"github.com/sirseerhq/sirseer-watch/internal/render"
)

// DefaultDiscordEndpoint is the Discord REST API base.
const DefaultDiscordEndpoint = "https://discord.com/api/v10"

// maxRateLimitWait bounds how long Send sleeps on a 429 before giving up.
const maxRateLimitWait = 30 * time.Second

// Discord posts embeds to a channel through the bot REST API.
type Discord struct {
	endpoint  string
	channelID string
	token     string
	client    *http.Client
}

// NewDiscord creates a Discord notifier. client may be nil.
func NewDiscord(endpoint, channelID, token string, client *http.Client) *Discord {
	if endpoint == "" {
		endpoint = DefaultDiscordEndpoint
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Discord{
		endpoint:  strings.TrimRight(endpoint, "/"),
		channelID: channelID,
		token:     token,
		client:    client,
	}
}

// Verify checks the bot token against GET /users/@me. A rejected token wraps
// ErrInvalidToken.
func (d *Discord) Verify(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.endpoint+"/users/@me", nil)
	if err != nil {
		return fmt.Errorf("discord: %w", err)
	}
	d.setHeaders(req)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("discord: %v: %w", err, watcherrors.ErrNetworkFailure)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("discord rejected the bot token: %w", watcherrors.ErrInvalidToken)
	case resp.StatusCode >= 300:
		return fmt.Errorf("discord: status %d: %w", resp.StatusCode, watcherrors.ErrUnexpectedStatus)
	}
	return nil
}

// Send implements Notifier. A single 429 is honoured by waiting for the
// advertised retry_after and posting again.
func (d *Discord) Send(ctx context.Context, msg render.Message) error {
	payload, err := json.Marshal(struct {
		Embeds []render.Embed `json:"embeds"`
	}{Embeds: []render.Embed{msg.Embed}})
	if err != nil {
		return notifyError("discord", err)
	}

	for attempt := 0; ; attempt++ {
		wait, err := d.post(ctx, payload)
		if err == nil {
			return nil
		}
		if wait <= 0 || attempt > 0 {
			return notifyError("discord", err)
		}

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return notifyError("discord", ctx.Err())
		}
	}
}

// post sends one request. On 429 it returns the wait Discord asked for.
func (d *Discord) post(ctx context.Context, payload []byte) (time.Duration, error) {
	url := fmt.Sprintf("%s/channels/%s/messages", d.endpoint, d.channelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	d.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode < 300 {
		return 0, nil
	}

	statusErr := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	if resp.StatusCode != http.StatusTooManyRequests {
		return 0, statusErr
	}
	return retryAfter(resp.Header, body), statusErr
}

func (d *Discord) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bot "+d.token)
	req.Header.Set("User-Agent", "DiscordBot (https://github.com/sirseerhq/sirseer-watch, 1)")
}

// retryAfter reads the wait from the JSON body or the Retry-After header.
func retryAfter(h http.Header, body []byte) time.Duration {
	var rl struct {
		RetryAfter float64 `json:"retry_after"`
	}
	wait := time.Duration(0)
	if json.Unmarshal(body, &rl) == nil && rl.RetryAfter > 0 {
		wait = time.Duration(rl.RetryAfter * float64(time.Second))
	} else if secs, err := strconv.ParseFloat(h.Get("Retry-After"), 64); err == nil {
		wait = time.Duration(secs * float64(time.Second))
	}
	if wait > maxRateLimitWait {
		wait = maxRateLimitWait
	}
	return wait
}
