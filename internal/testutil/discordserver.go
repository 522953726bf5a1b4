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

package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/sirseerhq/sirseer-watch/internal/render"
)

// DiscordMessage is one message posted to the fake Discord server.
type DiscordMessage struct {
	ChannelID string
	Embeds    []render.Embed `json:"embeds"`
}

// FakeDiscord accepts bot API calls for a single token.
type FakeDiscord struct {
	*httptest.Server

	mu          sync.Mutex
	token       string
	messages    []DiscordMessage
	rateLimited int
	failStatus  int
}

// NewFakeDiscord starts a fake Discord API that accepts "Bot <token>".
func NewFakeDiscord(t *testing.T, token string) *FakeDiscord {
	t.Helper()
	d := &FakeDiscord{token: token}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/@me", d.serveMe)
	mux.HandleFunc("POST /channels/{id}/messages", d.serveMessage)
	d.Server = httptest.NewServer(mux)
	t.Cleanup(d.Close)
	return d
}

// Messages returns the messages received so far.
func (d *FakeDiscord) Messages() []DiscordMessage {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]DiscordMessage(nil), d.messages...)
}

// RateLimitNext answers the next n posts with 429.
func (d *FakeDiscord) RateLimitNext(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rateLimited = n
}

// FailWith answers every post with status. Zero restores normal behavior.
func (d *FakeDiscord) FailWith(status int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failStatus = status
}

func (d *FakeDiscord) authorized(r *http.Request) bool {
	return r.Header.Get("Authorization") == "Bot "+d.token
}

func (d *FakeDiscord) serveMe(w http.ResponseWriter, r *http.Request) {
	if !d.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "401: Unauthorized", "code": 0})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": "1", "username": "watch-bot"})
}

func (d *FakeDiscord) serveMessage(w http.ResponseWriter, r *http.Request) {
	if !d.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "401: Unauthorized", "code": 0})
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.failStatus != 0 {
		writeJSON(w, d.failStatus, map[string]string{"message": http.StatusText(d.failStatus)})
		return
	}
	if d.rateLimited > 0 {
		d.rateLimited--
		writeJSON(w, http.StatusTooManyRequests, map[string]any{"message": "You are being rate limited.", "retry_after": 0.01, "global": false})
		return
	}

	msg := DiscordMessage{ChannelID: r.PathValue("id")}
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}
	d.messages = append(d.messages, msg)
	writeJSON(w, http.StatusOK, map[string]string{"id": strconv.Itoa(len(d.messages)), "channel_id": msg.ChannelID})
}
