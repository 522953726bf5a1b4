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

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	watcherrors "github.com/sirseerhq/sirseer-watch/internal/errors"
	"github.com/sirseerhq/sirseer-watch/internal/github"
	"github.com/sirseerhq/sirseer-watch/internal/notify"
	"github.com/sirseerhq/sirseer-watch/internal/testutil"
)

const ghToken = "gh-token"

// isolateEnv clears every variable the settings loader reads and points the
// GitHub API at gh.
func isolateEnv(t *testing.T, gh *testutil.FakeGitHub) {
	t.Helper()
	for _, name := range []string{
		"GITHUB_TOKEN", "git_token", "DISCORD_TOKEN", "discord_token",
		"DISCORD_CHANNEL_ID", "channel_id", "SIRSEER_WATCH_INTERVAL", "loop_time",
		"SIRSEER_WATCH_CONFIG_FILE", "config_file", "GITHUB_API_ENDPOINT",
		"GITHUB_GRAPHQL_ENDPOINT", "SIRSEER_QUOTA_API", "SIRSEER_QUOTA_RESERVE",
		"SIRSEER_WATCH_PERSIST_EACH_CHANGE", "SIRSEER_METRICS_ADDR", "NATS_URL",
		"SIRSEER_WATCH_SUMMARY_DIR", "DISCORD_API_ENDPOINT",
	} {
		t.Setenv(name, "")
	}
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GITHUB_TOKEN", ghToken)
	if gh != nil {
		t.Setenv("GITHUB_API_ENDPOINT", gh.URL)
		t.Setenv("GITHUB_GRAPHQL_ENDPOINT", gh.URL+"/graphql")
	}
}

type result struct {
	stdout string
	stderr string
	err    error
}

func execute(ctx context.Context, args ...string) result {
	root := newRootCommand()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

// baseArgs keeps tests away from any dotenv or settings file in the
// working directory.
func baseArgs(t *testing.T, cmd, configPath string, extra ...string) []string {
	args := []string{cmd, "--config", configPath,
		"--env-file", filepath.Join(t.TempDir(), "none.env"),
		"--log-format", "json"}
	return append(args, extra...)
}

func ndjsonRecords(t *testing.T, out string) []notify.Record {
	t.Helper()
	var records []notify.Record
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		var rec notify.Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("invalid NDJSON line %q: %v", line, err)
		}
		records = append(records, rec)
	}
	return records
}

func TestCheck_DryRun(t *testing.T) {
	gh := testutil.NewFakeGitHub(t)
	gh.RequireToken(ghToken)
	gh.SetEvents("octo/repo", testutil.Events(1, 3)...)
	isolateEnv(t, gh)

	path := testutil.WriteStore(t, t.TempDir(), testutil.StoreEntry{
		"url":            gh.EventsURL("octo/repo"),
		"last_event_id":  "0",
		"tracked_events": []string{"WatchEvent", "IssuesEvent"},
		"operator_note":  "keep me",
	})

	// First run initializes without announcing history.
	res := execute(context.Background(), baseArgs(t, "check", path, "--dry-run")...)
	if res.err != nil {
		t.Fatalf("check failed: %v\nstderr: %s", res.err, res.stderr)
	}
	if strings.TrimSpace(res.stdout) != "" {
		t.Errorf("initialization produced notifications: %s", res.stdout)
	}
	entries := testutil.ReadStoreEntries(t, path)
	if entries[0]["last_event_id"] != "3" || entries[0]["etag"] != gh.ETag("octo/repo", testutil.FeedEvents) {
		t.Errorf("entry after init = %v", entries[0])
	}

	// New activity is announced oldest first.
	events := append([]github.Event{
		testutil.IssueOpened("5", 7, "Broken build"),
		testutil.NewEvent("4").WithActor("carol").Build(),
	}, testutil.Events(1, 3)...)
	gh.SetEvents("octo/repo", events...)

	res = execute(context.Background(), baseArgs(t, "check", path, "--dry-run", "--skip-init")...)
	if res.err != nil {
		t.Fatalf("check failed: %v\nstderr: %s", res.err, res.stderr)
	}

	records := ndjsonRecords(t, res.stdout)
	if len(records) != 2 {
		t.Fatalf("got %d notifications, want 2: %s", len(records), res.stdout)
	}
	if records[0].Message.ItemID != "4" || records[1].Message.ItemID != "5" {
		t.Errorf("order = %s, %s; want 4, 5", records[0].Message.ItemID, records[1].Message.ItemID)
	}
	if !strings.Contains(records[1].Message.Embed.Title, "opened issue") {
		t.Errorf("issue title = %q", records[1].Message.Embed.Title)
	}
	if !strings.Contains(res.stderr, "\"cycle_id\"") || !strings.Contains(res.stderr, "\"notified\": 2") {
		t.Errorf("summary missing from stderr: %s", res.stderr)
	}

	entries = testutil.ReadStoreEntries(t, path)
	if entries[0]["last_event_id"] != "5" {
		t.Errorf("last_event_id = %v, want 5", entries[0]["last_event_id"])
	}
	if entries[0]["operator_note"] != "keep me" {
		t.Errorf("unknown field lost: %v", entries[0])
	}

	// Nothing changed: a 304 and no notifications.
	res = execute(context.Background(), baseArgs(t, "check", path, "--dry-run", "--skip-init")...)
	if res.err != nil || strings.TrimSpace(res.stdout) != "" {
		t.Errorf("idle check: err=%v stdout=%s", res.err, res.stdout)
	}
}

func TestCheck_Discord(t *testing.T) {
	gh := testutil.NewFakeGitHub(t)
	gh.SetEvents("octo/repo", testutil.Events(1, 3)...)
	gh.SetReleases("octo/repo", testutil.NewRelease(11).Build(), testutil.NewRelease(10).Build())
	discord := testutil.NewFakeDiscord(t, "bot-token")
	isolateEnv(t, gh)
	t.Setenv("DISCORD_TOKEN", "bot-token")
	t.Setenv("DISCORD_CHANNEL_ID", "42")
	t.Setenv("DISCORD_API_ENDPOINT", discord.URL)

	path := testutil.WriteStore(t, t.TempDir(), testutil.StoreEntry{
		"url":             gh.EventsURL("octo/repo"),
		"etag":            "",
		"last_event_id":   "1",
		"tracked_events":  []string{"WatchEvent", "ReleaseEvent"},
		"releases_etag":   "",
		"last_release_id": 10,
	})

	res := execute(context.Background(), baseArgs(t, "check", path, "--skip-init")...)
	if res.err != nil {
		t.Fatalf("check failed: %v\nstderr: %s", res.err, res.stderr)
	}

	msgs := discord.Messages()
	if len(msgs) != 3 {
		t.Fatalf("got %d Discord messages, want 3", len(msgs))
	}
	if msgs[0].ChannelID != "42" || msgs[0].Embeds[0].Title != "Release v11" {
		t.Errorf("first message = %+v, want the release", msgs[0])
	}
	if !strings.Contains(msgs[1].Embeds[0].Description, "starred") {
		t.Errorf("second message = %+v", msgs[1])
	}

	entries := testutil.ReadStoreEntries(t, path)
	if entries[0]["last_release_id"] != float64(11) {
		t.Errorf("last_release_id = %v (%T), want number 11", entries[0]["last_release_id"], entries[0]["last_release_id"])
	}
}

func TestCheck_InvalidDiscordToken(t *testing.T) {
	gh := testutil.NewFakeGitHub(t)
	discord := testutil.NewFakeDiscord(t, "bot-token")
	isolateEnv(t, gh)
	t.Setenv("DISCORD_TOKEN", "stale-token")
	t.Setenv("DISCORD_CHANNEL_ID", "42")
	t.Setenv("DISCORD_API_ENDPOINT", discord.URL)

	path := testutil.WriteStore(t, t.TempDir())
	res := execute(context.Background(), baseArgs(t, "check", path)...)
	if !errors.Is(res.err, watcherrors.ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", res.err)
	}
	if code := mapErrorToExitCode(res.err); code != 2 {
		t.Errorf("exit code = %d, want 2", code)
	}
}

func TestCheck_MissingCredentials(t *testing.T) {
	isolateEnv(t, nil)
	t.Setenv("GITHUB_TOKEN", "")

	path := testutil.WriteStore(t, t.TempDir())
	res := execute(context.Background(), baseArgs(t, "check", path, "--dry-run")...)
	if code := mapErrorToExitCode(res.err); code != 2 {
		t.Errorf("exit code = %d, want 2 (err: %v)", code, res.err)
	}

	// Discord credentials are only needed without --dry-run.
	t.Setenv("GITHUB_TOKEN", ghToken)
	res = execute(context.Background(), baseArgs(t, "check", path)...)
	if code := mapErrorToExitCode(res.err); code != 2 {
		t.Errorf("exit code = %d, want 2 (err: %v)", code, res.err)
	}
}

func TestCheck_RejectedGitHubToken(t *testing.T) {
	gh := testutil.NewFakeGitHub(t)
	gh.RequireToken("someone-else")
	gh.SetEvents("octo/repo", testutil.Events(1, 1)...)
	isolateEnv(t, gh)

	path := testutil.WriteStore(t, t.TempDir(), testutil.StoreEntry{
		"url":            gh.EventsURL("octo/repo"),
		"last_event_id":  "0",
		"tracked_events": []string{"WatchEvent"},
	})

	res := execute(context.Background(), baseArgs(t, "check", path, "--dry-run")...)
	if code := mapErrorToExitCode(res.err); code != 2 {
		t.Errorf("exit code = %d, want 2 (err: %v)", code, res.err)
	}
	if !strings.Contains(res.stderr, "\"failed\": 1") {
		t.Errorf("summary should count the failure: %s", res.stderr)
	}
}

func TestCheck_QuotaReserveSkips(t *testing.T) {
	gh := testutil.NewFakeGitHub(t)
	gh.SetRemaining(3)
	gh.SetEvents("octo/repo", testutil.Events(1, 2)...)
	isolateEnv(t, gh)
	t.Setenv("SIRSEER_QUOTA_API", "graphql")

	path := testutil.WriteStore(t, t.TempDir(), testutil.StoreEntry{
		"url":            gh.EventsURL("octo/repo"),
		"etag":           "old",
		"last_event_id":  "1",
		"tracked_events": []string{"WatchEvent"},
	})

	res := execute(context.Background(), baseArgs(t, "check", path, "--dry-run", "--skip-init")...)
	if res.err != nil {
		t.Fatalf("quota skip should not fail the check: %v", res.err)
	}
	if gh.Requests("/repos/octo/repo/events") != 0 {
		t.Error("feed was fetched despite the quota reserve")
	}
	if gh.Requests("/graphql") == 0 {
		t.Error("graphql quota probe was not used")
	}
	if !strings.Contains(res.stderr, "\"skipped\": 1") {
		t.Errorf("summary should count the skip: %s", res.stderr)
	}
}

func TestCheck_MissingStoreDegrades(t *testing.T) {
	isolateEnv(t, testutil.NewFakeGitHub(t))
	path := filepath.Join(t.TempDir(), "missing.json")

	res := execute(context.Background(), baseArgs(t, "check", path, "--dry-run")...)
	if res.err != nil {
		t.Fatalf("check failed: %v", res.err)
	}
	testutil.AssertFileNotExists(t, path)
}

func TestCheck_OutputArchive(t *testing.T) {
	gh := testutil.NewFakeGitHub(t)
	gh.SetEvents("octo/repo", testutil.Events(1, 2)...)
	isolateEnv(t, gh)

	dir := t.TempDir()
	archive := filepath.Join(dir, "archive.ndjson")
	path := testutil.WriteStore(t, dir, testutil.StoreEntry{
		"url":            gh.EventsURL("octo/repo"),
		"last_event_id":  "1",
		"tracked_events": []string{"WatchEvent"},
	})

	res := execute(context.Background(), baseArgs(t, "check", path, "--dry-run", "--skip-init", "--output", archive)...)
	if res.err != nil {
		t.Fatalf("check failed: %v", res.err)
	}
	if got := len(testutil.ReadNDJSON(t, archive)); got != 1 {
		t.Errorf("archive records = %d, want 1", got)
	}
	if got := len(ndjsonRecords(t, res.stdout)); got != 1 {
		t.Errorf("stdout records = %d, want 1", got)
	}
}

func TestInit(t *testing.T) {
	isolateEnv(t, nil)
	path := filepath.Join(t.TempDir(), "repos.json")

	res := execute(context.Background(), baseArgs(t, "init", path)...)
	if res.err != nil {
		t.Fatalf("init failed: %v", res.err)
	}
	if !strings.Contains(res.stdout, path) {
		t.Errorf("stdout = %q", res.stdout)
	}
	entries := testutil.ReadStoreEntries(t, path)
	if len(entries) != 1 || entries[0]["last_event_id"] != "0" {
		t.Errorf("entries = %v", entries)
	}

	if res := execute(context.Background(), baseArgs(t, "init", path)...); res.err == nil {
		t.Error("init overwrote an existing store without --force")
	}
	if res := execute(context.Background(), baseArgs(t, "init", path, "--force")...); res.err != nil {
		t.Errorf("init --force failed: %v", res.err)
	}
}

func TestInvalidInterval(t *testing.T) {
	isolateEnv(t, nil)
	res := execute(context.Background(), baseArgs(t, "check", "config.json", "--dry-run", "--interval=-5")...)
	if code := mapErrorToExitCode(res.err); code != 2 {
		t.Errorf("exit code = %d, want 2 (err: %v)", code, res.err)
	}
}

func TestZeroQuotaReserveRejected(t *testing.T) {
	isolateEnv(t, nil)
	t.Setenv("SIRSEER_QUOTA_RESERVE", "0")
	res := execute(context.Background(), baseArgs(t, "check", "config.json", "--dry-run")...)
	if !errors.Is(res.err, watcherrors.ErrInvalidConfig) {
		t.Errorf("err = %v, want ErrInvalidConfig", res.err)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	gh := testutil.NewFakeGitHub(t)
	gh.SetEvents("octo/repo", testutil.Events(1, 3)...)
	isolateEnv(t, gh)

	path := testutil.WriteStore(t, t.TempDir(), testutil.StoreEntry{
		"url":            gh.EventsURL("octo/repo"),
		"last_event_id":  "0",
		"tracked_events": []string{"WatchEvent"},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan result, 1)
	go func() {
		done <- execute(ctx, baseArgs(t, "run", path, "--dry-run", "--interval", "1h")...)
	}()

	deadline := time.Now().Add(10 * time.Second)
	for gh.Requests("/repos/octo/repo/events") < 2 {
		if time.Now().After(deadline) {
			t.Fatal("bootstrap and first cycle did not run")
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case res := <-done:
		if res.err != nil {
			t.Errorf("run returned %v", res.err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("run did not stop after cancellation")
	}

	entries := testutil.ReadStoreEntries(t, path)
	if entries[0]["last_event_id"] != "3" {
		t.Errorf("last_event_id = %v, want 3", entries[0]["last_event_id"])
	}
}
