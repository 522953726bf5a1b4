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
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sirseerhq/sirseer-watch/internal/config"
	"github.com/sirseerhq/sirseer-watch/internal/github"
	"github.com/sirseerhq/sirseer-watch/internal/logfields"
	"github.com/sirseerhq/sirseer-watch/internal/logging"
	"github.com/sirseerhq/sirseer-watch/internal/metrics"
	"github.com/sirseerhq/sirseer-watch/internal/notify"
	"github.com/sirseerhq/sirseer-watch/internal/scheduler"
	"github.com/sirseerhq/sirseer-watch/internal/store"
	"github.com/sirseerhq/sirseer-watch/internal/watcher"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	settings    string
	configFile  string
	envFile     string
	verbose     bool
	logFormat   string
	dryRun      bool
	output      string
	token       string
	interval    string
	metricsAddr string
}

func (f *globalFlags) register(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&f.settings, "settings", "", "YAML settings file (default: .sirseer-watch.yaml)")
	pf.StringVar(&f.configFile, "config", "", "Config store path (overrides SIRSEER_WATCH_CONFIG_FILE)")
	pf.StringVar(&f.envFile, "env-file", config.DefaultEnvFile, "Dotenv file loaded before reading the environment")
	pf.BoolVarP(&f.verbose, "verbose", "v", false, "Enable debug logging")
	pf.StringVar(&f.logFormat, "log-format", logging.FormatConsole, "Log format: console, text or json")
	pf.BoolVar(&f.dryRun, "dry-run", false, "Print notifications as NDJSON instead of posting to Discord")
	pf.StringVar(&f.output, "output", "", "Also append notifications as NDJSON to this file")
	pf.StringVar(&f.token, "token", "", "GitHub personal access token (overrides GITHUB_TOKEN env var)")
	pf.StringVar(&f.interval, "interval", "", "Polling interval, e.g. 5m or 300 (overrides settings)")
	pf.StringVar(&f.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
}

// loadConfig resolves settings and applies flags that were set explicitly.
func (f *globalFlags) loadConfig(flags *pflag.FlagSet) (*config.Config, error) {
	cfg, err := config.LoadConfig(f.settings, f.envFile)
	if err != nil {
		return nil, err
	}

	if flags.Changed("config") {
		cfg.Watch.ConfigFile = f.configFile
	}
	if flags.Changed("token") {
		cfg.GitHub.Token = f.token
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Addr = f.metricsAddr
	}
	if flags.Changed("interval") {
		d, err := config.ParseInterval(f.interval)
		if err != nil {
			return nil, fmt.Errorf("--interval: %w", err)
		}
		cfg.Watch.Interval = d
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// app holds everything a watch command needs.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *store.Store
	scheduler *scheduler.Scheduler
	registry  *prom.Registry
	closers   []io.Closer
}

// newApp wires settings, logging, the config store, the GitHub client, the
// notifiers and the scheduler. Missing credentials and invalid settings are
// the only fatal conditions; an unreadable store degrades to an empty list.
func newApp(ctx context.Context, cmd *cobra.Command, f *globalFlags) (*app, error) {
	cfg, err := f.loadConfig(cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cmd.ErrOrStderr(), logging.Options{Format: f.logFormat, Verbose: f.verbose})
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	if err := cfg.ValidateCredentials(!f.dryRun); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}

	recorder := metrics.Recorder(metrics.NoopRecorder{})
	if cfg.Metrics.Addr != "" {
		a.registry = metrics.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(a.registry)
	}

	notifier, err := a.buildNotifier(ctx, cmd.OutOrStdout(), f)
	if err != nil {
		a.Close()
		return nil, err
	}

	client := github.NewClient(github.Options{
		Token:     cfg.GitHub.Token,
		UserAgent: "sirseer-watch/" + version,
	})

	var quota github.QuotaSource
	switch cfg.GitHub.QuotaAPI {
	case config.QuotaAPIGraphQL:
		quota = github.NewGraphQLQuota(client.HTTPClient(), cfg.GitHub.GraphQLEndpoint)
	default:
		quota = github.NewRESTQuota(client.HTTPClient(), cfg.GitHub.APIEndpoint)
	}

	st, err := store.Open(cfg.Watch.ConfigFile)
	if err != nil {
		logger.Warn("Config store unreadable, starting with no repositories",
			logfields.Path(cfg.Watch.ConfigFile), logfields.Error(err))
	}
	a.store = st

	entries, err := st.Entries()
	if err != nil {
		logger.Warn("Skipped malformed repository entries", logfields.Path(cfg.Watch.ConfigFile), logfields.Error(err))
	}

	opts := watcher.Options{
		Fetcher:      client,
		Notifier:     notifier,
		Quota:        quota,
		QuotaReserve: cfg.GitHub.QuotaReserve,
		FetchTimeout: cfg.GitHub.FetchTimeout,
		Logger:       logger,
		Recorder:     recorder,
	}
	watchers := make([]*watcher.Watcher, 0, len(entries))
	for _, e := range entries {
		w := watcher.FromEntry(e, opts)
		logger.Debug("Watching repository", logfields.Repository(w.Name()),
			slog.Any("tracked", w.TrackedKinds()))
		watchers = append(watchers, w)
	}
	if len(watchers) == 0 {
		logger.Warn("No repositories configured", logfields.Path(cfg.Watch.ConfigFile))
	}

	a.scheduler = scheduler.New(watchers, st, scheduler.Options{
		Interval:          cfg.Watch.Interval,
		PersistEachChange: cfg.Watch.PersistEachChange,
		SummaryDir:        cfg.Watch.SummaryDir,
		Version:           version,
		Logger:            logger,
		Recorder:          recorder,
	})
	return a, nil
}

// buildNotifier returns the NDJSON writer in dry-run mode, otherwise the
// Discord sender fanned out to the optional NDJSON archive and NATS.
func (a *app) buildNotifier(ctx context.Context, stdout io.Writer, f *globalFlags) (notify.Notifier, error) {
	var sinks notify.Multi

	if f.dryRun {
		sinks = append(sinks, notify.NewWriter(stdout))
	} else {
		discord := notify.NewDiscord(a.cfg.Discord.APIEndpoint, a.cfg.Discord.ChannelID, a.cfg.Discord.Token, nil)
		verifyCtx, cancel := context.WithTimeout(ctx, a.cfg.GitHub.FetchTimeout)
		err := discord.Verify(verifyCtx)
		cancel()
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, discord)
	}

	if f.output != "" {
		w, err := notify.NewFileWriter(f.output)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, w)
		sinks = append(sinks, w)
	}

	if a.cfg.NATS.URL != "" {
		n, err := notify.NewNATS(a.cfg.NATS.URL, a.cfg.NATS.SubjectPrefix)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, n)
		sinks = append(sinks, n)
	}

	if len(sinks) == 1 {
		return sinks[0], nil
	}
	return sinks, nil
}

// serveMetrics serves /metrics until ctx is done when an address is set.
func (a *app) serveMetrics(ctx context.Context) {
	if a.registry == nil {
		return
	}
	go func() {
		if err := metrics.Serve(ctx, a.cfg.Metrics.Addr, a.registry, a.logger); err != nil {
			a.logger.Error("Metrics server failed", logfields.Error(err))
		}
	}()
}

// Close releases notifier resources.
func (a *app) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
