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
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newRunCommand(f *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Watch repositories until interrupted",
		Long: `Initialize every repository in the config store, then check them all on
a fixed interval until SIGINT or SIGTERM. State is written back to the config
store after every cycle.

Required environment (or variables.env):
  GITHUB_TOKEN        GitHub token used for the events and releases feeds
  DISCORD_TOKEN       bot token (not needed with --dry-run)
  DISCORD_CHANNEL_ID  destination channel (not needed with --dry-run)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runWatch(ctx, cmd, f)
		},
	}
}

// runWatch bootstraps the watchers, starts the scheduler and blocks until
// ctx is cancelled.
func runWatch(ctx context.Context, cmd *cobra.Command, f *globalFlags) error {
	a, err := newApp(ctx, cmd, f)
	if err != nil {
		return err
	}
	defer a.Close()

	a.serveMetrics(ctx)
	a.scheduler.Bootstrap(ctx)

	if err := a.scheduler.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	a.logger.Info("Shutting down")
	return a.scheduler.Stop()
}
