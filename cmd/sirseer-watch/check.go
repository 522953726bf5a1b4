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

	"github.com/spf13/cobra"

	watcherrors "github.com/sirseerhq/sirseer-watch/internal/errors"
	"github.com/sirseerhq/sirseer-watch/internal/giterror"
	"github.com/sirseerhq/sirseer-watch/internal/metadata"
)

func newCheckCommand(f *globalFlags) *cobra.Command {
	var skipInit bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run a single watch cycle and print its summary",
		Long: `Initialize the repositories, run exactly one cycle and print the cycle
summary as JSON to stderr. Useful from cron or to test a new config store
with --dry-run.

The exit code is non-zero when any repository failed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), cmd, f, skipInit)
		},
	}

	cmd.Flags().BoolVar(&skipInit, "skip-init", false, "Skip initialization and check saved cursors directly")
	return cmd
}

func runCheck(ctx context.Context, cmd *cobra.Command, f *globalFlags, skipInit bool) error {
	a, err := newApp(ctx, cmd, f)
	if err != nil {
		return err
	}
	defer a.Close()

	if !skipInit {
		a.scheduler.Bootstrap(ctx)
	}
	summary := a.scheduler.RunCycle(ctx)

	if err := metadata.WriteSummaryToWriter(summary, cmd.ErrOrStderr()); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return failureError(summary)
}

// failureError reports failed repositories. The first auth or network
// failure decides the sentinel so the exit code reflects it.
func failureError(s *metadata.CycleSummary) error {
	if s.Results.Failed == 0 {
		return nil
	}

	msg := fmt.Sprintf("%d of %d repositories failed", s.Results.Failed, len(s.Repositories))
	for _, r := range s.Repositories {
		if r.Outcome != metadata.OutcomeFailed {
			continue
		}
		switch r.Category {
		case giterror.CategoryAuth:
			return fmt.Errorf("%s (%s: %s): %w", msg, r.Repository, r.Error, watcherrors.ErrInvalidToken)
		case giterror.CategoryNetwork:
			return fmt.Errorf("%s (%s: %s): %w", msg, r.Repository, r.Error, watcherrors.ErrNetworkFailure)
		}
	}
	return errors.New(msg)
}
