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
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	watcherrors "github.com/sirseerhq/sirseer-watch/internal/errors"
)

var version = "dev"

func main() {
	rootCmd := newRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(mapErrorToExitCode(err))
	}
}

// newRootCommand builds the command tree. Tests build their own tree so
// flag state never leaks between runs.
func newRootCommand() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "sirseer-watch",
		Short: "Forward new GitHub repository activity to a chat channel",
		Long: `SirSeer Watch polls the events and releases feeds of a list of GitHub
repositories and posts every new item to a Discord channel. Conditional
requests keep polling cheap, and per-repository cursors in the config store
make sure nothing is announced twice.`,
		Version:       version,
		SilenceUsage:  true, // Don't show usage on error
		SilenceErrors: true, // We'll handle error printing ourselves
	}

	flags.register(rootCmd)
	rootCmd.AddCommand(newRunCommand(flags), newCheckCommand(flags), newInitCommand(flags))
	return rootCmd
}

// mapErrorToExitCode maps internal errors to appropriate exit codes
func mapErrorToExitCode(err error) int {
	if err == nil {
		return 0
	}

	if errors.Is(err, watcherrors.ErrInvalidToken) ||
		errors.Is(err, watcherrors.ErrInvalidConfig) {
		return 2 // Authentication or configuration errors
	}

	if errors.Is(err, watcherrors.ErrNetworkFailure) {
		return 3 // Network errors
	}

	return 1 // General error
}
