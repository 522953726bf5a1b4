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

// Package main implements the sirseer-watch command-line interface.
// The tool watches GitHub repositories and forwards new events and releases
// to a Discord channel, an NDJSON stream or NATS.
//
// The CLI supports:
//   - Polling continuously on a fixed interval (run)
//   - Running a single cycle and printing its summary (check)
//   - Writing a starter config store (init)
//   - Dry runs that print notifications as NDJSON instead of posting them
//
// Usage:
//
//	sirseer-watch run [flags]
//
// Example:
//
//	export GITHUB_TOKEN=your_token DISCORD_TOKEN=bot_token DISCORD_CHANNEL_ID=123
//	sirseer-watch init --config repos.json
//	sirseer-watch run --config repos.json
//
// Exit codes:
//   - 0: Success
//   - 1: General error
//   - 2: Authentication or configuration error
//   - 3: Network error
package main
