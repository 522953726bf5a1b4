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

// Package config types define the settings structures used throughout
// sirseer-watch. These types represent settings that can be loaded from a
// YAML settings file, a dotenv file, environment variables, or command-line flags.
package config

import "time"

// Config represents the complete process-level configuration for sirseer-watch.
// Repository cursor state is not part of it; that lives in the config store
// document managed by the store package.
type Config struct {
	GitHub  GitHubConfig  `yaml:"github"`
	Discord DiscordConfig `yaml:"discord"`
	Watch   WatchConfig   `yaml:"watch"`
	Metrics MetricsConfig `yaml:"metrics"`
	NATS    NATSConfig    `yaml:"nats"`
}

// GitHubConfig contains GitHub-specific settings including API endpoints,
// authentication and the request quota guard.
type GitHubConfig struct {
	APIEndpoint     string        `yaml:"api_endpoint"`
	GraphQLEndpoint string        `yaml:"graphql_endpoint"`
	TokenEnv        string        `yaml:"token_env"`
	QuotaAPI        string        `yaml:"quota_api"`
	QuotaReserve    int           `yaml:"quota_reserve"`
	FetchTimeout    time.Duration `yaml:"fetch_timeout"`

	// Token is resolved from TokenEnv (or a flag) and never read from the file.
	Token string `yaml:"-"`
}

// DiscordConfig identifies the destination channel and bot credentials.
type DiscordConfig struct {
	APIEndpoint string `yaml:"api_endpoint"`
	ChannelID   string `yaml:"channel_id"`
	TokenEnv    string `yaml:"token_env"`

	Token string `yaml:"-"`
}

// WatchConfig controls the polling loop and the config store location.
type WatchConfig struct {
	ConfigFile        string        `yaml:"config_file"`
	Interval          time.Duration `yaml:"interval"`
	PersistEachChange bool          `yaml:"persist_each_change"`

	// SummaryDir receives one JSON summary per cycle when set.
	SummaryDir string `yaml:"summary_dir"`
}

// MetricsConfig controls the Prometheus endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// NATSConfig enables publishing notifications to NATS when URL is set.
type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// Quota probe implementations selectable through GitHubConfig.QuotaAPI.
const (
	QuotaAPIREST    = "rest"
	QuotaAPIGraphQL = "graphql"
)

// DefaultConfig returns a Config with the defaults used when nothing else
// is configured: a five minute interval, a 30 second fetch timeout and a
// reserve of 10 requests.
func DefaultConfig() *Config {
	return &Config{
		GitHub: GitHubConfig{
			APIEndpoint:     "https://api.github.com",
			GraphQLEndpoint: "https://api.github.com/graphql",
			TokenEnv:        "GITHUB_TOKEN",
			QuotaAPI:        QuotaAPIREST,
			QuotaReserve:    10,
			FetchTimeout:    30 * time.Second,
		},
		Discord: DiscordConfig{
			APIEndpoint: "https://discord.com/api/v10",
			TokenEnv:    "DISCORD_TOKEN",
		},
		Watch: WatchConfig{
			ConfigFile: "config.json",
			Interval:   300 * time.Second,
		},
		NATS: NATSConfig{
			SubjectPrefix: "sirseer.watch",
		},
	}
}
