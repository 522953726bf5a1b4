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

// Package config provides settings management for sirseer-watch with
// support for multiple sources and a well-defined precedence order.
//
// Sources (in precedence order, highest to lowest):
//  1. Command-line flags
//  2. Environment variables
//  3. Dotenv file (variables.env by default; never overrides the real environment)
//  4. YAML settings file
//  5. Built-in defaults
//
// The lowercase variable names used by older deployments (loop_time,
// channel_id, git_token, discord_token, config_file) are still honoured.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	watcherrors "github.com/sirseerhq/sirseer-watch/internal/errors"
)

// DefaultEnvFile is the dotenv file read when no --env-file is given.
const DefaultEnvFile = "variables.env"

// LoadConfig loads settings from every source and applies them in the
// correct precedence order. If settingsPath is empty the standard
// locations are searched:
//   - .sirseer-watch.yaml (current directory)
//   - .sirseer-watch.yml (current directory)
//   - ~/.sirseer/watch.yaml
//
// envFile names a dotenv file; a missing file is not an error.
func LoadConfig(settingsPath, envFile string) (*Config, error) {
	cfg := DefaultConfig()

	if settingsPath != "" {
		if err := loadConfigFile(settingsPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to load settings file: %w", err)
		}
	} else {
		defaultPaths := []string{
			".sirseer-watch.yaml",
			".sirseer-watch.yml",
			filepath.Join(os.Getenv("HOME"), ".sirseer", "watch.yaml"),
		}

		for _, path := range defaultPaths {
			if _, err := os.Stat(path); err == nil {
				if err := loadConfigFile(path, cfg); err != nil {
					return nil, fmt.Errorf("failed to load settings from %s: %w", path, err)
				}
				break
			}
		}
	}

	if err := LoadEnvFile(envFile); err != nil {
		return nil, err
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	cfg.Watch.ConfigFile = expandPath(cfg.Watch.ConfigFile)
	cfg.Watch.SummaryDir = expandPath(cfg.Watch.SummaryDir)

	return cfg, nil
}

// LoadEnvFile loads a dotenv file into the process environment without
// overriding variables that are already set.
func LoadEnvFile(path string) error {
	if path == "" {
		path = DefaultEnvFile
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to stat env file %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to parse env file %s: %w", path, err)
	}
	return nil
}

// loadConfigFile reads and parses a YAML settings file
func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read settings file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(cfg *Config) error {
	if endpoint := os.Getenv("GITHUB_API_ENDPOINT"); endpoint != "" {
		cfg.GitHub.APIEndpoint = endpoint
	}
	if endpoint := os.Getenv("GITHUB_GRAPHQL_ENDPOINT"); endpoint != "" {
		cfg.GitHub.GraphQLEndpoint = endpoint
	}
	cfg.GitHub.Token = lookupEnv(cfg.GitHub.TokenEnv, "git_token")
	if api := os.Getenv("SIRSEER_QUOTA_API"); api != "" {
		cfg.GitHub.QuotaAPI = strings.ToLower(api)
	}
	if reserve := os.Getenv("SIRSEER_QUOTA_RESERVE"); reserve != "" {
		n, err := strconv.Atoi(reserve)
		if err != nil {
			return fmt.Errorf("SIRSEER_QUOTA_RESERVE: %w: %v", watcherrors.ErrInvalidConfig, err)
		}
		cfg.GitHub.QuotaReserve = n
	}

	if endpoint := os.Getenv("DISCORD_API_ENDPOINT"); endpoint != "" {
		cfg.Discord.APIEndpoint = endpoint
	}
	cfg.Discord.Token = lookupEnv(cfg.Discord.TokenEnv, "discord_token")
	if channel := lookupEnv("DISCORD_CHANNEL_ID", "channel_id"); channel != "" {
		cfg.Discord.ChannelID = channel
	}

	if interval := lookupEnv("SIRSEER_WATCH_INTERVAL", "loop_time"); interval != "" {
		d, err := ParseInterval(interval)
		if err != nil {
			return fmt.Errorf("polling interval: %w", err)
		}
		cfg.Watch.Interval = d
	}
	if file := lookupEnv("SIRSEER_WATCH_CONFIG_FILE", "config_file"); file != "" {
		cfg.Watch.ConfigFile = file
	}
	if dir := os.Getenv("SIRSEER_WATCH_SUMMARY_DIR"); dir != "" {
		cfg.Watch.SummaryDir = dir
	}
	if persist := os.Getenv("SIRSEER_WATCH_PERSIST_EACH_CHANGE"); persist != "" {
		cfg.Watch.PersistEachChange = parseBool(persist)
	}

	if addr := os.Getenv("SIRSEER_METRICS_ADDR"); addr != "" {
		cfg.Metrics.Addr = addr
	}
	if url := os.Getenv("NATS_URL"); url != "" {
		cfg.NATS.URL = url
	}
	return nil
}

// lookupEnv returns the first non-empty variable among names.
func lookupEnv(names ...string) string {
	for _, name := range names {
		if name == "" {
			continue
		}
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// ParseInterval accepts either a Go duration ("5m", "90s") or a bare number
// of seconds ("300").
func ParseInterval(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.Atoi(s); err == nil {
		if secs <= 0 {
			return 0, fmt.Errorf("%w: interval must be positive, got %d", watcherrors.ErrInvalidConfig, secs)
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid interval %q", watcherrors.ErrInvalidConfig, s)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: interval must be positive, got %s", watcherrors.ErrInvalidConfig, d)
	}
	return d, nil
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home := os.Getenv("HOME")
		if home == "" {
			home = os.Getenv("USERPROFILE") // Windows
		}
		path = filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

// parseBool parses various boolean representations
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "yes" || s == "1" || s == "on"
}

// Validate checks that the settings can drive a polling loop. It does not
// look at credentials; see ValidateCredentials.
func (c *Config) Validate() error {
	if c.Watch.Interval <= 0 {
		return fmt.Errorf("%w: polling interval must be positive, got: %s", watcherrors.ErrInvalidConfig, c.Watch.Interval)
	}
	if c.GitHub.FetchTimeout <= 0 {
		return fmt.Errorf("%w: fetch timeout must be positive, got: %s", watcherrors.ErrInvalidConfig, c.GitHub.FetchTimeout)
	}
	if c.GitHub.QuotaReserve <= 0 {
		return fmt.Errorf("%w: quota reserve must be positive, got: %d", watcherrors.ErrInvalidConfig, c.GitHub.QuotaReserve)
	}
	if c.GitHub.APIEndpoint == "" {
		return fmt.Errorf("%w: GitHub API endpoint cannot be empty", watcherrors.ErrInvalidConfig)
	}
	switch c.GitHub.QuotaAPI {
	case QuotaAPIREST:
	case QuotaAPIGraphQL:
		if c.GitHub.GraphQLEndpoint == "" {
			return fmt.Errorf("%w: GitHub GraphQL endpoint cannot be empty", watcherrors.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown quota api %q (want rest or graphql)", watcherrors.ErrInvalidConfig, c.GitHub.QuotaAPI)
	}
	if c.Watch.ConfigFile == "" {
		return fmt.Errorf("%w: config store path cannot be empty", watcherrors.ErrInvalidConfig)
	}
	return nil
}

// ValidateCredentials checks the tokens needed to run. Discord credentials
// are only required when messages go to Discord.
func (c *Config) ValidateCredentials(discord bool) error {
	if c.GitHub.Token == "" {
		return fmt.Errorf("GitHub token not found. Set %s or use --token flag: %w", c.GitHub.TokenEnv, watcherrors.ErrInvalidToken)
	}
	if !discord {
		return nil
	}
	if c.Discord.Token == "" {
		return fmt.Errorf("Discord token not found. Set %s: %w", c.Discord.TokenEnv, watcherrors.ErrInvalidToken)
	}
	if c.Discord.ChannelID == "" {
		return fmt.Errorf("%w: Discord channel id not set (DISCORD_CHANNEL_ID)", watcherrors.ErrInvalidConfig)
	}
	return nil
}
