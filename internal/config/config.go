// Package config loads mediacore's process-wide settings from a flat
// key=value file, with environment-variable overrides taking precedence.
package config

import (
	"bufio"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// Config holds all application configuration.
type Config struct {
	// Media library
	MediaRoot string // directory holding the on-disk media catalog

	// Network identity
	ServerName string // advertised host name

	// Torrent subprocess
	TorrentProfileDir string // profile directory for the spawned subprocess

	// Processor concurrency
	MaxConcurrentPrepares int // concurrent torrent preparations; 0 = use CPU count

	// Optional Postgres-backed history log (internal/historylog); left
	// empty disables it.
	HistoryDatabaseURL string

	// Optional filesystem watch supplementing signal-driven crawling.
	FSWatchEnabled bool

	// External subtitle provider (internal/subtitleprovider); left empty
	// disables subtitle downloads.
	SubtitleProviderBaseURL string
	SubtitleProviderAPIKey  string
}

// Load reads configuration from configPath (if it exists), then
// environment variables (which take precedence over file values), then
// resolves zero-value defaults that depend on the runtime environment.
func Load(configPath string) (*Config, error) {
	cfg := &Config{
		MediaRoot:         "./media",
		ServerName:        getHostname(),
		TorrentProfileDir: "./torrent-profile",
		FSWatchEnabled:    true,
	}

	if configPath != "" {
		if err := cfg.loadFromFile(configPath); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: reading config file: %w", err)
			}
		}
	}

	cfg.loadFromEnv()
	cfg.resolveDefaults()

	return cfg, nil
}

// resolveDefaults fills in zero-valued settings that depend on the runtime
// environment rather than a fixed literal ("0 = auto, sized off the number
// of CPUs, capped").
func (cfg *Config) resolveDefaults() {
	if cfg.MaxConcurrentPrepares <= 0 {
		numCPU := runtime.NumCPU()
		if numCPU < 1 {
			numCPU = 1
		}
		cfg.MaxConcurrentPrepares = numCPU
	}
	const maxPrepareWorkers = 16
	if cfg.MaxConcurrentPrepares > maxPrepareWorkers {
		cfg.MaxConcurrentPrepares = maxPrepareWorkers
	}
}

func (cfg *Config) loadFromFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		switch key {
		case "media_root":
			cfg.MediaRoot = value
		case "server_name":
			cfg.ServerName = value
		case "torrent_profile_dir":
			cfg.TorrentProfileDir = value
		case "history_database_url":
			cfg.HistoryDatabaseURL = value
		case "fswatch_enabled":
			cfg.FSWatchEnabled = parseBool(value, cfg.FSWatchEnabled)
		case "max_concurrent_prepares":
			if n, err := strconv.Atoi(value); err == nil {
				cfg.MaxConcurrentPrepares = n
			}
		case "subtitle_provider_base_url":
			cfg.SubtitleProviderBaseURL = value
		case "subtitle_provider_api_key":
			cfg.SubtitleProviderAPIKey = value
		}
	}

	return scanner.Err()
}

func (cfg *Config) loadFromEnv() {
	if v := os.Getenv("MEDIA_ROOT"); v != "" {
		cfg.MediaRoot = v
	}
	if v := os.Getenv("SERVER_NAME"); v != "" {
		cfg.ServerName = v
	}
	if v := os.Getenv("TORRENT_PROFILE_DIR"); v != "" {
		cfg.TorrentProfileDir = v
	}
	if v := os.Getenv("HISTORY_DATABASE_URL"); v != "" {
		cfg.HistoryDatabaseURL = v
	}
	if v := os.Getenv("FSWATCH_ENABLED"); v != "" {
		cfg.FSWatchEnabled = parseBool(v, cfg.FSWatchEnabled)
	}
	if v := os.Getenv("MAX_CONCURRENT_PREPARES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxConcurrentPrepares = n
		}
	}
	if v := os.Getenv("SUBTITLE_PROVIDER_BASE_URL"); v != "" {
		cfg.SubtitleProviderBaseURL = v
	}
	if v := os.Getenv("SUBTITLE_PROVIDER_API_KEY"); v != "" {
		cfg.SubtitleProviderAPIKey = v
	}
}

func parseBool(value string, fallback bool) bool {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return b
}

func getHostname() string {
	hostname, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return hostname
}
