// Package config provides TOML configuration management for putioarr.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the top-level application configuration, loaded from a TOML file.
//
// Config file location (default): ~/.config/putioarr/config.toml
//
// TOML format:
//
//	username = "myusername"
//	password = "mypassword"
//	download_directory = "/path/to/downloads"
//	bind_address = "0.0.0.0"
//	port = 9091
//	loglevel = "info"
//	uid = 1000
//	polling_interval = 10
//	skip_directories = ["sample", "extras"]
//	orchestration_workers = 10
//	download_workers = 4
//
//	[putio]
//	api_key = <token>
//
//	[sonarr]
//	url = http://mysonarrhost:8989
//	api_key = <token>
type Config struct {
	// Username and Password protect the local RPC endpoint (HTTP Basic auth).
	Username string `toml:"username"`
	Password string `toml:"password"`

	// DownloadDirectory is the base directory for downloaded transfers.
	DownloadDirectory string `toml:"download_directory"`

	// BindAddress and Port determine where the RPC endpoint listens.
	BindAddress string `toml:"bind_address"`
	Port        int    `toml:"port"`

	// Loglevel is one of trace, debug, info, warn, error.
	Loglevel string `toml:"loglevel"`

	// UID is the numeric owner applied to downloaded files and directories.
	UID int `toml:"uid"`

	// PollingInterval is the cloud poll cadence in seconds.
	PollingInterval int `toml:"polling_interval"`

	// SkipDirectories lists folder-name substrings excluded from download.
	// Matching is case-sensitive.
	SkipDirectories []string `toml:"skip_directories"`

	// OrchestrationWorkers bounds concurrent transfer expansions.
	OrchestrationWorkers int `toml:"orchestration_workers"`

	// DownloadWorkers is the number of concurrent file downloads.
	DownloadWorkers int `toml:"download_workers"`

	Putio    PutioConfig `toml:"putio"`
	Sonarr   *ArrConfig  `toml:"sonarr"`
	Radarr   *ArrConfig  `toml:"radarr"`
	Whisparr *ArrConfig  `toml:"whisparr"`
}

// PutioConfig holds the cloud API credentials.
type PutioConfig struct {
	APIKey string `toml:"api_key"`
}

// ArrConfig holds the connection settings for one media manager.
type ArrConfig struct {
	URL    string `toml:"url"`
	APIKey string `toml:"api_key"`
}

// Validation errors
var (
	ErrMissingUsername          = errors.New("username is required")
	ErrMissingPassword          = errors.New("password is required")
	ErrMissingDownloadDirectory = errors.New("download_directory is required")
	ErrMissingAPIKey            = errors.New("putio api_key is required")
	ErrInvalidPort              = errors.New("port must be between 1 and 65535")
	ErrInvalidPollingInterval   = errors.New("polling_interval must be at least 1 second")
	ErrInvalidWorkerCount       = errors.New("worker counts must be at least 1")
)

// DefaultPath returns the default config file path, ~/.config/putioarr/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "putioarr", "config.toml"), nil
}

// New creates a Config with default values. Credentials and the download
// directory have no defaults and must come from the config file.
func New() *Config {
	return &Config{
		BindAddress:          "0.0.0.0",
		Port:                 9091,
		Loglevel:             "info",
		UID:                  1000,
		PollingInterval:      10,
		SkipDirectories:      []string{"sample", "extras"},
		OrchestrationWorkers: 10,
		DownloadWorkers:      4,
	}
}

// Load reads and parses the TOML config file at path. Values absent from the
// file keep their defaults.
func Load(path string) (*Config, error) {
	cfg := New()

	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks that the configuration can run the daemon.
func (cfg *Config) Validate() error {
	if strings.TrimSpace(cfg.Username) == "" {
		return ErrMissingUsername
	}
	if strings.TrimSpace(cfg.Password) == "" {
		return ErrMissingPassword
	}
	if strings.TrimSpace(cfg.DownloadDirectory) == "" {
		return ErrMissingDownloadDirectory
	}
	if strings.TrimSpace(cfg.Putio.APIKey) == "" {
		return ErrMissingAPIKey
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return ErrInvalidPort
	}
	if cfg.PollingInterval < 1 {
		return ErrInvalidPollingInterval
	}
	if cfg.OrchestrationWorkers < 1 || cfg.DownloadWorkers < 1 {
		return ErrInvalidWorkerCount
	}
	return nil
}

// Arrs returns the configured media managers keyed by kind, in a stable order.
func (cfg *Config) Arrs() []NamedArr {
	var out []NamedArr
	if cfg.Sonarr != nil {
		out = append(out, NamedArr{Kind: "sonarr", Config: *cfg.Sonarr})
	}
	if cfg.Radarr != nil {
		out = append(out, NamedArr{Kind: "radarr", Config: *cfg.Radarr})
	}
	if cfg.Whisparr != nil {
		out = append(out, NamedArr{Kind: "whisparr", Config: *cfg.Whisparr})
	}
	return out
}

// NamedArr pairs an ArrConfig with its service kind.
type NamedArr struct {
	Kind   string
	Config ArrConfig
}
