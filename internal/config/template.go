package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrConfigExists is returned by WriteTemplate when a config file is already
// present at the target path.
var ErrConfigExists = errors.New("config file already exists")

// Template is the starter config written on first run. The {putio_api_key}
// placeholder is filled in by WriteTemplate.
const Template = `# Required. The username and password sonarr/radarr/whisparr use to talk to
# this service.
username = "myusername"
password = "mypassword"
# Required
download_directory = "/path/to/downloads"
# Optional
bind_address = "0.0.0.0"
# Optional
port = 9091
# Optional
loglevel = "info"
# Optional. Downloaded files and directories are chowned to this uid.
uid = 1000
# Optional. Poll interval in seconds.
polling_interval = 10
# Optional. Directory names (substring match) skipped during download.
skip_directories = ["sample", "extras"]
# Optional
orchestration_workers = 10
# Optional
download_workers = 4

[putio]
# Required. Generate one with: putioarr get-token
api_key = "{putio_api_key}"

# The sections below are optional; configure the services you use.

[sonarr]
url = "http://mysonarrhost:8989"
# Can be found in Settings -> General
api_key = "MYSONARRAPIKEY"

[radarr]
url = "http://myradarrhost:7878"
# Can be found in Settings -> General
api_key = "MYRADARRAPIKEY"

[whisparr]
url = "http://mywhisparrhost:6969"
# Can be found in Settings -> General
api_key = "MYWHISPARRAPIKEY"
`

// RenderTemplate fills the starter template with the given API key. An empty
// key leaves the placeholder for the user to replace by hand.
func RenderTemplate(putioAPIKey string) string {
	if putioAPIKey == "" {
		return Template
	}
	return strings.ReplaceAll(Template, "{putio_api_key}", putioAPIKey)
}

// WriteTemplate writes the starter config to path, creating parent
// directories. Fails if a config already exists at path.
func WriteTemplate(path, putioAPIKey string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrConfigExists, path)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Credentials live in this file; tmp+rename keeps a crash from leaving
	// a half-written config behind.
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(RenderTemplate(putioAPIKey)), 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}
