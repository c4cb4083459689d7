// Package transmission implements the Transmission RPC dialect spoken by
// Sonarr-family download clients, backed by cloud transfers.
package transmission

import (
	"strings"

	"github.com/putioarr/putioarr/internal/putio"
)

// SessionID is the constant session identifier. There is no real session
// state behind the RPC surface; clients just need the handshake to succeed.
const SessionID = "useless-session-id"

// SessionHeader carries the session identifier.
const SessionHeader = "X-Transmission-Session-Id"

// Status is a Transmission torrent status code.
type Status int

const (
	StatusStopped Status = iota
	StatusCheckWait
	StatusCheck
	StatusQueued
	StatusDownloading
	StatusSeedingWait
	StatusSeeding
)

// StatusFromCloud maps a cloud transfer status onto the Transmission status
// table. Matching is case-insensitive; unknown statuses read as CheckWait so
// clients keep the torrent visible without treating it as failed.
func StatusFromCloud(status string) Status {
	switch strings.ToUpper(status) {
	case "STOPPED", "COMPLETED", "ERROR":
		return StatusStopped
	case "CHECKWAIT", "PREPARING_DOWNLOAD":
		return StatusCheckWait
	case "CHECK", "COMPLETING":
		return StatusCheck
	case "QUEUED", "IN_QUEUE":
		return StatusQueued
	case "DOWNLOADING":
		return StatusDownloading
	case "SEEDINGWAIT":
		return StatusSeedingWait
	case "SEEDING":
		return StatusSeeding
	default:
		return StatusCheckWait
	}
}

// SessionConfig is the session-get payload. Key names follow the
// Transmission wire format, which mixes kebab-case and camelCase.
type SessionConfig struct {
	RPCVersion              string  `json:"rpc-version"`
	Version                 string  `json:"version"`
	DownloadDir             string  `json:"download-dir"`
	SeedRatioLimit          float64 `json:"seedRatioLimit"`
	SeedRatioLimited        bool    `json:"seedRatioLimited"`
	IdleSeedingLimit        int     `json:"idle-seeding-limit"`
	IdleSeedingLimitEnabled bool    `json:"idle-seeding-limit-enabled"`
}

// DefaultSessionConfig returns the session parameters advertised to clients.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		RPCVersion:              "18",
		Version:                 "14.0.0",
		DownloadDir:             "/",
		SeedRatioLimit:          1.0,
		SeedRatioLimited:        true,
		IdleSeedingLimit:        100,
		IdleSeedingLimitEnabled: false,
	}
}

// SessionStats is the session-stats payload. Transfer counts are real; the
// speed numbers are not tracked and read as zero.
type SessionStats struct {
	ActiveTorrentCount int   `json:"activeTorrentCount"`
	PausedTorrentCount int   `json:"pausedTorrentCount"`
	TorrentCount       int   `json:"torrentCount"`
	DownloadSpeed      int64 `json:"downloadSpeed"`
	UploadSpeed        int64 `json:"uploadSpeed"`
}

// Torrent is the torrent-get projection of one cloud transfer.
type Torrent struct {
	ID             int64   `json:"id"`
	HashString     *string `json:"hashString"`
	Name           string  `json:"name"`
	DownloadDir    string  `json:"downloadDir"`
	TotalSize      int64   `json:"totalSize"`
	LeftUntilDone  int64   `json:"leftUntilDone"`
	IsFinished     bool    `json:"isFinished"`
	ETA            int64   `json:"eta"`
	Status         Status  `json:"status"`
	DownloadedEver int64   `json:"downloadedEver"`
	Error          int     `json:"error"`
	ErrorString    *string `json:"errorString"`
	FileCount      int     `json:"fileCount"`
}

// errorLocal is the Transmission error code for a local problem. It signals
// the arrs that errorString is worth reading.
const errorLocal = 3

// isFinishedStatus reports whether the cloud is done fetching the transfer.
func isFinishedStatus(status string) bool {
	switch strings.ToUpper(status) {
	case "COMPLETED", "SEEDING", "SEEDINGWAIT":
		return true
	}
	return false
}

// TorrentFromTransfer projects a cloud transfer into the Transmission view.
// downloadDir is where the bridge will place the finished files; the arrs
// use it to find imports.
func TorrentFromTransfer(t *putio.Transfer, downloadDir string) Torrent {
	var size, downloaded, eta int64
	if t.Size != nil {
		size = *t.Size
	}
	if t.Downloaded != nil {
		downloaded = *t.Downloaded
	}
	if t.EstimatedTime != nil {
		eta = *t.EstimatedTime
	}

	left := size - downloaded
	if left < 0 {
		left = 0
	}

	errCode := 0
	if t.ErrorMessage != nil {
		errCode = errorLocal
	}

	return Torrent{
		ID:             t.ID,
		HashString:     t.Hash,
		Name:           t.DisplayName(),
		DownloadDir:    downloadDir,
		TotalSize:      size,
		LeftUntilDone:  left,
		IsFinished:     isFinishedStatus(t.Status),
		ETA:            eta,
		Status:         StatusFromCloud(t.Status),
		DownloadedEver: downloaded,
		Error:          errCode,
		ErrorString:    t.ErrorMessage,
		FileCount:      1,
	}
}
