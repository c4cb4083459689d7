// Package transfer turns finished cloud transfers into local files: it
// expands transfers into download targets, drains them through a bounded
// worker pool, and cleans up remotely once everything has landed.
package transfer

import (
	"fmt"

	"github.com/putioarr/putioarr/internal/putio"
)

// TargetType distinguishes file targets from directory targets.
type TargetType string

const (
	TargetFile      TargetType = "File"
	TargetDirectory TargetType = "Directory"
)

// DownloadTarget is one filesystem object a transfer expands into.
type DownloadTarget struct {
	// From is the resolved download URL. It stays nil until a worker
	// claims the target; the URLs are time-limited and resolving them at
	// expansion time would let them expire in the queue.
	From *string `json:"from"`

	// To is the absolute local destination path.
	To string `json:"to"`

	TargetType TargetType `json:"target_type"`

	// TopLevel marks the single target whose path is reported to the
	// media managers. Exactly one target per transfer carries it.
	TopLevel bool `json:"top_level"`

	// TransferHash ties the target back to its transfer in logs.
	TransferHash string `json:"transfer_hash"`

	// transferID, fileID and size drive completion accounting, lazy URL
	// resolution and the free-space check; they are not part of the
	// serialized form.
	transferID int64
	fileID     int64
	size       int64
}

func (t DownloadTarget) String() string {
	return fmt.Sprintf("[%s] %s", shortHash(t.TransferHash), t.To)
}

// Transfer is the download-side view of a cloud transfer.
type Transfer struct {
	TransferID int64   `json:"transfer_id"`
	Name       string  `json:"name"`
	FileID     *int64  `json:"file_id"`
	Hash       *string `json:"hash"`

	// Targets is nil until the transfer has been expanded.
	Targets []DownloadTarget `json:"targets"`
}

// NewTransfer projects a cloud transfer into the download pipeline's view.
func NewTransfer(pt *putio.Transfer) Transfer {
	return Transfer{
		TransferID: pt.ID,
		Name:       pt.DisplayName(),
		FileID:     pt.FileID,
		Hash:       pt.Hash,
	}
}

func (t *Transfer) hash() string {
	if t.Hash == nil {
		return ""
	}
	return *t.Hash
}

func (t *Transfer) String() string {
	return fmt.Sprintf("[%s] %s", shortHash(t.hash()), t.Name)
}

// TopLevel returns the target whose path the media managers scan, or nil
// when the transfer has not been expanded.
func (t *Transfer) TopLevel() *DownloadTarget {
	for i := range t.Targets {
		if t.Targets[i].TopLevel {
			return &t.Targets[i]
		}
	}
	return nil
}

// shortHash returns the first 4 characters of a transfer hash for log
// prefixes, or "0000" when the hash is not known yet.
func shortHash(hash string) string {
	if len(hash) < 4 {
		return "0000"
	}
	return hash[:4]
}
