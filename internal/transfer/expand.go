package transfer

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/putioarr/putioarr/internal/putio"
	"github.com/putioarr/putioarr/internal/validation"
)

// Cloud is the slice of the cloud API the download pipeline needs.
type Cloud interface {
	ListTransfers(ctx context.Context) ([]putio.Transfer, error)
	ListFiles(ctx context.Context, parentID int64) (*putio.FileList, error)
	GetDownloadURL(ctx context.Context, fileID int64) (string, error)
	RemoveTransfer(ctx context.Context, id int64) error
	AccountInfo(ctx context.Context) (*putio.AccountInfo, error)
}

// Expand walks the transfer's remote file tree and fills in its download
// targets: directories before their contents, pre-order, rooted at
// downloadDir. Directories whose name contains any of the skip substrings
// are pruned whole. The first target is the only top-level one.
func Expand(ctx context.Context, cloud Cloud, t *Transfer, downloadDir string, skip []string) error {
	if t.FileID == nil {
		return fmt.Errorf("transfer %d has no file yet", t.TransferID)
	}

	root, err := cloud.ListFiles(ctx, *t.FileID)
	if err != nil {
		return fmt.Errorf("failed to list transfer root: %w", err)
	}

	if err := validation.ValidateFilename(root.Parent.Name); err != nil {
		return fmt.Errorf("unsafe transfer name: %w", err)
	}

	var targets []DownloadTarget
	rootPath := filepath.Join(downloadDir, root.Parent.Name)
	if !validation.WithinDirectory(rootPath, downloadDir) {
		return fmt.Errorf("transfer %q escapes the download directory", root.Parent.Name)
	}

	if !root.Parent.IsDir() {
		// Single-file transfer: one top-level file target.
		targets = append(targets, t.newTarget(&root.Parent, rootPath, true))
		t.Targets = targets
		return nil
	}

	targets = append(targets, t.newTarget(&root.Parent, rootPath, true))
	targets, err = appendChildren(ctx, cloud, t, targets, root.Files, rootPath, skip)
	if err != nil {
		return err
	}

	t.Targets = targets
	return nil
}

func appendChildren(ctx context.Context, cloud Cloud, t *Transfer, targets []DownloadTarget, files []putio.File, base string, skip []string) ([]DownloadTarget, error) {
	for i := range files {
		f := &files[i]
		if err := validation.ValidateFilename(f.Name); err != nil {
			return nil, fmt.Errorf("unsafe file name in transfer: %w", err)
		}
		path := filepath.Join(base, f.Name)

		if f.IsDir() {
			if skipDir(f.Name, skip) {
				continue
			}
			targets = append(targets, t.newTarget(f, path, false))

			children, err := cloud.ListFiles(ctx, f.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to list folder %s: %w", f.Name, err)
			}
			targets, err = appendChildren(ctx, cloud, t, targets, children.Files, path, skip)
			if err != nil {
				return nil, err
			}
			continue
		}

		targets = append(targets, t.newTarget(f, path, false))
	}
	return targets, nil
}

func (t *Transfer) newTarget(f *putio.File, path string, topLevel bool) DownloadTarget {
	kind := TargetFile
	if f.IsDir() {
		kind = TargetDirectory
	}
	return DownloadTarget{
		To:           path,
		TargetType:   kind,
		TopLevel:     topLevel,
		TransferHash: t.hash(),
		transferID:   t.TransferID,
		fileID:       f.ID,
		size:         f.Size,
	}
}

// skipDir reports whether a folder name matches the skip list. Matching is
// case-sensitive substring containment.
func skipDir(name string, skip []string) bool {
	for _, s := range skip {
		if s != "" && strings.Contains(name, s) {
			return true
		}
	}
	return false
}
