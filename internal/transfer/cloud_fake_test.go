package transfer

import (
	"context"
	"fmt"
	"sync"

	"github.com/putioarr/putioarr/internal/putio"
)

// fakeCloud is an in-memory Cloud for tests: a transfer list, a file tree
// keyed by folder id, and per-file download URLs.
type fakeCloud struct {
	mu        sync.Mutex
	transfers []putio.Transfer
	tree      map[int64]*putio.FileList
	urls      map[int64]string

	listErr  error
	removed  []int64
	urlCalls int
}

func (f *fakeCloud) ListTransfers(ctx context.Context) ([]putio.Transfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]putio.Transfer, len(f.transfers))
	copy(out, f.transfers)
	return out, nil
}

func (f *fakeCloud) ListFiles(ctx context.Context, parentID int64) (*putio.FileList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	list, ok := f.tree[parentID]
	if !ok {
		return nil, &putio.APIError{StatusCode: 404, Method: "GET", Path: "/files/list"}
	}
	return list, nil
}

func (f *fakeCloud) GetDownloadURL(ctx context.Context, fileID int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urlCalls++
	url, ok := f.urls[fileID]
	if !ok {
		return "", fmt.Errorf("no url for file %d", fileID)
	}
	return url, nil
}

func (f *fakeCloud) RemoveTransfer(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, id)
	for i := range f.transfers {
		if f.transfers[i].ID == id {
			f.transfers = append(f.transfers[:i], f.transfers[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeCloud) AccountInfo(ctx context.Context) (*putio.AccountInfo, error) {
	if putio.IsAuthError(f.listErr) {
		return nil, f.listErr
	}
	return &putio.AccountInfo{Username: "tester", AccountActive: true}, nil
}

func (f *fakeCloud) removedIDs() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int64, len(f.removed))
	copy(out, f.removed)
	return out
}

func folder(id int64, name string) putio.File {
	return putio.File{ID: id, Name: name, FileType: putio.FileTypeFolder, ContentType: "application/x-directory"}
}

func file(id int64, name string, size int64) putio.File {
	return putio.File{ID: id, Name: name, FileType: "VIDEO", ContentType: "video/x-matroska", Size: size}
}
