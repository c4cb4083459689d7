package transfer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/putioarr/putioarr/internal/logging"
)

func startPool(t *testing.T, cloud Cloud, workers int) *Pool {
	t.Helper()
	pool := NewPool(cloud, logging.New(), os.Getuid(), workers, 10)
	pool.Start(context.Background())
	return pool
}

func TestPoolDownloadsFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("file-contents"))
	}))
	defer srv.Close()

	cloud := &fakeCloud{urls: map[int64]string{101: srv.URL + "/file"}}
	dir := t.TempDir()
	dest := filepath.Join(dir, "episode1.mkv")

	pool := startPool(t, cloud, 1)
	target := DownloadTarget{
		To:           dest,
		TargetType:   TargetFile,
		TransferHash: "cafebabe",
		transferID:   1,
		fileID:       101,
		size:         13,
	}
	if err := pool.Enqueue(context.Background(), target); err != nil {
		t.Fatal(err)
	}

	res := <-pool.Results()
	if res.err != nil {
		t.Fatalf("download failed: %v", res.err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "file-contents" {
		t.Errorf("content = %q", data)
	}
	if _, err := os.Stat(dest + ".part"); !os.IsNotExist(err) {
		t.Error(".part file left behind")
	}
	if cloud.urlCalls != 1 {
		t.Errorf("url resolutions = %d, want 1 (lazy)", cloud.urlCalls)
	}

	pool.Shutdown()
}

func TestPoolCreatesDirectories(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "Show.S01", "Subs")

	pool := startPool(t, &fakeCloud{}, 1)
	target := DownloadTarget{To: dest, TargetType: TargetDirectory, TransferHash: "cafebabe", transferID: 1}
	if err := pool.Enqueue(context.Background(), target); err != nil {
		t.Fatal(err)
	}

	res := <-pool.Results()
	if res.err != nil {
		t.Fatalf("mkdir failed: %v", res.err)
	}

	info, err := os.Stat(dest)
	if err != nil {
		t.Fatal(err)
	}
	if !info.IsDir() {
		t.Error("not a directory")
	}

	pool.Shutdown()
}

func TestPoolOverwritesExistingDestination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("new"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "file.bin")
	if err := os.WriteFile(dest, []byte("old-stale-content"), 0644); err != nil {
		t.Fatal(err)
	}

	cloud := &fakeCloud{urls: map[int64]string{7: srv.URL}}
	pool := startPool(t, cloud, 1)
	target := DownloadTarget{To: dest, TargetType: TargetFile, transferID: 1, fileID: 7, size: 3}
	if err := pool.Enqueue(context.Background(), target); err != nil {
		t.Fatal(err)
	}

	if res := <-pool.Results(); res.err != nil {
		t.Fatalf("download failed: %v", res.err)
	}

	data, _ := os.ReadFile(dest)
	if string(data) != "new" {
		t.Errorf("content = %q, want overwritten", data)
	}

	pool.Shutdown()
}

func TestPoolReportsFailure(t *testing.T) {
	// No URL registered for the file: resolution fails without retrying.
	cloud := &fakeCloud{urls: map[int64]string{}}
	pool := startPool(t, cloud, 1)

	dest := filepath.Join(t.TempDir(), "missing.bin")
	target := DownloadTarget{To: dest, TargetType: TargetFile, transferID: 9, fileID: 404, size: 10}
	if err := pool.Enqueue(context.Background(), target); err != nil {
		t.Fatal(err)
	}

	res := <-pool.Results()
	if res.err == nil {
		t.Fatal("expected failure result")
	}
	if res.target.transferID != 9 {
		t.Errorf("result transfer id = %d", res.target.transferID)
	}

	pool.Shutdown()
}

func TestPoolShutdownClosesResults(t *testing.T) {
	pool := startPool(t, &fakeCloud{}, 2)
	pool.Shutdown()

	if _, ok := <-pool.Results(); ok {
		t.Error("results channel should be closed after shutdown")
	}
}
