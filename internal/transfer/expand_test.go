package transfer

import (
	"context"
	"testing"

	"github.com/putioarr/putioarr/internal/putio"
)

// treeCloud builds:
//
//	Show.S01/            (id 100)
//	  episode1.mkv       (id 101)
//	  Sample/            (id 102)
//	    sample.mkv       (id 103)
//	  Subs/              (id 104)
//	    episode1.srt     (id 105)
func treeCloud() *fakeCloud {
	return &fakeCloud{
		tree: map[int64]*putio.FileList{
			100: {
				Parent: folder(100, "Show.S01"),
				Files: []putio.File{
					file(101, "episode1.mkv", 5000),
					folder(102, "Sample"),
					folder(104, "Subs"),
				},
			},
			102: {
				Parent: folder(102, "Sample"),
				Files:  []putio.File{file(103, "sample.mkv", 100)},
			},
			104: {
				Parent: folder(104, "Subs"),
				Files:  []putio.File{file(105, "episode1.srt", 10)},
			},
		},
	}
}

func expandable(id, fileID int64, hash, name string) Transfer {
	return NewTransfer(&putio.Transfer{
		ID:     id,
		Hash:   &hash,
		Name:   &name,
		FileID: &fileID,
		Status: "COMPLETED",
	})
}

func TestExpandDirectoryTree(t *testing.T) {
	cloud := treeCloud()
	tr := expandable(1, 100, "cafebabe", "Show.S01")

	if err := Expand(context.Background(), cloud, &tr, "/downloads", nil); err != nil {
		t.Fatalf("Expand failed: %v", err)
	}

	wantPaths := []string{
		"/downloads/Show.S01",
		"/downloads/Show.S01/episode1.mkv",
		"/downloads/Show.S01/Sample",
		"/downloads/Show.S01/Sample/sample.mkv",
		"/downloads/Show.S01/Subs",
		"/downloads/Show.S01/Subs/episode1.srt",
	}
	if len(tr.Targets) != len(wantPaths) {
		t.Fatalf("target count = %d, want %d: %v", len(tr.Targets), len(wantPaths), tr.Targets)
	}
	for i, want := range wantPaths {
		if tr.Targets[i].To != want {
			t.Errorf("targets[%d].To = %q, want %q", i, tr.Targets[i].To, want)
		}
	}

	// Directories precede their contents.
	if tr.Targets[0].TargetType != TargetDirectory || tr.Targets[2].TargetType != TargetDirectory {
		t.Error("directory targets out of order")
	}

	// Exactly one top-level target, and it is the first.
	topCount := 0
	for _, target := range tr.Targets {
		if target.TopLevel {
			topCount++
		}
	}
	if topCount != 1 || !tr.Targets[0].TopLevel {
		t.Errorf("top-level count = %d, first = %v", topCount, tr.Targets[0].TopLevel)
	}

	for _, target := range tr.Targets {
		if target.TransferHash != "cafebabe" {
			t.Errorf("target %s hash = %q", target.To, target.TransferHash)
		}
		if target.From != nil {
			t.Errorf("target %s resolved URL at expansion time", target.To)
		}
	}
}

func TestExpandSkipFilter(t *testing.T) {
	cloud := treeCloud()
	tr := expandable(1, 100, "cafebabe", "Show.S01")

	if err := Expand(context.Background(), cloud, &tr, "/downloads", []string{"Sample", "extras"}); err != nil {
		t.Fatalf("Expand failed: %v", err)
	}

	for _, target := range tr.Targets {
		if target.To == "/downloads/Show.S01/Sample" || target.To == "/downloads/Show.S01/Sample/sample.mkv" {
			t.Errorf("skipped subtree present: %s", target.To)
		}
	}
	if len(tr.Targets) != 4 {
		t.Errorf("target count = %d, want 4", len(tr.Targets))
	}
}

func TestExpandSkipFilterIsCaseSensitive(t *testing.T) {
	cloud := treeCloud()
	tr := expandable(1, 100, "cafebabe", "Show.S01")

	// "sample" does not match the "Sample" folder.
	if err := Expand(context.Background(), cloud, &tr, "/downloads", []string{"sample"}); err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	if len(tr.Targets) != 6 {
		t.Errorf("target count = %d, want 6 (no pruning)", len(tr.Targets))
	}
}

func TestExpandSingleFileTransfer(t *testing.T) {
	cloud := &fakeCloud{
		tree: map[int64]*putio.FileList{
			200: {Parent: file(200, "movie.mkv", 7000)},
		},
	}
	tr := expandable(2, 200, "deadbeef", "movie.mkv")

	if err := Expand(context.Background(), cloud, &tr, "/downloads", nil); err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	if len(tr.Targets) != 1 {
		t.Fatalf("target count = %d, want 1", len(tr.Targets))
	}
	target := tr.Targets[0]
	if target.TargetType != TargetFile || !target.TopLevel || target.To != "/downloads/movie.mkv" {
		t.Errorf("target = %+v", target)
	}
}

func TestExpandRejectsTraversalNames(t *testing.T) {
	cloud := &fakeCloud{
		tree: map[int64]*putio.FileList{
			100: {
				Parent: folder(100, "Show.S01"),
				Files:  []putio.File{file(101, "..", 10)},
			},
		},
	}
	tr := expandable(1, 100, "cafebabe", "Show.S01")

	if err := Expand(context.Background(), cloud, &tr, "/downloads", nil); err == nil {
		t.Fatal("expected error for traversal file name")
	}
}

func TestExpandWithoutFileID(t *testing.T) {
	tr := NewTransfer(&putio.Transfer{ID: 3, Status: "DOWNLOADING"})
	if err := Expand(context.Background(), treeCloud(), &tr, "/downloads", nil); err == nil {
		t.Fatal("expected error for transfer without file_id")
	}
}
