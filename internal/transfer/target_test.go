package transfer

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/putioarr/putioarr/internal/putio"
)

func strPtr(s string) *string  { return &s }
func i64Ptr(n int64) *int64    { return &n }

func TestDownloadTargetString(t *testing.T) {
	target := DownloadTarget{
		From:         strPtr("https://example.com/file.mp4"),
		To:           "/downloads/test/file.mp4",
		TargetType:   TargetFile,
		TopLevel:     true,
		TransferHash: "abcd1234",
	}

	s := target.String()
	if !strings.Contains(s, "abcd") {
		t.Errorf("display %q missing hash prefix", s)
	}
	if !strings.Contains(s, "/downloads/test/file.mp4") {
		t.Errorf("display %q missing path", s)
	}
}

func TestDownloadTargetStringWithoutHash(t *testing.T) {
	target := DownloadTarget{To: "/x", TargetType: TargetDirectory}
	if !strings.Contains(target.String(), "0000") {
		t.Errorf("display %q should fall back to 0000", target.String())
	}
}

func TestDownloadTargetSerialization(t *testing.T) {
	target := DownloadTarget{
		From:         strPtr("https://example.com/test.mp4"),
		To:           "/downloads/test.mp4",
		TargetType:   TargetFile,
		TopLevel:     true,
		TransferHash: "abc123",
	}

	data, err := json.Marshal(target)
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{`"from":`, `"to":`, `"target_type":"File"`, `"top_level":true`, `"transfer_hash":"abc123"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("serialized target missing %s: %s", key, data)
		}
	}

	var back DownloadTarget
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.TargetType != TargetFile || !back.TopLevel || *back.From != "https://example.com/test.mp4" {
		t.Errorf("round trip = %+v", back)
	}
}

func TestNewTransfer(t *testing.T) {
	pt := &putio.Transfer{
		ID:     123,
		Hash:   strPtr("abc123def456"),
		Name:   strPtr("Test Movie"),
		FileID: i64Ptr(456),
		Status: "COMPLETED",
	}

	tr := NewTransfer(pt)
	if tr.TransferID != 123 || tr.Name != "Test Movie" {
		t.Errorf("transfer = %+v", tr)
	}
	if tr.FileID == nil || *tr.FileID != 456 {
		t.Errorf("FileID = %v", tr.FileID)
	}
	if tr.Targets != nil {
		t.Error("targets should be nil before expansion")
	}
}

func TestNewTransferWithoutName(t *testing.T) {
	tr := NewTransfer(&putio.Transfer{ID: 789, Status: "DOWNLOADING"})
	if tr.Name != "Unknown" {
		t.Errorf("Name = %q, want Unknown", tr.Name)
	}
}

func TestTransferString(t *testing.T) {
	tr := NewTransfer(&putio.Transfer{
		ID:   123,
		Hash: strPtr("abcdef1234567890"),
		Name: strPtr("My Transfer"),
	})
	s := tr.String()
	if !strings.Contains(s, "abcd") || !strings.Contains(s, "My Transfer") {
		t.Errorf("display = %q", s)
	}

	noHash := NewTransfer(&putio.Transfer{ID: 456, Name: strPtr("No Hash Transfer")})
	s = noHash.String()
	if !strings.Contains(s, "0000") || !strings.Contains(s, "No Hash Transfer") {
		t.Errorf("display = %q", s)
	}
}

func TestTransferTopLevel(t *testing.T) {
	tr := NewTransfer(&putio.Transfer{ID: 1, Hash: strPtr("test"), Name: strPtr("Test")})
	if tr.TopLevel() != nil {
		t.Error("unexpanded transfer has no top level")
	}

	tr.Targets = []DownloadTarget{
		{To: "/downloads/folder", TargetType: TargetDirectory, TopLevel: true, TransferHash: "test"},
		{From: strPtr("https://example.com/file.mp4"), To: "/downloads/folder/file.mp4", TargetType: TargetFile, TransferHash: "test"},
	}

	top := tr.TopLevel()
	if top == nil {
		t.Fatal("TopLevel() = nil")
	}
	if !top.TopLevel || top.TargetType != TargetDirectory || top.To != "/downloads/folder" {
		t.Errorf("top level = %+v", top)
	}
}
