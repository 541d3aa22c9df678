package inventory

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestCleanQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Dolly Zoom", "dolly_zoom"},
		{"red cars!", "red_cars"},
		{"  city - skyline  ", "city_skyline"},
		{"drone--shot  at night", "drone_shot_at_night"},
		{"snake_case", "snake_case"},
		{"_edges_", "edges"},
		{"!!!", "unknown_query"},
		{"", "unknown_query"},
	}
	for _, tt := range tests {
		if got := CleanQuery(tt.in); got != tt.want {
			t.Errorf("CleanQuery(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtensionFor(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://cdn.example.com/a/preview.mp4", ".mp4"},
		{"https://cdn.example.com/a/comp.MOV?x=1", ".mov"},
		{"https://cdn.example.com/a/clip.webm", ".webm"},
		{"https://cdn.example.com/a/stream", ".mp4"},
	}
	for _, tt := range tests {
		if got := ExtensionFor(tt.url); got != tt.want {
			t.Errorf("ExtensionFor(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func fixedClock(ts string) func() time.Time {
	tm, _ := time.ParseInLocation(timeLayout, ts, time.Local)
	return func() time.Time { return tm }
}

func TestOpen_NewDirectory(t *testing.T) {
	base := t.TempDir()
	inv, err := open(base, "Red Cars", fixedClock("2025-01-02 03:04:05"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if inv.Dir() != filepath.Join(base, "red_cars") {
		t.Errorf("Dir() = %q", inv.Dir())
	}
	if inv.Count() != 0 || inv.NextIndex() != 0 {
		t.Errorf("count=%d next=%d, want 0/0", inv.Count(), inv.NextIndex())
	}
	if inv.Needed(5) != 5 {
		t.Errorf("Needed(5) = %d", inv.Needed(5))
	}

	m, err := ReadMetadata(inv.Dir())
	if err != nil {
		t.Fatalf("metadata not written: %v", err)
	}
	if m.OriginalQuery != "Red Cars" || m.CleanQuery != "red_cars" {
		t.Errorf("unexpected metadata: %+v", m)
	}
	if m.CreatedAt != "2025-01-02 03:04:05" {
		t.Errorf("created_at = %q", m.CreatedAt)
	}
}

func TestOpen_ScansExistingFiles(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "cats")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"cats_0.mp4", "cats_1.mov", "cats_4.webm", "cats_x.mp4", "dogs_7.mp4", "cats_9.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("v"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	inv, err := Open(base, "cats")
	if err != nil {
		t.Fatal(err)
	}
	if inv.Count() != 3 {
		t.Errorf("Count() = %d, want 3", inv.Count())
	}
	if inv.NextIndex() != 5 {
		t.Errorf("NextIndex() = %d, want 5", inv.NextIndex())
	}
	if inv.Needed(2) != 0 {
		t.Errorf("Needed(2) = %d, want 0", inv.Needed(2))
	}
	if inv.Needed(10) != 7 {
		t.Errorf("Needed(10) = %d, want 7", inv.Needed(10))
	}
}

func TestReserveRecordFinish(t *testing.T) {
	base := t.TempDir()
	inv, err := open(base, "cats", fixedClock("2025-01-02 03:04:05"))
	if err != nil {
		t.Fatal(err)
	}

	p1 := inv.Reserve("https://x/1.mp4")
	p2 := inv.Reserve("https://x/2.mov")
	if filepath.Base(p1) != "cats_0.mp4" || filepath.Base(p2) != "cats_1.mov" {
		t.Errorf("unexpected names %s, %s", p1, p2)
	}

	// Only the second download succeeded; its index is still 1.
	inv.Record("222", p2)
	if err := inv.Finish(4, 1); err != nil {
		t.Fatal(err)
	}

	m, err := ReadMetadata(inv.Dir())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(m.VideoFileMappings, map[string]string{"222": "cats_1.mov"}) {
		t.Errorf("mappings = %v", m.VideoFileMappings)
	}
	if m.TotalVideosDownloaded != 1 {
		t.Errorf("total = %d, want 1", m.TotalVideosDownloaded)
	}
	if m.LastDownloadSession == nil || m.LastDownloadSession.RequestedCount != 4 || m.LastDownloadSession.NewDownloads != 1 {
		t.Errorf("session = %+v", m.LastDownloadSession)
	}
}

func TestOpen_PreservesCreatedAtAndMappings(t *testing.T) {
	base := t.TempDir()
	inv, err := open(base, "cats", fixedClock("2025-01-01 00:00:00"))
	if err != nil {
		t.Fatal(err)
	}
	inv.Record("11", filepath.Join(inv.Dir(), "cats_0.mp4"))
	if err := inv.Save(); err != nil {
		t.Fatal(err)
	}

	again, err := open(base, "Cats", fixedClock("2025-06-01 00:00:00"))
	if err != nil {
		t.Fatal(err)
	}
	m := again.Metadata()
	if m.CreatedAt != "2025-01-01 00:00:00" {
		t.Errorf("created_at = %q, want preserved", m.CreatedAt)
	}
	if m.LastUpdated != "2025-06-01 00:00:00" {
		t.Errorf("last_updated = %q", m.LastUpdated)
	}
	if m.OriginalQuery != "Cats" {
		t.Errorf("original_query = %q", m.OriginalQuery)
	}
	if !again.ExistingIDs().Has("11") {
		t.Error("expected id 11 to be existing")
	}
}

func TestOpen_CorruptMetadataReplaced(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "cats")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, MetadataFile), []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}

	inv, err := Open(base, "cats")
	if err != nil {
		t.Fatalf("corrupt metadata should be replaced: %v", err)
	}
	if inv.ExistingIDs().Len() != 0 {
		t.Error("expected no existing ids")
	}
	if _, err := ReadMetadata(dir); err != nil {
		t.Errorf("metadata should be valid after Open: %v", err)
	}
}
