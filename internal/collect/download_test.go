package collect

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/28jackiiee/video-scraping/models"
	"github.com/28jackiiee/video-scraping/pkg/db"
	"github.com/28jackiiee/video-scraping/pkg/inventory"
)

type fakeMedia struct {
	fail map[string]bool
	urls []string
}

func (f *fakeMedia) Download(_ context.Context, url, dest string) (int64, error) {
	f.urls = append(f.urls, url)
	if f.fail[url] {
		return 0, errors.New("status 404")
	}
	return 4, os.WriteFile(dest, []byte("data"), 0644)
}

type fakeResolver struct {
	urls map[string]string
}

func (r *fakeResolver) Resolve(_ context.Context, item models.CandidateItem) (models.CandidateItem, error) {
	u, ok := r.urls[item.ID]
	if !ok {
		return item, errors.New("detail page not found")
	}
	item.URL = u
	return item, nil
}

func setup(t *testing.T) (*downloader, *fakeMedia) {
	t.Helper()
	inv, err := inventory.Open(t.TempDir(), "ocean waves")
	if err != nil {
		t.Fatal(err)
	}
	database, err := db.Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { database.Close() })

	runID, _, err := database.CreateRun(context.Background(), "download", "ocean waves", "ocean_waves", 3, inv.Dir())
	if err != nil {
		t.Fatal(err)
	}
	media := &fakeMedia{fail: map[string]bool{}}
	return &downloader{
		media:    media,
		resolver: &fakeResolver{urls: map[string]string{"3": "https://cdn/3.webm"}},
		inv:      inv,
		database: database,
		runID:    runID,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, media
}

func TestDownloader_Accept(t *testing.T) {
	d, media := setup(t)
	ctx := context.Background()
	media.fail["https://cdn/2.mp4"] = true

	if err := d.accept(ctx, models.CandidateItem{ID: "1", Title: "one", PreviewURL: "https://cdn/1.mov"}); err != nil {
		t.Fatalf("accept 1: %v", err)
	}
	if err := d.accept(ctx, models.CandidateItem{ID: "2", CompURL: "https://cdn/2.mp4"}); err == nil {
		t.Fatal("expected download failure")
	}
	if err := d.accept(ctx, models.CandidateItem{ID: "3"}); err != nil {
		t.Fatalf("accept 3 after resolve: %v", err)
	}
	if err := d.accept(ctx, models.CandidateItem{ID: "4"}); err == nil {
		t.Fatal("expected resolve failure")
	}

	if d.downloaded != 2 {
		t.Errorf("downloaded = %d, want 2", d.downloaded)
	}

	// The failed download still consumed index 1.
	m, err := inventory.ReadMetadata(d.inv.Dir())
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{"1": "ocean_waves_0.mov", "3": "ocean_waves_2.webm"}
	if len(m.VideoFileMappings) != len(want) {
		t.Fatalf("mappings = %v, want %v", m.VideoFileMappings, want)
	}
	for id, name := range want {
		if m.VideoFileMappings[id] != name {
			t.Errorf("mapping[%s] = %q, want %q", id, m.VideoFileMappings[id], name)
		}
	}
	if _, err := os.Stat(filepath.Join(d.inv.Dir(), "ocean_waves_1.mp4")); !os.IsNotExist(err) {
		t.Error("failed download must not leave a file")
	}

	items, err := d.database.GetRunItems(ctx, d.runID)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 4 {
		t.Fatalf("expected 4 recorded items, got %d", len(items))
	}
	statuses := []string{db.ItemAccepted, db.ItemFailed, db.ItemAccepted, db.ItemFailed}
	for i, it := range items {
		if it.Status != statuses[i] {
			t.Errorf("item %d status = %q, want %q", i, it.Status, statuses[i])
		}
	}
	if items[0].SizeBytes != 4 || items[1].ErrorMessage == "" {
		t.Errorf("unexpected items: %+v", items[:2])
	}
}

func TestDownloader_NoMediaURL(t *testing.T) {
	d, media := setup(t)
	d.resolver = nil

	err := d.accept(context.Background(), models.CandidateItem{ID: "9"})
	if !errors.Is(err, errNoMediaURL) {
		t.Fatalf("err = %v, want errNoMediaURL", err)
	}
	if len(media.urls) != 0 {
		t.Errorf("nothing should be downloaded, got %v", media.urls)
	}
	if d.inv.NextIndex() != 0 {
		t.Errorf("no index should be consumed, next = %d", d.inv.NextIndex())
	}
}
