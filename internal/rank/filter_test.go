package rank

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	rankpkg "github.com/28jackiiee/video-scraping/pkg/rank"
)

// fakeScorer scores a video by looking its base name up in scores.
type fakeScorer struct {
	scores  map[string]float64
	queries []string
	failOn  string
}

func (f *fakeScorer) EmbedText(_ context.Context, q string) ([]float32, error) {
	f.queries = append(f.queries, q)
	if q == f.failOn {
		return nil, errors.New("endpoint down")
	}
	return []float32{1}, nil
}

func (f *fakeScorer) Score(_ context.Context, paths []string, _ []float32) ([]rankpkg.Result, error) {
	out := make([]rankpkg.Result, len(paths))
	for i, p := range paths {
		out[i] = rankpkg.Result{Path: p, Index: i, Score: f.scores[filepath.Base(p)]}
	}
	return out, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
}

// buildTree lays out two query directories and one without metadata.
func buildTree(t *testing.T) string {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "cats", "query_metadata.json"), `{"original_query":"Cats playing","clean_query":"cats_playing"}`)
	writeFile(t, filepath.Join(root, "cats", "cats_0.mp4"), "a")
	writeFile(t, filepath.Join(root, "cats", "cats_1.mov"), "b")
	writeFile(t, filepath.Join(root, "cats", "notes.txt"), "x")
	writeFile(t, filepath.Join(root, "dogs", "query_metadata.json"), `{"clean_query":"dogs"}`)
	writeFile(t, filepath.Join(root, "dogs", "dogs_0.webm"), "c")
	writeFile(t, filepath.Join(root, "misc", "clip.mp4"), "d")
	writeFile(t, filepath.Join(root, "loose.mp4"), "e")
	return root
}

func TestRankTree_UsesMetadataQueries(t *testing.T) {
	root := buildTree(t)
	s := &fakeScorer{scores: map[string]float64{"cats_0.mp4": 0.2, "cats_1.mov": 0.9, "dogs_0.webm": 0.5, "clip.mp4": 1}}

	ranked, err := rankTree(context.Background(), s, root, "", 2, discardLogger())
	if err != nil {
		t.Fatalf("rankTree failed: %v", err)
	}

	if len(ranked) != 2 {
		t.Fatalf("expected 2 results, got %d", len(ranked))
	}
	if filepath.Base(ranked[0].Path) != "cats_1.mov" || ranked[0].Query != "Cats playing" || ranked[0].SourceDir != "cats" {
		t.Errorf("unexpected first result: %+v", ranked[0])
	}
	if filepath.Base(ranked[1].Path) != "dogs_0.webm" || ranked[1].Query != "dogs" {
		t.Errorf("unexpected second result: %+v", ranked[1])
	}
	// misc has no query and is skipped
	if len(s.queries) != 2 {
		t.Errorf("queries embedded = %v", s.queries)
	}
}

func TestRankTree_OverrideQueryEmbeddedOnce(t *testing.T) {
	root := buildTree(t)
	s := &fakeScorer{scores: map[string]float64{"clip.mp4": 0.7}}

	ranked, err := rankTree(context.Background(), s, root, "animals", 0, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	if len(ranked) != 4 {
		t.Fatalf("expected every video, got %d", len(ranked))
	}
	if len(s.queries) != 1 || s.queries[0] != "animals" {
		t.Errorf("queries embedded = %v", s.queries)
	}
	if filepath.Base(ranked[0].Path) != "clip.mp4" {
		t.Errorf("best = %s", ranked[0].Path)
	}
	// Equal scores keep discovery order: cats before dogs.
	if filepath.Base(ranked[1].Path) != "cats_0.mp4" || filepath.Base(ranked[3].Path) != "dogs_0.webm" {
		t.Errorf("tie order broken: %s, %s", ranked[1].Path, ranked[3].Path)
	}
}

func TestRankTree_QueryFailureAborts(t *testing.T) {
	root := buildTree(t)
	s := &fakeScorer{failOn: "Cats playing"}
	if _, err := rankTree(context.Background(), s, root, "", 5, discardLogger()); err == nil {
		t.Fatal("expected error when the query cannot be embedded")
	}
}

func TestOutputName(t *testing.T) {
	got := OutputName(3, 0.25, "/x/cats/cats_1.mov")
	if got != "rank_03_sim_0.2500_cats_1.mov" {
		t.Errorf("OutputName = %q", got)
	}
}

func TestCopyRanked(t *testing.T) {
	root := buildTree(t)
	out := filepath.Join(t.TempDir(), "filtered")
	ranked := []Scored{
		{Result: rankpkg.Result{Path: filepath.Join(root, "cats", "cats_1.mov"), Score: 0.9}, Query: "Cats playing", SourceDir: "cats"},
		{Result: rankpkg.Result{Path: filepath.Join(root, "gone.mp4"), Score: 0.5}, Query: "x", SourceDir: "gone"},
		{Result: rankpkg.Result{Path: filepath.Join(root, "dogs", "dogs_0.webm"), Score: 0.1}, Query: "dogs", SourceDir: "dogs"},
	}
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	res, err := copyRanked(out, ranked, now, discardLogger())
	if err != nil {
		t.Fatalf("copyRanked failed: %v", err)
	}
	if res.TotalVideosFiltered != 2 {
		t.Errorf("total = %d, want 2", res.TotalVideosFiltered)
	}

	for _, name := range []string{"rank_01_sim_0.9000_cats_1.mov", "rank_02_sim_0.1000_dogs_0.webm"} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("missing copy %s: %v", name, err)
		}
	}

	data, err := os.ReadFile(filepath.Join(out, ResultsFile))
	if err != nil {
		t.Fatal(err)
	}
	var back FilteringResults
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.FilteringTimestamp != "2025-01-02T03:04:05Z" || len(back.Videos) != 2 {
		t.Errorf("unexpected results file: %+v", back)
	}
	if back.Videos[1].Rank != 2 || back.Videos[1].SourceDirectory != "dogs" {
		t.Errorf("unexpected second entry: %+v", back.Videos[1])
	}
	if _, err := os.Stat(filepath.Join(out, "rank_03_sim_0.1000_dogs_0.webm")); err == nil {
		t.Error("rank numbering skipped the failed copy")
	}
}
