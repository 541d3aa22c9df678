package rank

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/28jackiiee/video-scraping/pkg/inventory"
	rankpkg "github.com/28jackiiee/video-scraping/pkg/rank"
	"github.com/28jackiiee/video-scraping/pkg/video"
)

const ResultsFile = "filtering_results.json"

type scorer interface {
	EmbedText(ctx context.Context, query string) ([]float32, error)
	Score(ctx context.Context, paths []string, query []float32) ([]rankpkg.Result, error)
}

// Scored is a ranked video together with the query directory it came from.
type Scored struct {
	rankpkg.Result
	Query     string
	SourceDir string
}

// queryDir is one sub-directory of the source tree to rank.
type queryDir struct {
	path   string
	query  string
	videos []string
}

// discover lists the query directories under source. A directory without a
// query of its own is skipped unless override is set.
func discover(source, override string, logger *slog.Logger) ([]queryDir, error) {
	entries, err := os.ReadDir(source)
	if err != nil {
		return nil, fmt.Errorf("failed to read source directory: %w", err)
	}

	var dirs []queryDir
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		path := filepath.Join(source, e.Name())

		query := override
		if query == "" {
			if m, err := inventory.ReadMetadata(path); err == nil {
				query = m.OriginalQuery
				if query == "" {
					query = m.CleanQuery
				}
			} else if !os.IsNotExist(err) {
				logger.Warn("Could not load query metadata", "dir", e.Name(), "error", err)
			}
		}
		if query == "" {
			logger.Warn("No query found, skipping directory", "dir", e.Name())
			continue
		}

		videos, err := video.FindVideoFiles(path)
		if err != nil {
			return nil, err
		}
		if len(videos) == 0 {
			logger.Warn("No video files found", "dir", e.Name())
			continue
		}
		dirs = append(dirs, queryDir{path: path, query: query, videos: videos})
	}
	return dirs, nil
}

// rankTree scores every video below source and returns the topK overall.
// Each query text is embedded once.
func rankTree(ctx context.Context, s scorer, source, override string, topK int, logger *slog.Logger) ([]Scored, error) {
	dirs, err := discover(source, override, logger)
	if err != nil {
		return nil, err
	}

	queries := map[string][]float32{}
	var all []rankpkg.Result
	var meta []Scored
	for _, d := range dirs {
		qvec, ok := queries[d.query]
		if !ok {
			qvec, err = s.EmbedText(ctx, d.query)
			if err != nil {
				return nil, fmt.Errorf("failed to embed query %q: %w", d.query, err)
			}
			queries[d.query] = qvec
		}
		logger.Info("Processing directory", "dir", filepath.Base(d.path), "query", d.query, "videos", len(d.videos))

		results, err := s.Score(ctx, d.videos, qvec)
		if err != nil {
			return nil, err
		}
		for _, r := range results {
			// Index is rewritten so ties keep the global discovery order.
			r.Index = len(all)
			all = append(all, r)
			meta = append(meta, Scored{Query: d.query, SourceDir: filepath.Base(d.path)})
		}
	}

	top := rankpkg.TopK(all, topK)
	out := make([]Scored, len(top))
	for i, r := range top {
		out[i] = meta[r.Index]
		out[i].Result = r
	}
	return out, nil
}

// FilteredVideo is one entry of filtering_results.json.
type FilteredVideo struct {
	Rank            int     `json:"rank"`
	OriginalPath    string  `json:"original_path"`
	OutputFilename  string  `json:"output_filename"`
	SimilarityScore float64 `json:"similarity_score"`
	SourceDirectory string  `json:"source_directory"`
	Query           string  `json:"query"`
}

// FilteringResults is the content of filtering_results.json.
type FilteringResults struct {
	FilteringTimestamp  string          `json:"filtering_timestamp"`
	TotalVideosFiltered int             `json:"total_videos_filtered"`
	Videos              []FilteredVideo `json:"videos"`
}

// OutputName is the file name a ranked video is copied to.
func OutputName(rank int, score float64, path string) string {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(filepath.Base(path), ext)
	return fmt.Sprintf("rank_%02d_sim_%.4f_%s%s", rank, score, stem, ext)
}

// copyRanked copies ranked videos into outputDir and writes the results file.
// A video that fails to copy is logged and left out; ranks stay contiguous.
func copyRanked(outputDir string, ranked []Scored, now time.Time, logger *slog.Logger) (*FilteringResults, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	res := &FilteringResults{
		FilteringTimestamp: now.Format(time.RFC3339),
		Videos:             []FilteredVideo{},
	}
	for _, r := range ranked {
		rank := len(res.Videos) + 1
		name := OutputName(rank, r.Score, r.Path)
		if err := copyFile(r.Path, filepath.Join(outputDir, name)); err != nil {
			logger.Error("Failed to copy video", "path", r.Path, "error", err)
			continue
		}
		res.Videos = append(res.Videos, FilteredVideo{
			Rank:            rank,
			OriginalPath:    r.Path,
			OutputFilename:  name,
			SimilarityScore: r.Score,
			SourceDirectory: r.SourceDir,
			Query:           r.Query,
		})
	}
	res.TotalVideosFiltered = len(res.Videos)

	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode results: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outputDir, ResultsFile), data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write results: %w", err)
	}
	return res, nil
}

// copyFile copies src to dst and keeps the modification time.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}

// sortedQueries returns the distinct queries of ranked, for display.
func sortedQueries(ranked []Scored) []string {
	seen := map[string]struct{}{}
	var qs []string
	for _, r := range ranked {
		if _, ok := seen[r.Query]; !ok {
			seen[r.Query] = struct{}{}
			qs = append(qs, r.Query)
		}
	}
	sort.Strings(qs)
	return qs
}
