package manifest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/28jackiiee/video-scraping/internal/common"
	"github.com/28jackiiee/video-scraping/models"
	"github.com/28jackiiee/video-scraping/pkg/collect"
	"github.com/28jackiiee/video-scraping/pkg/db"
	"github.com/28jackiiee/video-scraping/pkg/inventory"
	manifestpkg "github.com/28jackiiee/video-scraping/pkg/manifest"
	"github.com/28jackiiee/video-scraping/pkg/stock"
	"github.com/urfave/cli/v2"
)

// ManifestAction collects candidates without downloading them and writes a
// label/query manifest to the output directory.
func ManifestAction(c *cli.Context) error {
	logger := common.NewLogger(c)
	ctx := c.Context

	cfg, err := common.LoadConfig(c)
	if err != nil {
		return err
	}

	query := strings.TrimSpace(c.String("query"))
	label := strings.TrimSpace(c.String("label"))
	count := c.Int("count")
	if query == "" || label == "" {
		return common.ExitError(fmt.Errorf("%w: --query and --label are required", collect.ErrInvalidRequest))
	}
	format := strings.ToLower(c.String("manifest-format"))
	if _, err := manifestpkg.Marshal(manifestpkg.Manifest{}, format); err != nil {
		return common.ExitError(fmt.Errorf("%w: %v", collect.ErrInvalidRequest, err))
	}
	filter, err := common.BuildFilter(c)
	if err != nil {
		return common.ExitError(err)
	}
	clean := inventory.CleanQuery(query)

	database, err := db.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	ignored, err := common.LoadIgnored(ctx, c, cfg, database, clean, logger)
	if err != nil {
		return common.ExitError(err)
	}
	existing, err := manifestpkg.ExistingIDs(cfg.OutputDir, label, query, logger)
	if err != nil {
		return err
	}
	if existing.Len() > 0 {
		logger.Info("Found ids in earlier manifests", "count", existing.Len())
	}

	f, err := common.NewFetcher(cfg, logger)
	if err != nil {
		return err
	}
	searcher, err := common.NewSearcher(f, cfg, logger)
	if err != nil {
		return err
	}

	engine := collect.NewEngine(searcher, logger)
	res, runErr := engine.Collect(ctx, collect.CollectRequest{
		Query:      query,
		Needed:     count,
		SampleFrom: c.Int("sample-from"),
		Ignore:     ignored,
		Existing:   existing,
		Filter:     filter,
	})
	if res == nil {
		return common.ExitError(runErr)
	}

	items := res.Items
	if c.Bool("resolve") {
		items = resolveAll(ctx, stock.NewResolver(f, cfg.Search.BaseURL), items, logger)
	}

	finishCtx := context.WithoutCancel(ctx)
	runID, runUUID, err := database.CreateRun(finishCtx, "manifest", query, clean, count, cfg.OutputDir)
	if err != nil {
		return err
	}
	for _, it := range items {
		ri := db.RunItem{RunID: runID, VideoID: it.ID, Title: it.Title, MediaURL: it.MediaURL(), Status: db.ItemAccepted}
		if d, ok := it.Duration(); ok {
			ri.DurationSeconds = d
		}
		if _, err := database.RecordRunItem(finishCtx, ri); err != nil {
			logger.Warn("Failed to record run item", "id", it.ID, "error", err)
		}
	}
	status := common.RunStatus(res.Report, runErr)
	if len(items) < count && status == db.RunComplete {
		status = db.RunPartial
	}
	if err := database.FinishRun(finishCtx, runID, status, common.RunStats(res.Report)); err != nil {
		logger.Warn("Failed to finish run record", "run_id", runID, "error", err)
	}

	if len(items) == 0 {
		fmt.Fprintf(os.Stderr, "Warning: no new videos found for %q\n", query)
		return runErr
	}

	m := manifestpkg.Build(label, query, items)
	path, err := manifestpkg.Write(cfg.OutputDir, clean, m, format, time.Now())
	if err != nil {
		return err
	}

	fmt.Printf("Run %d (%s, %s)\n", runID, status, runUUID)
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Label:      %s\n", label)
	fmt.Printf("Query:      %s\n", query)
	fmt.Printf("Manifest:   %s\n", path)
	fmt.Printf("Videos:     %d/%d (pool of %d)\n", len(items), count, res.PoolSize)
	fmt.Printf("Attempts:   %d/%d\n", res.Report.Attempts, res.Report.MaxAttempts)
	if len(items) < count {
		fmt.Printf("\nWarning: only found %d of %d videos\n", len(items), count)
	}
	return runErr
}

// resolveAll fills in media URLs from detail pages. Items that cannot be
// resolved are kept as they are.
func resolveAll(ctx context.Context, r *stock.Resolver, items []models.CandidateItem, logger *slog.Logger) []models.CandidateItem {
	out := make([]models.CandidateItem, 0, len(items))
	for _, it := range items {
		if ctx.Err() != nil {
			out = append(out, it)
			continue
		}
		resolved, err := r.Resolve(ctx, it)
		if err != nil {
			logger.Warn("Could not resolve video", "id", it.ID, "error", err)
			out = append(out, it)
			continue
		}
		out = append(out, resolved)
	}
	return out
}
