package collect

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/28jackiiee/video-scraping/internal/common"
	collectpkg "github.com/28jackiiee/video-scraping/pkg/collect"
	"github.com/28jackiiee/video-scraping/pkg/db"
	"github.com/28jackiiee/video-scraping/pkg/ignorelist"
	"github.com/28jackiiee/video-scraping/pkg/inventory"
	"github.com/28jackiiee/video-scraping/pkg/stock"
	"github.com/urfave/cli/v2"
)

// Summary is the machine-readable result of a collect run.
type Summary struct {
	RunID         int64              `json:"run_id" yaml:"run_id"`
	RunUUID       string             `json:"run_uuid" yaml:"run_uuid"`
	Directory     string             `json:"directory" yaml:"directory"`
	Requested     int                `json:"requested" yaml:"requested"`
	ExistingFiles int                `json:"existing_files" yaml:"existing_files"`
	NewDownloads  int                `json:"new_downloads" yaml:"new_downloads"`
	Status        string             `json:"status" yaml:"status"`
	Report        *collectpkg.Report `json:"report,omitempty" yaml:"report,omitempty"`
}

// CollectAction searches for videos and downloads enough of them to bring the
// query directory up to --count files.
func CollectAction(c *cli.Context) error {
	logger := common.NewLogger(c)
	ctx := c.Context

	cfg, err := common.LoadConfig(c)
	if err != nil {
		return err
	}

	query := strings.TrimSpace(c.String("query"))
	count := c.Int("count")
	if query == "" || count <= 0 {
		return common.ExitError(fmt.Errorf("%w: --query and a positive --count are required", collectpkg.ErrInvalidRequest))
	}
	filter, err := common.BuildFilter(c)
	if err != nil {
		return common.ExitError(err)
	}

	inv, err := inventory.Open(cfg.OutputDir, query)
	if err != nil {
		return err
	}
	needed := inv.Needed(count)
	if inv.Count() > 0 {
		logger.Info("Found existing files", "count", inv.Count(), "next_index", inv.NextIndex())
	}
	if needed == 0 {
		fmt.Printf("Already have %d files in %s, which meets the requested count of %d\n", inv.Count(), inv.Dir(), count)
		return nil
	}

	database, err := db.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	ignored, err := common.LoadIgnored(ctx, c, cfg, database, inv.CleanQuery(), logger)
	if err != nil {
		return common.ExitError(err)
	}

	f, err := common.NewFetcher(cfg, logger)
	if err != nil {
		return err
	}
	searcher, err := common.NewSearcher(f, cfg, logger)
	if err != nil {
		return err
	}

	runID, runUUID, err := database.CreateRun(ctx, "download", query, inv.CleanQuery(), needed, inv.Dir())
	if err != nil {
		return err
	}

	dl := &downloader{
		media:    f,
		resolver: stock.NewResolver(f, cfg.Search.BaseURL),
		inv:      inv,
		database: database,
		runID:    runID,
		logger:   logger,
	}

	engine := collectpkg.NewEngine(searcher, logger)
	rep, runErr := engine.Run(ctx, collectpkg.Request{
		Query:    query,
		Needed:   needed,
		Ignore:   ignored,
		Existing: inv.ExistingIDs(),
		Filter:   filter,
		Accept:   dl.accept,
	})

	if rep != nil {
		if err := inv.Finish(count, dl.downloaded); err != nil {
			logger.Warn("Failed to update query metadata", "error", err)
		}
	}
	status := common.RunStatus(rep, runErr)
	finishCtx := context.WithoutCancel(ctx)
	if err := database.FinishRun(finishCtx, runID, status, common.RunStats(rep)); err != nil {
		logger.Warn("Failed to finish run record", "run_id", runID, "error", err)
	}
	if rep == nil {
		return common.ExitError(runErr)
	}

	if c.Bool("update-ignore") && len(rep.AcceptedIDs) > 0 {
		store, err := common.IgnoreStore(c, cfg, database, inv.CleanQuery(), logger)
		if err != nil {
			return err
		}
		ch, err := ignorelist.Add(finishCtx, store, rep.AcceptedIDs, false)
		if err != nil {
			return fmt.Errorf("failed to update ignore list: %w", err)
		}
		logger.Info("Updated ignore list", "list", inv.CleanQuery(), "added", len(ch.Applied), "total", ch.Total)
	}

	summary := Summary{
		RunID:         runID,
		RunUUID:       runUUID,
		Directory:     inv.Dir(),
		Requested:     count,
		ExistingFiles: inv.Count(),
		NewDownloads:  dl.downloaded,
		Status:        status,
		Report:        rep,
	}
	if format := c.String("format"); format != "" {
		if err := common.WriteOutput(os.Stdout, summary, format); err != nil {
			return err
		}
	} else {
		printSummary(summary)
	}
	return runErr
}

func printSummary(s Summary) {
	rep := s.Report
	fmt.Printf("Run %d (%s)\n", s.RunID, s.Status)
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Query:       %s\n", rep.Query)
	fmt.Printf("Directory:   %s\n", s.Directory)
	fmt.Printf("Downloaded:  %d new (%d/%d files total)\n", s.NewDownloads, s.ExistingFiles+s.NewDownloads, s.Requested)
	fmt.Printf("Attempts:    %d/%d\n", rep.Attempts, rep.MaxAttempts)
	fmt.Printf("Skipped:     %d ignored, %d existing, %d duplicates, %d filtered, %d invalid\n",
		rep.Ignored, rep.Existing, rep.Duplicates, rep.Filtered, rep.Invalid)
	fmt.Printf("Failures:    %d downloads, %d searches\n", rep.AcceptFailures, rep.SearchErrors)
	if n := rep.Shortfall(); n > 0 {
		fmt.Printf("\nWarning: only found %d of %d new videos after %d attempts\n", len(rep.AcceptedIDs), rep.Needed, rep.Attempts)
	}
	fmt.Printf("\nTip: Use 'vscrape runs show %d' to see every item\n", s.RunID)
}
