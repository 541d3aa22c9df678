package runs

import (
	"fmt"
	"os"
	"strings"

	"github.com/28jackiiee/video-scraping/internal/common"
	dbpkg "github.com/28jackiiee/video-scraping/pkg/db"
	"github.com/urfave/cli/v2"
)

func openDB(c *cli.Context) (*dbpkg.DB, error) {
	cfg, err := common.LoadConfig(c)
	if err != nil {
		return nil, err
	}
	database, err := dbpkg.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return database, nil
}

// ListAction prints recorded runs, newest first.
func ListAction(c *cli.Context) error {
	database, err := openDB(c)
	if err != nil {
		return err
	}
	defer database.Close()

	runs, err := database.ListRuns(c.Context, c.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if format := c.String("format"); format != "" {
		return common.WriteOutput(os.Stdout, runs, format)
	}

	if len(runs) == 0 {
		fmt.Println("No runs found")
		return nil
	}

	fmt.Printf("%-6s %-20s %-9s %-9s %-8s %-10s %-30s\n",
		"ID", "Created", "Mode", "Status", "Found", "Attempts", "Query")
	fmt.Println(strings.Repeat("-", 100))

	for _, r := range runs {
		fmt.Printf("%-6d %-20s %-9s %-9s %-8s %-10s %-30s\n",
			r.ID,
			r.CreatedAt.Format("2006-01-02 15:04:05"),
			r.Mode,
			r.Status,
			fmt.Sprintf("%d/%d", r.Stats.Accepted, r.Needed),
			fmt.Sprintf("%d/%d", r.Stats.Attempts, r.Stats.MaxAttempts),
			r.Query,
		)
	}

	fmt.Printf("\nTotal: %d runs\n", len(runs))
	fmt.Printf("\nTip: Use 'vscrape runs show <id>' to see details\n")
	return nil
}

// ShowAction prints one run and its items. Without an id the latest run is shown.
func ShowAction(c *cli.Context) error {
	database, err := openDB(c)
	if err != nil {
		return err
	}
	defer database.Close()

	runID, err := GetRunIDOrLatest(c, database)
	if err != nil {
		return err
	}
	run, err := database.GetRun(c.Context, runID)
	if err != nil {
		return err
	}
	items, err := database.GetRunItems(c.Context, runID)
	if err != nil {
		return fmt.Errorf("failed to get run items: %w", err)
	}

	if format := c.String("format"); format != "" {
		return common.WriteOutput(os.Stdout, struct {
			Run   *dbpkg.Run      `json:"run" yaml:"run"`
			Items []dbpkg.RunItem `json:"items" yaml:"items"`
		}{run, items}, format)
	}

	s := run.Stats
	fmt.Printf("Run %d\n", run.ID)
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("UUID:        %s\n", run.UUID)
	fmt.Printf("Created:     %s\n", run.CreatedAt.Format("2006-01-02 15:04:05"))
	if run.FinishedAt != nil {
		fmt.Printf("Finished:    %s\n", run.FinishedAt.Local().Format("2006-01-02 15:04:05"))
	}
	fmt.Printf("Mode:        %s\n", run.Mode)
	fmt.Printf("Status:      %s\n", run.Status)
	fmt.Printf("Query:       %s (%s)\n", run.Query, run.CleanQuery)
	fmt.Printf("Output:      %s\n", run.OutputPath)
	fmt.Printf("Found:       %d/%d in %d/%d attempts\n", s.Accepted, run.Needed, s.Attempts, s.MaxAttempts)
	fmt.Printf("Skipped:     %d ignored, %d existing, %d duplicates, %d filtered, %d invalid\n",
		s.Ignored, s.Existing, s.Duplicates, s.Filtered, s.Invalid)
	fmt.Printf("Failures:    %d accept, %d search\n", s.AcceptFailures, s.SearchErrors)

	if len(items) > 0 {
		fmt.Printf("\nItems (%d):\n", len(items))
		fmt.Println(strings.Repeat("-", 60))
		for i, it := range items {
			fmt.Printf("%2d. [%s] %s %s\n", i+1, it.Status, it.VideoID, it.Title)
			if it.Status == dbpkg.ItemFailed {
				fmt.Printf("    Error: %s\n", it.ErrorMessage)
			} else if it.FilePath != "" {
				fmt.Printf("    File: %s | Size: %d bytes\n", it.FilePath, it.SizeBytes)
			} else {
				fmt.Printf("    URL: %s\n", it.MediaURL)
			}
		}
	}
	return nil
}

// GetRunIDOrLatest returns the run id from args, or the latest run if none is given
func GetRunIDOrLatest(c *cli.Context, database *dbpkg.DB) (int64, error) {
	if c.NArg() == 0 {
		id, err := database.GetLatestRunID(c.Context)
		if err != nil {
			return 0, fmt.Errorf("%w. Run 'vscrape collect --query \"...\"' first", err)
		}
		return id, nil
	}

	var runID int64
	if _, err := fmt.Sscanf(c.Args().First(), "%d", &runID); err != nil {
		return 0, fmt.Errorf("invalid run ID: %s", c.Args().First())
	}
	return runID, nil
}
