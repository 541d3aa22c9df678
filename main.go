package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/28jackiiee/video-scraping/internal/collect"
	"github.com/28jackiiee/video-scraping/internal/ignore"
	"github.com/28jackiiee/video-scraping/internal/manifest"
	"github.com/28jackiiee/video-scraping/internal/rank"
	"github.com/28jackiiee/video-scraping/internal/runs"
	"github.com/28jackiiee/video-scraping/models"
	"github.com/28jackiiee/video-scraping/pkg/help"
	"github.com/urfave/cli/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	defaults := models.DefaultConfig()

	searchFlags := []cli.Flag{
		&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Search query"},
		&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Value: 10, Usage: "Number of videos wanted"},
		&cli.StringFlag{Name: "output-dir", Aliases: []string{"o"}, Value: defaults.OutputDir, Usage: "Output directory"},
		&cli.StringFlag{Name: "ignore-dir", Value: defaults.IgnoreDir, Usage: "Directory of JSON ignore lists"},
		&cli.StringFlag{Name: "ignore-backend", Value: "json", Usage: "Ignore list storage: json or db"},
		&cli.DurationFlag{Name: "delay", Value: defaults.Delay, Usage: "Minimum spacing between requests"},
		&cli.BoolFlag{Name: "impersonate", Usage: "Use a Chrome TLS fingerprint for requests"},
		&cli.StringFlag{Name: "base-url", Value: defaults.Search.BaseURL, Usage: "Stock site base URL"},
		&cli.IntFlag{Name: "max-pages", Value: defaults.Search.MaxPages, Usage: "Result pages fetched per search"},
		&cli.StringFlag{Name: "cache-dir", Usage: "Cache search result pages in this directory"},
		&cli.DurationFlag{Name: "cache-ttl", Value: defaults.Search.CacheTTL, Usage: "Lifetime of cached pages (0 = forever)"},
		&cli.StringSliceFlag{Name: "exclude-title", Usage: "Skip videos whose title contains this text (repeatable)"},
		&cli.Float64Flag{Name: "min-duration", Usage: "Skip videos shorter than this many seconds"},
		&cli.Float64Flag{Name: "max-duration", Usage: "Skip videos longer than this many seconds"},
		&cli.StringSliceFlag{Name: "title-lang", Usage: "Only keep titles in these ISO 639-1 languages (repeatable)"},
		&cli.StringFlag{Name: "format", Usage: "Print the result as json or yaml"},
	}

	listFlags := []cli.Flag{
		&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Use the list of this query"},
		&cli.StringFlag{Name: "list", Usage: "Use the list with this name"},
		&cli.StringFlag{Name: "ignore-dir", Value: defaults.IgnoreDir, Usage: "Directory of JSON ignore lists"},
		&cli.StringFlag{Name: "ignore-backend", Value: "json", Usage: "Ignore list storage: json or db"},
		&cli.BoolFlag{Name: "dry-run", Usage: "Report changes without saving"},
		&cli.StringFlag{Name: "format", Usage: "Print the result as json or yaml"},
	}

	return &cli.App{
		Name:  "vscrape",
		Usage: "Collect stock video previews, manage ignore lists and rank videos by relevance",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: models.DefaultConfigFile, Usage: "YAML config file"},
			&cli.StringFlag{Name: "db", Usage: "SQLite database path"},
			&cli.BoolFlag{Name: "quiet", Usage: "Only log errors"},
			&cli.BoolFlag{Name: "verbose", Usage: "Log debug details"},
			&cli.StringFlag{Name: "log-format", Value: "json", Usage: "Log format: json or text"},
		},
		Commands: []*cli.Command{
			{
				Name:   "collect",
				Usage:  "Search and download videos until the query directory holds --count files",
				Flags:  append(append([]cli.Flag{}, searchFlags...), &cli.BoolFlag{Name: "update-ignore", Usage: "Add downloaded ids to the query ignore list"}),
				Action: collect.CollectAction,
			},
			{
				Name:  "manifest",
				Usage: "Search videos and write a label/query manifest instead of downloading",
				Flags: append(append([]cli.Flag{}, searchFlags...),
					&cli.StringFlag{Name: "label", Aliases: []string{"l"}, Usage: "Intended label of the videos"},
					&cli.IntFlag{Name: "sample-from", Usage: "Collect this many candidates and sample --count of them"},
					&cli.StringFlag{Name: "manifest-format", Value: "json", Usage: "Manifest file format: json or yaml"},
					&cli.BoolFlag{Name: "resolve", Usage: "Fetch detail pages for videos without a media URL"},
				),
				Action: manifest.ManifestAction,
			},
			{
				Name:  "ignore",
				Usage: "Manage ignore lists",
				Subcommands: []*cli.Command{
					{Name: "status", Usage: "Show the size of a list", Flags: listFlags, Action: ignore.StatusAction},
					{
						Name:      "add",
						Usage:     "Add ids to a list",
						ArgsUsage: "[id...]",
						Flags:     append(append([]cli.Flag{}, listFlags...), &cli.StringFlag{Name: "ids", Usage: "Comma-separated ids"}),
						Action:    ignore.AddAction,
					},
					{
						Name:      "remove",
						Usage:     "Remove ids from a list",
						ArgsUsage: "[id...]",
						Flags:     append(append([]cli.Flag{}, listFlags...), &cli.StringFlag{Name: "ids", Usage: "Comma-separated ids"}),
						Action:    ignore.RemoveAction,
					},
					{Name: "clear", Usage: "Empty a list", Flags: listFlags, Action: ignore.ClearAction},
					{
						Name:      "import",
						Usage:     "Add the ids of a query_metadata.json file to its query list",
						ArgsUsage: "<metadata file or query directory>",
						Flags:     listFlags,
						Action:    ignore.ImportAction,
					},
					{Name: "lists", Usage: "Show every list", Flags: listFlags, Action: ignore.ListsAction},
				},
			},
			{
				Name:  "rank",
				Usage: "Rank downloaded videos by similarity to their query and copy the best",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "source-dir", Aliases: []string{"s"}, Usage: "Directory of query sub-directories (default: output dir)"},
					&cli.StringFlag{Name: "filtered-dir", Value: "filtered", Usage: "Where the top videos are copied"},
					&cli.IntFlag{Name: "top-k", Aliases: []string{"k"}, Value: 5, Usage: "Number of videos to keep (0 = all)"},
					&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Rank every directory against this query"},
					&cli.StringFlag{Name: "output-dir", Value: defaults.OutputDir, Usage: "Download directory, used when --source-dir is empty"},
					&cli.StringFlag{Name: "embed-endpoint", Value: defaults.Embed.Endpoint, Usage: "OpenAI-compatible embeddings endpoint"},
					&cli.StringFlag{Name: "embed-model", Value: defaults.Embed.Model, Usage: "Embedding model name"},
					&cli.IntFlag{Name: "embed-dim", Value: defaults.Embed.Dimension, Usage: "Embedding dimension (0 = detect)"},
					&cli.IntFlag{Name: "frames", Value: defaults.Embed.Frames, Usage: "Frames sampled per video"},
					&cli.StringFlag{Name: "format", Usage: "Print the result as json or yaml"},
				},
				Action: rank.RankAction,
			},
			{
				Name:  "runs",
				Usage: "Inspect recorded runs",
				Subcommands: []*cli.Command{
					{
						Name:  "list",
						Usage: "List runs, newest first",
						Flags: []cli.Flag{
							&cli.IntFlag{Name: "limit", Value: 20, Usage: "Maximum number of runs (0 = all)"},
							&cli.StringFlag{Name: "format", Usage: "Print as json or yaml"},
						},
						Action: runs.ListAction,
					},
					{
						Name:      "show",
						Usage:     "Show a run and its items (latest when no id is given)",
						ArgsUsage: "[run id]",
						Flags:     []cli.Flag{&cli.StringFlag{Name: "format", Usage: "Print as json or yaml"}},
						Action:    runs.ShowAction,
					},
				},
			},
			{
				Name:  "coldstart",
				Usage: "Print a quick-start guide",
				Action: func(c *cli.Context) error {
					fmt.Print(help.ColdstartYAML)
					return nil
				},
			},
		},
	}
}
