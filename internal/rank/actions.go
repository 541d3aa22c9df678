package rank

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/28jackiiee/video-scraping/internal/common"
	"github.com/28jackiiee/video-scraping/pkg/collect"
	"github.com/28jackiiee/video-scraping/pkg/embed"
	rankpkg "github.com/28jackiiee/video-scraping/pkg/rank"
	"github.com/28jackiiee/video-scraping/pkg/video"
	"github.com/urfave/cli/v2"
)

// RankAction scores every downloaded video against its query, then copies the
// best --top-k into --filtered-dir.
func RankAction(c *cli.Context) error {
	logger := common.NewLogger(c)
	ctx := c.Context

	cfg, err := common.LoadConfig(c)
	if err != nil {
		return err
	}
	source := c.String("source-dir")
	if source == "" {
		source = cfg.OutputDir
	}
	if info, err := os.Stat(source); err != nil || !info.IsDir() {
		return common.ExitError(fmt.Errorf("%w: source directory %q does not exist", collect.ErrInvalidRequest, source))
	}

	ff, err := video.LookupFFmpeg()
	if err != nil {
		return err
	}
	enc := embed.New(embed.Config{
		Endpoint:  cfg.Embed.Endpoint,
		Model:     cfg.Embed.Model,
		Dimension: cfg.Embed.Dimension,
		APIKey:    os.Getenv(common.EmbedAPIKeyEnv),
		Timeout:   cfg.Embed.Timeout,
		Logger:    logger,
	})
	ranker := rankpkg.New(ff, enc, rankpkg.WithFrames(cfg.Embed.Frames), rankpkg.WithLogger(logger))

	logger.Info("Filtering videos", "source", source, "model", enc.Model(), "top_k", c.Int("top-k"))
	ranked, err := rankTree(ctx, ranker, source, strings.TrimSpace(c.String("query")), c.Int("top-k"), logger)
	if err != nil {
		return err
	}
	if len(ranked) == 0 {
		fmt.Println("No videos found matching the criteria.")
		return nil
	}

	res, err := copyRanked(c.String("filtered-dir"), ranked, time.Now(), logger)
	if err != nil {
		return err
	}

	if format := c.String("format"); format != "" {
		return common.WriteOutput(os.Stdout, res, format)
	}

	fmt.Printf("Top %d videos for %s\n", len(res.Videos), strings.Join(sortedQueries(ranked), ", "))
	fmt.Printf("%-5s %-10s %-20s %-50s\n", "Rank", "Score", "Directory", "File")
	fmt.Println(strings.Repeat("-", 90))
	for _, v := range res.Videos {
		fmt.Printf("%-5d %-10.4f %-20s %-50s\n", v.Rank, v.SimilarityScore, v.SourceDirectory, v.OutputFilename)
	}
	fmt.Printf("\nResults saved to: %s\n", c.String("filtered-dir"))
	return nil
}
