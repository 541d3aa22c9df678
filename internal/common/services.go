package common

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/28jackiiee/video-scraping/models"
	"github.com/28jackiiee/video-scraping/pkg/caching"
	"github.com/28jackiiee/video-scraping/pkg/collect"
	"github.com/28jackiiee/video-scraping/pkg/db"
	"github.com/28jackiiee/video-scraping/pkg/fetcher"
	"github.com/28jackiiee/video-scraping/pkg/ignorelist"
	"github.com/28jackiiee/video-scraping/pkg/stock"
	"github.com/urfave/cli/v2"
)

const (
	BackendJSON = "json"
	BackendDB   = "db"
)

// NewFetcher builds the shared, paced HTTP client.
func NewFetcher(cfg models.Config, logger *slog.Logger) (*fetcher.Fetcher, error) {
	f, err := fetcher.NewFetcher(fetcher.Options{
		Delay:       cfg.Delay,
		Impersonate: cfg.Impersonate,
		Referer:     cfg.Search.BaseURL + "/",
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create fetcher: %w", err)
	}
	return f, nil
}

// NewSearcher builds the stock-site searcher, with a page cache when configured.
func NewSearcher(get stock.PageGetter, cfg models.Config, logger *slog.Logger) (*stock.Searcher, error) {
	var cache *caching.Cache
	if cfg.Search.CacheDir != "" {
		var err error
		cache, err = caching.NewCache(cfg.Search.CacheDir, cfg.Search.CacheTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to open page cache: %w", err)
		}
		if n, err := cache.Prune(); err != nil {
			logger.Warn("Could not prune page cache", "error", err)
		} else if n > 0 {
			logger.Debug("Pruned page cache", "removed", n)
		}
	}
	return stock.NewSearcher(get, stock.Config{
		BaseURL:  cfg.Search.BaseURL,
		MaxPages: cfg.Search.MaxPages,
		PageSize: cfg.Search.PageSize,
		Cache:    cache,
		Logger:   logger,
	}), nil
}

// BuildFilter combines the candidate filters selected by flags. It returns a
// nil filter when none is set.
func BuildFilter(c *cli.Context) (collect.FilterFunc, error) {
	filters := []collect.FilterFunc{
		collect.TitleExcludes(c.StringSlice("exclude-title")...),
		collect.DurationBounds(c.Float64("min-duration"), c.Float64("max-duration")),
	}
	if codes := c.StringSlice("title-lang"); len(codes) > 0 {
		langs, err := collect.ParseLanguages(codes...)
		if err != nil {
			return nil, err
		}
		filters = append(filters, collect.TitleLanguage(collect.NewLanguageDetector(), langs...))
	}
	return collect.Any(filters...), nil
}

// IgnoreStore opens the ignore list named list on the backend chosen by
// --ignore-backend.
func IgnoreStore(c *cli.Context, cfg models.Config, database *db.DB, list string, logger *slog.Logger) (ignorelist.Store, error) {
	switch backend := c.String("ignore-backend"); backend {
	case BackendJSON, "":
		return ignorelist.NewJSONStore(ignorelist.Path(cfg.IgnoreDir, list), logger), nil
	case BackendDB:
		if database == nil {
			return nil, fmt.Errorf("ignore backend %q needs a database", backend)
		}
		return ignorelist.NewDBStore(database, list), nil
	default:
		return nil, fmt.Errorf("%w: unknown ignore backend %q", collect.ErrInvalidRequest, backend)
	}
}

// LoadIgnored unions the default list with the list of cleanQuery.
func LoadIgnored(ctx context.Context, c *cli.Context, cfg models.Config, database *db.DB, cleanQuery string, logger *slog.Logger) (collect.IDSet, error) {
	ignored := collect.NewIDSet()
	for _, list := range []string{ignorelist.DefaultListName, cleanQuery} {
		store, err := IgnoreStore(c, cfg, database, list, logger)
		if err != nil {
			return nil, err
		}
		ids, err := store.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load ignore list %s: %w", list, err)
		}
		ignored.Union(ids)
	}
	logger.Info("Loaded ignore lists", "query", cleanQuery, "ignored", ignored.Len())
	return ignored, nil
}

// RunStats converts an engine report into stored run counters.
func RunStats(rep *collect.Report) db.RunStats {
	if rep == nil {
		return db.RunStats{}
	}
	return db.RunStats{
		Accepted:       len(rep.AcceptedIDs),
		Attempts:       rep.Attempts,
		MaxAttempts:    rep.MaxAttempts,
		Ignored:        rep.Ignored,
		Duplicates:     rep.Duplicates,
		Existing:       rep.Existing,
		Filtered:       rep.Filtered,
		Invalid:        rep.Invalid,
		AcceptFailures: rep.AcceptFailures,
		SearchErrors:   rep.SearchErrors,
	}
}

// RunStatus derives the stored status of a finished run.
func RunStatus(rep *collect.Report, err error) string {
	switch {
	case rep == nil:
		return db.RunFailed
	case err != nil:
		return db.RunCanceled
	case rep.Complete():
		return db.RunComplete
	default:
		return db.RunPartial
	}
}
