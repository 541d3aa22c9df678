// Package stock adapts the stock site's search and detail pages to the
// collection engine.
package stock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/28jackiiee/video-scraping/models"
	"github.com/28jackiiee/video-scraping/pkg/caching"
)

// PageGetter fetches raw page bytes. *fetcher.Fetcher satisfies it.
type PageGetter interface {
	GetHtmlBytes(ctx context.Context, url string) ([]byte, error)
}

// Config tunes pagination. Zero values take the defaults below.
type Config struct {
	BaseURL string
	// Endpoints are tried in order for each page until one yields results.
	Endpoints []string
	MaxPages  int
	PageSize  int
	// EmptyPageLimit stops pagination after this many consecutive pages
	// without new items.
	EmptyPageLimit int
	Cache          *caching.Cache
	Logger         *slog.Logger
}

const (
	DefaultBaseURL        = "https://stock.adobe.com"
	DefaultMaxPages       = 10
	DefaultPageSize       = 200
	DefaultEmptyPageLimit = 3
)

func (c *Config) defaults() {
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if len(c.Endpoints) == 0 {
		c.Endpoints = []string{"/search/videos", "/search"}
	}
	if c.MaxPages <= 0 {
		c.MaxPages = DefaultMaxPages
	}
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.EmptyPageLimit <= 0 {
		c.EmptyPageLimit = DefaultEmptyPageLimit
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Searcher pages through search results. It implements collect.Searcher.
type Searcher struct {
	get PageGetter
	cfg Config
}

func NewSearcher(get PageGetter, cfg Config) *Searcher {
	cfg.defaults()
	return &Searcher{get: get, cfg: cfg}
}

// SearchURL builds the URL of one results page.
func (s *Searcher) SearchURL(endpoint, query string, page int) string {
	params := url.Values{}
	params.Set("k", query)
	params.Set("content_type:video", "1")
	params.Set("order", "relevance")
	params.Set("safe_search", "1")
	params.Set("search_page", strconv.Itoa(page))
	params.Set("limit", strconv.Itoa(s.cfg.PageSize))
	return s.cfg.BaseURL + endpoint + "?" + params.Encode()
}

func (s *Searcher) fetch(ctx context.Context, u string) ([]byte, error) {
	if s.cfg.Cache != nil {
		if data, ok := s.cfg.Cache.Get(u); ok {
			s.cfg.Logger.Debug("Page cache hit", "url", u)
			return data, nil
		}
	}
	data, err := s.get.GetHtmlBytes(ctx, u)
	if err != nil {
		return nil, err
	}
	if s.cfg.Cache != nil {
		if err := s.cfg.Cache.Set(u, data); err != nil {
			s.cfg.Logger.Warn("Could not cache page", "url", u, "error", err)
		}
	}
	return data, nil
}

// page fetches one results page, trying each endpoint until one has items.
// It returns an error only when every endpoint failed.
func (s *Searcher) page(ctx context.Context, query string, page int) ([]models.CandidateItem, error) {
	var errs []error
	for _, ep := range s.cfg.Endpoints {
		u := s.SearchURL(ep, query, page)
		html, err := s.fetch(ctx, u)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.cfg.Logger.Warn("Search page failed", "url", u, "error", err)
			errs = append(errs, err)
			continue
		}
		items, method := ExtractItems(html)
		if len(items) > 0 {
			s.cfg.Logger.Debug("Extracted items", "endpoint", ep, "page", page, "method", method, "count", len(items))
			return items, nil
		}
		s.cfg.Logger.Debug("No items on page", "endpoint", ep, "page", page)
	}
	if len(errs) == len(s.cfg.Endpoints) {
		return nil, errors.Join(errs...)
	}
	return nil, nil
}

// Search returns up to limit unique items for query, in page order.
// Exhausted is set when pagination ended first. An error is returned only if
// no page could be fetched at all.
func (s *Searcher) Search(ctx context.Context, query string, limit int) (models.SearchOutcome, error) {
	var out models.SearchOutcome
	if limit <= 0 {
		return out, nil
	}
	seen := map[string]bool{}
	empty := 0
	fetched := 0
	var lastErr error

	for page := 1; page <= s.cfg.MaxPages && len(out.Items) < limit && empty < s.cfg.EmptyPageLimit; page++ {
		items, err := s.page(ctx, query, page)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return out, ctxErr
		}
		out.Pages = page
		if err != nil {
			lastErr = err
			empty++
			continue
		}
		fetched++

		added := 0
		for _, item := range items {
			if !item.HasID() || seen[item.ID] {
				continue
			}
			seen[item.ID] = true
			out.Items = append(out.Items, item)
			added++
			if len(out.Items) >= limit {
				break
			}
		}
		s.cfg.Logger.Info("Search page", "query", query, "page", page, "found", len(items), "new", added, "total", len(out.Items))
		if added == 0 {
			empty++
		} else {
			empty = 0
		}
	}

	out.Exhausted = len(out.Items) < limit
	if fetched == 0 && lastErr != nil {
		return out, fmt.Errorf("search %q: %w", query, lastErr)
	}
	if out.Exhausted {
		s.cfg.Logger.Warn("Search ran out of results", "query", query, "found", len(out.Items), "limit", limit)
	}
	return out, nil
}
