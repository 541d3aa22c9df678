package stock

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"

	"github.com/28jackiiee/video-scraping/models"
)

// Resolver fills in the media URL and duration of items found without one by
// reading the asset's detail page.
type Resolver struct {
	get     PageGetter
	baseURL string
}

func NewResolver(get PageGetter, baseURL string) *Resolver {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Resolver{get: get, baseURL: baseURL}
}

// DetailURL is the page describing item.
func (r *Resolver) DetailURL(item models.CandidateItem) string {
	if item.PageURL != "" {
		return item.PageURL
	}
	return r.baseURL + "/video/" + url.PathEscape(item.ID)
}

var mediaSelectors = []struct {
	sel  string
	attr string
}{
	{`meta[property="og:video:secure_url"]`, "content"},
	{`meta[property="og:video:url"]`, "content"},
	{`meta[property="og:video"]`, "content"},
	{`meta[itemprop="contentUrl"]`, "content"},
	{"video source[src]", "src"},
	{"video[src]", "src"},
	{"[data-comp-url]", "data-comp-url"},
	{"[data-video-preview-url]", "data-video-preview-url"},
}

// Resolve returns a copy of item with URL and, when found, DurationSeconds
// attached. Items that already carry a media URL are returned unchanged.
func (r *Resolver) Resolve(ctx context.Context, item models.CandidateItem) (models.CandidateItem, error) {
	if item.MediaURL() != "" {
		return item, nil
	}
	pageURL := r.DetailURL(item)
	html, err := r.get.GetHtmlBytes(ctx, pageURL)
	if err != nil {
		return item, fmt.Errorf("resolve %s: %w", item.ID, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return item, fmt.Errorf("resolve %s: failed to parse HTML: %w", item.ID, err)
	}

	for _, m := range mediaSelectors {
		if v := attr(doc.Find(m.sel).First(), m.attr); v != "" && isMediaURL(v) {
			item.URL = absolute(pageURL, v)
			break
		}
	}
	if item.URL == "" {
		return item, fmt.Errorf("resolve %s: no media URL on %s", item.ID, pageURL)
	}

	if item.DurationSeconds == nil {
		if d, ok := ParseDuration(attr(doc.Find(`meta[itemprop="duration"]`).First(), "content")); ok {
			item.DurationSeconds = models.Seconds(d)
		}
	}

	parsed, err := url.Parse(pageURL)
	if err == nil {
		p := readability.NewParser()
		article, err := p.Parse(bytes.NewReader(html), parsed)
		if err == nil {
			if (item.Title == "" || strings.HasPrefix(item.Title, "Video_")) && article.Title != "" {
				item.Title = truncate(strings.TrimSpace(article.Title), maxTitleRunes)
			}
			if item.Description == "" {
				item.Description = strings.TrimSpace(article.Excerpt)
			}
			if item.ThumbnailURL == "" {
				item.ThumbnailURL = article.Image
			}
		}
	}
	return item, nil
}

func absolute(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}
