package models

import "strings"

// CandidateItem is one discovered remote asset returned by a search.
// ID is opaque: numeric in practice, but never parsed.
type CandidateItem struct {
	ID              string   `json:"id" yaml:"id"`
	Title           string   `json:"title" yaml:"title"`
	URL             string   `json:"url,omitempty" yaml:"url,omitempty"`
	DurationSeconds *float64 `json:"duration_seconds,omitempty" yaml:"duration_seconds,omitempty"`

	// Scraped extras. The collection engine never reads these.
	PreviewURL   string   `json:"preview_url,omitempty" yaml:"preview_url,omitempty"`
	CompURL      string   `json:"comp_url,omitempty" yaml:"comp_url,omitempty"`
	ThumbnailURL string   `json:"thumbnail_url,omitempty" yaml:"thumbnail_url,omitempty"`
	PageURL      string   `json:"page_url,omitempty" yaml:"page_url,omitempty"`
	Description  string   `json:"description,omitempty" yaml:"description,omitempty"`
	Tags         []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// HasID reports whether the item carries a usable identifier.
func (c CandidateItem) HasID() bool {
	return strings.TrimSpace(c.ID) != ""
}

// MediaURL returns the best URL to fetch the asset bytes from:
// the resolved URL, then the comp, then the preview.
func (c CandidateItem) MediaURL() string {
	switch {
	case c.URL != "":
		return c.URL
	case c.CompURL != "":
		return c.CompURL
	default:
		return c.PreviewURL
	}
}

// Duration returns the duration in seconds and whether it is known.
func (c CandidateItem) Duration() (float64, bool) {
	if c.DurationSeconds == nil {
		return 0, false
	}
	return *c.DurationSeconds, true
}

// Seconds is a helper for building optional durations.
func Seconds(v float64) *float64 {
	return &v
}

// SearchOutcome is the result of one search call. An empty Items slice is an
// ordinary outcome, not an error.
type SearchOutcome struct {
	Items []CandidateItem
	// Exhausted is true when the source ran out of pages before the limit.
	Exhausted bool
	// Pages is the number of result pages fetched to build Items.
	Pages int
}
