// Package manifest writes candidate lists as label/query keyed documents
// instead of downloading the media, and reads earlier documents back so later
// runs can skip ids already listed.
package manifest

import (
	"github.com/28jackiiee/video-scraping/models"
)

// Entry is one listed video.
type Entry struct {
	ID              string   `json:"id" yaml:"id"`
	Caption         string   `json:"caption" yaml:"caption"`
	URL             string   `json:"url" yaml:"url"`
	DurationSeconds *float64 `json:"duration_seconds,omitempty" yaml:"duration_seconds,omitempty"`
}

// Manifest maps label -> query -> entries.
type Manifest map[string]map[string][]Entry

// Build creates a manifest holding items under label and query, in order.
func Build(label, query string, items []models.CandidateItem) Manifest {
	entries := make([]Entry, 0, len(items))
	for _, it := range items {
		entries = append(entries, Entry{
			ID:              it.ID,
			Caption:         it.Title,
			URL:             it.MediaURL(),
			DurationSeconds: it.DurationSeconds,
		})
	}
	return Manifest{label: {query: entries}}
}

// Entries returns the entries listed under label and query.
func (m Manifest) Entries(label, query string) []Entry {
	return m[label][query]
}

// Len counts all entries.
func (m Manifest) Len() int {
	n := 0
	for _, queries := range m {
		for _, entries := range queries {
			n += len(entries)
		}
	}
	return n
}
