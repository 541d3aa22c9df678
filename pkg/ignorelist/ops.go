package ignorelist

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/28jackiiee/video-scraping/pkg/collect"
)

// Change describes the effect of an add or remove on a list.
type Change struct {
	Requested int      `json:"requested" yaml:"requested"`
	Applied   []string `json:"applied" yaml:"applied"`
	Skipped   []string `json:"skipped" yaml:"skipped"`
	Total     int      `json:"total" yaml:"total"`
	DryRun    bool     `json:"dry_run" yaml:"dry_run"`
}

// Add puts ids into the list. Applied holds new ids, Skipped those already
// ignored. With dryRun nothing is saved.
func Add(ctx context.Context, s Store, ids []string, dryRun bool) (*Change, error) {
	set, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}

	ch := &Change{DryRun: dryRun}
	batch := collect.NewIDSet()
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || !batch.Add(id) {
			continue
		}
		ch.Requested++
		if set.Has(id) {
			ch.Skipped = append(ch.Skipped, id)
			continue
		}
		ch.Applied = append(ch.Applied, id)
	}

	if !dryRun && len(ch.Applied) > 0 {
		for _, id := range ch.Applied {
			set.Add(id)
		}
		if err := s.Save(ctx, set); err != nil {
			return nil, err
		}
	}
	ch.Total = set.Len()
	if dryRun {
		ch.Total += len(ch.Applied)
	}
	return ch, nil
}

// Remove takes ids out of the list. Skipped holds ids that were not present.
func Remove(ctx context.Context, s Store, ids []string, dryRun bool) (*Change, error) {
	set, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}

	ch := &Change{DryRun: dryRun}
	batch := collect.NewIDSet()
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || !batch.Add(id) {
			continue
		}
		ch.Requested++
		if !set.Has(id) {
			ch.Skipped = append(ch.Skipped, id)
			continue
		}
		ch.Applied = append(ch.Applied, id)
	}

	if !dryRun && len(ch.Applied) > 0 {
		for _, id := range ch.Applied {
			set.Remove(id)
		}
		if err := s.Save(ctx, set); err != nil {
			return nil, err
		}
	}
	ch.Total = set.Len()
	if dryRun {
		ch.Total -= len(ch.Applied)
	}
	return ch, nil
}

// Clear empties the list and returns how many ids it held.
func Clear(ctx context.Context, s Store, dryRun bool) (int, error) {
	set, err := s.Load(ctx)
	if err != nil {
		return 0, err
	}
	if dryRun || set.Len() == 0 {
		return set.Len(), nil
	}
	if err := s.Save(ctx, collect.NewIDSet()); err != nil {
		return 0, err
	}
	return set.Len(), nil
}

// Status summarizes a list.
type Status struct {
	Total  int      `json:"total" yaml:"total"`
	Sample []string `json:"sample" yaml:"sample"`
}

// GetStatus returns the size of the list and up to n of its ids, sorted.
func GetStatus(ctx context.Context, s Store, n int) (*Status, error) {
	set, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	sorted := set.Sorted()
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return &Status{Total: set.Len(), Sample: sorted}, nil
}

// Metadata is the subset of a query_metadata.json file used for import.
type Metadata struct {
	Query             string            `json:"query"`
	OriginalQuery     string            `json:"original_query"`
	CleanQuery        string            `json:"clean_query"`
	VideoFileMappings map[string]string `json:"video_file_mappings"`
}

// ReadMetadata loads a query metadata file and returns the query it belongs to
// and the ids it maps, sorted.
func ReadMetadata(path string) (query string, ids []string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read metadata file: %w", err)
	}
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return "", nil, fmt.Errorf("invalid JSON in metadata file %s: %w", path, err)
	}

	switch {
	case m.Query != "":
		query = m.Query
	case m.OriginalQuery != "":
		query = m.OriginalQuery
	default:
		query = m.CleanQuery
	}
	if query == "" {
		return "", nil, fmt.Errorf("no query found in metadata file %s", path)
	}

	set := collect.NewIDSet()
	for id := range m.VideoFileMappings {
		set.Add(id)
	}
	return query, set.Sorted(), nil
}
