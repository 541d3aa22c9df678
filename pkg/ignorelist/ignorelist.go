// Package ignorelist persists sets of video ids that collection runs must
// never return again. Two backends are provided: the JSON file format used by
// the download tooling and a table in the run database.
package ignorelist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/28jackiiee/video-scraping/pkg/collect"
	"github.com/28jackiiee/video-scraping/pkg/db"
)

const (
	DefaultListName = "adobe_stock"
	fileSuffix      = "_ignore_list.json"
	description     = "List of Adobe Stock video IDs to ignore during scraping"
	timeLayout      = "2006-01-02 15:04:05"
)

// Store loads and saves one ignore list.
type Store interface {
	Load(ctx context.Context) (collect.IDSet, error)
	Save(ctx context.Context, ids collect.IDSet) error
}

// ListName returns the list used for a cleaned query; empty means the default list.
func ListName(cleanQuery string) string {
	if cleanQuery == "" {
		return DefaultListName
	}
	return cleanQuery
}

// Path returns the JSON file for a named list inside dir.
func Path(dir, list string) string {
	return filepath.Join(dir, ListName(list)+fileSuffix)
}

// fileFormat is the on-disk layout of a JSON ignore list.
type fileFormat struct {
	IgnoredVideoIDs []string `json:"ignored_video_ids"`
	LastUpdated     string   `json:"last_updated"`
	TotalIgnored    int      `json:"total_ignored"`
	Description     string   `json:"description"`
}

// JSONStore keeps a list in a single JSON file.
type JSONStore struct {
	path   string
	logger *slog.Logger
	now    func() time.Time
}

func NewJSONStore(path string, logger *slog.Logger) *JSONStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &JSONStore{path: path, logger: logger, now: time.Now}
}

func (s *JSONStore) Path() string { return s.path }

// Load returns an empty set when the file is missing. A corrupt file is
// logged and also yields an empty set so a run can proceed.
func (s *JSONStore) Load(ctx context.Context) (collect.IDSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return collect.NewIDSet(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ignore list %s: %w", s.path, err)
	}

	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		s.logger.Warn("could not load ignore list, starting empty", "path", s.path, "error", err)
		return collect.NewIDSet(), nil
	}
	return collect.NewIDSet(f.IgnoredVideoIDs...), nil
}

// Save writes the whole set, sorted, replacing the file atomically.
func (s *JSONStore) Save(ctx context.Context, ids collect.IDSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sorted := ids.Sorted()
	data, err := json.MarshalIndent(fileFormat{
		IgnoredVideoIDs: sorted,
		LastUpdated:     s.now().Format(timeLayout),
		TotalIgnored:    len(sorted),
		Description:     description,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode ignore list: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create ignore list directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".ignore-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write ignore list: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write ignore list: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace ignore list: %w", err)
	}
	return nil
}

// DBStore keeps a list in the ignored_items table.
type DBStore struct {
	db   *db.DB
	list string
}

func NewDBStore(database *db.DB, list string) *DBStore {
	return &DBStore{db: database, list: ListName(list)}
}

func (s *DBStore) Load(ctx context.Context) (collect.IDSet, error) {
	ids, err := s.db.IgnoredIDs(ctx, s.list)
	if err != nil {
		return nil, err
	}
	return collect.NewIDSet(ids...), nil
}

func (s *DBStore) Save(ctx context.Context, ids collect.IDSet) error {
	return s.db.ReplaceIgnored(ctx, s.list, ids.Sorted())
}
