// Package inventory manages the per-query download directories: naming of
// downloaded files, the query_metadata.json bookkeeping file and the set of
// ids already present on disk.
package inventory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/28jackiiee/video-scraping/pkg/collect"
)

const (
	MetadataFile = "query_metadata.json"
	timeLayout   = "2006-01-02 15:04:05"
)

// Extensions recognised as downloaded videos when counting existing files.
var Extensions = []string{".mp4", ".mov", ".webm"}

var (
	nonWordChar   = regexp.MustCompile(`[^\w\s-]`)
	separatorRuns = regexp.MustCompile(`[-\s]+`)
)

// CleanQuery turns a free-form query into a directory and file prefix:
// punctuation dropped, runs of spaces and hyphens collapsed to "_", lowercased.
func CleanQuery(query string) string {
	clean := nonWordChar.ReplaceAllString(query, "")
	clean = separatorRuns.ReplaceAllString(clean, "_")
	clean = strings.Trim(strings.ToLower(clean), "_")
	if clean == "" {
		return "unknown_query"
	}
	return clean
}

// ExtensionFor picks the file extension for a media URL.
func ExtensionFor(mediaURL string) string {
	lower := strings.ToLower(mediaURL)
	switch {
	case strings.Contains(lower, ".mov"):
		return ".mov"
	case strings.Contains(lower, ".webm"):
		return ".webm"
	default:
		return ".mp4"
	}
}

// Session describes the most recent download run for a query.
type Session struct {
	RequestedCount   int    `json:"requested_count"`
	NewDownloads     int    `json:"new_downloads"`
	SessionTimestamp string `json:"session_timestamp"`
}

// Metadata is the content of query_metadata.json.
type Metadata struct {
	OriginalQuery         string            `json:"original_query"`
	CleanQuery            string            `json:"clean_query"`
	CreatedAt             string            `json:"created_at"`
	LastUpdated           string            `json:"last_updated"`
	TotalVideosDownloaded int               `json:"total_videos_downloaded,omitempty"`
	LastDownloadSession   *Session          `json:"last_download_session,omitempty"`
	VideoFileMappings     map[string]string `json:"video_file_mappings"`
}

// Inventory is one query directory under the download root.
type Inventory struct {
	dir   string
	clean string
	meta  Metadata
	next  int
	count int
	now   func() time.Time
}

// Open creates or loads the directory for query under baseDir, scans it for
// existing files and rewrites the metadata file. created_at survives reruns.
func Open(baseDir, query string) (*Inventory, error) {
	return open(baseDir, query, time.Now)
}

func open(baseDir, query string, now func() time.Time) (*Inventory, error) {
	clean := CleanQuery(query)
	dir := filepath.Join(baseDir, clean)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create query directory: %w", err)
	}

	stamp := now().Format(timeLayout)
	inv := &Inventory{
		dir:   dir,
		clean: clean,
		now:   now,
		meta: Metadata{
			OriginalQuery:     query,
			CleanQuery:        clean,
			CreatedAt:         stamp,
			LastUpdated:       stamp,
			VideoFileMappings: map[string]string{},
		},
	}

	// A missing or corrupt file is replaced.
	if prev, err := ReadMetadata(dir); err == nil {
		if prev.CreatedAt != "" {
			inv.meta.CreatedAt = prev.CreatedAt
		}
		inv.meta.TotalVideosDownloaded = prev.TotalVideosDownloaded
		inv.meta.LastDownloadSession = prev.LastDownloadSession
		for id, name := range prev.VideoFileMappings {
			inv.meta.VideoFileMappings[id] = name
		}
	}

	if err := inv.scan(); err != nil {
		return nil, err
	}
	if err := inv.Save(); err != nil {
		return nil, err
	}
	return inv, nil
}

// ReadMetadata loads query_metadata.json from a query directory.
func ReadMetadata(dir string) (*Metadata, error) {
	data, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	if err != nil {
		return nil, err
	}
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", MetadataFile, err)
	}
	return &m, nil
}

// scan counts files named <clean>_<n><ext> and sets the next free index.
func (inv *Inventory) scan() error {
	entries, err := os.ReadDir(inv.dir)
	if err != nil {
		return fmt.Errorf("failed to read query directory: %w", err)
	}

	prefix := inv.clean + "_"
	indices := make(map[int]struct{})
	maxIndex := -1
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := filepath.Ext(name)
		if !isVideoExt(ext) {
			continue
		}
		stem := strings.TrimSuffix(name, ext)
		if !strings.HasPrefix(stem, prefix) {
			continue
		}
		n, err := strconv.Atoi(stem[len(prefix):])
		if err != nil || n < 0 {
			continue
		}
		indices[n] = struct{}{}
		if n > maxIndex {
			maxIndex = n
		}
	}

	inv.count = len(indices)
	inv.next = maxIndex + 1
	return nil
}

func isVideoExt(ext string) bool {
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func (inv *Inventory) Dir() string        { return inv.dir }
func (inv *Inventory) CleanQuery() string { return inv.clean }

// Count is the number of indexed video files found when the inventory was opened.
func (inv *Inventory) Count() int { return inv.count }

// NextIndex is the index the next reserved file will get.
func (inv *Inventory) NextIndex() int { return inv.next }

// Needed returns how many more files are required to reach total.
func (inv *Inventory) Needed(total int) int {
	if total <= inv.count {
		return 0
	}
	return total - inv.count
}

// ExistingIDs returns the ids already mapped to files in this directory.
func (inv *Inventory) ExistingIDs() collect.IDSet {
	ids := collect.NewIDSet()
	for id := range inv.meta.VideoFileMappings {
		ids.Add(id)
	}
	return ids
}

// Reserve consumes the next index and returns the path for a download of
// mediaURL. The index is consumed even if the download later fails.
func (inv *Inventory) Reserve(mediaURL string) string {
	name := fmt.Sprintf("%s_%d%s", inv.clean, inv.next, ExtensionFor(mediaURL))
	inv.next++
	return filepath.Join(inv.dir, name)
}

// Record maps id to a downloaded file inside the directory.
func (inv *Inventory) Record(id, path string) {
	inv.meta.VideoFileMappings[strings.TrimSpace(id)] = filepath.Base(path)
}

// Finish stores the totals of a download run and saves the metadata.
func (inv *Inventory) Finish(requested, newDownloads int) error {
	inv.meta.TotalVideosDownloaded = inv.count + newDownloads
	inv.meta.LastDownloadSession = &Session{
		RequestedCount:   requested,
		NewDownloads:     newDownloads,
		SessionTimestamp: inv.now().Format(timeLayout),
	}
	return inv.Save()
}

// Metadata returns a copy of the current metadata.
func (inv *Inventory) Metadata() Metadata {
	m := inv.meta
	m.VideoFileMappings = make(map[string]string, len(inv.meta.VideoFileMappings))
	for id, name := range inv.meta.VideoFileMappings {
		m.VideoFileMappings[id] = name
	}
	return m
}

// Save writes query_metadata.json.
func (inv *Inventory) Save() error {
	inv.meta.LastUpdated = inv.now().Format(timeLayout)
	data, err := json.MarshalIndent(inv.meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	path := filepath.Join(inv.dir, MetadataFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}
