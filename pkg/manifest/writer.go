package manifest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/28jackiiee/video-scraping/pkg/collect"
	"gopkg.in/yaml.v3"
)

const (
	FormatJSON = "json"
	FormatYAML = "yaml"

	timestampLayout = "20060102_150405"
)

// Marshal encodes m in the given format.
func Marshal(m Manifest, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case FormatJSON, "":
		return json.MarshalIndent(m, "", "  ")
	case FormatYAML, "yml":
		return yaml.Marshal(m)
	default:
		return nil, fmt.Errorf("unsupported manifest format %q", format)
	}
}

// Write stores m as <dir>/<cleanQuery>_<timestamp>.<format> and returns the path.
func Write(dir, cleanQuery string, m Manifest, format string, now time.Time) (string, error) {
	data, err := Marshal(m, format)
	if err != nil {
		return "", err
	}
	ext := FormatJSON
	if f := strings.ToLower(format); f == FormatYAML || f == "yml" {
		ext = FormatYAML
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create manifest directory: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.%s", cleanQuery, now.Format(timestampLayout), ext))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write manifest: %w", err)
	}
	return path, nil
}

// Read decodes a manifest file; the format follows the extension.
func Read(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &m)
	default:
		err = json.Unmarshal(data, &m)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	return m, nil
}

// ExistingIDs collects the ids listed under label and query by every manifest
// in dir. Files that are not manifests are logged and skipped.
func ExistingIDs(dir, label, query string, logger *slog.Logger) (collect.IDSet, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ids := collect.NewIDSet()

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return ids, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest directory: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".json", ".yaml", ".yml":
		default:
			continue
		}
		m, err := Read(filepath.Join(dir, e.Name()))
		if err != nil {
			logger.Debug("skipping unreadable manifest", "file", e.Name(), "error", err)
			continue
		}
		for _, entry := range m.Entries(label, query) {
			ids.Add(entry.ID)
		}
	}
	return ids, nil
}
