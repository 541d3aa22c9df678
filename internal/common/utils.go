package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/28jackiiee/video-scraping/models"
	"github.com/28jackiiee/video-scraping/pkg/collect"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

// EmbedAPIKeyEnv holds the API key sent to the embedding endpoint.
const EmbedAPIKeyEnv = "VSCRAPE_EMBED_API_KEY"

// NewLogger builds the process logger from --quiet, --verbose and --log-format.
func NewLogger(c *cli.Context) *slog.Logger {
	logLevel := slog.LevelInfo
	if c.Bool("verbose") {
		logLevel = slog.LevelDebug
	}
	if c.Bool("quiet") {
		logLevel = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: logLevel}

	var h slog.Handler
	if strings.EqualFold(c.String("log-format"), "text") {
		h = slog.NewTextHandler(os.Stderr, opts)
	} else {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(h)
}

// LoadConfig reads --config and then applies every flag the user set explicitly.
func LoadConfig(c *cli.Context) (models.Config, error) {
	cfg, err := models.LoadConfig(c.String("config"))
	if err != nil {
		return cfg, err
	}

	if c.IsSet("output-dir") {
		cfg.OutputDir = c.String("output-dir")
	}
	if c.IsSet("ignore-dir") {
		cfg.IgnoreDir = c.String("ignore-dir")
	}
	if c.IsSet("db") {
		cfg.DatabasePath = c.String("db")
	}
	if c.IsSet("delay") {
		cfg.Delay = c.Duration("delay")
	}
	if c.IsSet("impersonate") {
		cfg.Impersonate = c.Bool("impersonate")
	}
	if c.IsSet("base-url") {
		cfg.Search.BaseURL = c.String("base-url")
	}
	if c.IsSet("max-pages") {
		cfg.Search.MaxPages = c.Int("max-pages")
	}
	if c.IsSet("cache-dir") {
		cfg.Search.CacheDir = c.String("cache-dir")
	}
	if c.IsSet("cache-ttl") {
		cfg.Search.CacheTTL = c.Duration("cache-ttl")
	}
	if c.IsSet("embed-endpoint") {
		cfg.Embed.Endpoint = c.String("embed-endpoint")
	}
	if c.IsSet("embed-model") {
		cfg.Embed.Model = c.String("embed-model")
	}
	if c.IsSet("embed-dim") {
		cfg.Embed.Dimension = c.Int("embed-dim")
	}
	if c.IsSet("frames") {
		cfg.Embed.Frames = c.Int("frames")
	}
	return cfg, nil
}

// ExitError maps request validation failures to exit code 2.
func ExitError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, collect.ErrInvalidRequest) {
		return cli.Exit(err.Error(), 2)
	}
	return err
}

// ParseIDs splits arguments on commas and whitespace, dropping blanks.
func ParseIDs(values ...string) []string {
	var ids []string
	for _, v := range values {
		for _, f := range strings.FieldsFunc(v, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
		}) {
			ids = append(ids, f)
		}
	}
	return ids
}

// WriteOutput encodes v as json or yaml.
func WriteOutput(w io.Writer, v any, format string) error {
	var data []byte
	var err error
	switch strings.ToLower(format) {
	case "yaml", "yml":
		data, err = yaml.Marshal(v)
	case "json":
		data, err = json.MarshalIndent(v, "", "  ")
		data = append(data, '\n')
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = w.Write(data)
	return err
}
