package collect

import (
	"context"
	"errors"
	"log/slog"

	"github.com/28jackiiee/video-scraping/models"
	"github.com/28jackiiee/video-scraping/pkg/db"
	"github.com/28jackiiee/video-scraping/pkg/inventory"
)

var errNoMediaURL = errors.New("no media URL")

type mediaDownloader interface {
	Download(ctx context.Context, url, dest string) (int64, error)
}

type itemResolver interface {
	Resolve(ctx context.Context, item models.CandidateItem) (models.CandidateItem, error)
}

// downloader materializes accepted candidates into a query inventory and
// records every attempt in the run database.
type downloader struct {
	media    mediaDownloader
	resolver itemResolver
	inv      *inventory.Inventory
	database *db.DB
	runID    int64
	logger   *slog.Logger

	downloaded int
}

func (d *downloader) accept(ctx context.Context, item models.CandidateItem) error {
	if item.MediaURL() == "" && d.resolver != nil {
		resolved, err := d.resolver.Resolve(ctx, item)
		if err != nil {
			d.record(ctx, item, "", 0, err)
			return err
		}
		item = resolved
	}

	url := item.MediaURL()
	if url == "" {
		d.record(ctx, item, "", 0, errNoMediaURL)
		return errNoMediaURL
	}

	path := d.inv.Reserve(url)
	d.logger.Info("Downloading video", "id", item.ID, "title", item.Title, "file", path)
	size, err := d.media.Download(ctx, url, path)
	if err != nil {
		d.record(ctx, item, path, 0, err)
		return err
	}

	d.inv.Record(item.ID, path)
	if err := d.inv.Save(); err != nil {
		d.logger.Warn("Failed to update query metadata", "error", err)
	}
	d.downloaded++
	d.record(ctx, item, path, size, nil)
	return nil
}

func (d *downloader) record(ctx context.Context, item models.CandidateItem, path string, size int64, err error) {
	if d.database == nil {
		return
	}
	ri := db.RunItem{
		RunID:     d.runID,
		VideoID:   item.ID,
		Title:     item.Title,
		MediaURL:  item.MediaURL(),
		FilePath:  path,
		SizeBytes: size,
		Status:    db.ItemAccepted,
	}
	if dur, ok := item.Duration(); ok {
		ri.DurationSeconds = dur
	}
	if err != nil {
		ri.Status = db.ItemFailed
		ri.ErrorMessage = err.Error()
	}
	// Recorded even after cancellation.
	if _, dbErr := d.database.RecordRunItem(context.WithoutCancel(ctx), ri); dbErr != nil {
		d.logger.Warn("Failed to record run item", "id", item.ID, "error", dbErr)
	}
}
