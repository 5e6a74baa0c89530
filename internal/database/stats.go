package database

import (
	"context"
	"time"

	"github.com/betterMessi/feifeimeimeiwebsite-20251105-02/internal/metrics"
)

// GetStats counts album content for the metrics collector.
func (d *Database) GetStats(ctx context.Context) (metrics.Stats, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_stats", start, err) }()

	row, err := d.Prepare(`
		SELECT
			(SELECT COUNT(*) FROM media WHERE file_type = 'image') AS images,
			(SELECT COUNT(*) FROM media WHERE file_type = 'video') AS videos,
			(SELECT COUNT(*) FROM tags) AS tags,
			(SELECT COUNT(*) FROM memos) AS memos,
			(SELECT COUNT(*) FROM comments) AS comments,
			(SELECT COUNT(*) FROM users) AS users`).Get(ctx)
	if err != nil {
		return metrics.Stats{}, err
	}

	return metrics.Stats{
		TotalImages:   row.Int64("images"),
		TotalVideos:   row.Int64("videos"),
		TotalTags:     row.Int64("tags"),
		TotalMemos:    row.Int64("memos"),
		TotalComments: row.Int64("comments"),
		TotalUsers:    row.Int64("users"),
		DBFileSizes:   d.fileSizes(),
	}, nil
}
