package metrics

import (
	"context"
	"time"

	"github.com/betterMessi/feifeimeimeiwebsite-20251105-02/internal/logging"
)

// StatsProvider interface for collecting stats
type StatsProvider interface {
	GetStats(ctx context.Context) (Stats, error)
}

// Stats holds the current album statistics
type Stats struct {
	TotalImages   int64
	TotalVideos   int64
	TotalTags     int64
	TotalMemos    int64
	TotalComments int64
	TotalUsers    int64
	DBFileSizes   map[string]int64
}

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stats, err := c.statsProvider.GetStats(ctx)
	if err != nil {
		logging.Warn("Metrics collection failed: %v", err)
		return
	}

	MediaItemsTotal.WithLabelValues("image").Set(float64(stats.TotalImages))
	MediaItemsTotal.WithLabelValues("video").Set(float64(stats.TotalVideos))
	TagsTotal.Set(float64(stats.TotalTags))
	MemosTotal.Set(float64(stats.TotalMemos))
	CommentsTotal.Set(float64(stats.TotalComments))
	UsersTotal.Set(float64(stats.TotalUsers))
	for file, size := range stats.DBFileSizes {
		DBSizeBytes.WithLabelValues(file).Set(float64(size))
	}

	logging.Debug("Metrics collected: images=%d, videos=%d, tags=%d, memos=%d, comments=%d",
		stats.TotalImages, stats.TotalVideos, stats.TotalTags, stats.TotalMemos, stats.TotalComments)
}
