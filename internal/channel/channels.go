package channel

import (
	"context"
	"time"

	newschan "newsflow/internal/channel/news"
	"newsflow/logger"
)

type Channels struct {
	News *newschan.Channels
}

func NewChannels(rawBufferSize int) *Channels {
	return &Channels{
		News: newschan.NewChannels(rawBufferSize),
	}
}

func (c *Channels) Close() {
	if c.News != nil {
		c.News.Close()
	}
}

// StartMetricsReporting periodically logs channel depth and drop counters
// until the context is cancelled.
func (c *Channels) StartMetricsReporting(ctx context.Context) {
	log := logger.GetLogger()
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := c.News.GetStats()
			log.LogMetric("news_channels", "raw_sent", stats.RawSent, "counter", nil)
			log.LogMetric("news_channels", "raw_dropped", stats.RawDropped, "counter", nil)
			log.LogMetric("news_channels", "raw_depth", len(c.News.Raw), "gauge", nil)
		}
	}
}
