package news

import (
	"context"
	"sync"

	"newsflow/logger"
	"newsflow/models"
)

type ChannelStats struct {
	RawSent    int64
	RawDropped int64
}

// Channels carries raw news frames from the feed producers to the ingestion
// pipeline. The handoff is buffered generously because decoding is fast
// relative to arrival rate; drops are counted, not silent.
type Channels struct {
	Raw chan models.RawNewsMessage

	stats      ChannelStats
	statsMutex sync.RWMutex
	log        *logger.Log
}

func NewChannels(rawBufferSize int) *Channels {
	log := logger.GetLogger()
	c := &Channels{
		Raw: make(chan models.RawNewsMessage, rawBufferSize),
		log: log,
	}

	log.WithComponent("news_channels").WithFields(logger.Fields{
		"raw_buffer_size": rawBufferSize,
	}).Info("news channels initialized")

	return c
}

func (c *Channels) Close() {
	close(c.Raw)
	c.log.WithComponent("news_channels").Info("news channels closed")
}

func (c *Channels) IncrementRawSent() {
	c.statsMutex.Lock()
	c.stats.RawSent++
	c.statsMutex.Unlock()
}

func (c *Channels) IncrementRawDropped() {
	c.statsMutex.Lock()
	c.stats.RawDropped++
	c.statsMutex.Unlock()
}

// SendRaw hands a raw frame to the pipeline without blocking the producer's
// read loop. A full channel drops the frame and records it.
func (c *Channels) SendRaw(ctx context.Context, msg models.RawNewsMessage) bool {
	select {
	case c.Raw <- msg:
		c.IncrementRawSent()
		return true
	case <-ctx.Done():
		return false
	default:
		c.IncrementRawDropped()
		return false
	}
}

func (c *Channels) GetStats() ChannelStats {
	c.statsMutex.RLock()
	defer c.statsMutex.RUnlock()
	return c.stats
}
