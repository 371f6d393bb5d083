package social

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	newschan "newsflow/internal/channel/news"
	"newsflow/logger"
	"newsflow/models"
)

const producerName = "social"

// Publisher bridges a social-media stream collaborator into the raw news
// channel. It is the second independent producer next to the main feed:
// each producer's internal order is preserved, interleaving between the two
// is arrival order.
type Publisher struct {
	out *newschan.Channels
	log *logger.Log
}

func NewPublisher(out *newschan.Channels) *Publisher {
	return &Publisher{
		out: out,
		log: logger.GetLogger(),
	}
}

// Publish forwards one raw payload. Returns false when the channel was full
// or the context cancelled.
func (p *Publisher) Publish(ctx context.Context, payload []byte) bool {
	ok := p.out.SendRaw(ctx, models.RawNewsMessage{
		Producer:   producerName,
		Data:       payload,
		ReceivedAt: time.Now(),
	})
	if !ok {
		p.log.WithComponent("social_publisher").Warn("raw news channel full, dropping social message")
	}
	return ok
}

// StatusPayload builds a feed-compatible payload for one social status so it
// flows through the same normalization as the main feed.
func StatusPayload(author, text, statusID string, createdAt time.Time) ([]byte, error) {
	msg := map[string]interface{}{
		"title":  author,
		"body":   text,
		"link":   fmt.Sprintf("https://twitter.com/twitter/statuses/%s", statusID),
		"source": "terminal-twitter",
		"time":   createdAt.UnixMilli(),
		"_id":    0,
	}
	return json.Marshal(msg)
}
