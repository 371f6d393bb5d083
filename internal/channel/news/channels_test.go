package news

import (
	"context"
	"testing"

	"newsflow/models"
)

func TestSendRawCountsDropsWhenFull(t *testing.T) {
	c := NewChannels(1)
	ctx := context.Background()

	if !c.SendRaw(ctx, models.RawNewsMessage{Data: []byte("a")}) {
		t.Fatal("first send should succeed")
	}
	if c.SendRaw(ctx, models.RawNewsMessage{Data: []byte("b")}) {
		t.Fatal("second send should drop, channel is full")
	}

	stats := c.GetStats()
	if stats.RawSent != 1 || stats.RawDropped != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestSendRawRespectsCancelledContext(t *testing.T) {
	c := NewChannels(1)
	c.Raw <- models.RawNewsMessage{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// With a full buffer and cancelled context the send must not block.
	if c.SendRaw(ctx, models.RawNewsMessage{}) {
		t.Fatal("send should fail on full channel")
	}
}
