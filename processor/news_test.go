package processor

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"
	"time"

	appconfig "newsflow/config"
	newschan "newsflow/internal/channel/news"
	"newsflow/logger"
	"newsflow/models"
)

func pipelineConfig(capacity int) *appconfig.Config {
	return &appconfig.Config{
		News: appconfig.NewsConfig{BufferCapacity: capacity},
	}
}

func TestPipelinePublishesInArrivalOrder(t *testing.T) {
	ch := newschan.NewChannels(8)
	p := NewPipeline(pipelineConfig(50), ch)

	seen := make(chan models.NewsEvent, 8)
	p.OnEvent(func(e models.NewsEvent) { seen <- e })

	ctx, cancel := context.WithCancel(context.Background())
	if err := p.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() {
		cancel()
		p.Stop()
	}()

	ch.SendRaw(ctx, models.RawNewsMessage{Producer: "tree", Data: []byte(`{"title":"first","time":1}`)})
	ch.SendRaw(ctx, models.RawNewsMessage{Producer: "tree", Data: []byte(`{"title":"second","time":2}`)})

	first := waitEvent(t, seen)
	second := waitEvent(t, seen)
	if first.Title != "first" || second.Title != "second" {
		t.Errorf("events out of order: %q, %q", first.Title, second.Title)
	}

	items := p.Buffer().Items()
	if len(items) != 2 {
		t.Fatalf("expected 2 buffered events, got %d", len(items))
	}
	if items[0].Title != "second" {
		t.Errorf("buffer must be newest first, got %q", items[0].Title)
	}
}

func TestPipelineDropsMessageWithoutTime(t *testing.T) {
	ch := newschan.NewChannels(8)
	p := NewPipeline(pipelineConfig(50), ch)

	seen := make(chan models.NewsEvent, 8)
	p.OnEvent(func(e models.NewsEvent) { seen <- e })

	ctx, cancel := context.WithCancel(context.Background())
	if err := p.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() {
		cancel()
		p.Stop()
	}()

	ch.SendRaw(ctx, models.RawNewsMessage{Data: []byte(`{"title":"no time"}`)})
	ch.SendRaw(ctx, models.RawNewsMessage{Data: []byte(`{"title":"ok","time":1}`)})

	ev := waitEvent(t, seen)
	if ev.Title != "ok" {
		t.Errorf("timeless message must be dropped, got %q", ev.Title)
	}
	if p.Buffer().Len() != 1 {
		t.Errorf("expected 1 buffered event, got %d", p.Buffer().Len())
	}
}

func TestPipelineBufferEvictsOldest(t *testing.T) {
	ch := newschan.NewChannels(16)
	p := NewPipeline(pipelineConfig(3), ch)

	done := make(chan struct{}, 16)
	p.OnEvent(func(models.NewsEvent) { done <- struct{}{} })

	ctx, cancel := context.WithCancel(context.Background())
	if err := p.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() {
		cancel()
		p.Stop()
	}()

	for i := 0; i < 5; i++ {
		ch.SendRaw(ctx, models.RawNewsMessage{Data: []byte(`{"title":"n","time":` + string(rune('1'+i)) + `}`)})
	}
	for i := 0; i < 5; i++ {
		<-done
	}

	if p.Buffer().Len() != 3 {
		t.Errorf("expected capped buffer of 3, got %d", p.Buffer().Len())
	}
	if p.Buffer().EvictedCount() != 2 {
		t.Errorf("expected 2 evictions, got %d", p.Buffer().EvictedCount())
	}
}

func TestPipelineStartTwiceFails(t *testing.T) {
	ch := newschan.NewChannels(1)
	p := NewPipeline(pipelineConfig(50), ch)

	ctx, cancel := context.WithCancel(context.Background())
	if err := p.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := p.Start(ctx); err == nil {
		t.Error("expected error on second start")
	}
	cancel()
	p.Stop()
}

type staticResolver map[string][]models.Action

func (r staticResolver) Lookup(coin string) []models.Action { return r[coin] }

func TestPipelineResolvesActionsFromCoin(t *testing.T) {
	ch := newschan.NewChannels(8)
	p := NewPipeline(pipelineConfig(50), ch)
	p.SetSymbolResolver(staticResolver{
		"BTC": {{Title: "BTCUSDT PERP"}, {Title: "BTC/USDT"}},
	})

	seen := make(chan models.NewsEvent, 8)
	p.OnEvent(func(e models.NewsEvent) { seen <- e })

	ctx, cancel := context.WithCancel(context.Background())
	if err := p.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() {
		cancel()
		p.Stop()
	}()

	// No actions in the payload, coin lookup fills them in.
	ch.SendRaw(ctx, models.RawNewsMessage{Producer: "tree",
		Data: []byte(`{"title":"btc listing","coin":"BTC","time":1}`)})
	event := waitEvent(t, seen)
	if len(event.Actions) != 2 || event.Actions[0].Title != "BTCUSDT PERP" {
		t.Errorf("resolved actions = %v, want the directory's list", event.Actions)
	}

	// Explicit actions always win over the directory.
	ch.SendRaw(ctx, models.RawNewsMessage{Producer: "tree",
		Data: []byte(`{"title":"btc news","coin":"BTC","time":2,"actions":[{"title":"BTC/BUSD"}]}`)})
	event = waitEvent(t, seen)
	if len(event.Actions) != 1 || event.Actions[0].Title != "BTC/BUSD" {
		t.Errorf("actions = %v, want the payload's own list", event.Actions)
	}
}

func TestPipelineReportsBufferDataFlow(t *testing.T) {
	var buf bytes.Buffer
	log := logger.GetLogger()
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stdout)

	ch := newschan.NewChannels(8)
	p := NewPipeline(pipelineConfig(50), ch)

	seen := make(chan models.NewsEvent, 8)
	p.OnEvent(func(e models.NewsEvent) { seen <- e })

	ctx, cancel := context.WithCancel(context.Background())
	if err := p.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	ch.SendRaw(ctx, models.RawNewsMessage{Producer: "tree", Data: []byte(`{"title":"flow","time":1}`)})
	waitEvent(t, seen)

	cancel()
	p.Stop()

	logged := buf.String()
	if !strings.Contains(logged, "data flow metric") {
		t.Fatalf("log output missing the data flow record:\n%s", logged)
	}
	for _, field := range []string{"event_buffer", "news_event", "tree"} {
		if !strings.Contains(logged, field) {
			t.Errorf("data flow record missing %q:\n%s", field, logged)
		}
	}
}

func waitEvent(t *testing.T, ch chan models.NewsEvent) models.NewsEvent {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return models.NewsEvent{}
	}
}
