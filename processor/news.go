package processor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	appconfig "newsflow/config"
	"newsflow/internal/buffer"
	newschan "newsflow/internal/channel/news"
	"newsflow/logger"
	"newsflow/models"
)

// Observer receives each normalized event in arrival order.
type Observer func(models.NewsEvent)

// SymbolResolver supplies trade actions for events that name a coin but
// carry no actions of their own.
type SymbolResolver interface {
	Lookup(coin string) []models.Action
}

// Pipeline consumes raw feed frames, normalizes them and publishes the
// results: every event is pushed into the bounded buffer and then handed to
// the registered observers. A single worker drains the channel so each
// producer's order is preserved end to end; interleaving between independent
// producers is arrival order.
type Pipeline struct {
	config    *appconfig.Config
	channels  *newschan.Channels
	buffer    *buffer.Bounded[models.NewsEvent]
	observers []Observer
	resolver  SymbolResolver
	ctx       context.Context
	wg        *sync.WaitGroup
	mu        sync.RWMutex
	running   bool
	log       *logger.Log

	processed int64
	dropped   int64
}

func NewPipeline(cfg *appconfig.Config, channels *newschan.Channels) *Pipeline {
	return &Pipeline{
		config:   cfg,
		channels: channels,
		buffer:   buffer.NewBounded[models.NewsEvent](cfg.News.BufferCapacity),
		wg:       &sync.WaitGroup{},
		log:      logger.GetLogger(),
	}
}

// Buffer exposes the retained events, newest first, for the presentation
// collaborator.
func (p *Pipeline) Buffer() *buffer.Bounded[models.NewsEvent] {
	return p.buffer
}

// SetSymbolResolver installs the directory used to attach trade actions to
// events that only name a coin. Must be called before Start.
func (p *Pipeline) SetSymbolResolver(r SymbolResolver) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resolver = r
}

// OnEvent registers an observer. Must be called before Start.
func (p *Pipeline) OnEvent(fn Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, fn)
}

func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("news pipeline already running")
	}
	p.running = true
	p.ctx = ctx
	p.mu.Unlock()

	log := p.log.WithComponent("news_pipeline").WithFields(logger.Fields{"operation": "start"})
	log.WithFields(logger.Fields{
		"buffer_capacity": p.config.News.BufferCapacity,
		"observers":       len(p.observers),
	}).Info("starting news pipeline")

	p.wg.Add(1)
	go p.worker()

	return nil
}

func (p *Pipeline) Stop() {
	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	p.log.WithComponent("news_pipeline").Info("stopping news pipeline")
	p.wg.Wait()
	p.log.WithComponent("news_pipeline").WithFields(logger.Fields{
		"processed": p.processed,
		"dropped":   p.dropped,
		"evicted":   p.buffer.EvictedCount(),
	}).Info("news pipeline stopped")
}

func (p *Pipeline) worker() {
	defer p.wg.Done()

	log := p.log.WithComponent("news_pipeline").WithFields(logger.Fields{"worker": "normalizer"})
	log.Info("starting pipeline worker")

	for {
		select {
		case <-p.ctx.Done():
			log.Info("worker stopped due to context cancellation")
			return
		case rawMsg, ok := <-p.channels.Raw:
			if !ok {
				log.Info("raw channel closed, worker stopping")
				return
			}
			p.handleMessage(rawMsg)
		}
	}
}

func (p *Pipeline) handleMessage(rawMsg models.RawNewsMessage) {
	log := p.log.WithComponent("news_pipeline").WithFields(logger.Fields{
		"producer":  rawMsg.Producer,
		"operation": "handle_message",
	})

	start := time.Now()
	event, err := Normalize(rawMsg.Data)
	if err != nil {
		p.dropped++
		if errors.Is(err, ErrMissingTime) {
			log.WithError(err).Warn("dropping news message without timestamp")
		} else {
			log.WithError(err).Warn("dropping undecodable news message")
		}
		return
	}

	if len(event.Actions) == 0 && event.Coin != "" && p.resolver != nil {
		event.Actions = p.resolver.Lookup(event.Coin)
	}
	event = FormatEvent(event)

	p.buffer.Push(event)
	logger.LogDataFlowEntry(log, rawMsg.Producer, "event_buffer", 1, "news_event")

	p.mu.RLock()
	observers := p.observers
	p.mu.RUnlock()
	for _, fn := range observers {
		fn(event)
	}

	p.processed++
	logger.LogPerformanceEntry(log, "news_pipeline", "normalize", time.Since(start), logger.Fields{
		"source":   event.Source,
		"delay_ms": event.Delay(rawMsg.ReceivedAt).Milliseconds(),
	})
}
