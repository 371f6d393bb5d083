package market

import (
	"context"
	"errors"
	"strings"
	"time"

	appconfig "newsflow/config"
	"newsflow/logger"
)

// ErrStreamStopped reports that the subscription manager entered its terminal
// state while the poller was still running.
var ErrStreamStopped = errors.New("market stream has stopped")

// Poller drains the freshest buffered tick on a fixed cadence and feeds it to
// the aggregator. One drain per cycle keeps display updates bounded no matter
// how fast frames arrive.
type Poller struct {
	manager  *Manager
	agg      *Aggregator
	interval time.Duration
	log      *logger.Log
}

func NewPoller(cfg *appconfig.Config, manager *Manager, agg *Aggregator) *Poller {
	return &Poller{
		manager:  manager,
		agg:      agg,
		interval: cfg.Market.PollInterval,
		log:      logger.GetLogger(),
	}
}

// Run polls until the context is cancelled or the manager stops. A stopped
// manager is unrecoverable from here, so it surfaces as ErrStreamStopped for
// the caller to treat as fatal.
func (p *Poller) Run(ctx context.Context) error {
	log := p.log.WithComponent("market-poller")
	log.WithField("interval", p.interval.String()).Info("Market poller started")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("Market poller stopped")
			return ctx.Err()
		case <-ticker.C:
			if p.manager.Stopped() {
				log.Error("Market subscription manager stopped unexpectedly")
				return ErrStreamStopped
			}
			p.pollOnce()
		}
	}
}

func (p *Poller) pollOnce() {
	msg, ok := p.manager.DrainLatest()
	if !ok {
		return
	}
	// A tick buffered before a symbol switch can surface afterwards; the
	// stream tag prefix pins every frame to the active subscription.
	current := p.manager.CurrentSymbol()
	if current == "" || !strings.HasPrefix(msg.Stream, current+"@") {
		return
	}
	p.agg.Apply(msg)
}
