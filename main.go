package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"newsflow/config"
	"newsflow/internal/channel"
	"newsflow/internal/market"
	"newsflow/internal/operator"
	"newsflow/internal/symbols"
	"newsflow/internal/trade"
	"newsflow/logger"
	"newsflow/processor"
	"newsflow/reader/tree"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service": cfg.Newsflow.Name,
		"version": cfg.Newsflow.Version,
	}).Info("starting newsflow")

	if cfg.Metrics.CloudWatchEnabled {
		logger.InitCloudWatch(cfg.Metrics.Region, cfg.Metrics.Namespace)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	channels := channel.NewChannels(cfg.Channels.RawBuffer)
	defer channels.Close()

	go channels.StartMetricsReporting(ctx)

	directory, err := symbols.Build(ctx, cfg,
		symbols.Limited(symbols.NewBinanceSource(), cfg.Symbols.RequestsPerSecond))
	if err != nil {
		log.WithError(err).Error("failed to build symbol directory")
		os.Exit(1)
	}

	feedReader := tree.NewReader(cfg, channels.News)

	pipeline := processor.NewPipeline(cfg, channels.News)
	pipeline.SetSymbolResolver(directory)

	aggregator := market.NewAggregator()
	manager := market.NewManager(cfg, aggregator.Reset)
	poller := market.NewPoller(cfg, manager, aggregator)

	var machine *trade.ConfirmationMachine
	if cfg.Trading.APIKey != "" && cfg.Trading.APISecret != "" {
		trader, err := trade.NewBinance(ctx, cfg)
		if err != nil {
			log.WithError(err).Error("failed to initialize trading client")
			os.Exit(1)
		}
		machine = trade.NewConfirmationMachine(trader)
		log.WithFields(logger.Fields{"testnet": cfg.Trading.Testnet}).Info("trade confirmation armed")
	} else {
		log.Info("no trading credentials; order submission disabled")
	}

	console := operator.NewConsole(cfg, manager, aggregator, directory, machine, os.Stdin, os.Stdout)

	// Headline-driven subscription switching stays off until the operator
	// turns it on with the follow command.
	pipeline.OnEvent(console.NewsObserver())

	if err := feedReader.Start(ctx); err != nil {
		log.WithError(err).Error("failed to start feed reader")
		os.Exit(1)
	}
	if err := pipeline.Start(ctx); err != nil {
		log.WithError(err).Error("failed to start news pipeline")
		os.Exit(1)
	}
	if err := console.Start(ctx); err != nil {
		log.WithError(err).Error("failed to start operator console")
		os.Exit(1)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		err := poller.Run(groupCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	group.Go(func() error {
		return logMetricsSnapshots(groupCtx, log, manager, aggregator)
	})

	log.Info("all components started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")
	case <-groupCtx.Done():
		log.Error("background task failed, shutting down")
	}

	log.Info("starting graceful shutdown")
	cancel()

	log.Info("stopping operator console")
	console.Stop()

	log.Info("stopping market subscription")
	manager.Close()

	log.Info("stopping news pipeline")
	pipeline.Stop()

	log.Info("stopping feed reader")
	feedReader.Stop()

	done := make(chan struct{})
	go func() {
		group.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("graceful shutdown completed")
	case <-time.After(30 * time.Second):
		log.Warn("graceful shutdown timeout exceeded")
	}

	log.Info("newsflow stopped")
}

// logMetricsSnapshots reports the rolling metrics of the active symbol on a
// steady cadence for downstream display collaborators tailing the log.
func logMetricsSnapshots(ctx context.Context, log *logger.Log, manager *market.Manager, agg *market.Aggregator) error {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if manager.CurrentSymbol() == "" {
				continue
			}
			snap := agg.Snapshot()
			fields := logger.Fields{
				"symbol":     snap.Symbol,
				"last_price": snap.LastPrice,
			}
			for tf, change := range snap.PercentChange {
				fields["change_"+tf] = change
			}
			log.WithComponent("market_metrics").WithFields(fields).Info("rolling metrics")
		}
	}
}
