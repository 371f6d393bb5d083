package operator

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	appconfig "newsflow/config"
	"newsflow/internal/trade"
	"newsflow/logger"
	"newsflow/models"
)

// MarketControl switches the live market subscription.
type MarketControl interface {
	SwitchSymbol(ctx context.Context, pair string) error
	CurrentSymbol() string
}

// MetricsSource renders the rolling metrics of the active symbol.
type MetricsSource interface {
	Snapshot() models.RollingMetrics
}

// ActionLookup resolves a coin ticker to its trade actions.
type ActionLookup interface {
	Lookup(coin string) []models.Action
}

// Console is the line-oriented operator surface: it reads commands, drives
// the market subscription and stages and confirms orders. Trading commands
// are rejected when no confirmation machine is wired in.
type Console struct {
	config  *appconfig.Config
	market  MarketControl
	metrics MetricsSource
	lookup  ActionLookup
	machine *trade.ConfirmationMachine
	in      io.Reader
	out     io.Writer

	ctx     context.Context
	wg      *sync.WaitGroup
	mu      sync.RWMutex
	running bool
	follow  bool
	log     *logger.Log
}

func NewConsole(cfg *appconfig.Config, market MarketControl, metrics MetricsSource,
	lookup ActionLookup, machine *trade.ConfirmationMachine, in io.Reader, out io.Writer) *Console {
	return &Console{
		config:  cfg,
		market:  market,
		metrics: metrics,
		lookup:  lookup,
		machine: machine,
		in:      in,
		out:     out,
		wg:      &sync.WaitGroup{},
		log:     logger.GetLogger(),
	}
}

func (c *Console) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("operator console already running")
	}
	c.running = true
	c.ctx = ctx
	c.mu.Unlock()

	c.log.WithComponent("operator_console").Info("operator console started")

	// The scanner goroutine stays blocked on the input until EOF; only the
	// command worker is waited on during shutdown.
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	c.wg.Add(1)
	go c.worker(lines)

	return nil
}

func (c *Console) Stop() {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()

	c.wg.Wait()
	c.log.WithComponent("operator_console").Info("operator console stopped")
}

func (c *Console) worker(lines <-chan string) {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			c.handle(strings.TrimSpace(line))
		}
	}
}

func (c *Console) handle(line string) {
	if line == "" {
		return
	}
	fields := strings.Fields(line)
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "pair":
		c.switchPair(strings.Join(args, " "))
	case "coin":
		c.switchCoin(args)
	case "follow":
		c.setFollow(args)
	case "metrics":
		c.printMetrics()
	case "long":
		c.stage(trade.Long, args)
	case "short":
		c.stage(trade.Short, args)
	case "confirm":
		c.confirm()
	case "cancel":
		c.cancel()
	default:
		fmt.Fprintf(c.out, "unknown command %q\n", cmd)
	}
}

func (c *Console) switchPair(pair string) {
	if pair == "" {
		fmt.Fprintln(c.out, "usage: pair <PAIR>")
		return
	}
	if err := c.market.SwitchSymbol(c.ctx, pair); err != nil {
		fmt.Fprintf(c.out, "switch failed: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "tracking %s\n", c.market.CurrentSymbol())
}

func (c *Console) switchCoin(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "usage: coin <TICKER>")
		return
	}
	actions := c.lookup.Lookup(args[0])
	if len(actions) == 0 {
		fmt.Fprintf(c.out, "no tradeable pairs for %s\n", args[0])
		return
	}
	for _, action := range actions {
		fmt.Fprintf(c.out, "  %s\n", action.Title)
	}
	c.switchPair(actions[0].Title)
}

// setFollow toggles headline following. While enabled, actionable news
// events retarget the market subscription to their first trade action.
func (c *Console) setFollow(args []string) {
	if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
		fmt.Fprintln(c.out, "usage: follow <on|off>")
		return
	}

	c.mu.Lock()
	c.follow = args[0] == "on"
	c.mu.Unlock()

	fmt.Fprintf(c.out, "headline following %s\n", args[0])
}

func (c *Console) Following() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.follow
}

// NewsObserver returns the pipeline callback for published news events.
// Events are always logged; the market subscription only moves when the
// operator has turned following on.
func (c *Console) NewsObserver() func(models.NewsEvent) {
	return func(event models.NewsEvent) {
		entry := c.log.WithComponent("operator_console").WithFields(logger.Fields{
			"source": event.Source,
			"coin":   event.Coin,
		})
		entry.Info(event.Title)

		if len(event.Actions) == 0 || !c.Following() {
			return
		}
		pair := event.Actions[0].Title
		if err := c.market.SwitchSymbol(c.ctx, pair); err != nil {
			entry.WithError(err).Warn("headline-driven switch failed")
			return
		}
		fmt.Fprintf(c.out, "following headline: tracking %s\n", c.market.CurrentSymbol())
	}
}

func (c *Console) printMetrics() {
	snap := c.metrics.Snapshot()
	if snap.Symbol == "" {
		fmt.Fprintln(c.out, "no active symbol")
		return
	}
	fmt.Fprintf(c.out, "%s last=%s", snap.Symbol, snap.LastPrice)
	for _, tf := range models.Timeframes {
		fmt.Fprintf(c.out, " %s=%s", tf, snap.PercentChange[tf])
	}
	fmt.Fprintln(c.out)
}

// stage parses "long|short SYMBOL [notional] [leverage]", falling back to
// the configured defaults for the omitted amounts.
func (c *Console) stage(side trade.Side, args []string) {
	if c.machine == nil {
		fmt.Fprintln(c.out, "trading disabled: no credentials configured")
		return
	}
	if len(args) < 1 || len(args) > 3 {
		fmt.Fprintf(c.out, "usage: %s <SYMBOL> [notional] [leverage]\n", strings.ToLower(string(side)))
		return
	}

	cmd := trade.OrderCommand{
		Side:         side,
		Symbol:       strings.ToUpper(args[0]),
		NotionalSize: c.config.Trading.DefaultNotional,
		Leverage:     c.config.Trading.DefaultLeverage,
	}
	if len(args) > 1 {
		notional, err := strconv.ParseFloat(args[1], 64)
		if err != nil || notional <= 0 {
			fmt.Fprintf(c.out, "bad notional %q\n", args[1])
			return
		}
		cmd.NotionalSize = notional
	}
	if len(args) > 2 {
		leverage, err := strconv.Atoi(args[2])
		if err != nil || leverage < 1 {
			fmt.Fprintf(c.out, "bad leverage %q\n", args[2])
			return
		}
		cmd.Leverage = leverage
	}

	if err := c.machine.Stage(cmd); err != nil {
		fmt.Fprintf(c.out, "stage failed: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "staged: %s (confirm/cancel)\n", cmd.Summary())
}

func (c *Console) confirm() {
	if c.machine == nil {
		fmt.Fprintln(c.out, "trading disabled: no credentials configured")
		return
	}
	receipt, err := c.machine.Confirm(c.ctx)
	if err != nil {
		fmt.Fprintf(c.out, "confirm failed: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "executed: order %d %s qty=%s status=%s at %s\n",
		receipt.OrderID, receipt.Symbol, receipt.Quantity, receipt.Status, receipt.DisplayTime())
}

func (c *Console) cancel() {
	if c.machine == nil {
		fmt.Fprintln(c.out, "trading disabled: no credentials configured")
		return
	}
	c.machine.Cancel()
	fmt.Fprintln(c.out, "staged order discarded")
}
