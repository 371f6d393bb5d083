package market

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"newsflow/models"
)

// Aggregator maintains the latest price and per-timeframe percent change for
// the active symbol. The two update paths are independent: a trade print
// never touches the candle metrics and vice versa. A percent change keeps
// its last computed value until the next update for the same timeframe;
// values are never extrapolated.
type Aggregator struct {
	mu        sync.RWMutex
	symbol    string
	lastPrice string
	change    map[string]float64
}

func NewAggregator() *Aggregator {
	return &Aggregator{change: make(map[string]float64)}
}

// Reset clears all values back to the unknown placeholder for a new symbol.
func (a *Aggregator) Reset(symbol string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.symbol = symbol
	a.lastPrice = ""
	a.change = make(map[string]float64)
}

// Apply updates the metrics from one raw stream frame. Frames with missing
// or malformed fields are ignored for the cycle, never fatal.
func (a *Aggregator) Apply(msg models.RawMarketMessage) {
	var kind models.MarketEventKind
	if err := json.Unmarshal(msg.Data, &kind); err != nil {
		return
	}

	switch kind.Event {
	case "trade":
		var trade models.TradeEvent
		if err := json.Unmarshal(msg.Data, &trade); err != nil || trade.Price == "" {
			return
		}
		a.mu.Lock()
		a.lastPrice = trade.Price
		a.mu.Unlock()
	case "kline":
		var kline models.KlineEvent
		if err := json.Unmarshal(msg.Data, &kline); err != nil {
			return
		}
		a.applyKline(kline.Kline)
	}
}

func (a *Aggregator) applyKline(k models.Kline) {
	if !trackedTimeframe(k.Interval) {
		return
	}
	open, err := strconv.ParseFloat(k.Open, 64)
	if err != nil || open == 0 {
		return
	}
	close, err := strconv.ParseFloat(k.Close, 64)
	if err != nil {
		return
	}

	pct := close*100/open - 100

	a.mu.Lock()
	a.change[k.Interval] = pct
	a.mu.Unlock()
}

// LastPrice returns the verbatim price of the most recent trade print.
func (a *Aggregator) LastPrice() (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastPrice, a.lastPrice != ""
}

// PercentChange returns the current percent change for a timeframe.
func (a *Aggregator) PercentChange(timeframe string) (float64, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	v, ok := a.change[timeframe]
	return v, ok
}

// Snapshot renders the metrics for display. Unreported fields show the
// placeholder; percent changes are fixed to three decimals, last prices are
// never rounded.
func (a *Aggregator) Snapshot() models.RollingMetrics {
	a.mu.RLock()
	defer a.mu.RUnlock()

	snap := models.RollingMetrics{
		Symbol:        a.symbol,
		LastPrice:     models.MetricsPlaceholder,
		PercentChange: make(map[string]string, len(models.Timeframes)),
	}
	if a.lastPrice != "" {
		snap.LastPrice = a.lastPrice
	}
	for _, tf := range models.Timeframes {
		if v, ok := a.change[tf]; ok {
			snap.PercentChange[tf] = fmt.Sprintf("%.3f%%", v)
		} else {
			snap.PercentChange[tf] = models.MetricsPlaceholder
		}
	}
	return snap
}

func trackedTimeframe(interval string) bool {
	for _, tf := range models.Timeframes {
		if tf == interval {
			return true
		}
	}
	return false
}
