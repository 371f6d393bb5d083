package models

import (
	"encoding/json"
	"time"
)

// Timeframes tracked by the rolling metrics, in display order.
var Timeframes = []string{"1m", "5m", "15m"}

// RawMarketMessage is one frame from the exchange combined stream. Stream is
// the combined stream tag ("btcusdt@kline_1m", "btcusdt@trade", ...) used to
// discard late frames from a subscription that was just replaced.
type RawMarketMessage struct {
	Stream     string          `json:"stream"`
	Data       json.RawMessage `json:"data"`
	ReceivedAt time.Time       `json:"-"`
}

// MarketEventKind discriminates combined stream payloads.
type MarketEventKind struct {
	Event string `json:"e"`
}

// TradeEvent is a raw trade print. Price is kept verbatim; the display layer
// never rounds last prices.
type TradeEvent struct {
	Event     string `json:"e"`
	Symbol    string `json:"s"`
	Price     string `json:"p"`
	Quantity  string `json:"q"`
	TradeTime int64  `json:"T"`
}

// KlineEvent is a candle update for one timeframe.
type KlineEvent struct {
	Event  string `json:"e"`
	Symbol string `json:"s"`
	Kline  Kline  `json:"k"`
}

// Kline carries the OHLC payload of a kline event.
type Kline struct {
	StartTime int64  `json:"t"`
	Symbol    string `json:"s"`
	Interval  string `json:"i"`
	Open      string `json:"o"`
	Close     string `json:"c"`
	High      string `json:"h"`
	Low       string `json:"l"`
	Final     bool   `json:"x"`
}

// RollingMetrics is the snapshot handed to the presentation collaborator.
// Values keep the last computed result until the next matching update; a
// timeframe that never reported shows the placeholder.
type RollingMetrics struct {
	Symbol        string            `json:"symbol"`
	LastPrice     string            `json:"last_price"`
	PercentChange map[string]string `json:"percent_change"`
}

// MetricsPlaceholder is displayed before any data arrives for a field.
const MetricsPlaceholder = "--"
