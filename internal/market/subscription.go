package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	appconfig "newsflow/config"
	"newsflow/logger"
	"newsflow/models"
)

// ErrManagerClosed is returned by SwitchSymbol after Close.
var ErrManagerClosed = errors.New("market subscription manager is closed")

// ResetHook is invoked when a symbol switch invalidates the displayed
// metrics, before the new connection is opened.
type ResetHook func(symbol string)

// Manager owns at most one live market-data subscription. Switching to a new
// symbol tears down the previous connection and dials the combined stream
// for the fixed channel set scoped to the new symbol; switching to the
// current symbol is a no-op that keeps the connection and its in-flight
// metrics. All replacement happens under one mutex so two live connections
// can never coexist.
type Manager struct {
	config  *appconfig.Config
	onReset ResetHook
	log     *logger.Log

	mu     sync.Mutex
	symbol string
	kind   Kind
	sub    *subscription
	closed bool
}

// subscription is one live connection feeding the tick stack. The read loop
// reconnects on transient failures on its own; only Close (or app shutdown)
// ends it.
type subscription struct {
	symbol string
	kind   Kind
	buf    *tickStack
	cancel context.CancelFunc
	done   chan struct{}
}

func NewManager(cfg *appconfig.Config, onReset ResetHook) *Manager {
	return &Manager{
		config:  cfg,
		onReset: onReset,
		log:     logger.GetLogger(),
	}
}

// SwitchSymbol subscribes to the market data of the selected pair. ctx is
// the application lifetime context; cancelling it ends the connection's read
// loop.
func (m *Manager) SwitchSymbol(ctx context.Context, pair string) error {
	sym, kind := ParsePair(pair)
	if sym == "" {
		return fmt.Errorf("empty symbol from pair %q", pair)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrManagerClosed
	}
	if m.sub != nil && sym == m.symbol && kind == m.kind {
		return nil
	}

	log := m.log.WithComponent("market_manager").WithFields(logger.Fields{
		"symbol": sym,
		"kind":   string(kind),
	})

	if m.onReset != nil {
		m.onReset(sym)
	}

	if m.sub != nil {
		log.WithFields(logger.Fields{"previous": m.symbol}).Info("replacing market subscription")
		m.sub.stop()
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		symbol: sym,
		kind:   kind,
		buf:    newTickStack(m.config.Market.TickBuffer),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	url := m.streamURL(sym, kind)
	go m.runStream(subCtx, sub, url)

	m.symbol = sym
	m.kind = kind
	m.sub = sub

	log.WithFields(logger.Fields{"url": url}).Info("market subscription opened")
	return nil
}

// DrainLatest pops the most recently buffered frame. Returns false when no
// subscription is active or the buffer is empty.
func (m *Manager) DrainLatest() (models.RawMarketMessage, bool) {
	m.mu.Lock()
	sub := m.sub
	m.mu.Unlock()

	if sub == nil {
		return models.RawMarketMessage{}, false
	}
	return sub.buf.pop()
}

// CurrentSymbol returns the normalized symbol of the active subscription, or
// "" when idle.
func (m *Manager) CurrentSymbol() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sub == nil {
		return ""
	}
	return m.symbol
}

// Close tears down any active subscription. Idempotent and terminal: the
// manager accepts no further switches.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.closed = true

	if m.sub != nil {
		m.sub.stop()
		m.sub = nil
	}
	m.log.WithComponent("market_manager").Info("market subscription manager closed")
}

// Stopped reports whether the manager was permanently shut down. The polling
// loop treats this as fatal; transient connection failures never set it.
func (m *Manager) Stopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *Manager) streamURL(sym string, kind Kind) string {
	base := m.config.Market.SpotStreamURL
	if kind == Perpetual {
		base = m.config.Market.FuturesStreamURL
	}
	streams := make([]string, 0, len(m.config.Market.Channels))
	for _, ch := range m.config.Market.Channels {
		streams = append(streams, sym+"@"+ch)
	}
	return base + "?streams=" + strings.Join(streams, "/")
}

// runStream keeps one combined-stream connection alive for the lifetime of
// the subscription, pushing every decoded frame onto the tick stack. Retry
// lives here at the connection level; the consumer above never sees
// transient failures.
func (m *Manager) runStream(ctx context.Context, sub *subscription, url string) {
	defer close(sub.done)

	log := m.log.WithComponent("market_stream").WithFields(logger.Fields{
		"symbol": sub.symbol,
		"kind":   string(sub.kind),
	})
	dialer := websocket.DefaultDialer

	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := dialer.DialContext(ctx, url, nil)
		if err != nil {
			log.WithError(err).Warn("failed to connect to market stream")
			if waitForReconnect(ctx, m.config.Market.ReconnectDelay) {
				return
			}
			continue
		}

		log.Info("market stream connected")

		if err := m.readStream(ctx, conn, sub, log); err != nil && ctx.Err() == nil {
			log.WithError(err).Warn("market stream read loop ended")
		}
		conn.Close()

		if ctx.Err() != nil {
			return
		}
		if waitForReconnect(ctx, m.config.Market.ReconnectDelay) {
			return
		}
	}
}

func (m *Manager) readStream(ctx context.Context, conn *websocket.Conn, sub *subscription, log *logger.Entry) error {
	// Unblock the read promptly when the subscription is torn down.
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-watchDone:
		}
	}()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var msg models.RawMarketMessage
		if err := json.Unmarshal(data, &msg); err != nil || msg.Stream == "" {
			// Subscription acks and other control frames are not ticks.
			continue
		}
		msg.ReceivedAt = time.Now()
		sub.buf.push(msg)
	}
}

func (s *subscription) stop() {
	s.cancel()
	<-s.done
}

// waitForReconnect sleeps for the fixed cool-down and reports whether the
// context was cancelled while waiting.
func waitForReconnect(ctx context.Context, delay time.Duration) bool {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return true
	case <-timer.C:
		return false
	}
}
