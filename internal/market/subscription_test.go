package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	appconfig "newsflow/config"
)

func marketConfig(streamURL string) *appconfig.Config {
	return &appconfig.Config{
		Market: appconfig.MarketConfig{
			SpotStreamURL:    streamURL,
			FuturesStreamURL: streamURL,
			Channels:         appconfig.DefaultMarketChannels,
			PollInterval:     10 * time.Millisecond,
			TickBuffer:       16,
			ReconnectDelay:   50 * time.Millisecond,
		},
	}
}

// streamServer upgrades every request, counts connections and serves the
// given frame repeatedly until the client goes away.
func streamServer(t *testing.T, conns *atomic.Int32, frame string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conns.Add(1)
		for {
			if frame != "" {
				if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
					return
				}
			}
			// Detect client disconnects between writes.
			conn.SetReadDeadline(time.Now().Add(20 * time.Millisecond))
			if _, _, err := conn.ReadMessage(); err != nil {
				if !strings.Contains(err.Error(), "timeout") {
					return
				}
			}
		}
	}))
}

func TestManagerDeliversFrames(t *testing.T) {
	var conns atomic.Int32
	srv := streamServer(t, &conns, `{"stream":"btcusdt@trade","data":{"e":"trade","p":"100"}}`)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := NewManager(marketConfig("ws"+strings.TrimPrefix(srv.URL, "http")), nil)
	defer m.Close()

	if err := m.SwitchSymbol(ctx, "BTC/USDT"); err != nil {
		t.Fatalf("switch: %v", err)
	}
	if got := m.CurrentSymbol(); got != "btcusdt" {
		t.Fatalf("current symbol = %q, want btcusdt", got)
	}

	deadline := time.After(2 * time.Second)
	for {
		if msg, ok := m.DrainLatest(); ok {
			if msg.Stream != "btcusdt@trade" {
				t.Fatalf("stream tag = %q, want btcusdt@trade", msg.Stream)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("no frame drained before the deadline")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestManagerSwitchToSameSymbolKeepsConnection(t *testing.T) {
	var conns atomic.Int32
	srv := streamServer(t, &conns, "")
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := NewManager(marketConfig("ws"+strings.TrimPrefix(srv.URL, "http")), nil)
	defer m.Close()

	if err := m.SwitchSymbol(ctx, "BTC/USDT"); err != nil {
		t.Fatalf("switch: %v", err)
	}
	waitForConns(t, &conns, 1)

	// Different spellings, same normalized subscription.
	if err := m.SwitchSymbol(ctx, "BTC/USDT"); err != nil {
		t.Fatalf("repeat switch: %v", err)
	}
	if err := m.SwitchSymbol(ctx, "btc/usdt"); err != nil {
		t.Fatalf("repeat switch: %v", err)
	}

	time.Sleep(150 * time.Millisecond)
	if got := conns.Load(); got != 1 {
		t.Errorf("connection count = %d, want 1 after no-op switches", got)
	}
}

func TestManagerSwitchReplacesConnection(t *testing.T) {
	var conns atomic.Int32
	srv := streamServer(t, &conns, "")
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var resets []string
	m := NewManager(marketConfig("ws"+strings.TrimPrefix(srv.URL, "http")), func(symbol string) {
		resets = append(resets, symbol)
	})
	defer m.Close()

	if err := m.SwitchSymbol(ctx, "BTC/USDT"); err != nil {
		t.Fatalf("switch: %v", err)
	}
	waitForConns(t, &conns, 1)

	if err := m.SwitchSymbol(ctx, "ETHUSDT PERP"); err != nil {
		t.Fatalf("switch: %v", err)
	}
	waitForConns(t, &conns, 2)

	if got := m.CurrentSymbol(); got != "ethusdt" {
		t.Errorf("current symbol = %q, want ethusdt", got)
	}
	if len(resets) != 2 || resets[0] != "btcusdt" || resets[1] != "ethusdt" {
		t.Errorf("reset hook calls = %v, want [btcusdt ethusdt]", resets)
	}
}

func TestManagerCloseIsTerminal(t *testing.T) {
	m := NewManager(marketConfig("ws://127.0.0.1:1"), nil)

	m.Close()
	m.Close()

	if !m.Stopped() {
		t.Error("Stopped() should report true after Close")
	}
	if err := m.SwitchSymbol(context.Background(), "BTC/USDT"); err != ErrManagerClosed {
		t.Errorf("SwitchSymbol after Close = %v, want ErrManagerClosed", err)
	}
}

func TestManagerRejectsEmptyPair(t *testing.T) {
	m := NewManager(marketConfig("ws://127.0.0.1:1"), nil)
	defer m.Close()

	if err := m.SwitchSymbol(context.Background(), "  "); err == nil {
		t.Error("expected an error for an empty pair")
	}
}

func waitForConns(t *testing.T, conns *atomic.Int32, want int32) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for conns.Load() < want {
		select {
		case <-deadline:
			t.Fatalf("connection count = %d, want %d", conns.Load(), want)
		case <-time.After(5 * time.Millisecond):
		}
	}
}
