package tree

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	appconfig "newsflow/config"
	newschan "newsflow/internal/channel/news"
	"newsflow/logger"
	"newsflow/models"
)

const producerName = "tree"

// Reader maintains the long-lived websocket connection to the news push feed
// and forwards every received frame to the raw news channel. The connection
// is kept alive with periodic pings; any failure closes the socket, waits a
// fixed delay and redials the same URL. There is no retry cap: a permanently
// unreachable endpoint is retried forever, which is the intended recovery
// behaviour for this feed.
type Reader struct {
	config  *appconfig.Config
	out     *newschan.Channels
	ctx     context.Context
	wg      *sync.WaitGroup
	mu      sync.RWMutex
	running bool
	log     *logger.Log
}

// NewReader creates a news feed reader publishing into out.
func NewReader(cfg *appconfig.Config, out *newschan.Channels) *Reader {
	return &Reader{
		config: cfg,
		out:    out,
		wg:     &sync.WaitGroup{},
		log:    logger.GetLogger(),
	}
}

// Start launches the connection loop.
func (r *Reader) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("news feed reader already running")
	}
	r.running = true
	r.ctx = ctx
	r.mu.Unlock()

	log := r.log.WithComponent("news_feed").WithFields(logger.Fields{"operation": "start"})
	log.WithFields(logger.Fields{
		"url":             r.config.News.FeedURL,
		"keepalive":       r.config.News.Keepalive.String(),
		"reconnect_delay": r.config.News.ReconnectDelay.String(),
	}).Info("starting news feed reader")

	r.wg.Add(1)
	go r.run()

	return nil
}

// Stop waits for the connection loop to exit. The caller cancels the context
// passed to Start first.
func (r *Reader) Stop() {
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()

	r.log.WithComponent("news_feed").Info("stopping news feed reader")
	r.wg.Wait()
	r.log.WithComponent("news_feed").Info("news feed reader stopped")
}

func (r *Reader) run() {
	defer r.wg.Done()

	log := r.log.WithComponent("news_feed").WithFields(logger.Fields{"url": r.config.News.FeedURL})
	dialer := websocket.DefaultDialer

	for {
		if r.ctx.Err() != nil {
			return
		}

		conn, _, err := dialer.DialContext(r.ctx, r.config.News.FeedURL, nil)
		if err != nil {
			log.WithError(err).Warn("failed to connect to news feed")
			if waitForReconnect(r.ctx, r.config.News.ReconnectDelay) {
				return
			}
			continue
		}

		log.Info("news feed connected")

		pingCancel := startPingLoop(r.ctx, conn, r.config.News.Keepalive, log)

		if err := r.readMessages(conn); err != nil && r.ctx.Err() == nil {
			log.WithError(err).Warn("news feed read loop ended")
		}

		pingCancel()
		conn.Close()

		if r.ctx.Err() != nil {
			return
		}

		log.Info("restarting news feed connection")
		if waitForReconnect(r.ctx, r.config.News.ReconnectDelay) {
			return
		}
	}
}

// readMessages pumps frames into the raw channel until the connection or the
// context dies. A read deadline of one keepalive interval plus the pong
// timeout bounds how long a dead connection can linger.
func (r *Reader) readMessages(conn *websocket.Conn) error {
	keepalive := r.config.News.Keepalive
	deadline := func() time.Time { return time.Now().Add(2 * keepalive) }

	conn.SetReadDeadline(deadline())
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(deadline())
	})

	for {
		if r.ctx.Err() != nil {
			return r.ctx.Err()
		}
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		conn.SetReadDeadline(deadline())

		r.out.SendRaw(r.ctx, models.RawNewsMessage{
			Producer:   producerName,
			Data:       msg,
			ReceivedAt: time.Now(),
		})
	}
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

// startPingLoop sends keepalive pings on the given interval. Cancelling the
// parent context closes the connection so a blocked read observes shutdown
// within one keepalive cycle.
func startPingLoop(ctx context.Context, conn *websocket.Conn, interval time.Duration, log *logger.Entry) context.CancelFunc {
	pingCtx, cancel := context.WithCancel(ctx)
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-pingCtx.Done():
				if ctx.Err() != nil {
					conn.Close()
				}
				return
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(time.Second))
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second)); err != nil {
					log.WithError(err).Warn("failed to send websocket ping")
					cancel()
					return
				}
			}
		}
	}()
	return cancel
}
