package symbols

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/time/rate"

	appconfig "newsflow/config"
	"newsflow/logger"
	"newsflow/models"
)

// stableTickers never get trade actions; a news mention of a stablecoin is
// not a tradeable signal.
var stableTickers = map[string]struct{}{
	"T":     {},
	"BUSD":  {},
	"USDT":  {},
	"TUSD":  {},
	"USDC":  {},
	"UST":   {},
	"USTC":  {},
	"USDP":  {},
	"USDS":  {},
	"USDSB": {},
	"SUSD":  {},
	"NU":    {},
}

// disabledSuffixes marks leveraged-token tickers, which shadow their
// underlying asset in coin lookups.
var disabledSuffixes = []string{"BEAR", "DOWN", "UP", "BULL"}

// InfoSource lists the tradeable pair names of each venue.
type InfoSource interface {
	SpotPairs(ctx context.Context) ([]string, error)
	FuturesPairs(ctx context.Context) ([]string, error)
}

// Directory maps a coin ticker to its ordered trade actions. Built once at
// startup from exchange info and read-only afterwards.
type Directory struct {
	mu      sync.RWMutex
	actions map[string][]models.Action
	log     *logger.Log
}

// Build fetches both venues' pair lists and assembles the ticker directory.
// For every eligible spot pair the matching perpetual actions come first,
// then the spot pair itself, deduplicated across quote assets.
func Build(ctx context.Context, cfg *appconfig.Config, source InfoSource) (*Directory, error) {
	log := logger.GetLogger().WithComponent("symbol_directory")

	futurePairs, err := source.FuturesPairs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch futures pairs: %w", err)
	}
	spotPairs, err := source.SpotPairs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch spot pairs: %w", err)
	}

	d := &Directory{
		actions: make(map[string][]models.Action),
		log:     logger.GetLogger(),
	}

	for _, pair := range spotPairs {
		quote := matchQuote(pair, cfg.Symbols.QuoteAssets)
		if quote == "" {
			continue
		}
		ticker := strings.TrimSuffix(pair, quote)
		if !eligibleTicker(ticker) {
			continue
		}

		for _, fp := range futurePairs {
			if len(fp) <= 4 || ticker != fp[:len(fp)-4] {
				continue
			}
			d.add(ticker, models.Action{Title: fp + " PERP"})
		}
		d.add(ticker, models.Action{Title: ticker + "/" + quote})
	}

	log.WithFields(logger.Fields{
		"tickers":      len(d.actions),
		"spot_pairs":   len(spotPairs),
		"future_pairs": len(futurePairs),
	}).Info("symbol directory built")

	return d, nil
}

// Lookup returns the trade actions for a coin ticker, or nil when the coin
// is unknown or not tradeable.
func (d *Directory) Lookup(coin string) []models.Action {
	d.mu.RLock()
	defer d.mu.RUnlock()

	actions, ok := d.actions[strings.ToUpper(strings.TrimSpace(coin))]
	if !ok {
		return nil
	}
	out := make([]models.Action, len(actions))
	copy(out, actions)
	return out
}

// Tickers returns the number of known tickers.
func (d *Directory) Tickers() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.actions)
}

func (d *Directory) add(ticker string, action models.Action) {
	for _, existing := range d.actions[ticker] {
		if existing.Title == action.Title {
			return
		}
	}
	d.actions[ticker] = append(d.actions[ticker], action)
}

func matchQuote(pair string, quoteAssets []string) string {
	for _, quote := range quoteAssets {
		if len(pair) > len(quote) && strings.HasSuffix(pair, quote) {
			return quote
		}
	}
	return ""
}

func eligibleTicker(ticker string) bool {
	if _, stable := stableTickers[ticker]; stable {
		return false
	}
	for _, suffix := range disabledSuffixes {
		if strings.HasSuffix(ticker, suffix) {
			return false
		}
	}
	last := rune(ticker[len(ticker)-1])
	return !unicode.IsDigit(last)
}

// limitedSource wraps an InfoSource with a request rate limit so startup
// never trips the exchange's REST weight rules.
type limitedSource struct {
	inner   InfoSource
	limiter *rate.Limiter
}

// Limited caps the wrapped source at rps requests per second.
func Limited(inner InfoSource, rps int) InfoSource {
	if rps < 1 {
		rps = 1
	}
	return &limitedSource{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

func (s *limitedSource) SpotPairs(ctx context.Context) ([]string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return s.inner.SpotPairs(ctx)
}

func (s *limitedSource) FuturesPairs(ctx context.Context) ([]string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return s.inner.FuturesPairs(ctx)
}
