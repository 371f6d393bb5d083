package symbols

import (
	"context"
	"fmt"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/futures"
)

// BinanceSource lists pairs from the public exchange-info endpoints. No
// credentials needed, listings are public.
type BinanceSource struct {
	spot    *binance.Client
	futures *futures.Client
}

func NewBinanceSource() *BinanceSource {
	return &BinanceSource{
		spot:    binance.NewClient("", ""),
		futures: futures.NewClient("", ""),
	}
}

func (s *BinanceSource) SpotPairs(ctx context.Context) ([]string, error) {
	info, err := s.spot.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("spot exchange info: %w", err)
	}
	pairs := make([]string, 0, len(info.Symbols))
	for _, sym := range info.Symbols {
		pairs = append(pairs, sym.Symbol)
	}
	return pairs, nil
}

func (s *BinanceSource) FuturesPairs(ctx context.Context) ([]string, error) {
	info, err := s.futures.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("futures exchange info: %w", err)
	}
	pairs := make([]string, 0, len(info.Symbols))
	for _, sym := range info.Symbols {
		pairs = append(pairs, sym.Symbol)
	}
	return pairs, nil
}
