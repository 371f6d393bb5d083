package trade

import (
	"context"
	"fmt"
	"strconv"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/google/uuid"

	appconfig "newsflow/config"
	"newsflow/logger"
)

// leverageTiers are the selectable leverage settings, lowest first. When the
// exchange rejects a tier for a symbol the next lower one is tried.
var leverageTiers = []int{2, 5, 7, 10, 20, 25, 50}

// Binance submits market orders on USDT-margined futures. The quantity
// precision of every symbol is fetched once at construction; order sizes are
// rounded to it before submission.
type Binance struct {
	client    *futures.Client
	precision map[string]int
	log       *logger.Log
}

// NewBinance builds the futures trading client. The testnet toggle is
// process-wide, switching it requires a new client.
func NewBinance(ctx context.Context, cfg *appconfig.Config) (*Binance, error) {
	futures.UseTestnet = cfg.Trading.Testnet
	client := futures.NewClient(cfg.Trading.APIKey, cfg.Trading.APISecret)

	info, err := client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch futures exchange info: %w", err)
	}
	precision := make(map[string]int, len(info.Symbols))
	for _, sym := range info.Symbols {
		precision[sym.Symbol] = sym.QuantityPrecision
	}

	log := logger.GetLogger()
	log.WithComponent("binance_trader").WithFields(logger.Fields{
		"testnet": cfg.Trading.Testnet,
		"symbols": len(precision),
	}).Info("binance trading client initialized")

	return &Binance{
		client:    client,
		precision: precision,
		log:       log,
	}, nil
}

// FuturesBalance returns the futures wallet balance of one asset.
func (b *Binance) FuturesBalance(ctx context.Context, asset string) (float64, error) {
	balances, err := b.client.NewGetBalanceService().Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch futures balance: %w", err)
	}
	for _, balance := range balances {
		if balance.Asset == asset {
			v, err := strconv.ParseFloat(balance.Balance, 64)
			if err != nil {
				return 0, fmt.Errorf("unparseable balance %q for %s: %w", balance.Balance, asset, err)
			}
			return v, nil
		}
	}
	return 0, nil
}

// MarkPrice returns the current futures mark price of a symbol.
func (b *Binance) MarkPrice(ctx context.Context, symbol string) (float64, error) {
	prices, err := b.client.NewPremiumIndexService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch mark price for %s: %w", symbol, err)
	}
	if len(prices) == 0 {
		return 0, fmt.Errorf("no mark price returned for %s", symbol)
	}
	v, err := strconv.ParseFloat(prices[0].MarkPrice, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable mark price %q for %s: %w", prices[0].MarkPrice, symbol, err)
	}
	return v, nil
}

// EnsureLeverage applies the requested leverage to a symbol, stepping down
// through the lower tiers when the exchange rejects it. Returns the tier
// that was accepted.
func (b *Binance) EnsureLeverage(ctx context.Context, symbol string, leverage int) (int, error) {
	log := b.log.WithComponent("binance_trader").WithFields(logger.Fields{"symbol": symbol})

	for tier := highestTierAtMost(leverage); tier >= 0; tier-- {
		setting, err := b.client.NewChangeLeverageService().
			Symbol(symbol).
			Leverage(leverageTiers[tier]).
			Do(ctx)
		if err != nil {
			log.WithError(err).WithFields(logger.Fields{
				"leverage": leverageTiers[tier],
			}).Warn("leverage tier rejected, reducing")
			continue
		}
		log.WithFields(logger.Fields{
			"leverage":     setting.Leverage,
			"max_notional": setting.MaxNotionalValue,
		}).Info("leverage applied")
		return setting.Leverage, nil
	}
	return 0, fmt.Errorf("no leverage tier accepted for %s", symbol)
}

// PositionSize converts a notional bid into a symbol quantity at the current
// mark price, rounded to the symbol's quantity precision.
func (b *Binance) PositionSize(ctx context.Context, symbol string, notional float64, leverage int) (string, error) {
	price, err := b.MarkPrice(ctx, symbol)
	if err != nil {
		return "", err
	}
	if price <= 0 {
		return "", fmt.Errorf("non-positive mark price for %s", symbol)
	}
	precision, ok := b.precision[symbol]
	if !ok {
		return "", fmt.Errorf("unknown quantity precision for %s", symbol)
	}
	qty := notional * float64(leverage) / price
	return strconv.FormatFloat(qty, 'f', precision, 64), nil
}

// Submit places a market order for the command. Implements the Submitter
// interface of the confirmation machine.
func (b *Binance) Submit(ctx context.Context, cmd OrderCommand) (Receipt, error) {
	quantity, err := b.PositionSize(ctx, cmd.Symbol, cmd.NotionalSize, cmd.Leverage)
	if err != nil {
		return Receipt{}, err
	}

	side := futures.SideTypeBuy
	if cmd.Side == Short {
		side = futures.SideTypeSell
	}

	order, err := b.client.NewCreateOrderService().
		Symbol(cmd.Symbol).
		Side(side).
		Type(futures.OrderTypeMarket).
		Quantity(quantity).
		NewClientOrderID("newsflow-" + uuid.NewString()).
		Do(ctx)
	if err != nil {
		return Receipt{}, fmt.Errorf("failed to create %s order for %s: %w", cmd.Side, cmd.Symbol, err)
	}

	return Receipt{
		OrderID:       order.OrderID,
		ClientOrderID: order.ClientOrderID,
		Symbol:        order.Symbol,
		Quantity:      order.OrigQuantity,
		Status:        string(order.Status),
		UpdateTime:    order.UpdateTime,
	}, nil
}

func highestTierAtMost(leverage int) int {
	best := -1
	for i, tier := range leverageTiers {
		if tier <= leverage {
			best = i
		}
	}
	return best
}
