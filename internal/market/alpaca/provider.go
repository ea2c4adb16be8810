// Package alpaca serves daily bars from the Alpaca market data API.
package alpaca

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"github.com/blood8879/turtle-canslim/internal/market"
)

// Provider implements market.Provider over Alpaca daily bars.
type Provider struct {
	client *marketdata.Client
}

var _ market.Provider = (*Provider)(nil)

// NewProvider builds a provider over a default-configured market data client; the
// SDK reads APCA_* credentials from the environment.
func NewProvider() *Provider {
	return &Provider{client: marketdata.NewClient(marketdata.ClientOpts{})}
}

// GetBars returns the trailing lookback daily bars for the symbol, oldest first.
// Calendar days roughly map 7:5 onto trading days, so the request window is padded
// before trimming to the exact lookback.
func (p *Provider) GetBars(ctx context.Context, symbol string, lookback int) ([]market.PriceBar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now().AddDate(0, 0, -(lookback*7/5 + 10))
	bars, err := p.client.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     start,
	})
	if err != nil {
		return nil, fmt.Errorf("alpaca get bars %s: %w", symbol, err)
	}
	if len(bars) < lookback {
		return nil, market.ErrNoData
	}
	bars = bars[len(bars)-lookback:]

	out := make([]market.PriceBar, 0, len(bars))
	for _, b := range bars {
		out = append(out, market.PriceBar{
			Date:   b.Timestamp,
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: int64(b.Volume),
		})
	}
	return out, nil
}
