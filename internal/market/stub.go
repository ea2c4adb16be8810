package market

import (
	"context"
	"math"
	"sync"
	"time"
)

// StubProvider serves bars from memory. It backs tests and paper sessions the same
// way the live provider backs real ones, so the core never branches on the source.
type StubProvider struct {
	mu   sync.RWMutex
	bars map[string][]PriceBar
}

// NewStubProvider returns an empty in-memory provider.
func NewStubProvider() *StubProvider {
	return &StubProvider{bars: make(map[string][]PriceBar)}
}

// SetBars replaces the stored series for a symbol.
func (s *StubProvider) SetBars(symbol string, bars []PriceBar) {
	s.mu.Lock()
	s.bars[symbol] = bars
	s.mu.Unlock()
}

// Append adds one bar to the end of a symbol's series.
func (s *StubProvider) Append(symbol string, bar PriceBar) {
	s.mu.Lock()
	s.bars[symbol] = append(s.bars[symbol], bar)
	s.mu.Unlock()
}

// LastClose returns the most recent close for a symbol, or 0 when no bars exist.
func (s *StubProvider) LastClose(symbol string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	series := s.bars[symbol]
	if len(series) == 0 {
		return 0
	}
	return series[len(series)-1].Close
}

// GetBars returns the trailing lookback bars for the symbol, oldest first.
func (s *StubProvider) GetBars(ctx context.Context, symbol string, lookback int) ([]PriceBar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	series := s.bars[symbol]
	if len(series) < lookback {
		return nil, ErrNoData
	}
	out := make([]PriceBar, lookback)
	copy(out, series[len(series)-lookback:])
	return out, nil
}

// SyntheticBars builds a deterministic daily series useful for offline runs: a slow
// sine drift around base with range width proportional to base.
func SyntheticBars(base float64, days int, start time.Time) []PriceBar {
	bars := make([]PriceBar, 0, days)
	for i := 0; i < days; i++ {
		mid := base * (1 + 0.05*math.Sin(float64(i)/9))
		span := base * 0.015
		bars = append(bars, PriceBar{
			Date:   start.AddDate(0, 0, i),
			Open:   mid - span/4,
			High:   mid + span/2,
			Low:    mid - span/2,
			Close:  mid + span/4,
			Volume: 1_000_000,
		})
	}
	return bars
}
