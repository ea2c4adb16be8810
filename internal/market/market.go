// Package market defines the price-history boundary the trading core reads through.
package market

import (
	"context"
	"errors"
	"time"
)

// ErrNoData indicates the provider cannot satisfy the requested lookback.
var ErrNoData = errors.New("market: insufficient price history")

// PriceBar is one completed (or in-progress, when last) instrument-day.
type PriceBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Provider serves trailing daily bars, oldest first. Implementations must return
// ErrNoData when fewer than lookback bars exist for the symbol.
type Provider interface {
	GetBars(ctx context.Context, symbol string, lookback int) ([]PriceBar, error)
}

// Highs extracts the high column from a bar window.
func Highs(bars []PriceBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.High
	}
	return out
}

// Lows extracts the low column from a bar window.
func Lows(bars []PriceBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Low
	}
	return out
}

// Closes extracts the close column from a bar window.
func Closes(bars []PriceBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}
