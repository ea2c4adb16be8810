// Package indicator holds the pure price math behind the turtle rules: true range,
// the smoothed daily range N, and Donchian channel extremes.
package indicator

import (
	"errors"
	"math"

	"github.com/blood8879/turtle-canslim/internal/market"
)

// ErrInsufficientHistory indicates fewer bars than the calculation requires.
var ErrInsufficientHistory = errors.New("indicator: insufficient history")

// TrueRange is the widest of the day's range and the gaps against the previous close.
func TrueRange(high, low, prevClose float64) float64 {
	tr := high - low
	if v := math.Abs(high - prevClose); v > tr {
		tr = v
	}
	if v := math.Abs(low - prevClose); v > tr {
		tr = v
	}
	return tr
}

// N computes the simple moving average of true range over the most recent `period`
// complete days. The last bar is treated as the current, possibly incomplete day and
// is excluded, so at least period+1 complete bars must precede it.
func N(bars []market.PriceBar, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("indicator: period must be positive")
	}
	complete := bars[:max(len(bars)-1, 0)]
	if len(complete) < period+1 {
		return 0, ErrInsufficientHistory
	}
	var sum float64
	for i := len(complete) - period; i < len(complete); i++ {
		sum += TrueRange(complete[i].High, complete[i].Low, complete[i-1].Close)
	}
	return sum / float64(period), nil
}

// HighestHigh returns the maximum of the trailing `period` values, excluding the
// final element (today).
func HighestHigh(highs []float64, period int) (float64, error) {
	return channelExtreme(highs, period, true)
}

// LowestLow returns the minimum of the trailing `period` values, excluding the
// final element (today).
func LowestLow(lows []float64, period int) (float64, error) {
	return channelExtreme(lows, period, false)
}

func channelExtreme(values []float64, period int, wantMax bool) (float64, error) {
	if period <= 0 {
		return 0, errors.New("indicator: period must be positive")
	}
	prior := values[:max(len(values)-1, 0)]
	if len(prior) < period {
		return 0, ErrInsufficientHistory
	}
	window := prior[len(prior)-period:]
	extreme := window[0]
	for _, v := range window[1:] {
		if wantMax && v > extreme {
			extreme = v
		}
		if !wantMax && v < extreme {
			extreme = v
		}
	}
	return extreme, nil
}
