package risk

import "errors"

// ErrInvalidStop indicates a stop at or above the entry price, which admits no
// long position size.
var ErrInvalidStop = errors.New("risk: stop must be below entry price")

// Sizer converts account value and stop distance into a share quantity so a full
// adverse move to the stop loses exactly RiskPerUnit of the account.
type Sizer struct {
	RiskPerUnit float64 // fraction of account value risked per Unit, default 0.02
}

// PositionSize returns the whole-share quantity for one Unit. A zero quantity is a
// valid outcome: the risk budget cannot afford a single share.
func (s Sizer) PositionSize(accountValue, entry, stop float64) (int64, error) {
	riskPerShare := entry - stop
	if riskPerShare <= 0 {
		return 0, ErrInvalidStop
	}
	budget := accountValue * s.RiskPerUnit
	return int64(budget / riskPerShare), nil
}
