package calculator

import (
	talib "github.com/markcheno/go-talib"

	"SignalDesk/internal/model"
)

// Bands holds an ATR series with the bands it spans around the bar midpoint.
type Bands struct {
	ATR   Series
	Upper Series
	Lower Series
}

// ATRBands computes ATR with Wilder-style exponential smoothing (alpha = 1/Period)
// and bands at (high+low)/2 ± Multiplier*ATR.
type ATRBands struct {
	State
	Period     int
	Multiplier float64

	tr, smooth   Series
	atr          Series
	upper, lower Series
}

// NewATRBands creates an ATR band calculator. Non-positive arguments take the defaults 7 and 2.3.
func NewATRBands(period int, multiplier float64) *ATRBands {
	if period <= 0 {
		period = 7
	}
	if multiplier <= 0 {
		multiplier = 2.3
	}
	return &ATRBands{State: newState(), Period: period, Multiplier: multiplier}
}

// Calculate updates the ATR and bands for bars. ATR is defined from index Period-1.
func (b *ATRBands) Calculate(bars model.BarSeries) Bands {
	n := len(bars)
	from, reset := b.begin(bars)

	b.tr = resize(b.tr, n, reset)
	b.smooth = resize(b.smooth, n, reset)
	b.atr = resize(b.atr, n, reset)
	b.upper = resize(b.upper, n, reset)
	b.lower = resize(b.lower, n, reset)

	fillTrueRange(b.tr, bars, from)
	ewm(b.smooth, b.tr, 1/float64(b.Period), from)
	maskBefore(b.atr, b.smooth, b.Period-1, from)
	for i := from; i < n; i++ {
		mid := (bars[i].High + bars[i].Low) / 2
		b.upper[i] = mid + b.Multiplier*b.atr[i]
		b.lower[i] = mid - b.Multiplier*b.atr[i]
	}

	b.commit(bars)
	return Bands{ATR: b.atr.view(n), Upper: b.upper.view(n), Lower: b.lower.view(n)}
}

// TrueRange returns the true range of every bar. The first bar uses high-low.
func TrueRange(bars model.BarSeries) Series {
	out := Series(talib.TRange(bars.Highs(), bars.Lows(), bars.Closes()))
	if len(bars) > 0 {
		out[0] = bars[0].High - bars[0].Low
	}
	return out
}

// fillTrueRange writes the true range of bars[from:] into dst.
func fillTrueRange(dst Series, bars model.BarSeries, from int) {
	start := from - 1
	if start < 0 {
		start = 0
	}
	tr := TrueRange(bars[start:])
	for i := from; i < len(bars); i++ {
		dst[i] = tr[i-start]
	}
}

// SimpleATR is the plain rolling mean of the true range over period bars.
func SimpleATR(bars model.BarSeries, period int) Series {
	out := NaNSeries(len(bars))
	if period <= 0 {
		return out
	}
	rollingMean(out, TrueRange(bars), period, 0)
	return out
}
