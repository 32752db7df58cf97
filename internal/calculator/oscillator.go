package calculator

import (
	"math"

	talib "github.com/markcheno/go-talib"

	"SignalDesk/internal/model"
)

// MACDOutput holds the MACD line, its signal line and their difference.
type MACDOutput struct {
	MACD      Series
	Signal    Series
	Histogram Series
}

// MACD computes EMA(fast) - EMA(slow) with an EMA(signal) of the result, on
// first-value-seeded EMAs.
func MACD(closes []float64, fast, slow, signal int) MACDOutput {
	n := len(closes)
	f := EMA(closes, fast)
	s := EMA(closes, slow)
	line := NaNSeries(n)
	for i := range line {
		line[i] = f[i] - s[i]
	}
	sig := EMA(line, signal)
	hist := NaNSeries(n)
	for i := range hist {
		hist[i] = line[i] - sig[i]
	}
	return MACDOutput{MACD: line, Signal: sig, Histogram: hist}
}

// CCI computes the commodity channel index over typical price with the 0.015
// scaling constant. Values before index period-1 are NaN.
func CCI(bars model.BarSeries, period int) Series {
	n := len(bars)
	if period <= 0 || n < period {
		return NaNSeries(n)
	}
	out := Series(talib.Cci(bars.Highs(), bars.Lows(), bars.Closes(), period))
	maskWarmup(out, period-1)
	return out
}

// WilliamsR computes Williams %R over period bars, in [-100, 0]. A window with
// no price range yields NaN.
func WilliamsR(bars model.BarSeries, period int) Series {
	n := len(bars)
	if period <= 0 || n < period {
		return NaNSeries(n)
	}
	highs, lows := bars.Highs(), bars.Lows()
	out := Series(talib.WillR(highs, lows, bars.Closes(), period))
	maskWarmup(out, period-1)

	hh, ll := NaNSeries(n), NaNSeries(n)
	rollingMax(hh, highs, period, 0)
	rollingMin(ll, lows, period, 0)
	for i := range out {
		if hh[i] == ll[i] {
			out[i] = math.NaN()
		}
	}
	return out
}

// maskWarmup replaces the zero padding before index first with NaN.
func maskWarmup(s Series, first int) {
	for i := 0; i < first && i < len(s); i++ {
		s[i] = math.NaN()
	}
}

// BullBearPower returns high - EMA(period) and low - EMA(period).
func BullBearPower(bars model.BarSeries, period int) (bull, bear Series) {
	n := len(bars)
	ema := EMA(bars.Closes(), period)
	bull = NaNSeries(n)
	bear = NaNSeries(n)
	for i, b := range bars {
		bull[i] = b.High - ema[i]
		bear[i] = b.Low - ema[i]
	}
	return bull, bear
}

// Difference returns a - b elementwise.
func Difference(a, b Series) Series {
	out := NaNSeries(len(a))
	for i := range out {
		out[i] = a[i] - b.At(i)
	}
	return out
}
