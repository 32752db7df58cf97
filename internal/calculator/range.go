package calculator

import (
	"errors"

	talib "github.com/markcheno/go-talib"

	"SignalDesk/internal/model"
)

// HighLow returns the highest high and lowest low of the most recent lookback bars.
// A non-positive lookback scans the whole series.
func HighLow(bars model.BarSeries, lookback int) (high, low float64, err error) {
	if len(bars) == 0 {
		return 0, 0, errors.New("no bars provided")
	}
	n := len(bars)
	if lookback <= 0 || lookback > n {
		lookback = n
	}
	window := bars[n-lookback:]
	return rollingLast(window.Highs(), lookback, talib.Max), rollingLast(window.Lows(), lookback, talib.Min), nil
}

// rollingLast applies fn over a single window covering all of values.
func rollingLast(values []float64, w int, fn func([]float64, int) []float64) float64 {
	if w == 1 {
		return values[0]
	}
	out := fn(values, w)
	return out[len(out)-1]
}

// rollingMax fills dst[from:] with the highest of the trailing w values of src.
func rollingMax(dst, src Series, w, from int) {
	rolling(dst, src, w, from, extreme(talib.Max))
}

// rollingMin fills dst[from:] with the lowest of the trailing w values of src.
func rollingMin(dst, src Series, w, from int) {
	rolling(dst, src, w, from, extreme(talib.Min))
}

// extreme adapts a talib max/min, which leaves single-value windows at zero.
func extreme(fn func([]float64, int) []float64) func([]float64, int) []float64 {
	return func(in []float64, w int) []float64 {
		if w == 1 {
			return in
		}
		return fn(in, w)
	}
}
