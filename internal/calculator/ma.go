package calculator

import (
	"errors"

	talib "github.com/markcheno/go-talib"
)

// CalculateSMA computes the simple moving average of the given prices over the specified period.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	out := talib.Sma(prices[len(prices)-period:], period)
	return out[period-1], nil
}

// SMA returns the rolling simple moving average of values.
func SMA(values []float64, period int) Series {
	out := NaNSeries(len(values))
	if period <= 0 {
		return out
	}
	rollingMean(out, Series(values), period, 0)
	return out
}

// EMA returns the exponential moving average with span period (alpha = 2/(period+1)),
// seeded from the first value rather than an initial SMA. Values before index
// period-1 are NaN.
func EMA(values []float64, period int) Series {
	n := len(values)
	raw := NaNSeries(n)
	out := NaNSeries(n)
	if period <= 0 {
		return out
	}
	ewm(raw, Series(values), 2/float64(period+1), 0)
	maskBefore(out, raw, period-1, 0)
	return out
}
