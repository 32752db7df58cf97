package calculator

import (
	"math"

	"SignalDesk/internal/model"
)

// RSI computes the relative strength index from rolling means of gains and losses.
type RSI struct {
	State
	Period int

	gain, loss       Series
	avgGain, avgLoss Series
	rsi              Series
}

// NewRSI creates an RSI calculator.
func NewRSI(period int) *RSI {
	if period <= 0 {
		period = 14
	}
	return &RSI{State: newState(), Period: period}
}

// Calculate updates the RSI for bars. RSI is defined from index Period-1; it is
// 100 when the window holds only gains and NaN when price did not move at all.
func (r *RSI) Calculate(bars model.BarSeries) Series {
	n := len(bars)
	from, reset := r.begin(bars)

	r.gain = resize(r.gain, n, reset)
	r.loss = resize(r.loss, n, reset)
	r.avgGain = resize(r.avgGain, n, reset)
	r.avgLoss = resize(r.avgLoss, n, reset)
	r.rsi = resize(r.rsi, n, reset)

	for i := from; i < n; i++ {
		r.gain[i], r.loss[i] = 0, 0
		if i == 0 {
			continue
		}
		d := bars[i].Close - bars[i-1].Close
		if d > 0 {
			r.gain[i] = d
		} else if d < 0 {
			r.loss[i] = -d
		}
	}
	rollingMean(r.avgGain, r.gain, r.Period, from)
	rollingMean(r.avgLoss, r.loss, r.Period, from)
	for i := from; i < n; i++ {
		r.rsi[i] = rsiValue(r.avgGain[i], r.avgLoss[i])
	}

	r.commit(bars)
	return r.rsi.view(n)
}

func rsiValue(gain, loss float64) float64 {
	switch {
	case math.IsNaN(gain) || math.IsNaN(loss):
		return math.NaN()
	case loss == 0 && gain == 0:
		return math.NaN()
	case loss == 0:
		return 100
	}
	return 100 - 100/(1+gain/loss)
}
