package calculator

import "SignalDesk/internal/model"

// StochasticOutput holds %K and %D.
type StochasticOutput struct {
	K Series
	D Series
}

// Stochastic computes the slow stochastic oscillator.
type Stochastic struct {
	State
	KPeriod int
	KSmooth int
	DPeriod int

	high, low, close Series
	highest, lowest  Series
	raw, k, d        Series
}

// NewStochastic creates a stochastic calculator. Non-positive arguments take the defaults 7/3/3.
func NewStochastic(kPeriod, kSmooth, dPeriod int) *Stochastic {
	if kPeriod <= 0 {
		kPeriod = 7
	}
	if kSmooth <= 0 {
		kSmooth = 3
	}
	if dPeriod <= 0 {
		dPeriod = 3
	}
	return &Stochastic{State: newState(), KPeriod: kPeriod, KSmooth: kSmooth, DPeriod: dPeriod}
}

// Calculate updates %K and %D for bars. A window with no price range yields NaN.
func (s *Stochastic) Calculate(bars model.BarSeries) StochasticOutput {
	n := len(bars)
	from, reset := s.begin(bars)

	s.high = resize(s.high, n, reset)
	s.low = resize(s.low, n, reset)
	s.close = resize(s.close, n, reset)
	s.highest = resize(s.highest, n, reset)
	s.lowest = resize(s.lowest, n, reset)
	s.raw = resize(s.raw, n, reset)
	s.k = resize(s.k, n, reset)
	s.d = resize(s.d, n, reset)

	for i := from; i < n; i++ {
		s.high[i] = bars[i].High
		s.low[i] = bars[i].Low
		s.close[i] = bars[i].Close
	}
	rollingMax(s.highest, s.high, s.KPeriod, from)
	rollingMin(s.lowest, s.low, s.KPeriod, from)
	for i := from; i < n; i++ {
		s.raw[i] = ratio(s.close[i]-s.lowest[i], s.highest[i]-s.lowest[i])
	}
	rollingMean(s.k, s.raw, s.KSmooth, from)
	rollingMean(s.d, s.k, s.DPeriod, from)

	s.commit(bars)
	return StochasticOutput{K: s.k.view(n), D: s.d.view(n)}
}
