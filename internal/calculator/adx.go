package calculator

import (
	"math"

	"SignalDesk/internal/model"
)

// DMI holds the directional movement outputs.
type DMI struct {
	PlusDI  Series
	MinusDI Series
	ADX     Series
}

// ADX computes +DI, -DI and ADX with rolling-sum smoothing.
type ADX struct {
	State
	Period int

	tr, plusDM, minusDM    Series
	sTR, sPlusDM, sMinusDM Series
	plusDI, minusDI        Series
	dx, adx                Series
}

// NewADX creates an ADX calculator.
func NewADX(period int) *ADX {
	if period <= 0 {
		period = 14
	}
	return &ADX{State: newState(), Period: period}
}

// Calculate updates the indicator for bars and returns views of its outputs.
// ADX is defined from index 2*Period-2.
func (a *ADX) Calculate(bars model.BarSeries) DMI {
	n := len(bars)
	from, reset := a.begin(bars)

	a.tr = resize(a.tr, n, reset)
	a.plusDM = resize(a.plusDM, n, reset)
	a.minusDM = resize(a.minusDM, n, reset)
	a.sTR = resize(a.sTR, n, reset)
	a.sPlusDM = resize(a.sPlusDM, n, reset)
	a.sMinusDM = resize(a.sMinusDM, n, reset)
	a.plusDI = resize(a.plusDI, n, reset)
	a.minusDI = resize(a.minusDI, n, reset)
	a.dx = resize(a.dx, n, reset)
	a.adx = resize(a.adx, n, reset)

	fillTrueRange(a.tr, bars, from)
	for i := from; i < n; i++ {
		if i == 0 {
			a.plusDM[0], a.minusDM[0] = 0, 0
			continue
		}
		up := bars[i].High - bars[i-1].High
		down := bars[i-1].Low - bars[i].Low
		a.plusDM[i], a.minusDM[i] = 0, 0
		if up > down && up > 0 {
			a.plusDM[i] = up
		}
		if down > up && down > 0 {
			a.minusDM[i] = down
		}
	}

	p := a.Period
	rollingSum(a.sTR, a.tr, p, from)
	rollingSum(a.sPlusDM, a.plusDM, p, from)
	rollingSum(a.sMinusDM, a.minusDM, p, from)

	for i := from; i < n; i++ {
		a.plusDI[i] = ratio(a.sPlusDM[i], a.sTR[i])
		a.minusDI[i] = ratio(a.sMinusDM[i], a.sTR[i])
		a.dx[i] = ratio(math.Abs(a.plusDI[i]-a.minusDI[i]), a.plusDI[i]+a.minusDI[i])
	}
	rollingMean(a.adx, a.dx, p, from)

	a.commit(bars)
	return DMI{PlusDI: a.plusDI.view(n), MinusDI: a.minusDI.view(n), ADX: a.adx.view(n)}
}

// Strength returns the ADX series from the last calculation.
func (a *ADX) Strength() Series { return a.adx.view(len(a.adx)) }
