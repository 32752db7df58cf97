package calculator

import (
	"math"

	"SignalDesk/internal/model"
)

// Direction values stored in the supertrend direction series.
const (
	DirectionBearish = 0.0
	DirectionBullish = 1.0
)

// SupertrendOutput holds the supertrend line, its direction (1 bullish, 0 bearish)
// and the bands it was derived from.
type SupertrendOutput struct {
	Line      Series
	Direction Series
	Upper     Series
	Lower     Series
}

// Supertrend follows price with ATR bands and flips direction only when the close
// breaks the opposite band of the previous bar.
type Supertrend struct {
	State
	Period     int
	Multiplier float64

	bands     *ATRBands
	line, dir Series
}

// NewSupertrend creates a supertrend calculator. Non-positive arguments take the defaults 10 and 3.
func NewSupertrend(period int, multiplier float64) *Supertrend {
	if period <= 0 {
		period = 10
	}
	if multiplier <= 0 {
		multiplier = 3
	}
	return &Supertrend{
		State:      newState(),
		Period:     period,
		Multiplier: multiplier,
		bands:      NewATRBands(period, multiplier),
	}
}

// Calculate updates the supertrend for bars. Output is defined from index Period.
func (s *Supertrend) Calculate(bars model.BarSeries) SupertrendOutput {
	n := len(bars)
	from, reset := s.begin(bars)
	if reset {
		s.bands.Reset()
	}
	b := s.bands.Calculate(bars)

	s.line = resize(s.line, n, reset)
	s.dir = resize(s.dir, n, reset)

	for i := from; i < n; i++ {
		if i < s.Period {
			s.line[i] = math.NaN()
			s.dir[i] = math.NaN()
			continue
		}
		prev := DirectionBullish
		if i > s.Period {
			prev = s.dir[i-1]
		}
		c := bars[i].Close
		switch {
		case c > b.Upper[i-1]:
			s.dir[i] = DirectionBullish
		case c < b.Lower[i-1]:
			s.dir[i] = DirectionBearish
		default:
			s.dir[i] = prev
		}
		if s.dir[i] == DirectionBullish {
			s.line[i] = b.Lower[i]
		} else {
			s.line[i] = b.Upper[i]
		}
	}

	s.commit(bars)
	return SupertrendOutput{Line: s.line.view(n), Direction: s.dir.view(n), Upper: b.Upper, Lower: b.Lower}
}

// Bullish reports whether the last bar's direction is bullish.
func (o SupertrendOutput) Bullish() bool { return o.Direction.Last() == DirectionBullish }

// Bearish reports whether the last bar's direction is bearish.
func (o SupertrendOutput) Bearish() bool { return o.Direction.Last() == DirectionBearish }
