package strategy

import (
	"math"

	"SignalDesk/internal/calculator"
	"SignalDesk/internal/crossover"
	"SignalDesk/internal/model"
)

// compositeWeight is how many votes a non-neutral dual-supertrend signal adds to the tally.
const compositeWeight = 2

// DualSupertrendParams tunes the dual-supertrend strategy.
type DualSupertrendParams struct {
	SlowPeriod            int
	SlowMultiplier        float64
	FastPeriod            int
	FastMultiplier        float64
	ConfirmationThreshold int
	ExitThreshold         int
	RSIOverbought         float64
	RSIOversold           float64
	TrendStrength         float64
	StopMultiplier        float64
	TargetMultiplier      float64
}

// DefaultDualSupertrendParams returns the stock parameters.
func DefaultDualSupertrendParams() DualSupertrendParams {
	return DualSupertrendParams{
		SlowPeriod:            15,
		SlowMultiplier:        3.142,
		FastPeriod:            6,
		FastMultiplier:        0.66,
		ConfirmationThreshold: 3,
		ExitThreshold:         2,
		RSIOverbought:         70,
		RSIOversold:           30,
		TrendStrength:         25,
		StopMultiplier:        2.0,
		TargetMultiplier:      3.0,
	}
}

// DualSupertrend requires two supertrends to agree and counts RSI, MACD and ADX
// confirmations on top of them.
type DualSupertrend struct {
	params DualSupertrendParams

	slow *calculator.Supertrend
	fast *calculator.Supertrend
	rsi  *calculator.RSI
	adx  *calculator.ADX
	stoc *calculator.Stochastic
}

// NewDualSupertrend creates the strategy with default parameters.
func NewDualSupertrend() *DualSupertrend {
	return NewDualSupertrendWith(DefaultDualSupertrendParams())
}

// NewDualSupertrendWith creates the strategy with p.
func NewDualSupertrendWith(p DualSupertrendParams) *DualSupertrend {
	return &DualSupertrend{
		params: p,
		slow:   calculator.NewSupertrend(p.SlowPeriod, p.SlowMultiplier),
		fast:   calculator.NewSupertrend(p.FastPeriod, p.FastMultiplier),
		rsi:    calculator.NewRSI(14),
		adx:    calculator.NewADX(14),
		stoc:   calculator.NewStochastic(14, 3, 3),
	}
}

func (s *DualSupertrend) Name() string { return DualSupertrendName }

// confirmations holds the inputs of the confirmation count for the last bar.
type confirmations struct {
	slowBullish, slowBearish bool
	fastBullish, fastBearish bool
	rsi, macd, adx           float64
}

// count applies the confirmation rules. Undefined inputs never confirm.
func (s *DualSupertrend) count(c confirmations) model.Confirmations {
	var out model.Confirmations
	p := s.params
	if c.slowBullish && c.fastBullish {
		out.Buy += 2
		if c.rsi < p.RSIOverbought {
			out.Buy++
		}
		if c.macd > 0 {
			out.Buy++
		}
		if c.adx > p.TrendStrength {
			out.Buy++
		}
		return out
	}
	if c.slowBearish || c.fastBearish {
		if c.slowBearish {
			out.Sell++
		}
		if c.fastBearish {
			out.Sell++
		}
		if c.rsi > p.RSIOversold {
			out.Sell++
		}
		if c.macd < 0 {
			out.Sell++
		}
		if c.adx > p.TrendStrength {
			out.Sell++
		}
	}
	return out
}

// grade turns confirmation counts into a signal strength.
func (s *DualSupertrend) grade(c model.Confirmations) model.SignalStrength {
	conf, exit := s.params.ConfirmationThreshold, s.params.ExitThreshold
	switch {
	case c.Buy >= conf+1:
		return model.StrongBuy
	case c.Buy >= conf:
		return model.Buy
	case c.Sell >= exit+2:
		return model.StrongSell
	case c.Sell >= exit:
		return model.Sell
	default:
		return model.NeutralSignal
	}
}

// compositeVote adds the composite signal to t.
func compositeVote(t *model.SignalTally, sig model.SignalStrength) {
	switch sig {
	case model.StrongBuy, model.Buy:
		t.Buy += compositeWeight
	case model.StrongSell, model.Sell:
		t.Sell += compositeWeight
	default:
		t.Neutral++
	}
}

func (s *DualSupertrend) Analyze(bars model.BarSeries, env Env) (*Analysis, error) {
	if len(bars) == 0 {
		return nil, ErrNoBars
	}
	closes := bars.Closes()
	price := closes[len(closes)-1]

	slow := s.slow.Calculate(bars)
	fast := s.fast.Calculate(bars)
	rsi := s.rsi.Calculate(bars)
	dmi := s.adx.Calculate(bars)
	stoch := s.stoc.Calculate(bars)
	macd := calculator.MACD(closes, 12, 26, 9)
	atr14 := calculator.SimpleATR(bars, 14)
	atr21 := calculator.SimpleATR(bars, 21)

	frame := calculator.NewFrame(bars)
	frame.Set(ColSupertrend, slow.Line)
	frame.Set(ColDirection, slow.Direction)
	frame.Set(ColUpperBand, slow.Upper)
	frame.Set(ColLowerBand, slow.Lower)
	frame.Set("supertrend_fast", fast.Line)
	frame.Set("direction_fast", fast.Direction)
	frame.Set(ColRSI, rsi)
	frame.Set(ColPlusDI, dmi.PlusDI)
	frame.Set(ColMinusDI, dmi.MinusDI)
	frame.Set(ColADX, dmi.ADX)
	frame.Set(ColK, stoch.K)
	frame.Set(ColD, stoch.D)
	frame.Set(ColATR, atr14)
	frame.Set("atr_21", atr21)
	frame.Set("macd", macd.MACD)
	frame.Set("macd_signal", macd.Signal)

	conf := s.count(confirmations{
		slowBullish: slow.Bullish(),
		slowBearish: slow.Bearish(),
		fastBullish: fast.Bullish(),
		fastBearish: fast.Bearish(),
		rsi:         rsi.Last(),
		macd:        macd.MACD.Last(),
		adx:         dmi.ADX.Last(),
	})
	signal := s.grade(conf)

	oscillators := []model.OscillatorReading{
		reading(NameRSI, rsi, statusRSI),
		reading(NameMACD, macd.MACD, statusMACD),
		trendReading(dmi.ADX, s.params.TrendStrength),
		reading(NameStochastic, stoch.K, statusStochastic),
	}
	t := tally(oscillators)
	compositeVote(&t, signal)

	a := &Analysis{
		Indicators:    frame.Snapshot(),
		Oscillators:   oscillators,
		Tally:         t,
		Sentiment:     t.Sentiment(),
		Signal:        signal,
		Confirmations: &conf,
		Risk:          s.risk(price, atr14.Last(), atr21.Last()),
		Rules:         ruleReports(bars, frame, env.Rules),
		Frame:         frame,
	}

	det := crossover.NewDetector(env.Crossover, s.adx)
	det.Detect(bars, fast.Direction, nil, crossover.Direction)
	if ev, ok := det.Latest(); ok {
		a.LatestCrossover = &ev
	}
	return a, nil
}

func (s *DualSupertrend) risk(price, atr14, atr21 float64) *model.RiskBands {
	if math.IsNaN(atr14) || math.IsNaN(atr21) {
		return nil
	}
	return &model.RiskBands{
		ATR:             atr14,
		StopLossLong:    price - s.params.StopMultiplier*atr14,
		TakeProfitLong:  price + s.params.TargetMultiplier*atr21,
		StopLossShort:   price + s.params.StopMultiplier*atr14,
		TakeProfitShort: price - s.params.TargetMultiplier*atr21,
		UpperBand15:     price + 1.5*atr14,
		LowerBand15:     price - 1.5*atr14,
		UpperBand2:      price + 2*atr14,
		LowerBand2:      price - 2*atr14,
	}
}
