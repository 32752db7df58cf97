package strategy

import (
	"errors"
	"math"

	"SignalDesk/internal/calculator"
	"SignalDesk/internal/crossover"
	"SignalDesk/internal/model"
)

// ErrNoBars is returned when a strategy is asked to analyze an empty series.
var ErrNoBars = errors.New("no bars to analyze")

// Default is the single-timeframe oscillator strategy: eight oscillators vote,
// the DI crossover gated by ADX is reported, and ATR(14) sets the risk bands.
type Default struct {
	adx        *calculator.ADX
	stochastic *calculator.Stochastic
	rsi        *calculator.RSI
	atr        *calculator.ATRBands
	supertrend *calculator.Supertrend
}

// NewDefault creates the default strategy with fresh indicator state.
func NewDefault() *Default {
	return &Default{
		adx:        calculator.NewADX(14),
		stochastic: calculator.NewStochastic(14, 1, 3),
		rsi:        calculator.NewRSI(14),
		atr:        calculator.NewATRBands(14, 0),
		supertrend: calculator.NewSupertrend(10, 3),
	}
}

func (d *Default) Name() string { return DefaultName }

func (d *Default) Analyze(bars model.BarSeries, env Env) (*Analysis, error) {
	if len(bars) == 0 {
		return nil, ErrNoBars
	}
	closes := bars.Closes()

	dmi := d.adx.Calculate(bars)
	stoch := d.stochastic.Calculate(bars)
	rsi := d.rsi.Calculate(bars)
	atr := d.atr.Calculate(bars)
	st := d.supertrend.Calculate(bars)
	macd := calculator.MACD(closes, 12, 26, 9)
	cci := calculator.CCI(bars, 20)
	wr := calculator.WilliamsR(bars, 14)
	bull, bear := calculator.BullBearPower(bars, 13)
	spread := calculator.Difference(dmi.PlusDI, dmi.MinusDI)

	frame := calculator.NewFrame(bars)
	frame.Set(ColPlusDI, dmi.PlusDI)
	frame.Set(ColMinusDI, dmi.MinusDI)
	frame.Set(ColADX, dmi.ADX)
	frame.Set(ColK, stoch.K)
	frame.Set(ColD, stoch.D)
	frame.Set(ColRSI, rsi)
	frame.Set(ColATR, atr.ATR)
	frame.Set(ColUpperBand, atr.Upper)
	frame.Set(ColLowerBand, atr.Lower)
	frame.Set(ColSupertrend, st.Line)
	frame.Set(ColDirection, st.Direction)
	frame.Set("macd", macd.MACD)
	frame.Set("macd_signal", macd.Signal)
	frame.Set("macd_histogram", macd.Histogram)
	frame.Set("cci", cci)
	frame.Set("williams_r", wr)
	frame.Set("bull_power", bull)
	frame.Set("bear_power", bear)

	oscillators := []model.OscillatorReading{
		reading(NameRSI, rsi, statusRSI),
		reading(NameStochastic, stoch.K, statusStochastic),
		reading(NameCCI, cci, statusCCI),
		reading(NameMACD, macd.MACD, statusMACD),
		reading(NameWilliamsR, wr, statusWilliamsR),
		reading(NameBullPower, bull, statusPower),
		reading(NameBearPower, bear, statusPower),
		dmiReading(spread),
	}
	t := tally(oscillators)

	a := &Analysis{
		Indicators:  frame.Snapshot(),
		Oscillators: oscillators,
		Tally:       t,
		Sentiment:   t.Sentiment(),
		Risk:        defaultRisk(closes[len(closes)-1], atr.ATR.Last()),
		Rules:       ruleReports(bars, frame, env.Rules),
		Frame:       frame,
	}

	det := crossover.NewDetector(env.Crossover, d.adx)
	det.Detect(bars, dmi.PlusDI, dmi.MinusDI, crossover.Standard)
	if ev, ok := det.Latest(); ok {
		a.LatestCrossover = &ev
	}
	return a, nil
}

func dmiReading(spread calculator.Series) model.OscillatorReading {
	cur, prev := spread.Last(), spread.Prev()
	if math.IsNaN(cur) {
		return model.NewReading(NameDMI, model.StatusNeutral, cur, prev)
	}
	return model.NewReading(NameDMI, statusDMI(cur, prev), cur, prev)
}

func defaultRisk(price, atr float64) *model.RiskBands {
	if math.IsNaN(atr) {
		return nil
	}
	return &model.RiskBands{
		ATR:             atr,
		StopLossLong:    price - 1.5*atr,
		TakeProfitLong:  price + 2*atr,
		StopLossShort:   price + 1.5*atr,
		TakeProfitShort: price - 2*atr,
		UpperBand15:     price + 1.5*atr,
		LowerBand15:     price - 1.5*atr,
		UpperBand2:      price + 2*atr,
		LowerBand2:      price - 2*atr,
	}
}
