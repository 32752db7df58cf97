package strategy

import (
	"math"

	"SignalDesk/internal/calculator"
	"SignalDesk/internal/model"
)

// Oscillator names used in readings and the indicator snapshot.
const (
	NameRSI        = "RSI_14"
	NameStochastic = "Stochastic_K"
	NameCCI        = "CCI_20"
	NameMACD       = "MACD"
	NameWilliamsR  = "Williams_R"
	NameBullPower  = "Bull_Power"
	NameBearPower  = "Bear_Power"
	NameDMI        = "DMI"
	NameADX        = "ADX_14"
)

// statusRSI: overbought above 70 sells, oversold below 30 buys.
func statusRSI(v float64) model.Status {
	switch {
	case v > 70:
		return model.StatusSell
	case v < 30:
		return model.StatusBuy
	default:
		return model.StatusNeutral
	}
}

// statusStochastic uses the 80/20 bands.
func statusStochastic(v float64) model.Status {
	switch {
	case v > 80:
		return model.StatusSell
	case v < 20:
		return model.StatusBuy
	default:
		return model.StatusNeutral
	}
}

func statusCCI(v float64) model.Status {
	switch {
	case v > 100:
		return model.StatusSell
	case v < -100:
		return model.StatusBuy
	default:
		return model.StatusNeutral
	}
}

func statusWilliamsR(v float64) model.Status {
	switch {
	case v > -20:
		return model.StatusSell
	case v < -80:
		return model.StatusBuy
	default:
		return model.StatusNeutral
	}
}

// statusMACD reads the sign of the MACD line with a 0.02 dead band.
func statusMACD(v float64) model.Status {
	switch {
	case math.Abs(v) <= 0.02:
		return model.StatusNeutral
	case v > 0:
		return model.StatusBuy
	default:
		return model.StatusSell
	}
}

// statusPower applies to both bull and bear power.
func statusPower(v float64) model.Status {
	switch {
	case math.Abs(v) < 0.05:
		return model.StatusNeutral
	case v > 0:
		return model.StatusBuy
	default:
		return model.StatusSell
	}
}

// statusDMI compares the current +DI/-DI spread with the previous bar instead of a level.
func statusDMI(cur, prev float64) model.Status {
	switch {
	case math.Abs(cur) <= 1e-4:
		return model.StatusNeutral
	case math.IsNaN(prev):
		return model.StatusNeutral
	case cur > prev:
		return model.StatusBuy
	case cur < prev:
		return model.StatusSell
	default:
		return model.StatusNeutral
	}
}

// reading builds an oscillator reading from the last two values of s.
func reading(name string, s calculator.Series, status func(float64) model.Status) model.OscillatorReading {
	cur := s.Last()
	if math.IsNaN(cur) {
		return model.NewReading(name, model.StatusNeutral, cur, s.Prev())
	}
	return model.NewReading(name, status(cur), cur, s.Prev())
}

// trendReading reports ADX as a neutral vote labelled by trend strength.
func trendReading(adx calculator.Series, threshold float64) model.OscillatorReading {
	r := model.NewReading(NameADX, model.StatusNeutral, adx.Last(), adx.Prev())
	if r.Ready {
		r.Label = "Weak Trend"
		if r.Value > threshold {
			r.Label = "Strong Trend"
		}
	}
	return r
}

func tally(readings []model.OscillatorReading) model.SignalTally {
	var t model.SignalTally
	for _, r := range readings {
		t.Count(r.Status, 1)
	}
	return t
}
