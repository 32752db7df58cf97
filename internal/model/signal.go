package model

import (
	"math"
	"time"
)

// Status is the discrete reading of one oscillator.
type Status string

const (
	StatusBuy     Status = "Buy"
	StatusSell    Status = "Sell"
	StatusNeutral Status = "Neutral"
)

// Sentiment is the majority-vote classification of a tally.
type Sentiment string

const (
	Bullish Sentiment = "BULLISH"
	Bearish Sentiment = "BEARISH"
	Neutral Sentiment = "NEUTRAL"
)

// SignalStrength grades a composite strategy signal.
type SignalStrength string

const (
	StrongBuy     SignalStrength = "STRONG_BUY"
	Buy           SignalStrength = "BUY"
	NeutralSignal SignalStrength = "NEUTRAL"
	Sell          SignalStrength = "SELL"
	StrongSell    SignalStrength = "STRONG_SELL"
)

// SignalTally counts Buy/Sell/Neutral votes.
type SignalTally struct {
	Buy     int `json:"buy"`
	Sell    int `json:"sell"`
	Neutral int `json:"neutral"`
}

// Count adds n votes for status.
func (t *SignalTally) Count(s Status, n int) {
	switch s {
	case StatusBuy:
		t.Buy += n
	case StatusSell:
		t.Sell += n
	default:
		t.Neutral += n
	}
}

// Add merges another tally into t.
func (t *SignalTally) Add(o SignalTally) {
	t.Buy += o.Buy
	t.Sell += o.Sell
	t.Neutral += o.Neutral
}

// Total returns the number of votes.
func (t SignalTally) Total() int { return t.Buy + t.Sell + t.Neutral }

// Sentiment applies the majority vote.
func (t SignalTally) Sentiment() Sentiment {
	switch {
	case t.Buy > t.Sell:
		return Bullish
	case t.Sell > t.Buy:
		return Bearish
	default:
		return Neutral
	}
}

// OscillatorReading is one oscillator's status with its current and previous value.
// Ready is false while the oscillator is still warming up.
type OscillatorReading struct {
	Name     string  `json:"name"`
	Status   Status  `json:"status"`
	Label    string  `json:"label,omitempty"`
	Value    float64 `json:"value"`
	Previous float64 `json:"previous"`
	Ready    bool    `json:"ready"`
}

// NewReading builds a reading, zeroing NaN values so the result stays JSON-safe.
func NewReading(name string, status Status, value, previous float64) OscillatorReading {
	r := OscillatorReading{Name: name, Status: status, Value: value, Previous: previous, Ready: !math.IsNaN(value)}
	if !r.Ready {
		r.Status = StatusNeutral
		r.Value = 0
	}
	if math.IsNaN(r.Previous) {
		r.Previous = 0
	}
	return r
}

// CrossoverType is the direction of a crossover event.
type CrossoverType string

const (
	CrossBullish CrossoverType = "BULLISH"
	CrossBearish CrossoverType = "BEARISH"
)

// CrossoverEvent records one crossover. GatingValue is only meaningful when Gated is set.
type CrossoverEvent struct {
	Type        CrossoverType `json:"type"`
	Index       int           `json:"index"`
	Time        time.Time     `json:"time"`
	Price       float64       `json:"price"`
	Gated       bool          `json:"gated"`
	GatingValue float64       `json:"gating_value"`
}

// RiskBands are ATR-scaled stop-loss and take-profit levels around the last price.
type RiskBands struct {
	ATR             float64 `json:"atr"`
	StopLossLong    float64 `json:"stop_loss_long"`
	TakeProfitLong  float64 `json:"take_profit_long"`
	StopLossShort   float64 `json:"stop_loss_short"`
	TakeProfitShort float64 `json:"take_profit_short"`
	UpperBand15     float64 `json:"upper_band_1_5x"`
	LowerBand15     float64 `json:"lower_band_1_5x"`
	UpperBand2      float64 `json:"upper_band_2x"`
	LowerBand2      float64 `json:"lower_band_2x"`
}
