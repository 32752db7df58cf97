package alert

import (
	"fmt"
	"math"
	"time"

	"SignalDesk/internal/calculator"
	"SignalDesk/internal/model"
)

// Severity levels.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Settings selects and tunes the alert checks.
type Settings struct {
	Enabled          bool    `yaml:"enabled" json:"enabled"`
	RSIOverbought    float64 `yaml:"rsi_overbought" json:"rsi_overbought"`
	RSIOversold      float64 `yaml:"rsi_oversold" json:"rsi_oversold"`
	SMAPeriod        int     `yaml:"sma_period" json:"sma_period"`
	VolumeMultiplier float64 `yaml:"volume_multiplier" json:"volume_multiplier"`
}

// DefaultSettings returns the stock thresholds.
func DefaultSettings() Settings {
	return Settings{
		Enabled:          true,
		RSIOverbought:    70,
		RSIOversold:      30,
		SMAPeriod:        20,
		VolumeMultiplier: 2,
	}
}

// Alert is one triggered condition on the latest bar of a symbol.
type Alert struct {
	Key       string             `json:"key"`
	Symbol    string             `json:"symbol"`
	Condition string             `json:"condition"`
	Message   string             `json:"message"`
	Severity  string             `json:"severity"`
	Values    map[string]float64 `json:"indicator_values"`
	Time      time.Time          `json:"time"`
}

// volumeWindow is how many bars before the latest one the volume average spans.
const volumeWindow = 19

// Checker evaluates alert conditions against analyzed symbols.
type Checker struct {
	s Settings
}

// NewChecker creates a checker. Zero thresholds take the defaults.
func NewChecker(s Settings) *Checker {
	def := DefaultSettings()
	if s.RSIOverbought == 0 {
		s.RSIOverbought = def.RSIOverbought
	}
	if s.RSIOversold == 0 {
		s.RSIOversold = def.RSIOversold
	}
	if s.SMAPeriod <= 0 {
		s.SMAPeriod = def.SMAPeriod
	}
	if s.VolumeMultiplier <= 0 {
		s.VolumeMultiplier = def.VolumeMultiplier
	}
	return &Checker{s: s}
}

// CheckGroup runs Check over every successful symbol of a group run.
func (c *Checker) CheckGroup(res *model.GroupAnalysisResult) []Alert {
	if res == nil {
		return nil
	}
	var out []Alert
	for _, r := range res.Results {
		if r.Success {
			out = append(out, c.Check(r)...)
		}
	}
	return out
}

// Check evaluates every condition on the bars of one symbol.
func (c *Checker) Check(r *model.SymbolAnalysisResult) []Alert {
	if !c.s.Enabled || r == nil || len(r.Bars) < 2 {
		return nil
	}
	bars := r.Bars
	last := bars.Last()
	closes := bars.Closes()

	var out []Alert
	add := func(cond, sev, msg string, values map[string]float64) {
		out = append(out, Alert{
			Key: r.Key, Symbol: r.Symbol, Condition: cond, Message: msg,
			Severity: sev, Values: values, Time: last.Time,
		})
	}

	rsiSeries, ok := column(r, "rsi")
	if !ok {
		rsiSeries = calculator.NewRSI(14).Calculate(bars)
	}
	rsi := rsiSeries.Last()
	switch {
	case math.IsNaN(rsi):
	case rsi > c.s.RSIOverbought:
		add("rsi_overbought", SeverityWarning,
			fmt.Sprintf("RSI overbought: %.2f > %.0f", rsi, c.s.RSIOverbought),
			map[string]float64{"rsi": rsi, "threshold": c.s.RSIOverbought})
	case rsi < c.s.RSIOversold:
		add("rsi_oversold", SeverityWarning,
			fmt.Sprintf("RSI oversold: %.2f < %.0f", rsi, c.s.RSIOversold),
			map[string]float64{"rsi": rsi, "threshold": c.s.RSIOversold})
	}

	line, okLine := column(r, "macd")
	signal, okSignal := column(r, "macd_signal")
	if !okLine || !okSignal {
		macd := calculator.MACD(closes, 12, 26, 9)
		line, signal = macd.MACD, macd.Signal
	}
	cm, cs := line.Last(), signal.Last()
	pm, ps := line.Prev(), signal.Prev()
	if !math.IsNaN(cm + cs + pm + ps) {
		values := map[string]float64{"macd": cm, "signal": cs, "histogram": cm - cs}
		switch {
		case pm <= ps && cm > cs:
			add("macd_bullish_crossover", SeverityInfo,
				fmt.Sprintf("MACD bullish crossover: MACD(%.4f) > Signal(%.4f)", cm, cs), values)
		case pm >= ps && cm < cs:
			add("macd_bearish_crossover", SeverityInfo,
				fmt.Sprintf("MACD bearish crossover: MACD(%.4f) < Signal(%.4f)", cm, cs), values)
		}
	}

	p := c.s.SMAPeriod
	if sma, err := calculator.CalculateSMA(closes, p); err == nil && sma != 0 {
		values := map[string]float64{"price": last.Close, "difference_pct": (last.Close - sma) / sma * 100}
		values[fmt.Sprintf("sma%d", p)] = sma
		switch {
		case last.Close > sma:
			add(fmt.Sprintf("price_above_sma%d", p), SeverityInfo,
				fmt.Sprintf("Price above SMA%d: %.4f > %.4f", p, last.Close, sma), values)
		case last.Close < sma:
			add(fmt.Sprintf("price_below_sma%d", p), SeverityWarning,
				fmt.Sprintf("Price below SMA%d: %.4f < %.4f", p, last.Close, sma), values)
		}
	}

	if len(bars) > volumeWindow+1 {
		volumes := bars.Volumes()
		avg := calculator.SMA(volumes[:len(volumes)-1], volumeWindow).Last()
		if avg > 0 && last.Volume > avg*c.s.VolumeMultiplier {
			add("volume_spike", SeverityInfo,
				fmt.Sprintf("Volume spike: %.0f (%.1fx avg)", last.Volume, last.Volume/avg),
				map[string]float64{"current_volume": last.Volume, "average_volume": avg, "multiplier": last.Volume / avg})
		}
	}
	return out
}

// column returns the analyzed series stored under name when it lines up with the bars.
func column(r *model.SymbolAnalysisResult, name string) (calculator.Series, bool) {
	s, ok := r.Frame[name]
	if !ok || len(s) != len(r.Bars) {
		return nil, false
	}
	return calculator.Series(s), true
}
