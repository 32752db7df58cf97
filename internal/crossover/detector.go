package crossover

import (
	"math"

	"SignalDesk/internal/calculator"
	"SignalDesk/internal/model"
)

// Mode selects how two series are compared.
type Mode string

const (
	// Standard compares series A against series B.
	Standard Mode = "standard"
	// Direction watches a single 1/0 direction series for flips.
	Direction Mode = "direction"
)

// Settings configures a Detector.
type Settings struct {
	Enabled                 bool    `yaml:"enabled" json:"enabled"`
	VolatilityFilterEnabled bool    `yaml:"volatility_filter_enabled" json:"volatility_filter_enabled"`
	TrendThreshold          float64 `yaml:"adx_threshold" json:"adx_threshold"`
	LookbackPeriod          int     `yaml:"lookback_period" json:"lookback_period"`
}

// DefaultSettings returns the detector defaults.
func DefaultSettings() Settings {
	return Settings{
		Enabled:                 true,
		VolatilityFilterEnabled: true,
		TrendThreshold:          18,
		LookbackPeriod:          5,
	}
}

// TrendSource supplies the trend-strength series used to gate events.
type TrendSource interface {
	Strength() calculator.Series
}

// Detector finds crossovers and keeps every accepted event in order.
// A Detector belongs to a single analysis task.
type Detector struct {
	settings Settings
	trend    TrendSource

	events  []model.CrossoverEvent
	scanned int
	length  int
}

// NewDetector creates a detector. trend may be nil when the volatility filter is off;
// with the filter on and no trend source every candidate is discarded.
func NewDetector(settings Settings, trend TrendSource) *Detector {
	return &Detector{settings: settings, trend: trend}
}

// Detect scans bars not seen by earlier calls, plus the last bar seen before since
// it may have been forming, and returns the events it accepted. An event already
// kept for a bar is not repeated. b is ignored in Direction mode.
func (d *Detector) Detect(bars model.BarSeries, a, b calculator.Series, mode Mode) []model.CrossoverEvent {
	n := len(a)
	start := d.scanned - 1
	if n < d.scanned {
		start = 0
	}
	if start < 1 {
		start = 1
	}
	d.length = n
	d.scanned = n
	if !d.settings.Enabled {
		return nil
	}

	var gate calculator.Series
	if d.settings.VolatilityFilterEnabled && d.trend != nil {
		gate = d.trend.Strength()
	}

	var found []model.CrossoverEvent
	for i := start; i < n; i++ {
		typ, ok := compare(a, b, i, mode)
		if !ok {
			continue
		}
		ev := model.CrossoverEvent{Type: typ, Index: i}
		if i < len(bars) {
			ev.Time = bars[i].Time
			ev.Price = bars[i].Close
			if len(d.events) > 0 && !ev.Time.After(d.events[len(d.events)-1].Time) {
				continue
			}
		}
		if d.settings.VolatilityFilterEnabled {
			g := gate.At(i)
			if math.IsNaN(g) || g <= d.settings.TrendThreshold {
				continue
			}
			ev.Gated = true
			ev.GatingValue = g
		}
		d.events = append(d.events, ev)
		found = append(found, ev)
	}
	return found
}

func compare(a, b calculator.Series, i int, mode Mode) (model.CrossoverType, bool) {
	if mode == Direction {
		prev, cur := a.At(i-1), a.At(i)
		switch {
		case prev == calculator.DirectionBearish && cur == calculator.DirectionBullish:
			return model.CrossBullish, true
		case prev == calculator.DirectionBullish && cur == calculator.DirectionBearish:
			return model.CrossBearish, true
		}
		return "", false
	}

	pa, pb, ca, cb := a.At(i-1), b.At(i-1), a.At(i), b.At(i)
	if math.IsNaN(pa) || math.IsNaN(pb) || math.IsNaN(ca) || math.IsNaN(cb) {
		return "", false
	}
	switch {
	case pa <= pb && ca > cb:
		return model.CrossBullish, true
	case pa >= pb && ca < cb:
		return model.CrossBearish, true
	}
	return "", false
}

// Latest returns the most recent event if it lies within the lookback window of
// the series end seen by the last Detect call. It never re-evaluates the series.
func (d *Detector) Latest() (model.CrossoverEvent, bool) {
	if len(d.events) == 0 {
		return model.CrossoverEvent{}, false
	}
	ev := d.events[len(d.events)-1]
	if lb := d.settings.LookbackPeriod; lb > 0 && ev.Index < d.length-lb {
		return model.CrossoverEvent{}, false
	}
	return ev, true
}

// Events returns a copy of every accepted event.
func (d *Detector) Events() []model.CrossoverEvent {
	out := make([]model.CrossoverEvent, len(d.events))
	copy(out, d.events)
	return out
}
