package alert

import (
	"testing"
	"time"

	"SignalDesk/internal/model"
)

func result(closes []float64, volumes []float64) *model.SymbolAnalysisResult {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make(model.BarSeries, len(closes))
	for i, c := range closes {
		v := 1000.0
		if volumes != nil {
			v = volumes[i]
		}
		bars[i] = model.OHLCV{Time: start.AddDate(0, 0, i), Open: c, High: c + 0.5, Low: c - 0.5, Close: c, Volume: v}
	}
	return &model.SymbolAnalysisResult{Key: "TEST_1d", Symbol: "TEST", Success: true, Bars: bars}
}

func ramp(n int, from, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = from + float64(i)*step
	}
	return out
}

func conditions(alerts []Alert) map[string]Alert {
	m := make(map[string]Alert, len(alerts))
	for _, a := range alerts {
		m[a.Condition] = a
	}
	return m
}

func TestCheck(t *testing.T) {
	c := NewChecker(DefaultSettings())

	jumpUp := append(ramp(60, 200, -1), 200)
	dropDown := append(ramp(60, 100, 1), 100)

	tests := []struct {
		name    string
		closes  []float64
		want    []string
		notWant []string
	}{
		{"rising", ramp(40, 100, 1), []string{"rsi_overbought", "price_above_sma20"}, []string{"rsi_oversold", "price_below_sma20"}},
		{"falling", ramp(40, 200, -1), []string{"rsi_oversold", "price_below_sma20"}, []string{"rsi_overbought", "price_above_sma20"}},
		{"macd turns up", jumpUp, []string{"macd_bullish_crossover"}, []string{"macd_bearish_crossover"}},
		{"macd turns down", dropDown, []string{"macd_bearish_crossover"}, []string{"macd_bullish_crossover"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := conditions(c.Check(result(tt.closes, nil)))
			for _, w := range tt.want {
				a, ok := got[w]
				if !ok {
					t.Errorf("missing alert %s (got %v)", w, got)
					continue
				}
				if a.Message == "" || len(a.Values) == 0 || a.Key != "TEST_1d" {
					t.Errorf("alert %s incomplete: %+v", w, a)
				}
			}
			for _, nw := range tt.notWant {
				if _, ok := got[nw]; ok {
					t.Errorf("unexpected alert %s", nw)
				}
			}
		})
	}
}

func TestSeverity(t *testing.T) {
	got := conditions(NewChecker(DefaultSettings()).Check(result(ramp(40, 200, -1), nil)))
	if got["rsi_oversold"].Severity != SeverityWarning || got["price_below_sma20"].Severity != SeverityWarning {
		t.Errorf("severities: %+v", got)
	}
}

func TestVolumeSpike(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100
	}
	vols := make([]float64, 30)
	for i := range vols {
		vols[i] = 1000
	}

	vols[29] = 5000
	got := conditions(NewChecker(DefaultSettings()).Check(result(closes, vols)))
	a, ok := got["volume_spike"]
	if !ok {
		t.Fatal("expected volume spike")
	}
	if a.Values["multiplier"] != 5 || a.Values["average_volume"] != 1000 {
		t.Errorf("values = %v", a.Values)
	}

	vols[29] = 1500
	if _, ok := conditions(NewChecker(DefaultSettings()).Check(result(closes, vols)))["volume_spike"]; ok {
		t.Error("1.5x volume should not alert")
	}

	if _, ok := conditions(NewChecker(DefaultSettings()).Check(result(closes[:20], vols[:20])))["volume_spike"]; ok {
		t.Error("volume spike needs more than 20 bars")
	}
}

func TestDisabledAndGroup(t *testing.T) {
	s := DefaultSettings()
	s.Enabled = false
	if got := NewChecker(s).Check(result(ramp(40, 100, 1), nil)); len(got) != 0 {
		t.Errorf("disabled checker raised %d alerts", len(got))
	}

	group := &model.GroupAnalysisResult{Results: map[string]*model.SymbolAnalysisResult{
		"A": result(ramp(40, 100, 1), nil),
		"B": {Key: "B", Success: false},
	}}
	if got := NewChecker(DefaultSettings()).CheckGroup(group); len(got) == 0 {
		t.Error("expected alerts from the successful symbol")
	}
}

func TestCheckReadsAnalyzedColumns(t *testing.T) {
	flat := make([]float64, 30)
	for i := range flat {
		flat[i] = 100
	}
	fill := func(n int, v float64) []float64 {
		out := make([]float64, n)
		for i := range out {
			out[i] = v
		}
		return out
	}

	r := result(flat, nil)
	macd := fill(30, -1)
	macd[29] = 1
	r.Frame = map[string][]float64{
		"rsi":         fill(30, 85),
		"macd":        macd,
		"macd_signal": fill(30, 0),
	}
	got := conditions(NewChecker(DefaultSettings()).Check(r))
	if a, ok := got["rsi_overbought"]; !ok || a.Values["rsi"] != 85 {
		t.Errorf("rsi alert from frame column = %+v (present %v)", a, ok)
	}
	if _, ok := got["macd_bullish_crossover"]; !ok {
		t.Errorf("expected MACD crossover from frame columns, got %v", got)
	}

	// misaligned columns are ignored and a flat series raises neither alert
	r.Frame = map[string][]float64{"rsi": fill(3, 85), "macd": macd[:3], "macd_signal": fill(3, 0)}
	got = conditions(NewChecker(DefaultSettings()).Check(r))
	if _, ok := got["rsi_overbought"]; ok {
		t.Error("short rsi column should fall back to recomputing")
	}
	if _, ok := got["macd_bullish_crossover"]; ok {
		t.Error("short macd columns should fall back to recomputing")
	}
}
