package calculator

import (
	"math"
	"testing"
	"time"

	"SignalDesk/internal/model"
)

var t0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

// barsFromCloses builds daily bars with high/low one unit around the close.
func barsFromCloses(closes []float64) model.BarSeries {
	bars := make(model.BarSeries, len(closes))
	for i, c := range closes {
		bars[i] = model.OHLCV{
			Time:   t0.AddDate(0, 0, i),
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}

// wave is a deterministic price path with trend, cycles and uneven ranges.
func wave(n int) model.BarSeries {
	bars := make(model.BarSeries, n)
	for i := 0; i < n; i++ {
		x := float64(i)
		c := 100 + 0.15*x + 6*math.Sin(x/5) + 2*math.Cos(x/1.7)
		spread := 0.6 + 0.4*math.Abs(math.Sin(x/3))
		bars[i] = model.OHLCV{
			Time:   t0.AddDate(0, 0, i),
			Open:   c - 0.3,
			High:   c + spread,
			Low:    c - spread*0.8,
			Close:  c,
			Volume: 1000 + 50*x,
		}
	}
	return bars
}

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.IsNaN(got) && math.IsNaN(want) {
		return
	}
	if math.IsNaN(got) != math.IsNaN(want) || math.Abs(got-want) > tol {
		t.Errorf("%s: got %v, want %v", label, got, want)
	}
}

func assertSeriesEqual(t *testing.T, label string, got, want Series) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: length %d, want %d", label, len(got), len(want))
	}
	for i := range want {
		assertClose(t, label, got[i], want[i], 1e-9)
	}
}

func TestIncrementalEqualsFull(t *testing.T) {
	bars := wave(160)
	const warm = 40

	tests := []struct {
		name string
		run  func(inc bool) map[string]Series
	}{
		{"adx", func(inc bool) map[string]Series {
			a := NewADX(14)
			var out DMI
			for _, n := range steps(len(bars), warm, inc) {
				out = a.Calculate(bars[:n])
			}
			return map[string]Series{"+DI": out.PlusDI, "-DI": out.MinusDI, "ADX": out.ADX}
		}},
		{"stochastic", func(inc bool) map[string]Series {
			s := NewStochastic(14, 3, 3)
			var out StochasticOutput
			for _, n := range steps(len(bars), warm, inc) {
				out = s.Calculate(bars[:n])
			}
			return map[string]Series{"%K": out.K, "%D": out.D}
		}},
		{"atr", func(inc bool) map[string]Series {
			b := NewATRBands(14, 2)
			var out Bands
			for _, n := range steps(len(bars), warm, inc) {
				out = b.Calculate(bars[:n])
			}
			return map[string]Series{"atr": out.ATR, "upper": out.Upper, "lower": out.Lower}
		}},
		{"supertrend", func(inc bool) map[string]Series {
			s := NewSupertrend(10, 1.5)
			var out SupertrendOutput
			for _, n := range steps(len(bars), warm, inc) {
				out = s.Calculate(bars[:n])
			}
			return map[string]Series{"line": out.Line, "direction": out.Direction}
		}},
		{"rsi", func(inc bool) map[string]Series {
			r := NewRSI(14)
			var out Series
			for _, n := range steps(len(bars), warm, inc) {
				out = r.Calculate(bars[:n])
			}
			return map[string]Series{"rsi": out}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			full := tt.run(false)
			inc := tt.run(true)
			for name, want := range full {
				assertSeriesEqual(t, tt.name+"/"+name, inc[name], want)
			}
		})
	}
}

// steps returns the series lengths fed to an indicator: one full call, or a
// warm-up call followed by one call per new bar.
func steps(total, warm int, incremental bool) []int {
	if !incremental {
		return []int{total}
	}
	out := []int{warm}
	for n := warm + 1; n <= total; n++ {
		out = append(out, n)
	}
	return out
}

func TestIncrementalSkipsUnchangedPrefix(t *testing.T) {
	bars := wave(80)
	r := NewRSI(14)
	r.Calculate(bars[:60])
	if r.InitialRun || r.PreviousIndex != 60 {
		t.Fatalf("state after first call: initial=%v prev=%d", r.InitialRun, r.PreviousIndex)
	}
	from, reset := r.begin(bars)
	if reset || from != 59 {
		t.Errorf("begin: from=%d reset=%v, want 59/false", from, reset)
	}
}

func TestRevisedLastBarMatchesFull(t *testing.T) {
	bars := wave(70)
	a := NewADX(14)
	a.Calculate(bars)

	revised := make(model.BarSeries, len(bars))
	copy(revised, bars)
	revised[69].Close += 3
	revised[69].High += 3

	got := a.Calculate(revised)
	want := NewADX(14).Calculate(revised)
	assertSeriesEqual(t, "ADX", got.ADX, want.ADX)
	assertSeriesEqual(t, "+DI", got.PlusDI, want.PlusDI)
}

func TestReplacedHistoryForcesFullRecompute(t *testing.T) {
	bars := wave(60)
	s := NewStochastic(7, 3, 3)
	s.Calculate(bars[:50])

	shifted := make(model.BarSeries, len(bars))
	for i, b := range bars {
		b.Time = b.Time.Add(time.Hour)
		shifted[i] = b
	}
	if _, reset := s.begin(shifted); !reset {
		t.Fatal("expected reset when history timestamps change")
	}
	got := s.Calculate(shifted)
	want := NewStochastic(7, 3, 3).Calculate(shifted)
	assertSeriesEqual(t, "%D", got.D, want.D)
}

func TestWarmupIsNaN(t *testing.T) {
	bars := wave(50)
	dmi := NewADX(14).Calculate(bars)
	for i := 0; i < 26; i++ {
		if dmi.ADX.Defined(i) {
			t.Errorf("ADX[%d] defined during warm-up: %v", i, dmi.ADX[i])
		}
	}
	if !dmi.ADX.Defined(26) {
		t.Error("ADX[26] should be defined")
	}

	atr := NewATRBands(14, 2).Calculate(bars)
	if atr.ATR.Defined(12) || !atr.ATR.Defined(13) {
		t.Errorf("ATR warm-up boundary wrong: [12]=%v [13]=%v", atr.ATR[12], atr.ATR[13])
	}

	st := NewSupertrend(10, 3).Calculate(bars)
	if st.Direction.Defined(9) || !st.Direction.Defined(10) {
		t.Errorf("supertrend warm-up boundary wrong: [9]=%v [10]=%v", st.Direction[9], st.Direction[10])
	}
}

func TestInsufficientBarsAllNaN(t *testing.T) {
	bars := wave(5)
	rsi := NewRSI(14).Calculate(bars)
	if len(rsi) != 5 {
		t.Fatalf("len = %d, want 5", len(rsi))
	}
	for i, v := range rsi {
		if !math.IsNaN(v) {
			t.Errorf("rsi[%d] = %v, want NaN", i, v)
		}
	}
	if out := NewADX(14).Calculate(nil); len(out.ADX) != 0 {
		t.Errorf("empty input produced %d values", len(out.ADX))
	}
}

func TestRSIRisingSeries(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	rsi := NewRSI(14).Calculate(barsFromCloses(closes))
	for i := 13; i < 20; i++ {
		assertClose(t, "rsi", rsi[i], 100, 1e-9)
	}
}

func TestRSIKnownValue(t *testing.T) {
	// alternating +2 / -1 moves: average gain 1, average loss 0.5 over an even window
	closes := []float64{100}
	for i := 1; i <= 20; i++ {
		if i%2 == 1 {
			closes = append(closes, closes[i-1]+2)
		} else {
			closes = append(closes, closes[i-1]-1)
		}
	}
	rsi := NewRSI(4).Calculate(barsFromCloses(closes))
	// window over indices 17..20 holds two gains of 2 and two losses of 1
	assertClose(t, "rsi", rsi[20], 100-100/(1+2.0), 1e-9)
}

func TestFlatSeries(t *testing.T) {
	bars := make(model.BarSeries, 30)
	for i := range bars {
		bars[i] = model.OHLCV{Time: t0.AddDate(0, 0, i), Open: 50, High: 50, Low: 50, Close: 50}
	}
	dmi := NewADX(14).Calculate(bars)
	stoch := NewStochastic(14, 3, 3).Calculate(bars)
	atr := NewATRBands(14, 2).Calculate(bars)
	for i := range bars {
		if dmi.ADX.Defined(i) || dmi.PlusDI.Defined(i) {
			t.Errorf("bar %d: DMI should stay undefined on a flat series", i)
		}
		if stoch.K.Defined(i) || stoch.D.Defined(i) {
			t.Errorf("bar %d: stochastic should stay undefined on a flat series", i)
		}
		if i >= 13 {
			assertClose(t, "atr", atr.ATR[i], 0, 0)
			assertClose(t, "upper", atr.Upper[i], 50, 0)
			assertClose(t, "lower", atr.Lower[i], 50, 0)
		}
	}
}

func TestSupertrendPersistence(t *testing.T) {
	bars := wave(200)
	st := NewSupertrend(7, 0.8)
	out := st.Calculate(bars)
	flips := 0
	for i := st.Period + 1; i < len(bars); i++ {
		c := bars[i].Close
		breaksUp := c > out.Upper[i-1]
		breaksDown := c < out.Lower[i-1]
		switch {
		case breaksUp:
			if out.Direction[i] != DirectionBullish {
				t.Errorf("bar %d: close above previous upper band but direction %v", i, out.Direction[i])
			}
		case breaksDown:
			if out.Direction[i] != DirectionBearish {
				t.Errorf("bar %d: close below previous lower band but direction %v", i, out.Direction[i])
			}
		default:
			if out.Direction[i] != out.Direction[i-1] {
				t.Errorf("bar %d: direction changed without a band break", i)
			}
		}
		if out.Direction[i] != out.Direction[i-1] {
			flips++
		}
		want := out.Lower[i]
		if out.Direction[i] == DirectionBearish {
			want = out.Upper[i]
		}
		assertClose(t, "line", out.Line[i], want, 0)
	}
	if flips == 0 {
		t.Error("expected at least one direction flip on the test path")
	}
}

func TestTwoSupertrendsFlipIndependently(t *testing.T) {
	var closes []float64
	for i := 0; i < 40; i++ {
		closes = append(closes, 100+float64(i))
	}
	for i := 0; i < 10; i++ {
		closes = append(closes, closes[len(closes)-1]-3)
	}
	closes = append(closes, closes[len(closes)-1]-20)
	for i := 0; i < 5; i++ {
		closes = append(closes, closes[len(closes)-1])
	}
	bars := barsFromCloses(closes)

	slow := NewSupertrend(15, 3.142).Calculate(bars)
	fast := NewSupertrend(6, 0.66).Calculate(bars)

	firstBearish := func(dir Series) int {
		for i, d := range dir {
			if d == DirectionBearish {
				return i
			}
		}
		return -1
	}
	if got := firstBearish(fast.Direction); got != 40 {
		t.Errorf("fast supertrend flipped at %d, want 40", got)
	}
	if got := firstBearish(slow.Direction); got != 50 {
		t.Errorf("slow supertrend flipped at %d, want 50", got)
	}
	if !fast.Bearish() || !slow.Bearish() {
		t.Error("both supertrends should end bearish")
	}
}

func TestStochasticRange(t *testing.T) {
	out := NewStochastic(14, 3, 3).Calculate(wave(120))
	for i, v := range out.K {
		if math.IsNaN(v) {
			continue
		}
		if v < 0 || v > 100 {
			t.Errorf("%%K[%d] = %v out of range", i, v)
		}
	}
}

func TestOscillators(t *testing.T) {
	bars := wave(80)
	wr := WilliamsR(bars, 14)
	for i, v := range wr {
		if !math.IsNaN(v) && (v < -100 || v > 0) {
			t.Errorf("%%R[%d] = %v out of range", i, v)
		}
	}
	m := MACD(bars.Closes(), 12, 26, 9)
	assertClose(t, "histogram", m.Histogram.Last(), m.MACD.Last()-m.Signal.Last(), 1e-12)
	if !m.Signal.Defined(79) {
		t.Error("MACD signal should be defined at the end of the series")
	}
	bull, bear := BullBearPower(bars, 13)
	if bull.Last() <= bear.Last() {
		t.Errorf("bull power %v should exceed bear power %v", bull.Last(), bear.Last())
	}
	if cci := CCI(bars, 20); !cci.Defined(79) || cci.Defined(18) {
		t.Error("CCI warm-up boundary wrong")
	}
}

func TestSMAAndEMA(t *testing.T) {
	vals := []float64{1, 2, 3, 4, 5}
	sma := SMA(vals, 3)
	assertClose(t, "sma[2]", sma[2], 2, 1e-12)
	assertClose(t, "sma[4]", sma[4], 4, 1e-12)
	if sma.Defined(1) {
		t.Error("sma[1] should be undefined")
	}
	v, err := CalculateSMA(vals, 5)
	if err != nil || v != 3 {
		t.Errorf("CalculateSMA = %v, %v", v, err)
	}
	if _, err := CalculateSMA(vals, 6); err == nil {
		t.Error("expected error for short input")
	}

	ema := EMA(vals, 3)
	// alpha 0.5 seeded at 1: 1, 1.5, 2.25, 3.125, 4.0625
	assertClose(t, "ema[2]", ema[2], 2.25, 1e-12)
	assertClose(t, "ema[4]", ema[4], 4.0625, 1e-12)
}

func TestFrame(t *testing.T) {
	bars := wave(30)
	f := NewFrame(bars)
	if ok := f.Set("short", NaNSeries(3)); ok {
		t.Error("misaligned series should be rejected")
	}
	f.Set("rsi", NewRSI(14).Calculate(bars))
	f.Set("warm", NaNSeries(30))
	if _, ok := f.Lookup("rsi"); !ok {
		t.Fatal("rsi column missing")
	}
	snap := f.Snapshot()
	if _, ok := snap["warm"]; ok {
		t.Error("undefined column should be left out of the snapshot")
	}
	assertClose(t, "close", snap["close"], bars.Last().Close, 0)
}

func TestHighLow(t *testing.T) {
	bars := barsFromCloses([]float64{10, 30, 20, 5, 15})
	h, l, err := HighLow(bars, 3)
	if err != nil {
		t.Fatal(err)
	}
	if h != 21 || l != 4 {
		t.Errorf("HighLow = %v/%v, want 21/4", h, l)
	}
	if _, _, err := HighLow(nil, 3); err == nil {
		t.Error("expected error for empty bars")
	}
	if h, l, _ := HighLow(bars, 0); h != 31 || l != 4 {
		t.Errorf("HighLow over all bars = %v/%v, want 31/4", h, l)
	}
	if h, l, _ := HighLow(bars, 1); h != 16 || l != 14 {
		t.Errorf("HighLow over last bar = %v/%v, want 16/14", h, l)
	}
}

func TestRollingSkipsNaNWindows(t *testing.T) {
	nan := math.NaN()
	src := Series{1, 2, nan, 4, 5, 6}

	tests := []struct {
		name string
		fill func(dst, src Series, w, from int)
		w    int
		want Series
	}{
		{"sum", rollingSum, 2, Series{nan, 3, nan, nan, 9, 11}},
		{"mean", rollingMean, 2, Series{nan, 1.5, nan, nan, 4.5, 5.5}},
		{"max", rollingMax, 2, Series{nan, 2, nan, nan, 5, 6}},
		{"min", rollingMin, 3, Series{nan, nan, nan, nan, nan, 4}},
		{"max single", rollingMax, 1, Series{1, 2, nan, 4, 5, 6}},
		{"window too long", rollingSum, 4, NaNSeries(6)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := NaNSeries(len(src))
			tt.fill(dst, src, tt.w, 0)
			assertSeriesEqual(t, tt.name, dst, tt.want)

			partial := NaNSeries(len(src))
			copy(partial, dst[:4])
			tt.fill(partial, src, tt.w, 4)
			assertSeriesEqual(t, tt.name+" from 4", partial, tt.want)
		})
	}
}

func TestTrueRange(t *testing.T) {
	bars := model.BarSeries{
		{Time: t0, High: 12, Low: 9, Close: 10},
		{Time: t0.AddDate(0, 0, 1), High: 15, Low: 13, Close: 14},
		{Time: t0.AddDate(0, 0, 2), High: 14, Low: 8, Close: 9},
	}
	tr := TrueRange(bars)
	assertSeriesEqual(t, "tr", tr, Series{3, 5, 6})
	assertSeriesEqual(t, "tr tail", TrueRange(bars[1:]), Series{2, 6})
}

func TestCCIAndWilliamsRKnownValues(t *testing.T) {
	// high/low one unit around the close, so typical price equals the close
	bars := barsFromCloses([]float64{1, 2, 3})
	cci := CCI(bars, 3)
	if cci.Defined(0) || cci.Defined(1) {
		t.Errorf("CCI warm-up = %v", cci[:2])
	}
	// mean 2, mean deviation 2/3: (3-2)/(0.015*2/3) = 100
	assertClose(t, "cci", cci[2], 100, 1e-9)

	wr := WilliamsR(barsFromCloses([]float64{10, 12, 11}), 3)
	// highest 13, lowest 9, close 11
	assertClose(t, "%R", wr[2], -50, 1e-9)
	if wr.Defined(1) {
		t.Error("%R should be undefined during warm-up")
	}

	flat := make(model.BarSeries, 5)
	for i := range flat {
		flat[i] = model.OHLCV{Time: t0.AddDate(0, 0, i), Open: 7, High: 7, Low: 7, Close: 7}
	}
	for i, v := range WilliamsR(flat, 3) {
		if !math.IsNaN(v) {
			t.Errorf("flat %%R[%d] = %v, want NaN", i, v)
		}
	}
	if got := CCI(bars, 5); len(got) != 3 || got.Defined(2) {
		t.Errorf("short CCI = %v", got)
	}
}
