package calculator

import (
	"math"

	"SignalDesk/internal/model"
)

// Frame is a table of named series aligned with one BarSeries.
type Frame struct {
	n    int
	cols map[string]Series
}

// NewFrame creates a frame seeded with the open, high, low, close and volume columns of bars.
func NewFrame(bars model.BarSeries) *Frame {
	n := len(bars)
	f := &Frame{n: n, cols: make(map[string]Series)}
	open, high, low, closes, vol := NaNSeries(n), NaNSeries(n), NaNSeries(n), NaNSeries(n), NaNSeries(n)
	for i, b := range bars {
		open[i], high[i], low[i], closes[i], vol[i] = b.Open, b.High, b.Low, b.Close, b.Volume
	}
	f.cols["open"] = open
	f.cols["high"] = high
	f.cols["low"] = low
	f.cols["close"] = closes
	f.cols["volume"] = vol
	return f
}

// Len returns the number of rows.
func (f *Frame) Len() int { return f.n }

// Set attaches a series under name. Series of the wrong length are ignored.
func (f *Frame) Set(name string, s Series) bool {
	if len(s) != f.n {
		return false
	}
	f.cols[name] = s
	return true
}

// Lookup returns the series stored under name.
func (f *Frame) Lookup(name string) (Series, bool) {
	s, ok := f.cols[name]
	return s, ok
}

// Snapshot returns the last value of every column, omitting undefined ones.
func (f *Frame) Snapshot() map[string]float64 {
	out := make(map[string]float64, len(f.cols))
	for k, s := range f.cols {
		if v := s.Last(); !math.IsNaN(v) {
			out[k] = v
		}
	}
	return out
}

// Columns exposes the frame as plain slices.
func (f *Frame) Columns() map[string][]float64 {
	out := make(map[string][]float64, len(f.cols))
	for k, s := range f.cols {
		out[k] = []float64(s)
	}
	return out
}
