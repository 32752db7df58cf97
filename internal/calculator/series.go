package calculator

import (
	"math"

	talib "github.com/markcheno/go-talib"
)

// Series is a derived series aligned index-for-index with its source bars.
// NaN marks bars where the value is undefined (warm-up, zero denominators).
type Series []float64

// NaNSeries returns a series of n NaN values.
func NaNSeries(n int) Series {
	s := make(Series, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}

// At returns s[i], or NaN when i is out of range.
func (s Series) At(i int) float64 {
	if i < 0 || i >= len(s) {
		return math.NaN()
	}
	return s[i]
}

// Last returns the final value, or NaN for an empty series.
func (s Series) Last() float64 { return s.At(len(s) - 1) }

// Prev returns the value before the final one.
func (s Series) Prev() float64 { return s.At(len(s) - 2) }

// Defined reports whether s[i] holds a value.
func (s Series) Defined(i int) bool { return !math.IsNaN(s.At(i)) }

// view exposes the first n values without letting callers append into our buffer.
func (s Series) view(n int) Series { return s[:n:n] }

// resize returns s grown to n with NaN padding, or a fresh NaN series when reset is set.
func resize(s Series, n int, reset bool) Series {
	if reset || len(s) > n {
		return NaNSeries(n)
	}
	for len(s) < n {
		s = append(s, math.NaN())
	}
	return s
}

// rolling fills dst[from:] with fn applied over trailing windows of w values.
// fn runs on each NaN-free stretch of src that reaches into [from, n), so a
// window touching a NaN, or holding fewer than w values, yields NaN.
func rolling(dst, src Series, w, from int, fn func(in []float64, w int) []float64) {
	n := len(src)
	for i := from; i < n; i++ {
		dst[i] = math.NaN()
	}
	if w <= 0 {
		return
	}
	start := from - w + 1
	if start < 0 {
		start = 0
	}
	for start < n {
		for start < n && math.IsNaN(src[start]) {
			start++
		}
		end := start
		for end < n && !math.IsNaN(src[end]) {
			end++
		}
		if end-start >= w {
			out := fn(src[start:end], w)
			for i := start + w - 1; i < end; i++ {
				if i >= from {
					dst[i] = out[i-start]
				}
			}
		}
		start = end
	}
}

// rollingSum fills dst[from:] with the sum of the trailing w values of src.
func rollingSum(dst, src Series, w, from int) {
	rolling(dst, src, w, from, talib.Sum)
}

// rollingMean fills dst[from:] with the trailing w-value mean of src.
func rollingMean(dst, src Series, w, from int) {
	rolling(dst, src, w, from, talib.Sma)
}

// ewm fills dst[from:] with an exponential moving average using smoothing factor alpha,
// seeded with the first defined value (adjust=False semantics).
func ewm(dst, src Series, alpha float64, from int) {
	for i := from; i < len(src); i++ {
		prev := dst.At(i - 1)
		switch {
		case math.IsNaN(src[i]):
			dst[i] = prev
		case math.IsNaN(prev):
			dst[i] = src[i]
		default:
			dst[i] = alpha*src[i] + (1-alpha)*prev
		}
	}
}

// maskBefore copies src into dst from index from, leaving NaN before index first.
func maskBefore(dst, src Series, first, from int) {
	for i := from; i < len(src); i++ {
		if i < first {
			dst[i] = math.NaN()
		} else {
			dst[i] = src[i]
		}
	}
}

// ratio returns 100*num/den, NaN when den is zero or either side is undefined.
func ratio(num, den float64) float64 {
	if den == 0 || math.IsNaN(num) || math.IsNaN(den) {
		return math.NaN()
	}
	return 100 * num / den
}
