package collector

import (
	"fmt"
	"strings"
	"time"
)

var periods = map[string]time.Duration{
	"1d":  24 * time.Hour,
	"5d":  5 * 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"1mo": 30 * 24 * time.Hour,
	"3mo": 90 * 24 * time.Hour,
	"6mo": 180 * 24 * time.Hour,
	"1y":  365 * 24 * time.Hour,
	"2y":  2 * 365 * 24 * time.Hour,
	"5y":  5 * 365 * 24 * time.Hour,
	"max": 20 * 365 * 24 * time.Hour,
}

var timeframes = map[string]time.Duration{
	"1m":  time.Minute,
	"2m":  2 * time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"60m": time.Hour,
	"90m": 90 * time.Minute,
	"1h":  time.Hour,
	"4h":  4 * time.Hour,
	"1d":  24 * time.Hour,
	"1wk": 7 * 24 * time.Hour,
}

// ParsePeriod returns the lookback span of a period such as "3mo" or "1y".
func ParsePeriod(period string) (time.Duration, error) {
	d, ok := periods[strings.ToLower(strings.TrimSpace(period))]
	if !ok {
		return 0, fmt.Errorf("unknown period %q", period)
	}
	return d, nil
}

// ParseTimeframe returns the bar width of a timeframe such as "1h" or "1wk".
func ParseTimeframe(tf string) (time.Duration, error) {
	d, ok := timeframes[strings.ToLower(strings.TrimSpace(tf))]
	if !ok {
		return 0, fmt.Errorf("unknown timeframe %q", tf)
	}
	return d, nil
}

// yahooInterval maps a timeframe onto a chart API interval. Yahoo has no 4h bars,
// so 4h is served as 1h.
func yahooInterval(tf string) string {
	switch tf = strings.ToLower(tf); tf {
	case "1h":
		return "60m"
	case "4h":
		return "60m"
	default:
		return tf
	}
}

// window returns the [start, end) range covering period up to now.
func window(period string, now time.Time) (time.Time, time.Time, error) {
	d, err := ParsePeriod(period)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return now.Add(-d), now, nil
}
