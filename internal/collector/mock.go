package collector

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"time"

	"SignalDesk/internal/model"
)

// MockFetcher returns deterministic bars for development and testing.
// Data overrides generation per upper-cased symbol; Errors forces a failure.
type MockFetcher struct {
	Price  float64
	Count  int
	End    time.Time
	Data   map[string]model.BarSeries
	Errors map[string]error

	mu    sync.Mutex
	calls map[string]int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchBars(ctx context.Context, symbol, _ string, timeframe, _ string) (model.BarSeries, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := strings.ToUpper(symbol)

	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[key]++
	m.mu.Unlock()

	if err, ok := m.Errors[key]; ok {
		return nil, err
	}
	if bars, ok := m.Data[key]; ok {
		if len(bars) == 0 {
			return nil, fmt.Errorf("mock %s: %w", key, ErrNoData)
		}
		return bars, nil
	}

	step, err := ParseTimeframe(timeframe)
	if err != nil {
		step = 24 * time.Hour
	}
	count := m.Count
	if count <= 0 {
		count = 200
	}
	end := m.End
	if end.IsZero() {
		end = time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)
	}
	price := m.Price
	if price <= 0 {
		price = 100
	}
	return generateMockBars(key, price, count, end, step), nil
}

// Calls returns how often symbol was fetched.
func (m *MockFetcher) Calls(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[strings.ToUpper(symbol)]
}

// generateMockBars draws a trending sine wave whose phase depends on the symbol.
func generateMockBars(symbol string, basePrice float64, count int, end time.Time, step time.Duration) model.BarSeries {
	h := fnv.New32a()
	h.Write([]byte(symbol))
	phase := float64(h.Sum32()%360) * math.Pi / 180

	bars := make(model.BarSeries, count)
	for i := 0; i < count; i++ {
		x := float64(i)
		p := basePrice * (1 + 0.05*math.Sin(x/9+phase) + float64(i-count/2)*0.0005)
		bars[i] = model.OHLCV{
			Time:   end.Add(-time.Duration(count-1-i) * step),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000 + 50000*math.Cos(x/5+phase),
		}
	}
	return bars
}
