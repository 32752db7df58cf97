package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"SignalDesk/internal/model"
)

// RESTFetcher implements Fetcher against a generic bars REST API:
//
//	GET {base}/api/v1/bars?symbol=&asset_type=&timeframe=&start=&end=
//
// answering with a JSON array of {timestamp, open, high, low, close, volume}.
type RESTFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	Symbols *SymbolTable

	now func() time.Time
}

// NewRESTFetcher creates a REST fetcher with optional proxy support.
func NewRESTFetcher(baseURL, apiKey, proxyURL string, symbols *SymbolTable) *RESTFetcher {
	return &RESTFetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  newHTTPClient(proxyURL),
		Symbols: symbols,
		now:     time.Now,
	}
}

func (f *RESTFetcher) Name() string { return "rest" }

type restBar struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

func (f *RESTFetcher) FetchBars(ctx context.Context, symbol, assetType, timeframe, period string) (model.BarSeries, error) {
	if _, err := ParseTimeframe(timeframe); err != nil {
		return nil, err
	}
	now := time.Now
	if f.now != nil {
		now = f.now
	}
	start, end, err := window(period, now().UTC())
	if err != nil {
		return nil, err
	}
	ticker := f.Symbols.Resolve(symbol)

	bars, err := f.fetch(ctx, ticker, assetType, timeframe, start, end)
	if err != nil && strings.EqualFold(timeframe, "1wk") {
		// Weekly bars are not offered by every backend: aggregate daily ones.
		daily, dailyErr := f.fetch(ctx, ticker, assetType, "1d", start, end)
		if dailyErr != nil {
			return nil, fmt.Errorf("weekly fetch failed: %w; daily fallback also failed: %w", err, dailyErr)
		}
		return aggregateDailyToWeekly(daily), nil
	}
	if err != nil {
		return nil, err
	}
	return bars, nil
}

func (f *RESTFetcher) fetch(ctx context.Context, ticker, assetType, timeframe string, start, end time.Time) (model.BarSeries, error) {
	q := url.Values{}
	q.Set("symbol", ticker)
	q.Set("asset_type", assetType)
	q.Set("timeframe", timeframe)
	q.Set("start", start.Format(time.RFC3339))
	q.Set("end", end.Format(time.RFC3339))
	endpoint := f.BaseURL + "/api/v1/bars?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if f.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch bars: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("fetch bars: status %d, body: %s", resp.StatusCode, string(body))
	}
	var raw []restBar
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode bars: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("rest %s: %w", ticker, ErrNoData)
	}
	bars := make(model.BarSeries, len(raw))
	for i, rb := range raw {
		bars[i] = model.OHLCV{
			Time:   time.Unix(rb.Timestamp, 0).UTC(),
			Open:   rb.Open,
			High:   rb.High,
			Low:    rb.Low,
			Close:  rb.Close,
			Volume: rb.Volume,
		}
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return dedupe(bars), nil
}

// aggregateDailyToWeekly folds daily bars into ISO-week bars.
func aggregateDailyToWeekly(daily model.BarSeries) model.BarSeries {
	if len(daily) == 0 {
		return nil
	}
	var weekly model.BarSeries
	week := daily[0]
	wy, ww := week.Time.ISOWeek()

	for _, d := range daily[1:] {
		y, w := d.Time.ISOWeek()
		if y != wy || w != ww {
			weekly = append(weekly, week)
			week, wy, ww = d, y, w
			continue
		}
		if d.High > week.High {
			week.High = d.High
		}
		if d.Low < week.Low {
			week.Low = d.Low
		}
		week.Close = d.Close
		week.Volume += d.Volume
	}
	return append(weekly, week)
}
