package collector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"SignalDesk/internal/model"
)

// alpacaBars is the subset of the marketdata client the fetcher needs.
type alpacaBars interface {
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
	GetCryptoBars(symbol string, req marketdata.GetCryptoBarsRequest) ([]marketdata.CryptoBar, error)
}

// AlpacaFetcher implements Fetcher with the Alpaca market data API. Stocks use
// the v2 stock bars, crypto the v1beta3 crypto bars.
type AlpacaFetcher struct {
	client alpacaBars
	now    func() time.Time
}

// NewAlpacaFetcher creates an Alpaca fetcher. baseURL may be empty.
func NewAlpacaFetcher(apiKey, apiSecret, baseURL string) *AlpacaFetcher {
	client := marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
		BaseURL:   baseURL,
	})
	return &AlpacaFetcher{client: client, now: time.Now}
}

func (f *AlpacaFetcher) Name() string { return "alpaca" }

// alpacaTimeFrame maps a timeframe onto an Alpaca bar width.
func alpacaTimeFrame(tf string) (marketdata.TimeFrame, error) {
	switch strings.ToLower(tf) {
	case "1m":
		return marketdata.NewTimeFrame(1, marketdata.Min), nil
	case "5m":
		return marketdata.NewTimeFrame(5, marketdata.Min), nil
	case "15m":
		return marketdata.NewTimeFrame(15, marketdata.Min), nil
	case "30m":
		return marketdata.NewTimeFrame(30, marketdata.Min), nil
	case "60m", "1h":
		return marketdata.NewTimeFrame(1, marketdata.Hour), nil
	case "4h":
		return marketdata.NewTimeFrame(4, marketdata.Hour), nil
	case "1d":
		return marketdata.NewTimeFrame(1, marketdata.Day), nil
	case "1wk":
		return marketdata.NewTimeFrame(1, marketdata.Week), nil
	}
	return marketdata.TimeFrame{}, fmt.Errorf("alpaca: unsupported timeframe %q", tf)
}

// alpacaCryptoSymbol turns "BTC-USD" or "btcusd" into Alpaca's "BTC/USD".
func alpacaCryptoSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if strings.Contains(s, "/") {
		return s
	}
	if strings.Contains(s, "-") {
		return strings.Replace(s, "-", "/", 1)
	}
	if strings.HasSuffix(s, "USD") && len(s) > 3 {
		return s[:len(s)-3] + "/USD"
	}
	return s + "/USD"
}

func (f *AlpacaFetcher) FetchBars(ctx context.Context, symbol, assetType, timeframe, period string) (model.BarSeries, error) {
	tf, err := alpacaTimeFrame(timeframe)
	if err != nil {
		return nil, err
	}
	start, end, err := window(period, f.now().UTC())
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type result struct {
		bars model.BarSeries
		err  error
	}
	done := make(chan result, 1)
	go func() {
		bars, err := f.fetch(symbol, assetType, tf, start, end)
		done <- result{bars, err}
	}()

	// The SDK calls take no context, so the deadline is enforced here.
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		return r.bars, r.err
	}
}

func (f *AlpacaFetcher) fetch(symbol, assetType string, tf marketdata.TimeFrame, start, end time.Time) (model.BarSeries, error) {
	var bars model.BarSeries
	if assetType == model.AssetCrypto {
		sym := alpacaCryptoSymbol(symbol)
		raw, err := f.client.GetCryptoBars(sym, marketdata.GetCryptoBarsRequest{
			TimeFrame: tf,
			Start:     start,
			End:       end,
		})
		if err != nil {
			return nil, fmt.Errorf("alpaca crypto bars %s: %w", sym, err)
		}
		for _, b := range raw {
			bars = append(bars, model.OHLCV{
				Time: b.Timestamp.UTC(), Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Volume: b.Volume,
			})
		}
	} else {
		sym := strings.ToUpper(symbol)
		raw, err := f.client.GetBars(sym, marketdata.GetBarsRequest{
			TimeFrame: tf,
			Start:     start,
			End:       end,
		})
		if err != nil {
			return nil, fmt.Errorf("alpaca bars %s: %w", sym, err)
		}
		for _, b := range raw {
			bars = append(bars, model.OHLCV{
				Time: b.Timestamp.UTC(), Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Volume: float64(b.Volume),
			})
		}
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("alpaca %s: %w", symbol, ErrNoData)
	}
	return bars, nil
}
