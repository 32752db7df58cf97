package collector

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"SignalDesk/internal/model"
)

// ErrNoData is returned when a provider answers with no usable bars.
var ErrNoData = errors.New("no data returned")

// Fetcher retrieves bar series from a market data provider.
type Fetcher interface {
	FetchBars(ctx context.Context, symbol, assetType, timeframe, period string) (model.BarSeries, error)
	Name() string
}

// newHTTPClient builds a client with an optional proxy.
func newHTTPClient(proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}
}
