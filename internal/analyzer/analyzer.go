package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"SignalDesk/internal/calculator"
	"SignalDesk/internal/collector"
	"SignalDesk/internal/crossover"
	"SignalDesk/internal/metrics"
	"SignalDesk/internal/model"
	"SignalDesk/internal/strategy"
)

// recentCloses is how many trailing closes a result carries.
const recentCloses = 7

// Options configures an Analyzer.
type Options struct {
	// FetchTimeout bounds each market data fetch. Zero disables the deadline.
	FetchTimeout time.Duration
	Crossover    crossover.Settings
	Rules        []strategy.RuleStrategy
	Metrics      *metrics.Metrics
}

// Analyzer runs one strategy over one symbol. It holds no per-symbol state, so a
// single Analyzer serves concurrent calls.
type Analyzer struct {
	fetcher  collector.Fetcher
	registry *strategy.Registry
	opts     Options
}

// New creates an Analyzer.
func New(fetcher collector.Fetcher, registry *strategy.Registry, opts Options) *Analyzer {
	if registry == nil {
		registry = strategy.NewRegistry()
	}
	return &Analyzer{fetcher: fetcher, registry: registry, opts: opts}
}

// Registry returns the strategy registry the analyzer resolves names against.
func (a *Analyzer) Registry() *strategy.Registry { return a.registry }

// Analyze fetches bars for cfg and runs its strategy. It never returns nil and
// never panics: every failure becomes a result with Success=false.
func (a *Analyzer) Analyze(ctx context.Context, cfg model.SymbolConfig) (res *model.SymbolAnalysisResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[ERROR] analysis of %s panicked: %v", cfg.Key(), r)
			a.opts.Metrics.ObserveSymbol(metrics.OutcomePanic)
			res = model.FailedResult(cfg, fmt.Errorf("panic: %v", r))
		}
	}()

	bars, err := a.fetch(ctx, cfg)
	if err != nil {
		log.Printf("[WARN] fetch %s failed: %v", cfg.Key(), err)
		a.opts.Metrics.ObserveSymbol(metrics.OutcomeFailure)
		return model.FailedResult(cfg, err)
	}

	strat := a.registry.Resolve(cfg.Strategy)
	env := strategy.Env{Crossover: a.opts.Crossover, Rules: a.opts.Rules}
	an, err := strat.Analyze(bars, env)
	if err != nil {
		a.opts.Metrics.ObserveSymbol(metrics.OutcomeFailure)
		return model.FailedResult(cfg, fmt.Errorf("strategy %s: %w", strat.Name(), err))
	}

	res = &model.SymbolAnalysisResult{
		Key:             cfg.Key(),
		Symbol:          cfg.Symbol,
		AssetType:       cfg.AssetType,
		Timeframe:       cfg.Timeframe,
		Period:          cfg.Period,
		Strategy:        strat.Name(),
		Success:         true,
		Price:           priceStats(bars),
		RecentCloses:    lastCloses(bars, recentCloses),
		DataPoints:      len(bars),
		Indicators:      an.Indicators,
		Oscillators:     an.Oscillators,
		Tally:           an.Tally,
		Sentiment:       an.Sentiment,
		Signal:          an.Signal,
		Confirmations:   an.Confirmations,
		Risk:            an.Risk,
		LatestCrossover: an.LatestCrossover,
		Rules:           an.Rules,
		AnalyzedAt:      time.Now(),
		Bars:            bars,
	}
	if an.Frame != nil {
		res.Frame = an.Frame.Columns()
	}
	a.opts.Metrics.ObserveSymbol(metrics.OutcomeSuccess)
	return res
}

// fetch applies the deadline and validates what the provider returned.
func (a *Analyzer) fetch(ctx context.Context, cfg model.SymbolConfig) (model.BarSeries, error) {
	if a.fetcher == nil {
		return nil, errors.New("no data provider configured")
	}
	if a.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.FetchTimeout)
		defer cancel()
	}

	start := time.Now()
	bars, err := a.fetcher.FetchBars(ctx, cfg.Symbol, cfg.AssetType, cfg.Timeframe, cfg.Period)
	timedOut := errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
	a.opts.Metrics.ObserveFetch(a.fetcher.Name(), time.Since(start), timedOut)

	switch {
	case timedOut:
		return nil, fmt.Errorf("fetch %s: timed out after %s", cfg.Symbol, a.opts.FetchTimeout)
	case err != nil:
		return nil, fmt.Errorf("fetch %s: %w", cfg.Symbol, err)
	case len(bars) == 0:
		return nil, fmt.Errorf("fetch %s: %w", cfg.Symbol, collector.ErrNoData)
	}
	if err := bars.Validate(); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", cfg.Symbol, err)
	}
	return bars, nil
}

func priceStats(bars model.BarSeries) model.PriceStats {
	first, last := bars[0].Close, bars.Last().Close
	ps := model.PriceStats{
		Latest: last,
		First:  first,
		Change: last - first,
	}
	if first != 0 {
		ps.ChangePct = (last - first) / first * 100
	}
	ps.High, ps.Low, _ = calculator.HighLow(bars, 0)
	return ps
}

func lastCloses(bars model.BarSeries, n int) []float64 {
	if len(bars) < n {
		n = len(bars)
	}
	out := make([]float64, 0, n)
	for _, b := range bars[len(bars)-n:] {
		out = append(out, b.Close)
	}
	return out
}
