package strategy

import (
	"log"
	"sort"
	"strings"

	"SignalDesk/internal/calculator"
	"SignalDesk/internal/crossover"
	"SignalDesk/internal/model"
)

// Registered strategy names.
const (
	DefaultName        = "default-check-single-timeframe"
	DualSupertrendName = "dual-supertrend-check-single-timeframe"
)

// Env carries per-run settings shared by every strategy.
type Env struct {
	Crossover crossover.Settings
	// Rules are evaluated and backtested on top of the strategy's own analysis.
	Rules []RuleStrategy
}

// Analysis is everything a strategy derives from one bar series.
type Analysis struct {
	Indicators      map[string]float64
	Oscillators     []model.OscillatorReading
	Tally           model.SignalTally
	Sentiment       model.Sentiment
	Signal          model.SignalStrength
	Confirmations   *model.Confirmations
	Risk            *model.RiskBands
	LatestCrossover *model.CrossoverEvent
	Rules           []model.RuleReport
	Frame           *calculator.Frame
}

// Strategy turns bars into an Analysis. A fresh Strategy value is built for every
// analysis so indicator state is never shared between symbols.
type Strategy interface {
	Name() string
	Analyze(bars model.BarSeries, env Env) (*Analysis, error)
}

// Factory builds a new Strategy instance.
type Factory func() Strategy

// Registry maps strategy names and aliases to factories. It is read-only after construction.
type Registry struct {
	factories map[string]Factory
	aliases   map[string]string
	fallback  string
}

// NewRegistry returns a registry holding the built-in strategies.
func NewRegistry() *Registry {
	r := &Registry{
		factories: map[string]Factory{
			DefaultName:        func() Strategy { return NewDefault() },
			DualSupertrendName: func() Strategy { return NewDualSupertrend() },
		},
		aliases: map[string]string{
			"single-check":    DefaultName,
			"default":         DefaultName,
			"dual-supertrend": DualSupertrendName,
		},
		fallback: DefaultName,
	}
	return r
}

// SetDefault changes the fallback strategy. Unknown names are ignored.
func (r *Registry) SetDefault(name string) {
	if canon, ok := r.canonical(name); ok {
		r.fallback = canon
	}
}

// Names returns the canonical strategy names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Has reports whether name resolves without falling back.
func (r *Registry) Has(name string) bool {
	_, ok := r.canonical(name)
	return ok
}

func (r *Registry) canonical(name string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if _, ok := r.factories[key]; ok {
		return key, true
	}
	if canon, ok := r.aliases[key]; ok {
		return canon, true
	}
	return "", false
}

// Resolve builds the strategy registered under name. An empty name selects the
// default; an unknown name falls back to it with a warning.
func (r *Registry) Resolve(name string) Strategy {
	if name == "" {
		return r.factories[r.fallback]()
	}
	canon, ok := r.canonical(name)
	if !ok {
		log.Printf("[WARN] unknown strategy %q, falling back to %s", name, r.fallback)
		canon = r.fallback
	}
	return r.factories[canon]()
}

// ruleReports evaluates every rule strategy against frame and backtests its signals.
func ruleReports(bars model.BarSeries, frame *calculator.Frame, rules []RuleStrategy) []model.RuleReport {
	if len(rules) == 0 {
		return nil
	}
	reports := make([]model.RuleReport, 0, len(rules))
	last := frame.Len() - 1
	for _, rule := range rules {
		set := rule.Evaluate(frame)
		rep := model.RuleReport{
			Name:     rule.Name,
			BuyBars:  Count(set.Buy),
			SellBars: Count(set.Sell),
			Missing:  set.Missing,
			Backtest: Backtest(bars, set, DefaultInitialBalance),
		}
		if last >= 0 {
			rep.BuyNow = set.Buy[last]
			rep.SellNow = set.Sell[last]
			rep.Strength = set.Strength[last]
		}
		reports = append(reports, rep)
	}
	return reports
}
