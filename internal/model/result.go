package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceStats summarizes the fetched closes.
type PriceStats struct {
	Latest    float64 `json:"latest"`
	First     float64 `json:"first"`
	Change    float64 `json:"change"`
	ChangePct float64 `json:"change_pct"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
}

// TradeSide is the action recorded in a backtest trade log.
type TradeSide string

const (
	SideBuy  TradeSide = "BUY"
	SideSell TradeSide = "SELL"
)

// Trade is one backtest fill.
type Trade struct {
	Index   int             `json:"index"`
	Time    time.Time       `json:"time"`
	Side    TradeSide       `json:"side"`
	Price   float64         `json:"price"`
	Units   decimal.Decimal `json:"units"`
	Balance decimal.Decimal `json:"balance"`
	Forced  bool            `json:"forced,omitempty"`
}

// BacktestResult is the outcome of a long/flat simulation.
type BacktestResult struct {
	InitialBalance decimal.Decimal `json:"initial_balance"`
	FinalBalance   decimal.Decimal `json:"final_balance"`
	TotalReturnPct float64         `json:"total_return_pct"`
	Trades         []Trade         `json:"trades"`
}

// RuleReport summarizes one rule-based strategy run over a symbol.
type RuleReport struct {
	Name     string          `json:"name"`
	BuyBars  int             `json:"buy_bars"`
	SellBars int             `json:"sell_bars"`
	BuyNow   bool            `json:"buy_now"`
	SellNow  bool            `json:"sell_now"`
	Strength float64         `json:"strength"`
	Backtest *BacktestResult `json:"backtest,omitempty"`
	Missing  []string        `json:"missing,omitempty"`
}

// Confirmations counts buy and sell confirmations of a multi-indicator strategy.
type Confirmations struct {
	Buy  int `json:"buy"`
	Sell int `json:"sell"`
}

// SymbolAnalysisResult is the outcome of analyzing one symbol.
type SymbolAnalysisResult struct {
	Key       string `json:"key"`
	Symbol    string `json:"symbol"`
	AssetType string `json:"asset_type"`
	Timeframe string `json:"timeframe"`
	Period    string `json:"period"`
	Strategy  string `json:"strategy"`

	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`

	Price        PriceStats          `json:"price"`
	RecentCloses []float64           `json:"recent_closes,omitempty"`
	DataPoints   int                 `json:"data_points"`
	Indicators   map[string]float64  `json:"indicators,omitempty"`
	Oscillators  []OscillatorReading `json:"oscillators,omitempty"`
	Tally        SignalTally         `json:"tally"`
	Sentiment    Sentiment           `json:"sentiment,omitempty"`

	Signal          SignalStrength  `json:"signal,omitempty"`
	Confirmations   *Confirmations  `json:"confirmations,omitempty"`
	Risk            *RiskBands      `json:"risk,omitempty"`
	LatestCrossover *CrossoverEvent `json:"latest_crossover,omitempty"`
	Rules           []RuleReport    `json:"rules,omitempty"`

	AnalyzedAt time.Time `json:"analyzed_at"`

	// Bars and Frame are kept for export and alert checks, never serialized.
	Bars  BarSeries            `json:"-"`
	Frame map[string][]float64 `json:"-"`
}

// FailedResult builds a success=false result for cfg.
func FailedResult(cfg SymbolConfig, err error) *SymbolAnalysisResult {
	return &SymbolAnalysisResult{
		Key:        cfg.Key(),
		Symbol:     cfg.Symbol,
		AssetType:  cfg.AssetType,
		Timeframe:  cfg.Timeframe,
		Period:     cfg.Period,
		Strategy:   cfg.Strategy,
		Success:    false,
		Error:      err.Error(),
		AnalyzedAt: time.Now(),
	}
}

// GroupAnalysisResult aggregates one group run.
type GroupAnalysisResult struct {
	RunID     string    `json:"run_id"`
	GroupID   string    `json:"group_id"`
	GroupName string    `json:"group_name"`
	StartedAt time.Time `json:"started_at"`
	// ExecutionTime is in seconds.
	ExecutionTime float64 `json:"execution_time"`

	Results   map[string]*SymbolAnalysisResult `json:"results"`
	Total     int                              `json:"total"`
	Succeeded int                              `json:"succeeded"`
	Failed    int                              `json:"failed"`
	Tally     SignalTally                      `json:"tally"`
	Sentiment Sentiment                        `json:"sentiment"`
}
