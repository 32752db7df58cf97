package strategy

import (
	"SignalDesk/internal/model"

	"github.com/shopspring/decimal"
)

// DefaultInitialBalance is the starting balance used for advisory backtests.
var DefaultInitialBalance = decimal.NewFromInt(10000)

// Backtest simulates a long/flat account over bars: a buy bar while flat puts the
// whole balance into a long at the close, a sell bar while long closes it. Any
// open position is closed at the last close. No fees, slippage or partial sizing.
func Backtest(bars model.BarSeries, set SignalSet, initial decimal.Decimal) *model.BacktestResult {
	res := &model.BacktestResult{InitialBalance: initial, FinalBalance: initial}
	balance := initial
	units := decimal.Zero

	for i, bar := range bars {
		if bar.Close <= 0 {
			continue
		}
		price := decimal.NewFromFloat(bar.Close)
		switch {
		case at(set.Buy, i) && units.IsZero():
			units = balance.Div(price)
			balance = decimal.Zero
			res.Trades = append(res.Trades, model.Trade{
				Index: i, Time: bar.Time, Side: model.SideBuy, Price: bar.Close, Units: units, Balance: balance,
			})
		case at(set.Sell, i) && units.IsPositive():
			balance = balance.Add(units.Mul(price))
			res.Trades = append(res.Trades, model.Trade{
				Index: i, Time: bar.Time, Side: model.SideSell, Price: bar.Close, Units: units, Balance: balance,
			})
			units = decimal.Zero
		}
	}

	if units.IsPositive() && len(bars) > 0 {
		last := bars[len(bars)-1]
		balance = balance.Add(units.Mul(decimal.NewFromFloat(last.Close)))
		res.Trades = append(res.Trades, model.Trade{
			Index: len(bars) - 1, Time: last.Time, Side: model.SideSell, Price: last.Close,
			Units: units, Balance: balance, Forced: true,
		})
	}

	res.FinalBalance = balance
	if !initial.IsZero() {
		res.TotalReturnPct, _ = balance.Sub(initial).Div(initial).Mul(decimal.NewFromInt(100)).Float64()
	}
	return res
}

func at(s []bool, i int) bool { return i < len(s) && s[i] }
