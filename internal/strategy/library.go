package strategy

// Frame column names produced by the analysis strategies.
const (
	ColPlusDI     = "+DI"
	ColMinusDI    = "-DI"
	ColADX        = "ADX"
	ColK          = "%K"
	ColD          = "%D"
	ColRSI        = "rsi"
	ColSupertrend = "supertrend"
	ColDirection  = "direction"
	ColATR        = "atr_value"
	ColUpperBand  = "upperband"
	ColLowerBand  = "lowerband"
)

// LegacyDIStoch buys when +DI crosses above -DI and %K crosses above %D on the same bar.
func LegacyDIStoch() RuleStrategy {
	return RuleStrategy{
		Name: "Legacy_DI_Stoch",
		Buy: []Condition{
			{Name: "di_cross_up", Left: ColPlusDI, Operator: OpCrossAbove, Right: ColMinusDI, Lookback: 1},
			{Name: "stoch_cross_up", Left: ColK, Operator: OpCrossAbove, Right: ColD, Lookback: 1},
		},
		BuyMode: And,
		Sell: []Condition{
			{Name: "di_cross_down", Left: ColPlusDI, Operator: OpCrossBelow, Right: ColMinusDI, Lookback: 1},
			{Name: "stoch_cross_down", Left: ColK, Operator: OpCrossBelow, Right: ColD, Lookback: 1},
		},
		SellMode: And,
	}
}

// RSIOversold buys on RSI leaving oversold and sells on RSI leaving overbought.
func RSIOversold() RuleStrategy {
	return RuleStrategy{
		Name:     "RSI_Oversold",
		Buy:      []Condition{{Name: "rsi_oversold_exit", Left: ColRSI, Operator: OpCrossAbove, Value: 30}},
		BuyMode:  And,
		Sell:     []Condition{{Name: "rsi_overbought_exit", Left: ColRSI, Operator: OpCrossBelow, Value: 70}},
		SellMode: And,
	}
}

// SupertrendRule follows the supertrend direction.
func SupertrendRule() RuleStrategy {
	return RuleStrategy{
		Name:     "Supertrend",
		Buy:      []Condition{{Name: "supertrend_bullish", Left: ColDirection, Operator: OpEqual, Value: 1}},
		BuyMode:  And,
		Sell:     []Condition{{Name: "supertrend_bearish", Left: ColDirection, Operator: OpEqual, Value: 0}},
		SellMode: And,
	}
}

// Library returns the built-in rule strategies.
func Library() []RuleStrategy {
	return []RuleStrategy{LegacyDIStoch(), RSIOversold(), SupertrendRule()}
}
