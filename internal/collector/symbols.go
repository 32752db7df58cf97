package collector

import (
	"strings"

	"SignalDesk/internal/model"
)

// SymbolTable resolves friendly names such as "gold" or "us30" to provider
// tickers. It is immutable once built and safe for concurrent use.
type SymbolTable struct {
	entries map[string]string
}

// NewSymbolTable copies entries into a table keyed case-insensitively.
func NewSymbolTable(entries map[string]string) *SymbolTable {
	t := &SymbolTable{entries: make(map[string]string, len(entries))}
	for k, v := range entries {
		t.entries[strings.ToLower(k)] = v
	}
	return t
}

// Resolve returns the ticker for name, or name unchanged when it is not a known alias.
func (t *SymbolTable) Resolve(name string) string {
	if t == nil {
		return name
	}
	if v, ok := t.entries[strings.ToLower(strings.TrimSpace(name))]; ok {
		return v
	}
	return name
}

// Len returns the number of aliases.
func (t *SymbolTable) Len() int { return len(t.entries) }

// DefaultSymbols returns the built-in Yahoo aliases grouped by asset type.
func DefaultSymbols() map[string]map[string]string {
	return map[string]map[string]string{
		model.AssetIndices: {
			"us30":         "^DJI",
			"sp500":        "^GSPC",
			"spx500":       "^GSPC",
			"spx":          "^GSPC",
			"nas100":       "^NDX",
			"nasdaq":       "^IXIC",
			"russell2000":  "^RUT",
			"dax":          "^GDAXI",
			"ftse100":      "^FTSE",
			"nikkei":       "^N225",
			"hangseng":     "^HSI",
			"australia200": "^AXJO",
			"tsx":          "^GSPTSE",
		},
		model.AssetCrypto: {
			"btc":      "BTC-USD",
			"bitcoin":  "BTC-USD",
			"eth":      "ETH-USD",
			"ethereum": "ETH-USD",
			"sol":      "SOL-USD",
			"solana":   "SOL-USD",
			"xrp":      "XRP-USD",
			"doge":     "DOGE-USD",
			"ada":      "ADA-USD",
			"avax":     "AVAX-USD",
			"link":     "LINK-USD",
			"dot":      "DOT-USD",
			"ltc":      "LTC-USD",
		},
		model.AssetForex: {
			"eurusd": "EURUSD=X",
			"usdjpy": "USDJPY=X",
			"gbpusd": "GBPUSD=X",
			"usdchf": "USDCHF=X",
			"audusd": "AUDUSD=X",
			"usdcad": "USDCAD=X",
			"nzdusd": "NZDUSD=X",
			"eurjpy": "EURJPY=X",
			"gbpjpy": "GBPJPY=X",
		},
		model.AssetStocks: {
			"apple":     "AAPL",
			"microsoft": "MSFT",
			"google":    "GOOGL",
			"amazon":    "AMZN",
			"tesla":     "TSLA",
			"nvidia":    "NVDA",
			"goldman":   "GS",
		},
		model.AssetCommodities: {
			"gold":   "GC=F",
			"silver": "SI=F",
			"oil":    "CL=F",
		},
	}
}

// DefaultSymbolTable flattens DefaultSymbols into one table.
func DefaultSymbolTable() *SymbolTable {
	flat := make(map[string]string)
	for _, m := range DefaultSymbols() {
		for k, v := range m {
			flat[k] = v
		}
	}
	return NewSymbolTable(flat)
}
